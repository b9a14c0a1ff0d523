package session

import "strings"

// Credentials are collected for a single login attempt and never persisted.
type Credentials struct {
	Email     string
	Password  string
	PushToken string
}

// Trimmed returns a copy with surrounding whitespace removed from every field
// except the password, which is sent as typed.
func (c Credentials) Trimmed() Credentials {
	return Credentials{
		Email:     strings.TrimSpace(c.Email),
		Password:  c.Password,
		PushToken: strings.TrimSpace(c.PushToken),
	}
}
