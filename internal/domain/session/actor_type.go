package session

import (
	"errors"
	"strings"
)

// ActorType is the kind of user a session belongs to.
type ActorType string

const (
	ActorRider  ActorType = "RIDER"
	ActorDriver ActorType = "DRIVER"
)

var ErrInvalidActorType = errors.New("invalid actor type")

// ParseActorType normalizes (uppercases+trims) and validates an actor type string.
func ParseActorType(s string) (ActorType, error) {
	actor := ActorType(strings.ToUpper(strings.TrimSpace(s)))
	if actor.Valid() {
		return actor, nil
	}
	return "", ErrInvalidActorType
}

// Valid reports whether actor is one of the allowed actor type constants.
func (actor ActorType) Valid() bool {
	switch actor {
	case ActorRider, ActorDriver:
		return true
	default:
		return false
	}
}

// String returns the string representation of the ActorType.
func (actor ActorType) String() string {
	return string(actor)
}
