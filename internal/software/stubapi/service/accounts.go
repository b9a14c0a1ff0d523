package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Role is the kind of account the development backend knows about. Admins exist so the
// generic login endpoint can answer unsupported_client.
type Role string

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
	RoleAdmin     Role = "admin"
)

var (
	ErrAccountNotFound    = errors.New("account does not exist")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")
)

// Account is a development login.
type Account struct {
	ID           string
	Email        string
	Role         Role
	PasswordHash []byte
}

// SeedAccount describes an account to create at startup.
type SeedAccount struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     Role   `yaml:"role"`
}

// DefaultSeed is used when no accounts are configured.
var DefaultSeed = []SeedAccount{
	{Email: "rider@taxi.dev", Password: "rider-pass", Role: RolePassenger},
	{Email: "driver@taxi.dev", Password: "driver-pass", Role: RoleDriver},
	{Email: "admin@taxi.dev", Password: "admin-pass", Role: RoleAdmin},
}

// AccountBook is an in-memory account table keyed by lowercased email.
type AccountBook struct {
	mu       sync.RWMutex
	byEmail  map[string]Account
	hashCost int
}

func NewAccountBook(seed []SeedAccount, hashCost int) (*AccountBook, error) {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	book := &AccountBook{byEmail: make(map[string]Account), hashCost: hashCost}
	for _, s := range seed {
		if _, err := book.Register(s.Email, s.Password, s.Role); err != nil {
			return nil, fmt.Errorf("seed %s: %w", s.Email, err)
		}
	}
	return book, nil
}

func (b *AccountBook) Register(email, password string, role Role) (Account, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Account{}, ErrInvalidCredentials
	}
	switch role {
	case RolePassenger, RoleDriver, RoleAdmin:
	default:
		return Account{}, fmt.Errorf("unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.hashCost)
	if err != nil {
		return Account{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byEmail[email]; ok {
		return Account{}, ErrDuplicateEmail
	}
	acc := Account{ID: uuid.NewString(), Email: email, Role: role, PasswordHash: hash}
	b.byEmail[email] = acc
	return acc, nil
}

// Authenticate checks email and password. want limits the roles that may log in; an
// account of another role reads as not found.
func (b *AccountBook) Authenticate(email, password string, want ...Role) (Account, error) {
	b.mu.RLock()
	acc, ok := b.byEmail[normalizeEmail(email)]
	b.mu.RUnlock()
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	if len(want) > 0 && !containsRole(want, acc.Role) {
		return Account{}, ErrAccountNotFound
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return acc, nil
}

func containsRole(roles []Role, r Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
