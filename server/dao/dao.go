// Package dao declares the persistence interfaces the phrasegen preview
// server uses to store compiled-syntax records and preview accounts. The
// inmem and sqlite subpackages each provide a complete Store.
package dao

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store groups every repository a Server needs.
type Store interface {
	Users() UserRepository
	Syntaxes() SyntaxRepository
	Close() error
}

// UserRepository stores preview-service accounts.
type UserRepository interface {

	// Create creates a new User. All attributes except for auto-generated
	// fields are taken from the provided User.
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetAll(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id uuid.UUID, user User) (User, error)
	Delete(ctx context.Context, id uuid.UUID) (User, error)
}

// Role is the permission level of a preview account.
type Role int

const (
	Unverified Role = iota
	Standard
	Admin
)

func (r Role) String() string {
	switch r {
	case Unverified:
		return "unverified"
	case Standard:
		return "standard"
	case Admin:
		return "admin"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// ParseRole parses the string form of a Role as produced by Role.String.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unverified":
		return Unverified, nil
	case "standard":
		return Standard, nil
	case "admin":
		return Admin, nil
	default:
		return Unverified, fmt.Errorf("must be one of 'unverified', 'standard', or 'admin'")
	}
}

// User is a preview-service account. Password is a base64-encoded bcrypt
// hash, never the plaintext password.
type User struct {
	ID             uuid.UUID
	Username       string
	Password       string
	Email          *mail.Address
	Role           Role
	Created        time.Time
	Modified       time.Time
	LastLoginTime  time.Time
	LastLogoutTime time.Time
}

// SyntaxRecord is a stored compiled-syntax grammar: its source text plus the
// metadata computed from compiling it once at creation time.
type SyntaxRecord struct {
	ID           uuid.UUID
	Owner        uuid.UUID
	Name         string
	Source       string
	Start        string
	Combinations uint64
	Weight       float64
	Created      time.Time
}

// SyntaxRepository stores compiled-syntax records on behalf of the preview
// server's /api/v1/syntaxes endpoints.
type SyntaxRepository interface {
	Create(ctx context.Context, s SyntaxRecord) (SyntaxRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (SyntaxRecord, error)
	GetAllByOwner(ctx context.Context, owner uuid.UUID) ([]SyntaxRecord, error)
	Delete(ctx context.Context, id uuid.UUID) (SyntaxRecord, error)
}
