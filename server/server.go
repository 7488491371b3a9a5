// Package server implements an HTTP preview service for phrasegen: it
// compiles posted phrase-syntax text, stores it, and serves samples,
// combination counts, and weights back over a small JSON API, gated by a
// JWT-based login for the endpoints that mutate stored syntaxes.
package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"time"

	"github.com/dekarrin/phrasegen"
	"github.com/dekarrin/phrasegen/server/dao"
	"github.com/dekarrin/phrasegen/server/serr"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Error vars a caller can check for with errors.Is, regardless of which
// Server method produced the wrapping serr.Error.
var (
	ErrBadCredentials = serr.ErrBadCredentials
	ErrPermissions    = serr.ErrPermissions
	ErrNotFound       = serr.ErrNotFound
	ErrAlreadyExists  = serr.ErrAlreadyExists
	ErrDB             = serr.ErrDB
	ErrBadArgument    = serr.ErrBadArgument
)

// DefaultStart is the rule name assumed as a syntax's entry point when a
// creation request doesn't specify one.
const DefaultStart = "main"

// Server is an HTTP REST server that compiles and previews phrase-syntax
// grammars. The zero value should not be used directly; call New.
type Server struct {
	router        http.Handler
	db            dao.Store
	unauthedDelay time.Duration
	jwtSecret     []byte
	maxDepth      int
}

// New creates a Server ready to ServeForever, connecting to the persistence
// layer cfg.DB describes.
func New(cfg Config) (*Server, error) {
	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := cfg.DB.Connect()
	if err != nil {
		return nil, err
	}

	srv := &Server{
		db:            db,
		jwtSecret:     cfg.TokenSecret,
		unauthedDelay: cfg.UnauthDelay(),
		maxDepth:      cfg.MaxDepth,
	}
	srv.router = newRouter(srv)

	return srv, nil
}

// ServeForever begins listening on the given address and port. address
// defaults to "localhost" and port to 8080 if left unset.
func (s *Server) ServeForever(address string, port int) {
	if address == "" {
		address = "localhost"
	}
	if port < 1 {
		port = 8080
	}

	listenAddress := fmt.Sprintf("%s:%d", address, port)
	log.Printf("INFO  Listening on %s", listenAddress)
	log.Fatalf("FATAL %v", http.ListenAndServe(listenAddress, s.router))
}

// compileSyntax parses source and binds it to a start rule, returning the
// combination count and total weight a CreateSyntax call should persist.
// The returned error is a *phrasegen.ParseError when source itself is
// malformed, and an opaque error (wrapping phrasegen.UnknownStartError and
// friends) when it parses but fails to bind against start.
func compileSyntax(source, start string) (combinations uint64, weight float64, err error) {
	syn, err := phrasegen.Parse(source)
	if err != nil {
		return 0, 0, err
	}

	g := phrasegen.NewGenerator().Add("", syn)
	combinations, err = g.Combinations(start, nil)
	if err != nil {
		return 0, 0, err
	}
	weight, err = g.Weight(start, nil)
	if err != nil {
		return 0, 0, err
	}

	return combinations, weight, nil
}

// CreateSyntax compiles source against start (DefaultStart if empty),
// stores it under owner, and returns the stored record.
func (s *Server) CreateSyntax(ctx context.Context, owner uuid.UUID, name, source, start string) (dao.SyntaxRecord, error) {
	if start == "" {
		start = DefaultStart
	}

	combinations, weight, err := compileSyntax(source, start)
	if err != nil {
		return dao.SyntaxRecord{}, err
	}

	rec := dao.SyntaxRecord{
		Owner:        owner,
		Name:         name,
		Source:       source,
		Start:        start,
		Combinations: combinations,
		Weight:       weight,
	}

	stored, err := s.db.Syntaxes().Create(ctx, rec)
	if err != nil {
		return dao.SyntaxRecord{}, wrapDBError(err)
	}
	return stored, nil
}

// GetSyntax returns the stored syntax record with the given ID.
func (s *Server) GetSyntax(ctx context.Context, id uuid.UUID) (dao.SyntaxRecord, error) {
	rec, err := s.db.Syntaxes().GetByID(ctx, id)
	if err != nil {
		if err == dao.ErrNotFound {
			return dao.SyntaxRecord{}, ErrNotFound
		}
		return dao.SyntaxRecord{}, wrapDBError(err)
	}
	return rec, nil
}

// DeleteSyntax removes the stored syntax record with the given ID.
func (s *Server) DeleteSyntax(ctx context.Context, id uuid.UUID) (dao.SyntaxRecord, error) {
	rec, err := s.db.Syntaxes().Delete(ctx, id)
	if err != nil {
		if err == dao.ErrNotFound {
			return dao.SyntaxRecord{}, ErrNotFound
		}
		return dao.SyntaxRecord{}, wrapDBError(err)
	}
	return rec, nil
}

// GenerateSample recompiles the stored syntax with the given ID and expands
// start once, applying ext as external context and equalizeOverride (if
// non-nil) in place of the engine's default equalize_chance(true).
func (s *Server) GenerateSample(ctx context.Context, id uuid.UUID, ext phrasegen.ExternalContext, equalizeOverride *bool) (string, error) {
	rec, err := s.GetSyntax(ctx, id)
	if err != nil {
		return "", err
	}

	syn, err := phrasegen.Parse(rec.Source)
	if err != nil {
		return "", err
	}

	g := phrasegen.NewGenerator().Add("", syn).WithMaxDepth(s.maxDepth)
	if equalizeOverride != nil {
		g.EqualizeChance(*equalizeOverride)
	}

	return g.Generate(rec.Start, ext)
}

// Login verifies username/password against the stored account and returns
// it on success.
func (s *Server) Login(ctx context.Context, username, password string) (dao.User, error) {
	user, err := s.db.Users().GetByUsername(ctx, username)
	if err != nil {
		if err == dao.ErrNotFound {
			return dao.User{}, ErrBadCredentials
		}
		return dao.User{}, wrapDBError(err)
	}

	bcryptHash, err := base64.StdEncoding.DecodeString(user.Password)
	if err != nil {
		return dao.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(bcryptHash, []byte(password)); err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return dao.User{}, ErrBadCredentials
		}
		return dao.User{}, wrapDBError(err)
	}

	return user, nil
}

// Logout marks the given user's most recent logout time as now, which
// invalidates every JWT issued to them before this call.
func (s *Server) Logout(ctx context.Context, who uuid.UUID) (dao.User, error) {
	existing, err := s.db.Users().GetByID(ctx, who)
	if err != nil {
		if err == dao.ErrNotFound {
			return dao.User{}, ErrNotFound
		}
		return dao.User{}, newError("could not retrieve user", err, ErrDB)
	}

	existing.LastLogoutTime = time.Now()

	updated, err := s.db.Users().Update(ctx, existing.ID, existing)
	if err != nil {
		return dao.User{}, newError("could not update user", err, ErrDB)
	}

	return updated, nil
}

// CreateUser creates a new preview account.
func (s *Server) CreateUser(ctx context.Context, username, password, email string, role dao.Role) (dao.User, error) {
	if username == "" {
		return dao.User{}, newError("username cannot be blank", ErrBadArgument)
	}
	if password == "" {
		return dao.User{}, newError("password cannot be blank", ErrBadArgument)
	}

	var storedEmail *mail.Address
	if email != "" {
		var err error
		storedEmail, err = mail.ParseAddress(email)
		if err != nil {
			return dao.User{}, newError("email is not valid", err, ErrBadArgument)
		}
	}

	_, err := s.db.Users().GetByUsername(ctx, username)
	if err == nil {
		return dao.User{}, newError("a user with that username already exists", ErrAlreadyExists)
	} else if err != dao.ErrNotFound {
		return dao.User{}, wrapDBError(err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	if err != nil {
		if err == bcrypt.ErrPasswordTooLong {
			return dao.User{}, newError("password is too long", err, ErrBadArgument)
		}
		return dao.User{}, newError("password could not be encrypted", err)
	}

	newUser := dao.User{
		Username: username,
		Password: base64.StdEncoding.EncodeToString(passHash),
		Email:    storedEmail,
		Role:     role,
	}

	user, err := s.db.Users().Create(ctx, newUser)
	if err != nil {
		if err == dao.ErrConstraintViolation {
			return dao.User{}, ErrAlreadyExists
		}
		return dao.User{}, newError("could not create user", err, ErrDB)
	}

	return user, nil
}

// DeleteUser removes the preview account with the given ID.
func (s *Server) DeleteUser(ctx context.Context, id uuid.UUID) (dao.User, error) {
	user, err := s.db.Users().Delete(ctx, id)
	if err != nil {
		if err == dao.ErrNotFound {
			return dao.User{}, ErrNotFound
		}
		return dao.User{}, newError("could not delete user", err, ErrDB)
	}
	return user, nil
}

// GetUser returns the preview account with the given ID.
func (s *Server) GetUser(ctx context.Context, id uuid.UUID) (dao.User, error) {
	user, err := s.db.Users().GetByID(ctx, id)
	if err != nil {
		if err == dao.ErrNotFound {
			return dao.User{}, ErrNotFound
		}
		return dao.User{}, newError("could not get user", err, ErrDB)
	}
	return user, nil
}

// Error is the error type every Server method returns on failure; see
// serr.Error for its Is/Unwrap semantics.
type Error = serr.Error

func wrapDBError(err error) Error {
	return serr.WrapDB("", err)
}

func newError(msg string, causes ...error) Error {
	return serr.New(msg, causes...)
}
