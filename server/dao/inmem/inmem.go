// Package inmem provides an in-memory, map-backed dao.Store suitable for
// development and for tests: nothing it holds survives process exit.
package inmem

import (
	"sync"

	"github.com/dekarrin/phrasegen/server/dao"
)

type store struct {
	mu       sync.Mutex
	users    *usersRepository
	syntaxes *syntaxesRepository
}

// NewDatastore returns an empty in-memory dao.Store.
func NewDatastore() dao.Store {
	s := &store{}
	s.users = newUsersRepository(&s.mu)
	s.syntaxes = newSyntaxesRepository(&s.mu)
	return s
}

func (s *store) Users() dao.UserRepository       { return s.users }
func (s *store) Syntaxes() dao.SyntaxRepository   { return s.syntaxes }
func (s *store) Close() error                     { return nil }
