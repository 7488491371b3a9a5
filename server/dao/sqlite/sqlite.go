// Package sqlite provides a modernc.org/sqlite-backed dao.Store suitable for
// durable, single-file persistence of preview accounts and compiled-syntax
// records.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"path/filepath"
	"time"

	"github.com/dekarrin/phrasegen/server/dao"
	"github.com/google/uuid"
	"modernc.org/sqlite"
)

type store struct {
	dbFilename string
	db         *sql.DB

	users    *usersDB
	syntaxes *syntaxesDB
}

// NewDatastore opens (creating if necessary) a sqlite database file named
// "phrasegen.db" under storageDir and returns a dao.Store backed by it.
func NewDatastore(storageDir string) (dao.Store, error) {
	st := &store{dbFilename: "phrasegen.db"}

	fileName := filepath.Join(storageDir, st.dbFilename)

	var err error
	st.db, err = sql.Open("sqlite", fileName)
	if err != nil {
		return nil, wrapDBError(err)
	}

	st.users = &usersDB{db: st.db}
	if err := st.users.init(); err != nil {
		return nil, err
	}

	st.syntaxes = &syntaxesDB{db: st.db}
	if err := st.syntaxes.init(); err != nil {
		return nil, err
	}

	return st, nil
}

func (s *store) Users() dao.UserRepository       { return s.users }
func (s *store) Syntaxes() dao.SyntaxRepository   { return s.syntaxes }

func (s *store) Close() error {
	return s.db.Close()
}

func wrapDBError(err error) error {
	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code() == 19 {
			return dao.ErrConstraintViolation
		}
		return fmt.Errorf("%s", sqlite.ErrorCodeString[sqliteErr.Code()])
	} else if errors.Is(err, sql.ErrNoRows) {
		return dao.ErrNotFound
	}
	return err
}

func convertToDB_UUID(id uuid.UUID) string {
	return id.String()
}

func convertFromDB_UUID(s string, out *uuid.UUID) error {
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*out = id
	return nil
}

func convertToDB_Role(r dao.Role) string {
	return r.String()
}

func convertFromDB_Role(s string, out *dao.Role) error {
	r, err := dao.ParseRole(s)
	if err != nil {
		return err
	}
	*out = r
	return nil
}

func convertToDB_Email(e *mail.Address) string {
	if e == nil {
		return ""
	}
	return e.String()
}

func convertFromDB_Email(s string, out **mail.Address) error {
	if s == "" {
		*out = nil
		return nil
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return err
	}
	*out = addr
	return nil
}

func convertToDB_Time(t time.Time) int64 {
	return t.Unix()
}

func convertFromDB_Time(sec int64, out *time.Time) error {
	*out = time.Unix(sec, 0).UTC()
	return nil
}
