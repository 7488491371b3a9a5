package server

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dekarrin/phrasegen/server/dao"
	"github.com/dekarrin/phrasegen/server/dao/inmem"
	"github.com/dekarrin/phrasegen/server/dao/sqlite"
)

// DBType is the type of a database connection.
type DBType string

func (dbt DBType) String() string { return string(dbt) }

const (
	DatabaseNone     DBType = "none"
	DatabaseSQLite   DBType = "sqlite"
	DatabaseInMemory DBType = "inmem"
)

const (
	MaxSecretSize = 64
	MinSecretSize = 32

	// DefaultMaxDepth bounds runaway recursive expansion when a Config
	// doesn't set MaxDepth explicitly.
	DefaultMaxDepth = 100
)

// ParseDBType parses a string found in a connection string into a DBType.
func ParseDBType(s string) (DBType, error) {
	switch strings.ToLower(s) {
	case DatabaseSQLite.String():
		return DatabaseSQLite, nil
	case DatabaseInMemory.String():
		return DatabaseInMemory, nil
	default:
		return DatabaseNone, fmt.Errorf("DB type not one of 'sqlite' or 'inmem': %q", s)
	}
}

// Database contains configuration settings for connecting to a persistence
// layer.
type Database struct {
	Type    DBType
	DataDir string
}

// Connect performs all logic needed to connect to the configured DB and
// initialize the store for use.
func (db Database) Connect() (dao.Store, error) {
	switch db.Type {
	case DatabaseInMemory:
		return inmem.NewDatastore(), nil
	case DatabaseSQLite:
		if err := os.MkdirAll(db.DataDir, 0770); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		store, err := sqlite.NewDatastore(db.DataDir)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite: %w", err)
		}
		return store, nil
	case DatabaseNone:
		return nil, fmt.Errorf("cannot connect to 'none' DB")
	default:
		return nil, fmt.Errorf("unknown database type: %q", db.Type.String())
	}
}

// Validate returns an error if the Database is not ready to Connect.
func (db Database) Validate() error {
	switch db.Type {
	case DatabaseInMemory:
		return nil
	case DatabaseSQLite:
		if db.DataDir == "" {
			return fmt.Errorf("DataDir not set to path")
		}
		return nil
	case DatabaseNone:
		return fmt.Errorf("'none' DB is not valid")
	default:
		return fmt.Errorf("unknown database type: %q", db.Type.String())
	}
}

// ParseDBConnString parses a database connection string of the form
// "engine:params" (or just "engine" if no params are required) into a
// Database, e.g. "sqlite:/data" or "inmem".
func ParseDBConnString(s string) (Database, error) {
	var paramStr string
	dbParts := strings.SplitN(s, ":", 2)
	if len(dbParts) == 2 {
		paramStr = strings.TrimSpace(dbParts[1])
	}

	dbEng, err := ParseDBType(strings.TrimSpace(dbParts[0]))
	if err != nil {
		return Database{}, fmt.Errorf("unsupported DB engine: %w", err)
	}

	switch dbEng {
	case DatabaseInMemory:
		if paramStr != "" {
			return Database{}, fmt.Errorf("unsupported param(s) for in-memory DB engine: %s", paramStr)
		}
		return Database{Type: DatabaseInMemory}, nil
	case DatabaseSQLite:
		if paramStr == "" {
			return Database{}, fmt.Errorf("sqlite DB engine requires path to data directory after ':'")
		}
		return Database{Type: DatabaseSQLite, DataDir: paramStr}, nil
	default:
		return Database{}, fmt.Errorf("cannot specify DB engine 'none' (perhaps you wanted 'inmem'?)")
	}
}

// Config configures a Server.
type Config struct {
	// TokenSecret signs issued JWTs. If empty, a fixed development secret is
	// used; tokens signed with it should never be trusted in production.
	TokenSecret []byte

	// DB configures the persistence layer. If unset, defaults to inmem.
	DB Database

	// UnauthDelayMillis is added before responding to an unauthenticated or
	// unauthorized request, to deprioritize naive brute-force clients. 1000
	// (one second) if unset; negative disables the delay.
	UnauthDelayMillis int

	// MaxDepth bounds recursive expansion depth for every compiled syntax
	// served by this Server. DefaultMaxDepth if unset.
	MaxDepth int
}

// UnauthDelay returns UnauthDelayMillis as a time.Duration.
func (cfg Config) UnauthDelay() time.Duration {
	if cfg.UnauthDelayMillis < 1 {
		return 0
	}
	return time.Millisecond * time.Duration(cfg.UnauthDelayMillis)
}

// FillDefaults returns a copy of cfg with unset fields given their defaults.
func (cfg Config) FillDefaults() Config {
	newCFG := cfg

	if newCFG.TokenSecret == nil {
		newCFG.TokenSecret = []byte("DEFAULT_TOKEN_SECRET-DO_NOT_USE_IN_PROD!")
	}
	if newCFG.DB.Type == DatabaseNone {
		newCFG.DB = Database{Type: DatabaseInMemory}
	}
	if newCFG.UnauthDelayMillis == 0 {
		newCFG.UnauthDelayMillis = 1000
	}
	if newCFG.MaxDepth == 0 {
		newCFG.MaxDepth = DefaultMaxDepth
	}

	return newCFG
}

// Validate returns an error if cfg has invalid field values. Call it on the
// result of FillDefaults if relying on defaults.
func (cfg Config) Validate() error {
	if len(cfg.TokenSecret) < MinSecretSize {
		return fmt.Errorf("token secret: must be at least %d bytes, but is %d", MinSecretSize, len(cfg.TokenSecret))
	}
	if len(cfg.TokenSecret) > MaxSecretSize {
		return fmt.Errorf("token secret: must be no more than %d bytes, but is %d", MaxSecretSize, len(cfg.TokenSecret))
	}
	if err := cfg.DB.Validate(); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	return nil
}
