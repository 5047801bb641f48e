package configlibsql

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	devenv "vamkhelp-backend/dev/env"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Struct selects a local sqlite file or, when Url is set, a remote libsql server.
type Struct struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config Struct) open() (*sql.DB, error) {
	if config.Url != "" {
		dsn, err := url.Parse(config.Url)
		if err != nil {
			return nil, fmt.Errorf("parse libsql url: %w", err)
		}
		if config.AuthToken != "" {
			query := dsn.Query()
			query.Set("authToken", config.AuthToken)
			dsn.RawQuery = query.Encode()
		}
		return sql.Open("libsql", dsn.String())
	}

	if config.File == "" {
		return nil, fmt.Errorf("neither a database file nor url was specified")
	}
	if config.File == ":memory:" {
		db, err := sql.Open("sqlite", config.File)
		if err != nil {
			return nil, err
		}
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
		return db, nil
	}

	dbpath, err := devenv.ResolvePath(config.File)
	if err != nil {
		return nil, err
	}
	_, statErr := os.Stat(dbpath)
	if os.IsNotExist(statErr) {
		f, err := os.Create(dbpath)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenDB opens the database and applies `schema` to it, schema statements
// are expected to be idempotent (CREATE ... IF NOT EXISTS).
func (config Struct) OpenDB(schema string) (*sql.DB, error) {
	db, err := config.open()
	if err != nil {
		return nil, err
	}
	if schema == "" {
		return db, nil
	}
	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
