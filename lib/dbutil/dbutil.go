package dbutil

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Struct struct {
	// path to a local sqlite file
	File string `json:"file"`
	// remote libsql url, takes precedence over File when set
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// opens the configured database and applies the given schema.
// local files use the sqlite driver with WAL and a single connection,
// see https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
// for why the connection cap exists.
func (config Struct) OpenDB(schema string) (*sql.DB, error) {
	if config.Url != "" {
		link, err := url.Parse(config.Url)
		if err != nil {
			return nil, err
		}
		if config.AuthToken != "" {
			query := link.Query()
			query.Set("authToken", config.AuthToken)
			link.RawQuery = query.Encode()
		}
		db, err := sql.Open("libsql", link.String())
		if err != nil {
			return nil, err
		}
		return db, applySchema(db, schema)
	}

	if config.File == "" {
		return nil, fmt.Errorf("a database path was not specified")
	}

	_, statErr := os.Stat(config.File)
	if os.IsNotExist(statErr) {
		f, err := os.Create(config.File)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	return db, applySchema(db, schema)
}

func applySchema(db *sql.DB, schema string) error {
	if schema == "" {
		return nil
	}
	_, err := db.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return err
	}
	return nil
}
