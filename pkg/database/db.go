package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Path string

	// BusyTimeoutMS bounds how long a writer waits on a locked database
	// before erroring; imports and API reads share one file.
	BusyTimeoutMS int
}

func DefaultConfig() Config {
	cfg := Config{BusyTimeoutMS: 5000}

	// Docker Compose / env override
	if p := os.Getenv("GAMESHELF_DB_PATH"); p != "" {
		cfg.Path = p
		return cfg
	}

	// local default: ~/.gameshelf/data.db
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	cfg.Path = filepath.Join(home, ".gameshelf", "data.db")
	return cfg
}

// dsn encodes the pragmas into the driver connection string so every pooled
// connection gets them, not only the one an Exec happened to run on.
func (c Config) dsn() string {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_journal_mode", "WAL")
	if c.BusyTimeoutMS > 0 {
		q.Set("_busy_timeout", fmt.Sprintf("%d", c.BusyTimeoutMS))
	}
	return "file:" + c.Path + "?" + q.Encode()
}

func Open(cfg Config) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

func MustOpen(cfg Config) *sql.DB {
	db, err := Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Path).Msg("failed to open db")
	}
	return db
}
