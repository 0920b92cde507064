// Package storage: кассовые строки, аудит сверок и настройки в одной базе SQLite.
package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"invoice-recon/internal/reconcile/service"
)

// ErrNotFound: сессии с таким id нет.
var ErrNotFound = errors.New("not found")

// Store: источник кассы и приёмник аудита поверх SQLite.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Store подходит сервису сверки
var (
	_ service.POSSource        = (*Store)(nil)
	_ service.AuditSink        = (*Store)(nil)
	_ service.DefaultsProvider = (*Store)(nil)
)

// NewStore открывает (или создаёт) базу и прогоняет миграции.
func NewStore(path string, logger zerolog.Logger) (*Store, error) {
	// foreign keys в SQLite включаются на соединение, поэтому через DSN
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close закрывает базу
func (s *Store) Close() error {
	return s.db.Close()
}
