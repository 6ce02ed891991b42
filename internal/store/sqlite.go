package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	body TEXT NOT NULL,
	inserted_at DATETIME NOT NULL,
	PRIMARY KEY (collection, id)
);`

// SQLiteStore keeps documents as JSON rows. The database is opened on first use and the
// handle is shared by every request afterwards.
type SQLiteStore struct {
	path   string
	logger *zap.Logger

	once    sync.Once
	db      *sql.DB
	initErr error
}

func NewSQLiteStore(path string, logger *zap.Logger) *SQLiteStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteStore{path: path, logger: logger.Named("SQLiteStore")}
}

func (s *SQLiteStore) handle() (*sql.DB, error) {
	s.once.Do(func() {
		if dir := filepath.Dir(s.path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				s.initErr = fmt.Errorf("failed to create database directory: %w", err)
				return
			}
		}

		db, err := sql.Open("sqlite", s.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)")
		if err != nil {
			s.initErr = fmt.Errorf("failed to open database: %w", err)
			return
		}
		// SQLite works best with a single writer
		db.SetMaxOpenConns(1)

		if _, err := db.Exec(createDocumentsTable); err != nil {
			db.Close()
			s.initErr = fmt.Errorf("failed to create tables: %w", err)
			return
		}
		s.db = db
		s.logger.Info("SQLite document store initialized", zap.String("path", s.path))
	})
	return s.db, s.initErr
}

func (s *SQLiteStore) Insert(ctx context.Context, collection, id string, doc any) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body, inserted_at) VALUES (?, ?, ?, ?)`,
		collection, id, string(body), time.Now().UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateID
		}
		return fmt.Errorf("failed to insert document into %s: %w", collection, err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close releases the handle if it was ever opened.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
