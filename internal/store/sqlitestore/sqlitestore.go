// Package sqlitestore keeps documents in a single SQLite table.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/idilsaglam/tada/internal/docstore"
)

// Store is a docstore.Store on top of database/sql with the sqlite3 driver.
type Store struct {
	database *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	s := &Store{database: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if _, err := s.database.Exec(
		`CREATE TABLE IF NOT EXISTS documents (
		collection text not null,
		id text not null,
		content text not null,
		updated_at text not null,
		PRIMARY KEY (collection, id)
		)`,
	); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.database.Close()
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return docstore.Document{}, err
	}
	var rawContent string
	if err := s.database.QueryRowContext(
		ctx,
		`SELECT content FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&rawContent); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, fmt.Errorf("failed to query: %w", err)
	}
	var fields docstore.Fields
	if err := json.Unmarshal([]byte(rawContent), &fields); err != nil {
		return docstore.Document{}, fmt.Errorf("failed to decode: %w", err)
	}
	if fields == nil {
		fields = docstore.Fields{}
	}
	return docstore.Document{Collection: collection, ID: id, Fields: fields}, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return err
	}
	if fields == nil {
		fields = docstore.Fields{}
	}
	content, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode: %w", err)
	}
	if _, err := s.database.ExecContext(
		ctx,
		`INSERT INTO documents (collection, id, content, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		collection, id, string(content), time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("failed to upsert: %w", err)
	}
	return nil
}
