package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/idilsaglam/tada/internal/docstore"
)

// JSON-backed storage. One human-readable file per document:
// <dir>/<collection>/<id>.json. Writes go through a temp file + rename so a
// crash never leaves half a document behind.

const fileExt = ".json"

// Store keeps documents as files under a root directory.
type Store struct {
	dir string
}

// New returns a store rooted at dir. The directory is created lazily.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("jsonstore: empty data dir")
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) dataPath(collection, id string) (string, error) {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, collection, id+fileExt), nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	p, err := s.dataPath(collection, id)
	if err != nil {
		return docstore.Document{}, err
	}
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, fmt.Errorf("read file: %w", err)
	}
	var fields docstore.Fields
	if err := json.Unmarshal(b, &fields); err != nil {
		return docstore.Document{}, fmt.Errorf("json unmarshal: %w", err)
	}
	if fields == nil {
		fields = docstore.Fields{}
	}
	return docstore.Document{Collection: collection, ID: id, Fields: fields}, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, fields docstore.Fields) error {
	p, err := s.dataPath(collection, id)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if fields == nil {
		fields = docstore.Fields{}
	}
	b, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), "doc-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
