// Package docstore defines the key-value document interface the list gateway
// talks to, plus an in-memory implementation.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when no document exists under the key.
var ErrNotFound = errors.New("document not found")

// Fields holds a document's top-level fields in their serialized form.
type Fields map[string]json.RawMessage

// Document is a stored set of fields addressed by collection and id.
type Document struct {
	Collection string
	ID         string
	Fields     Fields
}

// Field decodes the named field into v. ok is false when the field is absent.
func (d Document) Field(name string, v any) (ok bool, err error) {
	raw, found := d.Fields[name]
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode field %q: %w", name, err)
	}
	return true, nil
}

// Store reads and writes whole documents. Set always replaces every field.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, fields Fields) error
}

// ValidateKey rejects keys that can't be used as a path segment by any backend.
func ValidateKey(collection, id string) error {
	for _, part := range [...]struct{ name, v string }{{"collection", collection}, {"id", id}} {
		switch {
		case strings.TrimSpace(part.v) == "":
			return fmt.Errorf("empty %s", part.name)
		case strings.ContainsAny(part.v, `/\`), part.v == ".", part.v == "..":
			return fmt.Errorf("invalid %s %q", part.name, part.v)
		}
	}
	return nil
}

func cloneFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
