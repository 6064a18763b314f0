// Package docstore defines the remote document port: a path-addressed store
// offering existence checks, full reads and full overwrites.
package docstore

import (
	"context"

	"kakeibo/internal/config"
)

// Store reads and overwrites whole documents by path.
type Store interface {
	// Exists reports whether a document is present at path.
	Exists(ctx context.Context, path string) (bool, error)
	// Read returns the full content of the document at path.
	Read(ctx context.Context, path string) ([]byte, error)
	// Write replaces the document at path with data in a single call.
	Write(ctx context.Context, path string, data []byte) error
}

// Opener builds a Store from connection settings. It is called once per
// append so settings are resolved at request time.
type Opener func(conn config.Connection) (Store, error)

// Static returns an Opener that always yields s.
func Static(s Store) Opener {
	return func(config.Connection) (Store, error) {
		return s, nil
	}
}
