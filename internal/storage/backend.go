// Package storage holds the key-value backends behind the record stores.
// Each backend maps a collection key to one serialized JSON document.
package storage

import (
	"context"
	"errors"
)

// Backend persists opaque collection blobs by key
type Backend interface {
	// Load returns the blob stored under key; ok is false when nothing was stored yet.
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	// Save overwrites the blob stored under key.
	Save(ctx context.Context, key string, data []byte) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

var ErrInvalidKey = errors.New("invalid collection key")

func checkKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	for _, r := range key {
		if !(r == '_' || r == '-' || r == ':' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return ErrInvalidKey
		}
	}
	return nil
}
