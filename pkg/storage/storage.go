// Package storage persists exported artifacts (sprite sheets, atlases, frames)
// under slash-separated keys such as "sheets/hero.png".
//
// Backends:
//   - [FileStore]: plain files below a directory, for CLI usage
//   - [MemoryStore]: process-local map, for tests and the API server
//   - [RedisStore]: shared Redis instance, for multi-instance deployments
//   - [MongoStore]: MongoDB collection with a TTL index
//   - [NullStore]: discards everything
//
// Use [Open] to build a backend from a [Config]; it validates keys and reports
// store events through the observability hooks.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Store is the persistence contract shared by every backend.
type Store interface {
	// Get returns the data stored under key. A missing or expired key is a miss,
	// not an error.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A ttl of zero keeps the entry until deleted.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists the stored keys that start with prefix, in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	Close() error
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
