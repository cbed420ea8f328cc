package storage

import (
	"context"
	"time"

	perrors "github.com/matzehuels/spritepipe/pkg/errors"
	"github.com/matzehuels/spritepipe/pkg/observability"
)

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendNull   = "null"
)

// Config selects and configures a backend.
type Config struct {
	Backend string `toml:"backend"` // one of the Backend* names, defaults to file
	Dir     string `toml:"dir"`     // file backend root, defaults to "out"

	Redis RedisConfig `toml:"redis"`
	Mongo MongoConfig `toml:"mongo"`
}

// Open builds the configured backend. The returned store validates keys and
// reports hits, misses and writes through [observability.Store].
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		inner Store
		err   error
	)
	switch cfg.Backend {
	case "", BackendFile:
		dir := cfg.Dir
		if dir == "" {
			dir = "out"
		}
		inner, err = NewFileStore(dir)
	case BackendMemory:
		inner = NewMemoryStore()
	case BackendNull:
		inner = NewNullStore()
	case BackendRedis:
		inner, err = NewRedisStore(ctx, cfg.Redis)
	case BackendMongo:
		inner, err = NewMongoStore(ctx, cfg.Mongo)
	default:
		return nil, perrors.New(perrors.ErrCodeUnsupported, "unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	name := cfg.Backend
	if name == "" {
		name = BackendFile
	}
	return Instrument(inner, name), nil
}

// Instrument wraps s with key validation and store hooks.
func Instrument(s Store, backend string) Store {
	return &instrumented{Store: s, backend: backend}
}

type instrumented struct {
	Store
	backend string
}

func (s *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := perrors.ValidateKey(key); err != nil {
		return nil, false, err
	}
	data, hit, err := s.Store.Get(ctx, key)
	if err == nil {
		if hit {
			observability.Store().OnStoreHit(ctx, s.backend)
		} else {
			observability.Store().OnStoreMiss(ctx, s.backend)
		}
	}
	return data, hit, err
}

func (s *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := perrors.ValidateKey(key); err != nil {
		return err
	}
	if err := s.Store.Set(ctx, key, data, ttl); err != nil {
		return perrors.Wrap(perrors.ErrCodeStorage, err, "store %s", key)
	}
	observability.Store().OnStorePut(ctx, s.backend, len(data))
	return nil
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	if err := perrors.ValidateKey(key); err != nil {
		return err
	}
	return s.Store.Delete(ctx, key)
}
