// Package kv provides the blob stores the task store persists into.
//
// Every backend exposes the same opaque get/set contract: values are raw bytes, a
// missing key is reported with ok=false, and no validation is performed on load.
// Callers own the encoding and any recovery from corrupt data.
package kv

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

type Adapter interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
	Close() error
}

type Backend string

const (
	BackendMemory Backend = "memory"
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
)

const sqliteFileName = "tasklist.sqlite"

type Options struct {
	Backend Backend

	// Dir is the data directory for the file and sqlite backends.
	Dir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case "", BackendSQLite:
		return BackendSQLite, nil
	case BackendFile:
		return BackendFile, nil
	case BackendMemory:
		return BackendMemory, nil
	case BackendRedis:
		return BackendRedis, nil
	default:
		return "", fmt.Errorf("invalid backend: %q (expected sqlite|file|redis|memory)", s)
	}
}

// Open returns the adapter selected by opts.Backend.
func Open(ctx context.Context, opts Options) (Adapter, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		if strings.TrimSpace(opts.Dir) == "" {
			return nil, fmt.Errorf("file backend: missing dir")
		}
		return NewFile(opts.Dir)
	case "", BackendSQLite:
		if strings.TrimSpace(opts.Dir) == "" {
			return nil, fmt.Errorf("sqlite backend: missing dir")
		}
		return OpenSQLite(ctx, filepath.Join(opts.Dir, sqliteFileName))
	case BackendRedis:
		return OpenRedis(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Prefix:   opts.RedisPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown backend: %s", opts.Backend)
	}
}
