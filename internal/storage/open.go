package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Options selects the engines behind each scope
type Options struct {
	// LocalDriver is "bolt" (default), "sqlite" or "memory"
	LocalDriver string
	LocalPath   string
	// SyncURL picks the sync engine by scheme: redis://, rediss://,
	// postgres:// or postgresql://. Empty disables the sync scope.
	SyncURL     string
	SyncPrefix  string
	UseKeychain bool
}

// Open builds the local and sync scopes described by opts
func Open(ctx context.Context, opts Options) (*Scopes, error) {
	local, err := openLocal(opts)
	if err != nil {
		return nil, err
	}
	if opts.UseKeychain {
		local = NewKeyringStore(local)
	}

	scopes := &Scopes{Local: local}
	if opts.SyncURL == "" {
		return scopes, nil
	}

	sync, err := openSync(ctx, opts)
	if err != nil {
		local.Close()
		return nil, err
	}
	scopes.Sync = sync

	slog.Default().With("component", "storage").Debug("storage scopes opened",
		"local_driver", opts.LocalDriver, "sync", true)
	return scopes, nil
}

func openLocal(opts Options) (Store, error) {
	switch strings.ToLower(opts.LocalDriver) {
	case "", "bolt", "bbolt":
		return NewBoltStore(opts.LocalPath, ScopeLocal)
	case "sqlite", "sqlite3":
		return NewSQLiteStore(opts.LocalPath, ScopeLocal)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown local storage driver %q", opts.LocalDriver)
	}
}

func openSync(ctx context.Context, opts Options) (Store, error) {
	prefix := opts.SyncPrefix
	if prefix == "" {
		prefix = "gitfolio:sync:"
	}

	switch {
	case strings.HasPrefix(opts.SyncURL, "redis://"), strings.HasPrefix(opts.SyncURL, "rediss://"):
		return NewRedisStore(ctx, opts.SyncURL, prefix)
	case strings.HasPrefix(opts.SyncURL, "postgres://"), strings.HasPrefix(opts.SyncURL, "postgresql://"):
		return NewPostgresStore(opts.SyncURL, ScopeSync)
	default:
		return nil, fmt.Errorf("unsupported sync storage url %q", opts.SyncURL)
	}
}
