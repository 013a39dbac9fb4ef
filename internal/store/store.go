// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/chatrelay/internal/config"
	"github.com/ashureev/chatrelay/internal/domain"
)

// ErrInvalidEntry is returned by Append for a nil entry or an unknown author.
var ErrInvalidEntry = errors.New("invalid chat entry")

// Repository is the append-only conversation log.
type Repository interface {
	// Append durably adds one entry.
	Append(ctx context.Context, entry *domain.ChatEntry) error

	// ListAll returns every entry ordered ascending by CreatedAt,
	// ties broken by insertion order.
	ListAll(ctx context.Context) ([]domain.ChatEntry, error)

	// ClearAll irreversibly deletes every entry and returns how many were removed.
	ClearAll(ctx context.Context) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// Open returns the repository selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Repository, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		return NewSQLite(cfg.DBPath)
	case config.StoreSurreal:
		return NewSurreal(ctx, cfg.Surreal, logger)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.StoreDriver)
	}
}

func validateEntry(entry *domain.ChatEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: nil", ErrInvalidEntry)
	}
	if !entry.Author.Valid() {
		return fmt.Errorf("%w: author %q", ErrInvalidEntry, entry.Author)
	}
	return nil
}
