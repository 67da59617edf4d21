package store

import (
	"context"
	"strings"
)

// NewStore creates a postgres-backed store when configured, otherwise the
// in-memory fallback.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}
