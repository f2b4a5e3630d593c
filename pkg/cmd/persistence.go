// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/flowdeckhq/flowdeck/pkg/persistence"
	"github.com/flowdeckhq/flowdeck/pkg/persistence/file"
	"github.com/flowdeckhq/flowdeck/pkg/persistence/postgresql"
)

// NewPersistence builds a persistence layer from a database URL. A postgres://
// URL gets the SQL implementation with migrations applied; everything else is
// treated as a file-store root path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parseProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
