package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowdeckhq/flowdeck/pkg/models"
)

// CredentialRepository handles credential-related database operations.
type CredentialRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCredentialRepository creates a new credential repository.
func NewCredentialRepository(db *sql.DB, logger *slog.Logger) *CredentialRepository {
	return &CredentialRepository{db: db, logger: logger}
}

// Credentials returns every stored credential descriptor.
func (p *Persistence) Credentials(ctx context.Context) ([]*models.Credential, error) {
	return p.credentials.list(ctx, "")
}

// CredentialsByProvider filters credentials for one app or provider key.
func (p *Persistence) CredentialsByProvider(ctx context.Context, provider string) ([]*models.Credential, error) {
	return p.credentials.list(ctx, provider)
}

// SaveCredential upserts one credential descriptor.
func (p *Persistence) SaveCredential(ctx context.Context, credential *models.Credential) error {
	return p.credentials.save(ctx, credential)
}

func (r *CredentialRepository) list(ctx context.Context, provider string) ([]*models.Credential, error) {
	query := "SELECT id, provider, name, owner, created_at, updated_at FROM credentials"
	args := make([]any, 0, 1)

	if provider != "" {
		query += " WHERE provider = $1"

		args = append(args, provider)
	}

	query += " ORDER BY name ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	credentials := make([]*models.Credential, 0)

	for rows.Next() {
		var credential models.Credential

		err := rows.Scan(
			&credential.ID, &credential.Provider, &credential.Name,
			&credential.Owner, &credential.CreatedAt, &credential.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}

		credentials = append(credentials, &credential)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credentials: %w", err)
	}

	return credentials, nil
}

func (r *CredentialRepository) save(ctx context.Context, credential *models.Credential) error {
	now := time.Now().UTC()

	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = now
	}

	credential.UpdatedAt = now

	query := `
		INSERT INTO credentials (id, provider, name, owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			provider = EXCLUDED.provider,
			name = EXCLUDED.name,
			owner = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		credential.ID, credential.Provider, credential.Name,
		credential.Owner, credential.CreatedAt, credential.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save credential %s: %w", credential.ID, err)
	}

	return nil
}
