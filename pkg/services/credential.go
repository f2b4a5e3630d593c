package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowdeckhq/flowdeck/pkg/models"
	"github.com/flowdeckhq/flowdeck/pkg/persistence"
)

// Credential lists stored credential references for the builder's dropdowns.
// Secrets never pass through here; a credential is an opaque pointer to a
// connection held elsewhere.
type Credential struct {
	persistence persistence.Persistence
}

// NewCredential creates a new credential service.
func NewCredential(persistence persistence.Persistence) *Credential {
	return &Credential{
		persistence: persistence,
	}
}

// List returns credential references, optionally filtered by provider key.
func (s *Credential) List(ctx context.Context, provider string) ([]*models.Credential, error) {
	provider = strings.TrimSpace(provider)

	if provider == "" {
		credentials, err := s.persistence.Credentials(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list credentials: %w", err)
		}

		return credentials, nil
	}

	credentials, err := s.persistence.CredentialsByProvider(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials for %s: %w", provider, err)
	}

	return credentials, nil
}

// Register stores a new credential reference.
func (s *Credential) Register(ctx context.Context, credential *models.Credential) (*models.Credential, error) {
	if credential == nil {
		return nil, ErrInvalidRequest
	}

	if strings.TrimSpace(credential.Provider) == "" || strings.TrimSpace(credential.Name) == "" {
		return nil, NewValidationError(
			"Register",
			"INVALID_CREDENTIAL",
			"credential provider and name are required",
			ErrInvalidRequest,
		)
	}

	now := time.Now().UTC()

	if credential.ID == "" {
		credential.ID = uuid.New().String()
		credential.CreatedAt = now
	}

	credential.UpdatedAt = now

	if err := s.persistence.SaveCredential(ctx, credential); err != nil {
		return nil, fmt.Errorf("failed to save credential: %w", err)
	}

	return credential, nil
}
