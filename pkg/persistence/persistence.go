// Package persistence provides the storage abstraction for flows and
// credentials.
package persistence

import (
	"context"

	"github.com/flowdeckhq/flowdeck/pkg/models"
)

// ListFlowsOptions filters and paginates flow listings. Zero values fall back
// to sane defaults (limit 20, created_at desc).
type ListFlowsOptions struct {
	Limit     int
	Offset    int
	Owner     string
	Status    *models.FlowStatus
	SortBy    string // created_at, updated_at, name
	SortOrder string // asc, desc
}

// FlowListResult is one page of a flow listing.
type FlowListResult struct {
	Flows       []*models.Flow
	TotalCount  int64
	HasNextPage bool
}

type Persistence interface {
	Flows(ctx context.Context, opts ListFlowsOptions) (*FlowListResult, error)
	FlowByID(ctx context.Context, id string) (*models.Flow, error)
	SaveFlow(ctx context.Context, flow *models.Flow) error
	DeleteFlow(ctx context.Context, id string) error

	Credentials(ctx context.Context) ([]*models.Credential, error)
	CredentialsByProvider(ctx context.Context, provider string) ([]*models.Credential, error)
	SaveCredential(ctx context.Context, credential *models.Credential) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
