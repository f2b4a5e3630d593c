package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowdeckhq/flowdeck/pkg/models"
	"github.com/flowdeckhq/flowdeck/pkg/persistence"
)

// FlowRepository handles flow-related database operations.
type FlowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(db *sql.DB, logger *slog.Logger) *FlowRepository {
	return &FlowRepository{db: db, logger: logger}
}

// Flows returns one page of flows, filtered and sorted in SQL.
func (p *Persistence) Flows(ctx context.Context, opts persistence.ListFlowsOptions) (*persistence.FlowListResult, error) {
	return p.flows.List(ctx, opts)
}

// FlowByID returns a flow by its ID.
func (p *Persistence) FlowByID(ctx context.Context, id string) (*models.Flow, error) {
	return p.flows.GetByID(ctx, id)
}

// SaveFlow upserts a flow document.
func (p *Persistence) SaveFlow(ctx context.Context, flow *models.Flow) error {
	return p.flows.Save(ctx, flow)
}

// DeleteFlow soft deletes a flow by setting the deleted_at timestamp.
func (p *Persistence) DeleteFlow(ctx context.Context, id string) error {
	return p.flows.Delete(ctx, id)
}

const flowColumns = `
		id
	  , name
	  , version
	  , status
	  , nodes
	  , edges
	  , viewport
	  , notes
	  , owner
	  , created_at
	  , updated_at
	  , published_at
	  , deleted_at
`

// sort allowlist, keyed by the API-facing field name.
var flowSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"name":       "name",
}

// List returns paginated and filtered flows.
func (r *FlowRepository) List(ctx context.Context, opts persistence.ListFlowsOptions) (*persistence.FlowListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	sortColumn, ok := flowSortColumns[opts.SortBy]
	if !ok {
		return nil, fmt.Errorf("invalid sort field: %s", opts.SortBy)
	}

	direction := "DESC"
	if opts.SortOrder == "asc" {
		direction = "ASC"
	}

	where := "deleted_at IS NULL"
	args := make([]any, 0, 4)

	if opts.Owner != "" {
		args = append(args, opts.Owner)
		where += fmt.Sprintf(" AND owner = $%d", len(args))
	}

	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var totalCount int64

	countQuery := "SELECT COUNT(*) FROM flows WHERE " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count flows: %w", err)
	}

	args = append(args, opts.Limit, opts.Offset)
	query := fmt.Sprintf(
		"SELECT %s FROM flows WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		flowColumns, where, sortColumn, direction, len(args)-1, len(args),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	flows := make([]*models.Flow, 0)

	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}

		flows = append(flows, flow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flows: %w", err)
	}

	return &persistence.FlowListResult{
		Flows:       flows,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(flows)) < totalCount,
	}, nil
}

// GetByID retrieves a flow by its ID. Soft-deleted flows are not found.
func (r *FlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	query := "SELECT " + flowColumns + " FROM flows WHERE id = $1 AND deleted_at IS NULL"

	flow, err := scanFlow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewFlowError("FlowByID", id, persistence.ErrFlowNotFound)
		}

		return nil, fmt.Errorf("failed to scan flow: %w", err)
	}

	return flow, nil
}

// Save upserts the flow document.
func (r *FlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	now := time.Now().UTC()

	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	if flow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate flow ID: %w", err)
		}

		flow.ID = id.String()
	}

	nodes, err := json.Marshal(flow.Nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal nodes for flow %s: %w", flow.ID, err)
	}

	edges, err := json.Marshal(flow.Edges)
	if err != nil {
		return fmt.Errorf("failed to marshal edges for flow %s: %w", flow.ID, err)
	}

	viewport, err := json.Marshal(flow.Viewport)
	if err != nil {
		return fmt.Errorf("failed to marshal viewport for flow %s: %w", flow.ID, err)
	}

	query := `
		INSERT INTO flows (id, name, version, status, nodes, edges, viewport, notes, owner, created_at, updated_at, published_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			version = EXCLUDED.version,
			status = EXCLUDED.status,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			viewport = EXCLUDED.viewport,
			notes = EXCLUDED.notes,
			owner = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at,
			published_at = EXCLUDED.published_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err = r.db.ExecContext(ctx, query,
		flow.ID, flow.Name, flow.Version, string(flow.Status),
		nodes, edges, viewport,
		flow.Notes, flow.Owner,
		flow.CreatedAt, flow.UpdatedAt, flow.PublishedAt, flow.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save flow %s: %w", flow.ID, err)
	}

	return nil
}

// Delete soft deletes the flow.
func (r *FlowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE flows SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("failed to delete flow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result for flow %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.NewFlowError("DeleteFlow", id, persistence.ErrFlowNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlow(row rowScanner) (*models.Flow, error) {
	var (
		flow     models.Flow
		status   string
		nodes    []byte
		edges    []byte
		viewport []byte
	)

	err := row.Scan(
		&flow.ID, &flow.Name, &flow.Version, &status,
		&nodes, &edges, &viewport,
		&flow.Notes, &flow.Owner,
		&flow.CreatedAt, &flow.UpdatedAt, &flow.PublishedAt, &flow.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	flow.Status = models.FlowStatus(status)

	if err := json.Unmarshal(nodes, &flow.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	if err := json.Unmarshal(edges, &flow.Edges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
	}

	if err := json.Unmarshal(viewport, &flow.Viewport); err != nil {
		return nil, fmt.Errorf("failed to unmarshal viewport: %w", err)
	}

	return &flow, nil
}
