package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowdeckhq/flowdeck/pkg/catalog"
	"github.com/flowdeckhq/flowdeck/pkg/eventbus"
	"github.com/flowdeckhq/flowdeck/pkg/events"
	"github.com/flowdeckhq/flowdeck/pkg/log"
	"github.com/flowdeckhq/flowdeck/pkg/models"
	"github.com/flowdeckhq/flowdeck/pkg/persistence"
)

// ErrFlowNotFound is returned when a flow is not found.
var ErrFlowNotFound = persistence.ErrFlowNotFound

// Flow implements the canvas document lifecycle: listing, loading with legacy
// normalization, saving and the publish state machine. Lifecycle events are
// emitted best-effort; a bus failure never fails the operation.
type Flow struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	catalog     *catalog.Catalog
	logger      *slog.Logger
}

// NewFlow creates a new flow service. The publisher may be nil when the
// caller does not wire an event bus.
func NewFlow(persistence persistence.Persistence, publisher eventbus.EventPublisher, cat *catalog.Catalog) *Flow {
	return &Flow{
		persistence: persistence,
		publisher:   publisher,
		catalog:     cat,
		logger:      log.WithModule("flow_service"),
	}
}

// normalize rewrites legacy node shapes and reconciles app nodes whose
// stored app or action drifted from the catalog. It runs on every load and
// save path so the builder only ever sees a repaired document.
func (s *Flow) normalize(flow *models.Flow) {
	flow.Normalize()

	if s.catalog == nil {
		return
	}

	for _, node := range flow.Nodes {
		s.catalog.ReconcileAppNode(node)
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Flow) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListFlowsRequest contains options for listing flows.
type ListFlowsRequest struct {
	// Pagination
	Limit  int `validate:"min=1,max=100"`
	Offset int `validate:"min=0"`

	// Filtering
	Owner  string
	Status *models.FlowStatus

	// Sorting
	SortBy    string `validate:"oneof=created_at updated_at name"`
	SortOrder string `validate:"oneof=asc desc"`
}

// ListFlowsResponse contains the result of listing flows.
type ListFlowsResponse struct {
	Flows       []*models.Flow `json:"flows"`
	TotalCount  int64          `json:"total_count"`
	HasNextPage bool           `json:"has_next_page"`
}

// ListFlows retrieves flows with filtering, sorting, and pagination.
func (s *Flow) ListFlows(ctx context.Context, req ListFlowsRequest) (*ListFlowsResponse, error) {
	if err := s.validateListFlowsRequest(&req); err != nil {
		return nil, err
	}

	opts := persistence.ListFlowsOptions{
		Limit:     req.Limit,
		Offset:    req.Offset,
		Owner:     req.Owner,
		Status:    req.Status,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	result, err := s.persistence.Flows(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	for _, flow := range result.Flows {
		s.normalize(flow)
	}

	return &ListFlowsResponse{
		Flows:       result.Flows,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

// validateListFlowsRequest validates and sets defaults for the request.
func (s *Flow) validateListFlowsRequest(req *ListFlowsRequest) error {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	allowedSorts := []string{"created_at", "updated_at", "name"}

	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewValidationError(
			"validateListFlowsRequest",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: %s", req.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidSortField,
		)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewValidationError(
			"validateListFlowsRequest",
			"INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
			ErrInvalidSortOrder,
		)
	}

	if req.Status != nil {
		allowedStatuses := []models.FlowStatus{
			models.FlowStatusDraft,
			models.FlowStatusPublished,
			models.FlowStatusUnpublished,
		}

		if !slices.Contains(allowedStatuses, *req.Status) {
			return NewValidationError(
				"validateListFlowsRequest",
				"INVALID_STATUS",
				fmt.Sprintf("invalid status '%s'", *req.Status),
				ErrInvalidStatus,
			)
		}
	}

	if req.Owner != "" {
		req.Owner = strings.TrimSpace(req.Owner)
		if req.Owner == "" {
			return ErrEmptyOwner
		}
	}

	return nil
}

// FetchByID retrieves a flow by its ID. Legacy node shapes are rewritten on
// load so the builder only ever sees the current model.
func (s *Flow) FetchByID(ctx context.Context, id string) (*models.Flow, error) {
	flow, err := s.persistence.FlowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if flow == nil {
		return nil, ErrFlowNotFound
	}

	s.normalize(flow)

	return flow, nil
}

// Create adds a new flow to the repository.
func (s *Flow) Create(ctx context.Context, flow *models.Flow) (*models.Flow, error) {
	if flow == nil {
		return nil, ErrFlowNil
	}

	if strings.TrimSpace(flow.Name) == "" {
		return nil, ErrFlowNameRequired
	}

	now := time.Now().UTC()
	flow.ID = uuid.New().String()
	flow.CreatedAt = now
	flow.UpdatedAt = now
	flow.Version = 1

	if flow.Status == "" {
		flow.Status = models.FlowStatusDraft
	}

	if err := s.validateEdges(flow); err != nil {
		return nil, err
	}

	s.normalize(flow)

	err := s.persistence.SaveFlow(ctx, flow)
	if err != nil {
		return nil, fmt.Errorf("failed to create flow: %w", err)
	}

	s.emit(ctx, flow.ID, &events.FlowCreated{
		BaseEvent: s.baseEvent(events.FlowCreatedEvent, flow.ID),
		Name:      flow.Name,
		Owner:     flow.Owner,
	})

	return flow, nil
}

// Update replaces the editable document of an existing draft flow: name,
// nodes, edges, viewport and notes. Identity, ownership and the publish state
// are preserved from the stored record.
func (s *Flow) Update(ctx context.Context, flowID string, flow *models.Flow) (*models.Flow, error) {
	if flow == nil {
		return nil, ErrFlowNil
	}

	existing, err := s.FetchByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if err := s.requireDraft(existing); err != nil {
		return nil, err
	}

	flow.ID = flowID
	flow.Owner = existing.Owner
	flow.Status = existing.Status
	flow.Version = existing.Version
	flow.PublishedAt = existing.PublishedAt
	flow.CreatedAt = existing.CreatedAt
	flow.UpdatedAt = time.Now().UTC()

	if err := s.validateEdges(flow); err != nil {
		return nil, err
	}

	s.normalize(flow)

	err = s.persistence.SaveFlow(ctx, flow)
	if err != nil {
		return nil, fmt.Errorf("failed to update flow: %w", err)
	}

	s.emit(ctx, flow.ID, &events.FlowUpdated{
		BaseEvent: s.baseEvent(events.FlowUpdatedEvent, flow.ID),
		Version:   flow.Version,
		NodeCount: len(flow.Nodes),
		EdgeCount: len(flow.Edges),
	})

	return flow, nil
}

// Save persists a flow that was mutated in place, bumping its UpdatedAt. It
// is the write path used by node-level operations.
func (s *Flow) Save(ctx context.Context, flow *models.Flow) error {
	if flow == nil {
		return ErrFlowNil
	}

	flow.UpdatedAt = time.Now().UTC()

	err := s.persistence.SaveFlow(ctx, flow)
	if err != nil {
		return fmt.Errorf("failed to save flow: %w", err)
	}

	s.emit(ctx, flow.ID, &events.FlowUpdated{
		BaseEvent: s.baseEvent(events.FlowUpdatedEvent, flow.ID),
		Version:   flow.Version,
		NodeCount: len(flow.Nodes),
		EdgeCount: len(flow.Edges),
	})

	return nil
}

// Delete removes a flow by its ID.
func (s *Flow) Delete(ctx context.Context, flowID string) error {
	_, err := s.FetchByID(ctx, flowID)
	if err != nil {
		return err
	}

	err = s.persistence.DeleteFlow(ctx, flowID)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}

	s.emit(ctx, flowID, &events.FlowDeleted{
		BaseEvent: s.baseEvent(events.FlowDeletedEvent, flowID),
	})

	return nil
}

// Publish moves a draft flow to the published state: the version is bumped
// and the publish timestamp recorded. The document itself is not touched.
func (s *Flow) Publish(ctx context.Context, flowID string) (*models.Flow, error) {
	flow, err := s.FetchByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if flow.Status == models.FlowStatusPublished {
		return nil, ErrAlreadyPublished
	}

	if err := s.validateForPublishing(flow); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	flow.Status = models.FlowStatusPublished
	flow.Version++
	flow.PublishedAt = &now
	flow.UpdatedAt = now

	err = s.persistence.SaveFlow(ctx, flow)
	if err != nil {
		return nil, fmt.Errorf("failed to publish flow: %w", err)
	}

	s.emit(ctx, flow.ID, &events.FlowPublished{
		BaseEvent:   s.baseEvent(events.FlowPublishedEvent, flow.ID),
		Version:     flow.Version,
		PublishedAt: now,
	})

	return flow, nil
}

// Unpublish retires a published flow back to the editable draft state.
func (s *Flow) Unpublish(ctx context.Context, flowID string) (*models.Flow, error) {
	flow, err := s.FetchByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if flow.Status != models.FlowStatusPublished {
		return nil, ErrNotPublished
	}

	flow.Status = models.FlowStatusDraft
	flow.PublishedAt = nil
	flow.UpdatedAt = time.Now().UTC()

	err = s.persistence.SaveFlow(ctx, flow)
	if err != nil {
		return nil, fmt.Errorf("failed to unpublish flow: %w", err)
	}

	s.emit(ctx, flow.ID, &events.FlowUnpublished{
		BaseEvent: s.baseEvent(events.FlowUnpublishedEvent, flow.ID),
	})

	return flow, nil
}

// validateForPublishing ensures a flow is ready to be published.
func (s *Flow) validateForPublishing(flow *models.Flow) error {
	if flow == nil {
		return ErrFlowNil
	}

	if strings.TrimSpace(flow.Name) == "" {
		return ErrFlowNameRequired
	}

	if len(flow.Nodes) == 0 {
		return ErrNodesRequired
	}

	for _, node := range flow.Nodes {
		if node.IsTrigger() {
			return nil
		}
	}

	return ErrTriggerNodeRequired
}

// validateEdges rejects edges whose handles are malformed or reference a
// node absent from the document.
func (s *Flow) validateEdges(flow *models.Flow) error {
	if len(flow.Edges) == 0 {
		return nil
	}

	ids := make(map[string]bool, len(flow.Nodes))
	for _, node := range flow.Nodes {
		ids[node.ID] = true
	}

	for _, edge := range flow.Edges {
		for _, handle := range []string{edge.SourceHandle, edge.TargetHandle} {
			nodeID, _, ok := models.ParseHandle(handle)
			if !ok {
				return NewValidationError(
					"validateEdges",
					"INVALID_EDGE",
					fmt.Sprintf("edge '%s' has a malformed handle '%s'", edge.ID, handle),
					ErrInvalidEdgeData,
				)
			}

			if !ids[nodeID] {
				return NewValidationError(
					"validateEdges",
					"INVALID_EDGE",
					fmt.Sprintf("edge '%s' references unknown node '%s'", edge.ID, nodeID),
					ErrInvalidEdgeData,
				)
			}
		}
	}

	return nil
}

// requireDraft rejects document mutations on flows outside the draft state.
func (s *Flow) requireDraft(flow *models.Flow) error {
	switch flow.Status {
	case models.FlowStatusPublished:
		return ErrCannotModifyPublished
	case models.FlowStatusUnpublished:
		return ErrCannotModifyUnpublished
	default:
		return nil
	}
}

func (s *Flow) baseEvent(eventType events.EventType, flowID string) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		FlowID:    flowID,
	}
}

func (s *Flow) emit(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish flow event",
			"event_type", event.GetType(), "flow_id", key, "error", err)
	}
}
