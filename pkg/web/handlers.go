// Package web provides HTTP handlers and REST API endpoints for the flow
// builder.
package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/flowdeckhq/flowdeck/pkg/catalog"
	"github.com/flowdeckhq/flowdeck/pkg/connector"
	"github.com/flowdeckhq/flowdeck/pkg/eventbus"
	"github.com/flowdeckhq/flowdeck/pkg/events"
	"github.com/flowdeckhq/flowdeck/pkg/log"
	"github.com/flowdeckhq/flowdeck/pkg/models"
	"github.com/flowdeckhq/flowdeck/pkg/services"
	"github.com/flowdeckhq/flowdeck/pkg/wizard"
)

type APIHandlers struct {
	flowService       *services.Flow
	nodeService       *services.Node
	credentialService *services.Credential
	wizardManager     *wizard.Manager
	catalog           *catalog.Catalog
	tester            connector.Tester
	publisher         eventbus.EventPublisher
	validator         *validator.Validate
	logger            *slog.Logger
}

func NewAPIHandlers(
	flowService *services.Flow,
	nodeService *services.Node,
	credentialService *services.Credential,
	wizardManager *wizard.Manager,
	cat *catalog.Catalog,
	tester connector.Tester,
	publisher eventbus.EventPublisher,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		flowService:       flowService,
		nodeService:       nodeService,
		credentialService: credentialService,
		wizardManager:     wizardManager,
		catalog:           cat,
		tester:            tester,
		publisher:         publisher,
		validator:         validator,
		logger:            log.WithModule("web"),
	}
}

// RegisterRoutes mounts every builder endpoint on the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	f := app.Group("/flows")
	f.Get("/", h.GetFlows)
	f.Post("/", h.CreateFlow)
	f.Get("/:id", h.GetFlow)
	f.Patch("/:id", h.UpdateFlow)
	f.Delete("/:id", h.DeleteFlow)
	f.Post("/:id/publish", h.PublishFlow)
	f.Post("/:id/unpublish", h.UnpublishFlow)

	// Node endpoints:
	f.Post("/:id/nodes", h.CreateNode)
	f.Get("/:id/nodes/:nodeId", h.GetNode)
	f.Patch("/:id/nodes/:nodeId", h.UpdateNode)
	f.Patch("/:id/nodes/:nodeId/config", h.PatchNodeConfig)
	f.Delete("/:id/nodes/:nodeId", h.DeleteNode)
	f.Post("/:id/nodes/:nodeId/tools", h.AttachTool)
	f.Delete("/:id/nodes/:nodeId/tools/:toolId", h.DetachTool)

	cat := app.Group("/catalog")
	cat.Get("/nodes", h.GetCatalogNodes)
	cat.Get("/apps", h.GetCatalogApps)
	cat.Get("/apps/:key/actions", h.GetCatalogAppActions)
	cat.Get("/tools", h.GetCatalogTools)
	cat.Get("/providers", h.GetCatalogProviders)

	app.Get("/credentials", h.GetCredentials)
	app.Post("/credentials", h.CreateCredential)

	app.Post("/nodes/test", h.TestNode)

	w := app.Group("/wizard")
	w.Post("/", h.OpenWizard)
	w.Get("/:id", h.GetWizard)
	w.Patch("/:id/draft", h.PatchWizardDraft)
	w.Post("/:id/next", h.WizardNext)
	w.Post("/:id/prev", h.WizardPrev)
	w.Post("/:id/test", h.WizardTest)
	w.Post("/:id/confirm", h.WizardConfirm)
	w.Delete("/:id", h.CloseWizard)

	app.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	req, err := h.parseListFlowsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.flowService.ListFlows(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"flows":         result.Flows,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

// parseListFlowsRequest parses and validates query parameters for listing flows.
func (h *APIHandlers) parseListFlowsRequest(c fiber.Ctx) (*services.ListFlowsRequest, error) {
	req := &services.ListFlowsRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	req.Owner = c.Query("owner")

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.FlowStatus(statusStr)
		req.Status = &status
	}

	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	flow, err := h.flowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req CreateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	flow := &models.Flow{
		Name:  req.Name,
		Owner: req.Owner,
		Notes: req.Notes,
		Nodes: []*models.Node{}, // Empty - nodes added separately
		Edges: []*models.Edge{},
	}

	created, err := h.flowService.Create(c.Context(), flow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req UpdateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.flowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Notes != nil {
		existing.Notes = *req.Notes
	}

	if req.Nodes != nil {
		existing.Nodes = req.Nodes
	}

	if req.Edges != nil {
		existing.Edges = req.Edges
	}

	if req.Viewport != nil {
		existing.Viewport = *req.Viewport
	}

	updated, err := h.flowService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	if err := h.flowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PublishFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	published, err := h.flowService.Publish(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(published)
}

func (h *APIHandlers) UnpublishFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	unpublished, err := h.flowService.Unpublish(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(unpublished)
}

func (h *APIHandlers) CreateNode(c fiber.Ctx) error {
	flowID := c.Params("id")
	if flowID == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req CreateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.nodeService.CreateNode(c.Context(), flowID, &services.CreateNodeRequest{
		Type:      req.Type,
		Label:     req.Label,
		Config:    req.Config,
		PositionX: req.PositionX,
		PositionY: req.PositionY,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *APIHandlers) GetNode(c fiber.Ctx) error {
	node, err := h.nodeService.GetNode(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node)
}

func (h *APIHandlers) UpdateNode(c fiber.Ctx) error {
	flowID := c.Params("id")
	nodeID := c.Params("nodeId")

	var req UpdateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if req.hasAgentFields() {
		result, err := h.nodeService.UpdateAgent(c.Context(), flowID, nodeID, &services.UpdateAgentRequest{
			Label:     req.Label,
			Notes:     req.Notes,
			Model:     req.Model,
			Memory:    req.Memory,
			ToolOrder: req.ToolOrder,
		})
		if err != nil {
			return handleServiceError(c, err)
		}

		return c.JSON(result)
	}

	node, err := h.nodeService.UpdateNode(c.Context(), flowID, nodeID, &services.UpdateNodeRequest{
		Label:     req.Label,
		Notes:     req.Notes,
		PositionX: req.PositionX,
		PositionY: req.PositionY,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(services.NodeResult{Node: node})
}

// PatchNodeConfig is the single config mutation endpoint: the body is a
// partial config bag shallow-merged into the node, patch wins on collision.
func (h *APIHandlers) PatchNodeConfig(c fiber.Ctx) error {
	flowID := c.Params("id")
	nodeID := c.Params("nodeId")

	var patch map[string]any
	if err := c.Bind().JSON(&patch); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result, err := h.nodeService.PatchConfig(c.Context(), flowID, nodeID, patch)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	err := h.nodeService.DeleteNode(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) AttachTool(c fiber.Ctx) error {
	var req AttachToolRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	node, err := h.nodeService.AttachTool(c.Context(), c.Params("id"), c.Params("nodeId"), models.AgentToolConfig{
		ToolKey:      req.ToolKey,
		CredentialID: req.CredentialID,
		Enabled:      req.Enabled,
		Config:       req.Config,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

func (h *APIHandlers) DetachTool(c fiber.Ctx) error {
	node, err := h.nodeService.DetachTool(c.Context(), c.Params("id"), c.Params("nodeId"), c.Params("toolId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node)
}

func (h *APIHandlers) GetCredentials(c fiber.Ctx) error {
	credentials, err := h.credentialService.List(c.Context(), c.Query("provider"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"credentials": credentials})
}

func (h *APIHandlers) CreateCredential(c fiber.Ctx) error {
	var req CreateCredentialRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.credentialService.Register(c.Context(), &models.Credential{
		Provider: req.Provider,
		Name:     req.Name,
		Owner:    req.Owner,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// TestNode runs an ad-hoc connectivity test outside any wizard session. The
// outcome always comes back 200 with success true or false; transport
// failures are results, not errors.
func (h *APIHandlers) TestNode(c fiber.Ctx) error {
	var req NodeTestRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	started := time.Now()

	result, err := h.tester.Test(c.Context(), connector.NodeTestRequest{
		Kind:         connector.TestKind(req.Kind),
		Provider:     req.Provider,
		Action:       req.Action,
		CredentialID: req.CredentialID,
		APIKey:       req.APIKey,
		BaseURL:      req.BaseURL,
		Model:        req.Model,
		Config:       req.Config,
	})
	if err != nil {
		result = connector.TestResult{Success: false, Message: err.Error()}
	}

	h.emitTestCompleted(c, req, result, time.Since(started))

	return c.JSON(result)
}

func (h *APIHandlers) emitTestCompleted(c fiber.Ctx, req NodeTestRequest, result connector.TestResult, elapsed time.Duration) {
	if h.publisher == nil {
		return
	}

	event := &events.NodeTestCompleted{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.NodeTestCompletedEvent,
			Timestamp: time.Now().UTC(),
		},
		Provider:   req.Provider,
		Action:     req.Action,
		Success:    result.Success,
		Message:    result.Message,
		DurationMs: elapsed.Milliseconds(),
	}

	if err := h.publisher.Publish(c.Context(), req.Provider, event); err != nil {
		h.logger.Warn("Failed to publish node test event", "provider", req.Provider, "error", err)
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.flowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Flowdeck API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Flowdeck API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
