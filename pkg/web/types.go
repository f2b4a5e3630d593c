// Package web provides HTTP request and response types for the builder API.
package web

import (
	"github.com/flowdeckhq/flowdeck/pkg/catalog"
	"github.com/flowdeckhq/flowdeck/pkg/models"
	"github.com/flowdeckhq/flowdeck/pkg/wizard"
)

// CreateFlowRequest represents the request body for creating a new flow.
type CreateFlowRequest struct {
	Name  string `json:"name"  validate:"required,min=3"`
	Owner string `json:"owner" validate:"required"`
	Notes string `json:"notes,omitempty"`
}

// UpdateFlowRequest represents the request body for updating an existing flow.
// All fields are optional to support partial updates; nodes and edges replace
// the stored document wholesale when present.
type UpdateFlowRequest struct {
	Name     *string          `json:"name,omitempty"     validate:"omitempty,min=3"`
	Notes    *string          `json:"notes,omitempty"`
	Nodes    []*models.Node   `json:"nodes,omitempty"`
	Edges    []*models.Edge   `json:"edges,omitempty"`
	Viewport *models.Viewport `json:"viewport,omitempty"`
}

// CreateNodeRequest represents the request body for adding a node to a flow.
type CreateNodeRequest struct {
	Type      models.NodeType `json:"type"   validate:"required"`
	Label     string          `json:"label"`
	Config    map[string]any  `json:"config"`
	PositionX int             `json:"position_x"`
	PositionY int             `json:"position_y"`
}

// UpdateNodeRequest represents the request body for editing a node in place.
// The agent fields (model, memory, tool_order) are only valid on aiAgent
// nodes.
type UpdateNodeRequest struct {
	Label     *string                   `json:"label,omitempty"`
	Notes     *string                   `json:"notes,omitempty"`
	PositionX *int                      `json:"position_x,omitempty"`
	PositionY *int                      `json:"position_y,omitempty"`
	Model     *models.AgentModelConfig  `json:"model,omitempty"`
	Memory    *models.AgentMemoryConfig `json:"memory,omitempty"`
	ToolOrder []string                  `json:"tool_order,omitempty"`
}

// hasAgentFields reports whether the update touches agent-only state.
func (r *UpdateNodeRequest) hasAgentFields() bool {
	return r.Model != nil || r.Memory != nil || r.ToolOrder != nil
}

// AttachToolRequest represents the request body for attaching an agent tool.
type AttachToolRequest struct {
	ToolKey      string         `json:"tool_key" validate:"required"`
	CredentialID string         `json:"credential_id,omitempty"`
	Enabled      bool           `json:"enabled"`
	Config       map[string]any `json:"config,omitempty"`
}

// NodeTestRequest represents the request body for an ad-hoc connectivity test.
type NodeTestRequest struct {
	Kind         string         `json:"kind"     validate:"required,oneof=app model"`
	Provider     string         `json:"provider" validate:"required"`
	Action       string         `json:"action,omitempty"`
	CredentialID string         `json:"credential_id,omitempty"`
	APIKey       string         `json:"api_key,omitempty"`
	BaseURL      string         `json:"base_url,omitempty"`
	Model        string         `json:"model,omitempty"`
	Config       map[string]any `json:"config,omitempty"`
}

// CreateCredentialRequest represents the request body for registering a
// credential reference.
type CreateCredentialRequest struct {
	Provider string `json:"provider" validate:"required"`
	Name     string `json:"name"     validate:"required"`
	Owner    string `json:"owner,omitempty"`
}

// OpenWizardRequest represents the request body for opening a wizard session.
type OpenWizardRequest struct {
	Mode        wizard.Mode    `json:"mode"    validate:"required,oneof=add-app-node add-agent add-agent-tool"`
	Owner       string         `json:"owner"   validate:"required"`
	FlowID      string         `json:"flow_id" validate:"required"`
	AgentNodeID string         `json:"agent_node_id,omitempty"`
	App         string         `json:"app,omitempty"`
	Draft       map[string]any `json:"draft,omitempty"`
}

// NodeDefinitionResponse is the serializable shape of a catalog entry. The
// defaults are materialized so the palette can render without a round trip.
type NodeDefinitionResponse struct {
	Type        models.NodeType      `json:"type"`
	Label       string               `json:"label"`
	Description string               `json:"description"`
	Category    catalog.NodeCategory `json:"category"`
	Accent      string               `json:"accent"`
	Fields      []catalog.Field      `json:"fields"`
	Defaults    map[string]any       `json:"defaults"`
}

// TransformNodeDefinition converts a catalog entry into its API response.
func TransformNodeDefinition(definition catalog.NodeDefinition) NodeDefinitionResponse {
	return NodeDefinitionResponse{
		Type:        definition.Type,
		Label:       definition.Label,
		Description: definition.Description,
		Category:    definition.Category,
		Accent:      definition.Accent,
		Fields:      definition.Fields,
		Defaults:    definition.DefaultConfig(),
	}
}

// SessionResponse is the wire shape of a wizard session.
type SessionResponse struct {
	ID         string                 `json:"id"`
	Mode       wizard.Mode            `json:"mode"`
	Step       wizard.Step            `json:"step"`
	StepIndex  int                    `json:"step_index"`
	Steps      []wizard.Step          `json:"steps"`
	FlowID     string                 `json:"flow_id"`
	Draft      wizard.Draft           `json:"draft"`
	Errors     map[string]string      `json:"errors,omitempty"`
	Testing    bool                   `json:"testing"`
	TestResult *connectorTestResponse `json:"test_result,omitempty"`
}

type connectorTestResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Output  map[string]any `json:"output,omitempty"`
}

// TransformSession converts a wizard session into its API response.
func TransformSession(session *wizard.Session) SessionResponse {
	response := SessionResponse{
		ID:        session.ID,
		Mode:      session.Mode,
		Step:      session.Step(),
		StepIndex: session.StepIndex,
		Steps:     wizard.Steps(session.Mode),
		FlowID:    session.FlowID,
		Draft:     session.Draft,
		Errors:    session.Errors,
		Testing:   session.Testing,
	}

	if session.TestResult != nil {
		response.TestResult = &connectorTestResponse{
			Success: session.TestResult.Success,
			Message: session.TestResult.Message,
			Output:  session.TestResult.Output,
		}
	}

	return response
}
