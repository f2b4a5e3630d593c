package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/flowdeckhq/flowdeck/pkg/catalog"
	"github.com/flowdeckhq/flowdeck/pkg/models"
	"github.com/flowdeckhq/flowdeck/pkg/persistence"
)

// ErrNodeNotFound is returned when a node is not found in a flow.
var ErrNodeNotFound = persistence.ErrNodeNotFound

// CreateNodeRequest represents the request to add a node to a flow. Config is
// an optional patch applied over the catalog defaults for the type.
type CreateNodeRequest struct {
	Type      models.NodeType
	Label     string
	Config    map[string]any
	PositionX int
	PositionY int
}

// UpdateAgentRequest carries the editable AI-agent fields. Nil pointers leave
// the stored value untouched; ToolOrder, when present, reorders the agent's
// tools by ID.
type UpdateAgentRequest struct {
	Label     *string
	Notes     *string
	Model     *models.AgentModelConfig
	Memory    *models.AgentMemoryConfig
	ToolOrder []string
}

// NodeResult pairs a mutated node with the advisory schema warnings computed
// for its config. Warnings never block the write.
type NodeResult struct {
	Node     *models.Node `json:"node"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Node handles node-level operations inside a draft flow. Every mutation
// loads the flow, edits the document in place and writes it back through the
// flow service so the update event fires exactly once.
type Node struct {
	flows   *Flow
	catalog *catalog.Catalog
}

// NewNode creates a new node service.
func NewNode(flows *Flow, cat *catalog.Catalog) *Node {
	return &Node{
		flows:   flows,
		catalog: cat,
	}
}

// CreateNode adds a new node to the specified draft flow, seeded from the
// catalog defaults for its type.
func (n *Node) CreateNode(ctx context.Context, flowID string, req *CreateNodeRequest) (*NodeResult, error) {
	flow, err := n.draftFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}

	node := n.catalog.DefaultNode(req.Type)
	node.PositionX = req.PositionX
	node.PositionY = req.PositionY

	if req.Label != "" {
		node.Label = req.Label
	}

	if len(req.Config) > 0 {
		node.PatchConfig(req.Config)
	}

	flow.Nodes = append(flow.Nodes, node)

	if err := n.flows.Save(ctx, flow); err != nil {
		return nil, err
	}

	return &NodeResult{Node: node, Warnings: n.lintConfig(node)}, nil
}

// GetNode retrieves a single node from a flow.
func (n *Node) GetNode(ctx context.Context, flowID, nodeID string) (*models.Node, error) {
	flow, err := n.flows.FetchByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	node := flow.NodeByID(nodeID)
	if node == nil {
		return nil, persistence.NewNodeError("GetNode", flowID, nodeID, ErrNodeNotFound)
	}

	return node, nil
}

// PatchConfig shallow-merges a partial config into a node. Missing defaults
// for the node's type are filled first, then the patch is applied, so a
// patched key always wins over a default.
func (n *Node) PatchConfig(ctx context.Context, flowID, nodeID string, patch map[string]any) (*NodeResult, error) {
	flow, err := n.draftFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}

	node := flow.NodeByID(nodeID)
	if node == nil {
		return nil, persistence.NewNodeError("PatchConfig", flowID, nodeID, ErrNodeNotFound)
	}

	node.EnsureConfigDefaults(n.catalog.LookupNode(node.Type).DefaultConfig())

	prevProvider, _ := node.Config["provider"].(string)

	node.PatchConfig(patch)

	if node.Type == models.NodeTypeChatModel {
		switchChatModelProvider(node, prevProvider, patch)
	}

	if err := n.flows.Save(ctx, flow); err != nil {
		return nil, err
	}

	return &NodeResult{Node: node, Warnings: n.lintConfig(node)}, nil
}

// switchChatModelProvider applies the side effects of changing a chat-model
// node's provider: stored authentication is cleared and model/base_url fall
// back to the new provider's catalog defaults, except for keys the patch set
// explicitly. The label is regenerated only when it still equals the previous
// provider's auto-generated default; a user-customized label stays put.
func switchChatModelProvider(node *models.Node, prevProvider string, patch map[string]any) {
	if _, ok := patch["provider"]; !ok {
		return
	}

	provider, _ := node.Config["provider"].(string)
	if provider == prevProvider {
		return
	}

	reset := map[string]any{
		"credential_id": "",
		"api_key":       "",
	}

	if entry, ok := catalog.ChatModelProviderByKey(provider); ok {
		reset["model"] = entry.DefaultModel
		reset["base_url"] = entry.DefaultBaseURL
	}

	for key, value := range reset {
		if _, patched := patch[key]; !patched {
			node.Config[key] = value
		}
	}

	if node.Label == models.DefaultChatModelLabel(prevProvider) {
		node.Label = models.DefaultChatModelLabel(provider)
	}
}

// UpdateNodeRequest carries the fields any node can change in place. Nil
// pointers leave the stored value untouched.
type UpdateNodeRequest struct {
	Label     *string
	Notes     *string
	PositionX *int
	PositionY *int
}

// UpdateNode edits the display fields of any node: label, notes, position.
func (n *Node) UpdateNode(ctx context.Context, flowID, nodeID string, req *UpdateNodeRequest) (*models.Node, error) {
	flow, err := n.draftFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}

	node := flow.NodeByID(nodeID)
	if node == nil {
		return nil, persistence.NewNodeError("UpdateNode", flowID, nodeID, ErrNodeNotFound)
	}

	if req.Label != nil {
		node.Label = *req.Label
	}

	if req.Notes != nil {
		node.Notes = *req.Notes
	}

	if req.PositionX != nil {
		node.PositionX = *req.PositionX
	}

	if req.PositionY != nil {
		node.PositionY = *req.PositionY
	}

	if err := n.flows.Save(ctx, flow); err != nil {
		return nil, err
	}

	return node, nil
}

// UpdateAgent replaces the agent-specific fields of an aiAgent node.
func (n *Node) UpdateAgent(ctx context.Context, flowID, nodeID string, req *UpdateAgentRequest) (*NodeResult, error) {
	flow, err := n.draftFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}

	node := flow.NodeByID(nodeID)
	if node == nil {
		return nil, persistence.NewNodeError("UpdateAgent", flowID, nodeID, ErrNodeNotFound)
	}

	if node.Type != models.NodeTypeAIAgent {
		return nil, ErrNotAnAgent
	}

	if req.Label != nil {
		node.Label = *req.Label
	}

	if req.Notes != nil {
		node.Notes = *req.Notes
	}

	if req.Model != nil {
		node.Model = req.Model
	}

	if req.Memory != nil {
		node.Memory = req.Memory
	}

	if req.ToolOrder != nil {
		node.ReorderTools(req.ToolOrder)
	}

	if err := n.flows.Save(ctx, flow); err != nil {
		return nil, err
	}

	return &NodeResult{Node: node, Warnings: n.lintConfig(node)}, nil
}

// AttachTool appends a tool to an aiAgent node, assigning it a fresh ID.
func (n *Node) AttachTool(ctx context.Context, flowID, nodeID string, tool models.AgentToolConfig) (*models.Node, error) {
	if _, ok := n.catalog.FindTool(tool.ToolKey); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, tool.ToolKey)
	}

	flow, err := n.draftFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}

	node := flow.NodeByID(nodeID)
	if node == nil {
		return nil, persistence.NewNodeError("AttachTool", flowID, nodeID, ErrNodeNotFound)
	}

	if node.Type != models.NodeTypeAIAgent {
		return nil, ErrNotAnAgent
	}

	tool.ID = uuid.New().String()
	node.AppendTool(tool)

	if err := n.flows.Save(ctx, flow); err != nil {
		return nil, err
	}

	return node, nil
}

// DetachTool removes a tool from an aiAgent node by tool ID.
func (n *Node) DetachTool(ctx context.Context, flowID, nodeID, toolID string) (*models.Node, error) {
	flow, err := n.draftFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}

	node := flow.NodeByID(nodeID)
	if node == nil {
		return nil, persistence.NewNodeError("DetachTool", flowID, nodeID, ErrNodeNotFound)
	}

	if node.Type != models.NodeTypeAIAgent {
		return nil, ErrNotAnAgent
	}

	if !node.RemoveTool(toolID) {
		return nil, persistence.NewNodeError("DetachTool", flowID, toolID, ErrNodeNotFound)
	}

	if err := n.flows.Save(ctx, flow); err != nil {
		return nil, err
	}

	return node, nil
}

// DeleteNode removes a node and every edge attached to one of its handles.
func (n *Node) DeleteNode(ctx context.Context, flowID, nodeID string) error {
	flow, err := n.draftFlow(ctx, flowID)
	if err != nil {
		return err
	}

	if !flow.RemoveNode(nodeID) {
		return persistence.NewNodeError("DeleteNode", flowID, nodeID, ErrNodeNotFound)
	}

	return n.flows.Save(ctx, flow)
}

// draftFlow loads a flow and rejects node mutations outside the draft state.
func (n *Node) draftFlow(ctx context.Context, flowID string) (*models.Flow, error) {
	flow, err := n.flows.FetchByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if err := n.flows.requireDraft(flow); err != nil {
		return nil, err
	}

	return flow, nil
}

// lintConfig checks a node's config against the JSON Schema derived from its
// catalog field schema. The result is advisory only: stored data is never
// rejected, the warnings just feed the builder's validity badges.
func (n *Node) lintConfig(node *models.Node) []string {
	fields := n.schemaFields(node)
	if len(fields) == 0 {
		return nil
	}

	schema := gojsonschema.NewGoLoader(catalog.FieldsSchema(fields))
	document := gojsonschema.NewGoLoader(node.Config)

	result, err := gojsonschema.Validate(schema, document)
	if err != nil {
		return []string{"config could not be checked: " + err.Error()}
	}

	if result.Valid() {
		return nil
	}

	warnings := make([]string, 0, len(result.Errors()))
	for _, issue := range result.Errors() {
		warnings = append(warnings, issue.String())
	}

	return warnings
}

// schemaFields resolves the field schema governing a node's config: the
// app-action schema for app nodes, the catalog entry's fields otherwise.
func (n *Node) schemaFields(node *models.Node) []catalog.Field {
	if node.Type == models.NodeTypeApp {
		app, _ := node.Config["app"].(string)
		action, _ := node.Config["action"].(string)

		if key, ok := n.catalog.NormalizeAppKey(app); ok {
			return n.catalog.SchemaFor(key, action)
		}

		return nil
	}

	return n.catalog.LookupNode(node.Type).Fields
}
