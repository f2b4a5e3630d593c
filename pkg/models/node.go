// Package models defines the core domain models for the workflow builder:
// canvas flows, nodes and their configuration bags, AI-agent sub-state,
// condition lists and schedule expressions.
package models

// NodeType identifies the kind of a canvas node. The set is closed; unknown
// types coming from storage are tolerated by the catalog fallback, never
// rejected.
type NodeType string

const (
	// Trigger kinds.
	NodeTypeScheduleTrigger NodeType = "scheduleTrigger"
	NodeTypeWebhookTrigger  NodeType = "webhookTrigger"
	NodeTypeManualTrigger   NodeType = "manualTrigger"

	// Action kinds.
	NodeTypeHTTPRequest NodeType = "httpRequest"
	NodeTypeSendEmail   NodeType = "sendEmail"

	// Utility kinds.
	NodeTypeIf        NodeType = "if"
	NodeTypeSwitch    NodeType = "switch"
	NodeTypeDelay     NodeType = "delay"
	NodeTypeSetFields NodeType = "setFields"

	// Composite kinds.
	NodeTypeApp       NodeType = "app"
	NodeTypeAIAgent   NodeType = "aiAgent"
	NodeTypeChatModel NodeType = "chatModel"

	// Retired per-provider chat-model variants, rewritten to chatModel on load.
	NodeTypeOpenAIChatModel    NodeType = "openAiChatModel"
	NodeTypeGeminiChatModel    NodeType = "geminiChatModel"
	NodeTypeAnthropicChatModel NodeType = "anthropicChatModel"
)

// legacyChatModelProviders maps retired chat-model node types to the provider
// key the unified chatModel node stores in its config.
var legacyChatModelProviders = map[NodeType]string{
	NodeTypeOpenAIChatModel:    "openai",
	NodeTypeGeminiChatModel:    "gemini",
	NodeTypeAnthropicChatModel: "anthropic",
}

// NodeTypes returns every current (non-retired) node type.
func NodeTypes() []NodeType {
	return []NodeType{
		NodeTypeScheduleTrigger,
		NodeTypeWebhookTrigger,
		NodeTypeManualTrigger,
		NodeTypeHTTPRequest,
		NodeTypeSendEmail,
		NodeTypeIf,
		NodeTypeSwitch,
		NodeTypeDelay,
		NodeTypeSetFields,
		NodeTypeApp,
		NodeTypeAIAgent,
		NodeTypeChatModel,
	}
}

// NodeStatus reports the runtime state of a node during a monitored run.
type NodeStatus string

const (
	NodeStatusPending NodeStatus = "pending"
	NodeStatusRunning NodeStatus = "running"
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusError   NodeStatus = "error"
)

// Node is one configurable unit on the canvas. Config keys and shapes depend
// on Type (and, for app nodes, on the chosen app and action). The runtime
// overlay fields are supplied by the run monitor and never persisted.
type Node struct {
	ID     string         `json:"id"       validate:"required"`
	Type   NodeType       `json:"nodeType" validate:"required"`
	Label  string         `json:"label"`
	Config map[string]any `json:"config"`

	// AI-agent sub-state, only meaningful when Type is aiAgent.
	Model  *AgentModelConfig  `json:"model,omitempty"`
	Memory *AgentMemoryConfig `json:"memory,omitempty"`
	Tools  []AgentToolConfig  `json:"tools,omitempty"`

	Notes     string `json:"notes,omitempty"`
	PositionX int    `json:"position_x"`
	PositionY int    `json:"position_y"`

	RuntimeStatus  NodeStatus `json:"-"`
	RuntimeStepKey string     `json:"-"`
	RuntimePulse   int64      `json:"-"`
}

// IsTrigger reports whether the node starts a workflow run.
func (n *Node) IsTrigger() bool {
	switch n.Type {
	case NodeTypeScheduleTrigger, NodeTypeWebhookTrigger, NodeTypeManualTrigger:
		return true
	default:
		return false
	}
}

// Normalize rewrites legacy shapes in place: retired per-provider chat-model
// types become the unified chatModel type with config.provider set, and a
// default label is synthesized when none was stored. It also guarantees a
// non-nil config bag. Normalize is invoked explicitly when a flow is loaded,
// never as a rendering side effect.
func (n *Node) Normalize() {
	if provider, ok := legacyChatModelProviders[n.Type]; ok {
		n.Type = NodeTypeChatModel

		if n.Config == nil {
			n.Config = make(map[string]any)
		}

		n.Config["provider"] = provider

		if n.Label == "" {
			n.Label = DefaultChatModelLabel(provider)
		}
	}

	if n.Config == nil {
		n.Config = make(map[string]any)
	}
}

// EnsureConfigDefaults fills every missing config key from defaults. Present
// keys are left untouched, so a later patch always wins on collision.
func (n *Node) EnsureConfigDefaults(defaults map[string]any) {
	if n.Config == nil {
		n.Config = make(map[string]any, len(defaults))
	}

	for key, value := range defaults {
		if _, ok := n.Config[key]; !ok {
			n.Config[key] = value
		}
	}
}

// PatchConfig shallow-merges patch into the node's config. This is the single
// mutation path for config edits; the patch wins on key collision.
func (n *Node) PatchConfig(patch map[string]any) {
	if n.Config == nil {
		n.Config = make(map[string]any, len(patch))
	}

	for key, value := range patch {
		n.Config[key] = value
	}
}

// AppendTool appends a tool attachment to the agent's ordered tool list.
func (n *Node) AppendTool(tool AgentToolConfig) {
	n.Tools = append(n.Tools, tool)
}

// RemoveTool deletes the tool with the given ID, preserving order. It reports
// whether a tool was removed.
func (n *Node) RemoveTool(toolID string) bool {
	for i, tool := range n.Tools {
		if tool.ID == toolID {
			n.Tools = append(n.Tools[:i], n.Tools[i+1:]...)

			return true
		}
	}

	return false
}

// ReorderTools rearranges the agent's tools to follow the given ID order.
// Tools not named keep their relative order after the named ones; unknown IDs
// are ignored.
func (n *Node) ReorderTools(ids []string) {
	if len(n.Tools) == 0 {
		return
	}

	byID := make(map[string]AgentToolConfig, len(n.Tools))
	for _, tool := range n.Tools {
		byID[tool.ID] = tool
	}

	reordered := make([]AgentToolConfig, 0, len(n.Tools))
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if tool, ok := byID[id]; ok && !seen[id] {
			reordered = append(reordered, tool)
			seen[id] = true
		}
	}

	for _, tool := range n.Tools {
		if !seen[tool.ID] {
			reordered = append(reordered, tool)
		}
	}

	n.Tools = reordered
}
