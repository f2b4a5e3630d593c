package models_test

import (
	"encoding/json"
	"testing"

	"github.com/flowdeckhq/flowdeck/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_Normalize_LegacyChatModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		node         models.Node
		wantProvider string
		wantLabel    string
	}{
		{
			name:         "gemini variant without label",
			node:         models.Node{ID: "n1", Type: models.NodeTypeGeminiChatModel},
			wantProvider: "gemini",
			wantLabel:    "Gemini Chat Model",
		},
		{
			name:         "openai variant without label",
			node:         models.Node{ID: "n2", Type: models.NodeTypeOpenAIChatModel},
			wantProvider: "openai",
			wantLabel:    "OpenAI Chat Model",
		},
		{
			name:         "custom label is preserved",
			node:         models.Node{ID: "n3", Type: models.NodeTypeAnthropicChatModel, Label: "My Model"},
			wantProvider: "anthropic",
			wantLabel:    "My Model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			node := tt.node
			node.Normalize()

			assert.Equal(t, models.NodeTypeChatModel, node.Type)
			assert.Equal(t, tt.wantProvider, node.Config["provider"])
			assert.Equal(t, tt.wantLabel, node.Label)
		})
	}
}

func TestNode_Normalize_CurrentTypeUntouched(t *testing.T) {
	t.Parallel()

	node := models.Node{ID: "n1", Type: models.NodeTypeHTTPRequest, Label: "Fetch"}
	node.Normalize()

	assert.Equal(t, models.NodeTypeHTTPRequest, node.Type)
	assert.Equal(t, "Fetch", node.Label)
	assert.NotNil(t, node.Config)
}

func TestNode_PatchConfig(t *testing.T) {
	t.Parallel()

	node := models.Node{ID: "n1", Type: models.NodeTypeHTTPRequest}
	node.EnsureConfigDefaults(map[string]any{"method": "GET", "url": ""})

	node.PatchConfig(map[string]any{"url": "https://example.com"})

	// Patch wins on collision; untouched defaults survive.
	assert.Equal(t, "https://example.com", node.Config["url"])
	assert.Equal(t, "GET", node.Config["method"])

	// Defaults never overwrite present keys.
	node.EnsureConfigDefaults(map[string]any{"method": "POST", "timeout": 30})
	assert.Equal(t, "GET", node.Config["method"])
	assert.Equal(t, 30, node.Config["timeout"])
}

func TestNode_RuntimeOverlayNotSerialized(t *testing.T) {
	t.Parallel()

	node := models.Node{
		ID:             "n1",
		Type:           models.NodeTypeIf,
		RuntimeStatus:  models.NodeStatusRunning,
		RuntimeStepKey: "step-3",
		RuntimePulse:   7,
	}

	payload, err := json.Marshal(&node)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))

	assert.NotContains(t, raw, "RuntimeStatus")
	assert.NotContains(t, raw, "runtime_status")
	assert.Equal(t, "if", raw["nodeType"])
}

func TestNode_ReorderTools(t *testing.T) {
	t.Parallel()

	node := models.Node{ID: "agent", Type: models.NodeTypeAIAgent}
	node.AppendTool(models.AgentToolConfig{ID: "t1", ToolKey: "gmailSendEmail", Enabled: true})
	node.AppendTool(models.AgentToolConfig{ID: "t2", ToolKey: "sheetsAppendRow", Enabled: true})
	node.AppendTool(models.AgentToolConfig{ID: "t3", ToolKey: "githubCreateIssue", Enabled: true})

	node.ReorderTools([]string{"t3", "t1"})

	ids := make([]string, 0, len(node.Tools))
	for _, tool := range node.Tools {
		ids = append(ids, tool.ID)
	}

	// Named tools first in the given order, the rest keep relative order.
	assert.Equal(t, []string{"t3", "t1", "t2"}, ids)

	// Unknown IDs are ignored.
	node.ReorderTools([]string{"missing", "t2"})
	assert.Equal(t, "t2", node.Tools[0].ID)
	assert.Len(t, node.Tools, 3)
}

func TestNode_RemoveTool(t *testing.T) {
	t.Parallel()

	node := models.Node{ID: "agent", Type: models.NodeTypeAIAgent}
	node.AppendTool(models.AgentToolConfig{ID: "t1", ToolKey: "gmailSendEmail"})
	node.AppendTool(models.AgentToolConfig{ID: "t2", ToolKey: "sheetsAppendRow"})

	assert.True(t, node.RemoveTool("t1"))
	assert.False(t, node.RemoveTool("t1"))
	require.Len(t, node.Tools, 1)
	assert.Equal(t, "t2", node.Tools[0].ID)
}

func TestAgentModelConfig_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		model *models.AgentModelConfig
		want  bool
	}{
		{name: "nil model", model: nil, want: false},
		{name: "complete with credential", model: &models.AgentModelConfig{Provider: "openai", Model: "gpt-4o", CredentialID: "cred-1"}, want: true},
		{name: "complete with api key override", model: &models.AgentModelConfig{Provider: "gemini", Model: "gemini-pro", APIKeyOverride: "sk-x"}, want: true},
		{name: "missing model name", model: &models.AgentModelConfig{Provider: "openai", CredentialID: "cred-1"}, want: false},
		{name: "blank provider", model: &models.AgentModelConfig{Provider: "  ", Model: "gpt-4o", CredentialID: "cred-1"}, want: false},
		{name: "no auth material", model: &models.AgentModelConfig{Provider: "openai", Model: "gpt-4o"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.model.Valid())
		})
	}
}

func TestFlow_RemoveNode(t *testing.T) {
	t.Parallel()

	flow := &models.Flow{
		ID:   "f1",
		Name: "Test Flow",
		Nodes: []*models.Node{
			{ID: "a", Type: models.NodeTypeManualTrigger},
			{ID: "b", Type: models.NodeTypeHTTPRequest},
			{ID: "c", Type: models.NodeTypeSendEmail},
		},
		Edges: []*models.Edge{
			{ID: "e1", SourceHandle: models.MakeHandle("a", "main"), TargetHandle: models.MakeHandle("b", "main")},
			{ID: "e2", SourceHandle: models.MakeHandle("b", "main"), TargetHandle: models.MakeHandle("c", "main")},
		},
	}

	require.True(t, flow.RemoveNode("b"))

	assert.Nil(t, flow.NodeByID("b"))
	assert.Len(t, flow.Nodes, 2)
	// Both edges touched node b and are gone with it.
	assert.Empty(t, flow.Edges)

	assert.False(t, flow.RemoveNode("b"))
}

func TestFlow_Normalize(t *testing.T) {
	t.Parallel()

	flow := &models.Flow{
		ID:   "f1",
		Name: "Legacy Flow",
		Nodes: []*models.Node{
			{ID: "n1", Type: models.NodeTypeGeminiChatModel},
		},
	}

	flow.Normalize()

	assert.NotNil(t, flow.Edges)
	assert.Equal(t, models.NodeTypeChatModel, flow.Nodes[0].Type)
	assert.Equal(t, "Gemini Chat Model", flow.Nodes[0].Label)
}

func TestParseHandle(t *testing.T) {
	t.Parallel()

	nodeID, name, ok := models.ParseHandle("node-1:main")
	require.True(t, ok)
	assert.Equal(t, "node-1", nodeID)
	assert.Equal(t, "main", name)

	_, _, ok = models.ParseHandle("nocolon")
	assert.False(t, ok)
}
