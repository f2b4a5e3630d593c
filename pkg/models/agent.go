package models

import "strings"

// AgentModelConfig selects the chat model an AI agent (or a standalone
// chatModel node) runs against. Exactly one of CredentialID or APIKeyOverride
// must carry the authentication material.
type AgentModelConfig struct {
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	CredentialID   string `json:"credential_id,omitempty"`
	APIKeyOverride string `json:"api_key_override,omitempty"`
	BaseURL        string `json:"base_url,omitempty"`
}

// Valid reports whether the model selection is complete enough to run:
// non-blank provider and model name, plus a credential or a literal API key.
func (m *AgentModelConfig) Valid() bool {
	if m == nil {
		return false
	}

	if strings.TrimSpace(m.Provider) == "" || strings.TrimSpace(m.Model) == "" {
		return false
	}

	return strings.TrimSpace(m.CredentialID) != "" || strings.TrimSpace(m.APIKeyOverride) != ""
}

// AgentMemoryKind selects the agent's conversation memory strategy.
type AgentMemoryKind string

const (
	AgentMemoryNone         AgentMemoryKind = "none"
	AgentMemoryConversation AgentMemoryKind = "conversation"
)

// AgentMemoryConfig holds the memory kind and its opaque settings bag.
type AgentMemoryConfig struct {
	Kind   AgentMemoryKind `json:"kind"`
	Config map[string]any  `json:"config,omitempty"`
}

// AgentToolConfig attaches one catalog action to an agent as a callable tool.
// List order is significant: it is the execution and display order.
type AgentToolConfig struct {
	ID           string         `json:"id"       validate:"required"`
	ToolKey      string         `json:"tool_key" validate:"required"`
	Enabled      bool           `json:"enabled"`
	CredentialID string         `json:"credential_id,omitempty"`
	Config       map[string]any `json:"config,omitempty"`
}

// chatModelProviderNames maps provider keys to their display names, used when
// synthesizing the auto-generated chat-model node label.
var chatModelProviderNames = map[string]string{
	"openai":    "OpenAI",
	"anthropic": "Anthropic",
	"gemini":    "Gemini",
	"ollama":    "Ollama",
}

// ProviderDisplayName returns the human name for a chat-model provider key.
// Unknown providers fall back to the raw key.
func ProviderDisplayName(provider string) string {
	if name, ok := chatModelProviderNames[provider]; ok {
		return name
	}

	return provider
}

// DefaultChatModelLabel builds the auto-generated label for a chat-model node
// of the given provider, e.g. "Gemini Chat Model". Editors compare a node's
// label against this exact string to decide whether the user customized it.
func DefaultChatModelLabel(provider string) string {
	return ProviderDisplayName(provider) + " Chat Model"
}
