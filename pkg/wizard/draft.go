package wizard

import (
	"strings"

	"github.com/flowdeckhq/flowdeck/pkg/models"
)

// Draft is the in-progress construction a session mutates step by step. Patch
// shallow-merges a partial update; the "config" key merges one level deeper so
// unrelated config fields survive partial patches. Unknown keys and values of
// the wrong shape are ignored, never rejected.
type Draft interface {
	Patch(partial map[string]any)
}

// AppNodeDraft builds an app-action node.
type AppNodeDraft struct {
	App          string         `json:"app"`
	Action       string         `json:"action"`
	CredentialID string         `json:"credential_id"`
	APIKey       string         `json:"api_key"`
	Config       map[string]any `json:"config"`
}

func (d *AppNodeDraft) Patch(partial map[string]any) {
	for key, value := range partial {
		switch key {
		case "app":
			d.App = stringValue(value)
		case "action":
			d.Action = stringValue(value)
		case "credential_id":
			d.CredentialID = stringValue(value)
		case "api_key":
			d.APIKey = stringValue(value)
		case "config":
			d.Config = mergeConfig(d.Config, value)
		}
	}
}

// AgentDraft builds an AI-agent node: basics, model selection, memory and an
// initial tool list.
type AgentDraft struct {
	Label        string                   `json:"label"`
	SystemPrompt string                   `json:"system_prompt"`
	Model        models.AgentModelConfig  `json:"model"`
	Memory       models.AgentMemoryConfig `json:"memory"`
	Tools        []models.AgentToolConfig `json:"tools"`
	Config       map[string]any           `json:"config"`
}

func (d *AgentDraft) Patch(partial map[string]any) {
	for key, value := range partial {
		switch key {
		case "label":
			d.Label = stringValue(value)
		case "system_prompt":
			d.SystemPrompt = stringValue(value)
		case "provider":
			d.Model.Provider = stringValue(value)
		case "model":
			d.Model.Model = stringValue(value)
		case "credential_id":
			d.Model.CredentialID = stringValue(value)
		case "api_key":
			d.Model.APIKeyOverride = stringValue(value)
		case "base_url":
			d.Model.BaseURL = stringValue(value)
		case "memory_kind":
			d.Memory.Kind = models.AgentMemoryKind(stringValue(value))
		case "memory_config":
			d.Memory.Config = mergeConfig(d.Memory.Config, value)
		case "config":
			d.Config = mergeConfig(d.Config, value)
		}
	}
}

// AgentToolDraft attaches one tool to an existing agent node.
type AgentToolDraft struct {
	AgentNodeID  string         `json:"agent_node_id"`
	ToolKey      string         `json:"tool_key"`
	CredentialID string         `json:"credential_id"`
	APIKey       string         `json:"api_key"`
	Enabled      bool           `json:"enabled"`
	Config       map[string]any `json:"config"`
}

func (d *AgentToolDraft) Patch(partial map[string]any) {
	for key, value := range partial {
		switch key {
		case "tool_key":
			d.ToolKey = stringValue(value)
		case "credential_id":
			d.CredentialID = stringValue(value)
		case "api_key":
			d.APIKey = stringValue(value)
		case "enabled":
			if enabled, ok := value.(bool); ok {
				d.Enabled = enabled
			}
		case "config":
			d.Config = mergeConfig(d.Config, value)
		}
	}
}

func stringValue(value any) string {
	s, _ := value.(string)

	return s
}

func mergeConfig(config map[string]any, value any) map[string]any {
	patch, ok := value.(map[string]any)
	if !ok {
		return config
	}

	if config == nil {
		config = make(map[string]any, len(patch))
	}

	for key, patchValue := range patch {
		config[key] = patchValue
	}

	return config
}

// configValue resolves one schema field's value. Credential and API-key
// fields live on the draft itself, not in the config bag.
func configValue(config map[string]any, key, credentialID, apiKey string) string {
	if value, ok := config[key].(string); ok && strings.TrimSpace(value) != "" {
		return value
	}

	switch key {
	case "credential_id":
		return credentialID
	case "api_key":
		return apiKey
	}

	return ""
}
