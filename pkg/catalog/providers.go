package catalog

import "github.com/flowdeckhq/flowdeck/pkg/models"

// ChatModelProvider is the catalog entry for one chat-model provider.
type ChatModelProvider struct {
	Key                string `json:"key"`
	Label              string `json:"label"`
	DefaultModel       string `json:"default_model"`
	DefaultBaseURL     string `json:"default_base_url"`
	RequiresCredential bool   `json:"requires_credential"`
}

// DefaultLabel is the auto-generated node label for this provider,
// e.g. "Gemini Chat Model".
func (p ChatModelProvider) DefaultLabel() string {
	return models.DefaultChatModelLabel(p.Key)
}

var chatModelProviders = []ChatModelProvider{
	{Key: "openai", Label: "OpenAI", DefaultModel: "gpt-4o-mini", DefaultBaseURL: "https://api.openai.com/v1", RequiresCredential: true},
	{Key: "anthropic", Label: "Anthropic", DefaultModel: "claude-3-5-sonnet-latest", DefaultBaseURL: "https://api.anthropic.com", RequiresCredential: true},
	{Key: "gemini", Label: "Gemini", DefaultModel: "gemini-1.5-pro", DefaultBaseURL: "https://generativelanguage.googleapis.com", RequiresCredential: true},
	{Key: "ollama", Label: "Ollama", DefaultModel: "llama3.1", DefaultBaseURL: "http://localhost:11434", RequiresCredential: false},
}

var defaultChatModelProvider = chatModelProviders[0]

// ChatModelProviders returns every provider in display order.
func ChatModelProviders() []ChatModelProvider {
	return chatModelProviders
}

// ChatModelProviderByKey returns the provider entry for a key.
func ChatModelProviderByKey(key string) (ChatModelProvider, bool) {
	for _, provider := range chatModelProviders {
		if provider.Key == key {
			return provider, true
		}
	}

	return ChatModelProvider{}, false
}
