package catalog

import (
	"strings"

	"github.com/flowdeckhq/flowdeck/pkg/models"
	"github.com/google/uuid"
)

// NodeCategory groups node types in the palette.
type NodeCategory string

const (
	NodeCategoryTrigger NodeCategory = "trigger"
	NodeCategoryAction  NodeCategory = "action"
	NodeCategoryUtility NodeCategory = "utility"
	NodeCategoryApp     NodeCategory = "app"
	NodeCategoryAgent   NodeCategory = "agent"
	NodeCategoryModel   NodeCategory = "model"
)

// NodeDefinition is the catalog entry for one node type: display metadata,
// the editable field schema, a defaults constructor and an advisory validity
// predicate. Validate drives badges and disabled states only; it is never
// enforced at save time.
type NodeDefinition struct {
	Type        models.NodeType
	Label       string
	Description string
	Category    NodeCategory
	Accent      string
	Fields      []Field
	Defaults    func() map[string]any
	Validate    func(node *models.Node) bool
}

// DefaultConfig materializes a fresh config bag with every declared default.
func (d NodeDefinition) DefaultConfig() map[string]any {
	if d.Defaults == nil {
		return map[string]any{}
	}

	return d.Defaults()
}

// LookupNode returns the catalog entry for a node type. Unknown types get an
// identity-like fallback (label = raw type, empty schema, always-valid), so
// lookups are total and stored data with retired types still renders.
func (c *Catalog) LookupNode(nodeType models.NodeType) NodeDefinition {
	if definition, ok := c.nodes[nodeType]; ok {
		return definition
	}

	return NodeDefinition{
		Type:     nodeType,
		Label:    string(nodeType),
		Category: NodeCategoryUtility,
		Defaults: func() map[string]any { return map[string]any{} },
		Validate: func(*models.Node) bool { return true },
	}
}

// NodeDefinitions returns every current node type's entry in palette order.
func (c *Catalog) NodeDefinitions() []NodeDefinition {
	definitions := make([]NodeDefinition, 0, len(c.nodeOrder))
	for _, nodeType := range c.nodeOrder {
		definitions = append(definitions, c.nodes[nodeType])
	}

	return definitions
}

// DefaultNode builds a fresh node of the given type with a new ID, the
// catalog label and the full default config. Agent nodes also get their
// default model and memory sub-state.
func (c *Catalog) DefaultNode(nodeType models.NodeType) *models.Node {
	definition := c.LookupNode(nodeType)

	node := &models.Node{
		ID:     uuid.New().String(),
		Type:   nodeType,
		Label:  definition.Label,
		Config: definition.DefaultConfig(),
	}

	if nodeType == models.NodeTypeAIAgent {
		node.Model = &models.AgentModelConfig{}
		node.Memory = &models.AgentMemoryConfig{Kind: models.AgentMemoryNone}
		node.Tools = []models.AgentToolConfig{}
	}

	return node
}

func (c *Catalog) registerNode(definition NodeDefinition) {
	if definition.Validate == nil {
		definition.Validate = func(*models.Node) bool { return true }
	}

	c.nodes[definition.Type] = definition
	c.nodeOrder = append(c.nodeOrder, definition.Type)
}

func (c *Catalog) registerDefaultNodes() {
	c.registerNode(NodeDefinition{
		Type:        models.NodeTypeScheduleTrigger,
		Label:       "Schedule Trigger",
		Description: "Starts the flow on a recurring schedule",
		Category:    NodeCategoryTrigger,
		Accent:      "amber",
		Fields: []Field{
			{Key: "cron", Label: "Cron expression", Type: FieldTypeText, Required: true, Placeholder: "0 * * * *"},
		},
		Defaults: func() map[string]any {
			return map[string]any{"cron": models.DefaultScheduleState().Expression()}
		},
		Validate: func(node *models.Node) bool {
			state := models.ParseScheduleExpression(configString(node, "cron"))

			return !state.NextRun(nowReference()).IsZero()
		},
	})

	c.registerNode(NodeDefinition{
		Type:        models.NodeTypeWebhookTrigger,
		Label:       "Webhook Trigger",
		Description: "Starts the flow when an HTTP request arrives",
		Category:    NodeCategoryTrigger,
		Accent:      "amber",
		Fields: []Field{
			{Key: "path", Label: "Path", Type: FieldTypeText, Required: true, Placeholder: "/hooks/my-flow"},
			{Key: "method", Label: "Method", Type: FieldTypeSelect, Options: []string{"GET", "POST", "PUT"}, Default: "POST"},
		},
		Defaults: func() map[string]any {
			return map[string]any{"path": "", "method": "POST"}
		},
		Validate: func(node *models.Node) bool {
			return configString(node, "path") != ""
		},
	})

	c.registerNode(NodeDefinition{
		Type:        models.NodeTypeManualTrigger,
		Label:       "Manual Trigger",
		Description: "Starts the flow when run by hand",
		Category:    NodeCategoryTrigger,
		Accent:      "amber",
		Defaults:    func() map[string]any { return map[string]any{} },
	})

	c.registerNode(NodeDefinition{
		Type:        models.NodeTypeHTTPRequest,
		Label:       "HTTP Request",
		Description: "Calls an HTTP endpoint",
		Category:    NodeCategoryAction,
		Accent:      "sky",
		Fields: []Field{
			{Key: "method", Label: "Method", Type: FieldTypeSelect, Options: []string{"GET", "POST", "PUT", "PATCH", "DELETE"}, Default: "GET"},
			{Key: "url", Label: "URL", Type: FieldTypeText, Required: true, Placeholder: "https://api.example.com"},
			{Key: "headers", Label: "Headers", Type: FieldTypeTextarea},
			{Key: "body", Label: "Body", Type: FieldTypeTextarea},
		},
		Defaults: func() map[string]any {
			return map[string]any{"method": "GET", "url": "", "headers": "", "body": ""}
		},
		Validate: func(node *models.Node) bool {
			return configString(node, "url") != ""
		},
	})

	c.registerNode(NodeDefinition{
		Type:        models.NodeTypeSendEmail,
		Label:       "Send Email",
		Description: "Sends an email through the configured transport",
		Category:    NodeCategoryAction,
		Accent:      "sky",
		Fields: []Field{
			{Key: "to", Label: "To", Type: FieldTypeText, Required: true},
			{Key: "subject", Label: "Subject", Type: FieldTypeText},
			{Key: "body", Label: "Body", Type: FieldTypeTextarea},
		},
		Defaults: func() map[string]any {
			return map[string]any{"to": "", "subject": "", "body": ""}
		},
		Validate: func(node *models.Node) bool {
			return configString(node, "to") != ""
		},
	})

	c.registerNode(NodeDefinition{
		Type:        models.NodeTypeIf,
		Label:       "IF",
		Description: "Routes items by a condition list",
		Category:    NodeCategoryUtility,
		Accent:      "violet",
		Fields: []Field{
			{Key: "combine", Label: "Combine", Type: FieldTypeSelect, Options: []string{"and", "or"}, Default: "and"},
			{Key: "conditions", Label: "Conditions", Type: FieldTypeTextarea},
			{Key: "ignore_case", Label: "Ignore case", Type: FieldTypeBoolean},
			{Key: "convert_types", Label: "Convert types", Type: FieldTypeBoolean},
		},
		Defaults: func() map[string]any {
			return models.DefaultIfConfig().ToConfig()
		},
		Validate: func(node *models.Node) bool {
			config := models.CoerceIfConfig(node.Config)

			for _, condition := range config.Conditions {
				if !operatorRegistered(condition.Type, condition.Operator) {
					return false
				}
			}

			return true
		},
	})

	c.registerNode(NodeDefinition{
		Type:        models.NodeTypeSwitch,
		Label:       "Switch",
		Description: "Routes items across multiple branches",
		Category:    NodeCategoryUtility,
		Accent:      "violet",
		Fields: []Field{
			{Key: "expression", Label: "Expression", Type: FieldTypeText, Required: true},
			{Key: "cases", Label: "Cases", Type: FieldTypeTextarea},
		},
		Defaults: func() map[string]any {
			return map[string]any{"expression": "", "cases": []any{}}
		},
		Validate: func(node *models.Node) bool {
			return configString(node, "expression") != ""
		},
	})

	c.registerNode(NodeDefinition{
		Type:        models.NodeTypeDelay,
		Label:       "Delay",
		Description: "Pauses the flow for a fixed duration",
		Category:    NodeCategoryUtility,
		Accent:      "violet",
		Fields: []Field{
			{Key: "duration_seconds", Label: "Duration (seconds)", Type: FieldTypeNumber, Default: 60},
		},
		Defaults: func() map[string]any {
			return map[string]any{"duration_seconds": 60}
		},
	})

	c.registerNode(NodeDefinition{
		Type:        models.NodeTypeSetFields,
		Label:       "Set Fields",
		Description: "Adds or rewrites fields on passing items",
		Category:    NodeCategoryUtility,
		Accent:      "violet",
		Fields: []Field{
			{Key: "fields", Label: "Fields", Type: FieldTypeTextarea},
		},
		Defaults: func() map[string]any {
			return map[string]any{"fields": []any{}}
		},
	})

	c.registerNode(NodeDefinition{
		Type:        models.NodeTypeApp,
		Label:       "App Action",
		Description: "Runs an action from a connected app",
		Category:    NodeCategoryApp,
		Accent:      "emerald",
		Fields: []Field{
			{Key: "app", Label: "App", Type: FieldTypeSelect, Required: true},
			{Key: "action", Label: "Action", Type: FieldTypeSelect, Required: true},
		},
		Defaults: func() map[string]any {
			return map[string]any{"app": "", "action": ""}
		},
		Validate: func(node *models.Node) bool {
			return configString(node, "app") != "" && configString(node, "action") != ""
		},
	})

	c.registerNode(NodeDefinition{
		Type:        models.NodeTypeAIAgent,
		Label:       "AI Agent",
		Description: "Plans and calls tools with a chat model",
		Category:    NodeCategoryAgent,
		Accent:      "fuchsia",
		Fields: []Field{
			{Key: "system_prompt", Label: "System prompt", Type: FieldTypeTextarea},
			{Key: "temperature", Label: "Temperature", Type: FieldTypeNumber, Default: 0.7},
		},
		Defaults: func() map[string]any {
			return map[string]any{"system_prompt": "", "temperature": 0.7}
		},
		Validate: func(node *models.Node) bool {
			return strings.TrimSpace(node.Label) != "" && node.Model.Valid()
		},
	})

	c.registerNode(NodeDefinition{
		Type:        models.NodeTypeChatModel,
		Label:       "Chat Model",
		Description: "A standalone chat-model configuration",
		Category:    NodeCategoryModel,
		Accent:      "fuchsia",
		Fields: []Field{
			{Key: "provider", Label: "Provider", Type: FieldTypeSelect, Options: []string{"openai", "anthropic", "gemini", "ollama"}, Default: "openai"},
			{Key: "model", Label: "Model", Type: FieldTypeText, Required: true},
			{Key: "credential_id", Label: "Credential", Type: FieldTypeCredential},
			{Key: "api_key", Label: "API key", Type: FieldTypePassword},
			{Key: "base_url", Label: "Base URL", Type: FieldTypeText},
		},
		Defaults: func() map[string]any {
			provider := defaultChatModelProvider

			return map[string]any{
				"provider":      provider.Key,
				"model":         provider.DefaultModel,
				"credential_id": "",
				"api_key":       "",
				"base_url":      provider.DefaultBaseURL,
			}
		},
		Validate: func(node *models.Node) bool {
			provider := configString(node, "provider")
			model := configString(node, "model")
			hasAuth := configString(node, "credential_id") != "" || configString(node, "api_key") != ""

			return provider != "" && model != "" && hasAuth
		},
	})
}

func configString(node *models.Node, key string) string {
	if node == nil || node.Config == nil {
		return ""
	}

	if value, ok := node.Config[key].(string); ok {
		return strings.TrimSpace(value)
	}

	return ""
}

func operatorRegistered(conditionType models.ConditionType, operator string) bool {
	for _, op := range models.OperatorsFor(conditionType) {
		if op.Label == operator {
			return true
		}
	}

	return false
}
