package catalog

import (
	"strings"

	"github.com/flowdeckhq/flowdeck/pkg/models"
)

// ActionKind separates regular actions from app-provided triggers.
type ActionKind string

const (
	ActionKindAction  ActionKind = "action"
	ActionKindTrigger ActionKind = "trigger"
)

// Action is one operation an app exposes. Keys are globally unique across
// the whole catalog: they double as flat lookup keys and as agent tool keys.
type Action struct {
	Key          string     `json:"key"`
	Label        string     `json:"label"`
	Description  string     `json:"description,omitempty"`
	Kind         ActionKind `json:"kind"`
	Fields       []Field    `json:"fields"`
	Disabled     bool       `json:"disabled,omitempty"`
	SupportsTest bool       `json:"supports_test"`
}

// AppCategory groups actions inside an app's picker.
type AppCategory struct {
	Label   string   `json:"label"`
	Actions []Action `json:"actions"`
}

// App is one integrable external service. BaseFields (credential selection
// and the like) are shared by every action of the app and rendered before
// the action's own fields.
type App struct {
	Key        string        `json:"key"`
	Label      string        `json:"label"`
	Icon       string        `json:"icon"`
	BaseFields []Field       `json:"base_fields"`
	Categories []AppCategory `json:"categories"`
}

// ActionInfo annotates an action with its owning app and category, as
// returned by flat listings.
type ActionInfo struct {
	Action

	AppKey        string `json:"app_key"`
	AppLabel      string `json:"app_label"`
	CategoryLabel string `json:"category_label"`
}

// Apps returns every registered app in declaration order.
func (c *Catalog) Apps() []*App {
	return c.apps
}

// AppByKey returns the app with the given canonical key, or nil.
func (c *Catalog) AppByKey(key string) *App {
	return c.appsByKey[key]
}

// NormalizeAppKey maps a raw app identifier, including known synonyms, to
// its canonical key. Matching ignores case, surrounding whitespace and
// separator characters. Unknown input reports ok=false, never an error.
func (c *Catalog) NormalizeAppKey(raw string) (string, bool) {
	canonical, ok := c.synonyms[foldAppKey(raw)]

	return canonical, ok
}

// ListActions returns the app's actions flattened in declaration order:
// category order first, item order within. The order is significant; default
// action selection depends on it.
func (c *Catalog) ListActions(appKey string) []ActionInfo {
	app := c.appsByKey[appKey]
	if app == nil {
		return nil
	}

	actions := make([]ActionInfo, 0)

	for _, category := range app.Categories {
		for _, action := range category.Actions {
			actions = append(actions, ActionInfo{
				Action:        action,
				AppKey:        app.Key,
				AppLabel:      app.Label,
				CategoryLabel: category.Label,
			})
		}
	}

	return actions
}

// FindAction locates an action by exact key match after trimming. The second
// return reports whether it was found.
func (c *Catalog) FindAction(appKey, actionKey string) (ActionInfo, bool) {
	target := strings.TrimSpace(actionKey)

	for _, action := range c.ListActions(appKey) {
		if action.Key == target {
			return action, true
		}
	}

	return ActionInfo{}, false
}

// DefaultActionKey picks the app's default action: the first enabled,
// non-trigger one; failing that the very first action; empty when the app
// has none.
func (c *Catalog) DefaultActionKey(appKey string) string {
	actions := c.ListActions(appKey)
	if len(actions) == 0 {
		return ""
	}

	for _, action := range actions {
		if !action.Disabled && action.Kind == ActionKindAction {
			return action.Key
		}
	}

	return actions[0].Key
}

// SchemaFor concatenates the app's base fields with the action's own fields,
// base fields first.
func (c *Catalog) SchemaFor(appKey, actionKey string) []Field {
	app := c.appsByKey[appKey]
	if app == nil {
		return nil
	}

	action, ok := c.FindAction(appKey, actionKey)
	if !ok {
		return append([]Field{}, app.BaseFields...)
	}

	fields := make([]Field, 0, len(app.BaseFields)+len(action.Fields))
	fields = append(fields, app.BaseFields...)
	fields = append(fields, action.Fields...)

	return fields
}

// ReconcileAppNode repairs an app node whose stored app or action drifted
// from the catalog: the app key is rewritten to canonical form, and a missing
// or stale action (not found under the current app) falls back to the app's
// default action. Unknown apps are left untouched.
func (c *Catalog) ReconcileAppNode(node *models.Node) {
	if node.Type != models.NodeTypeApp || node.Config == nil {
		return
	}

	raw, _ := node.Config["app"].(string)

	appKey, ok := c.NormalizeAppKey(raw)
	if !ok {
		return
	}

	node.Config["app"] = appKey

	actionKey, _ := node.Config["action"].(string)
	if _, found := c.FindAction(appKey, actionKey); !found {
		node.Config["action"] = c.DefaultActionKey(appKey)
	}
}

// CredentialRuleSatisfied checks the per-app credential requirement: apps
// generally need a stored credential, except OpenAI which also accepts a
// literal API key.
func (c *Catalog) CredentialRuleSatisfied(appKey, credentialID, apiKey string) bool {
	hasCredential := strings.TrimSpace(credentialID) != ""

	if appKey == appKeyOpenAI {
		return hasCredential || strings.TrimSpace(apiKey) != ""
	}

	return hasCredential
}

const (
	appKeyGmail        = "gmail"
	appKeyGoogleSheets = "googleSheets"
	appKeyGitHub       = "github"
	appKeySlack        = "slack"
	appKeyOpenAI       = "openai"
)

func (c *Catalog) registerApp(app *App, synonyms ...string) {
	c.apps = append(c.apps, app)
	c.appsByKey[app.Key] = app
	c.synonyms[foldAppKey(app.Key)] = app.Key

	for _, synonym := range synonyms {
		c.synonyms[foldAppKey(synonym)] = app.Key
	}
}

// foldAppKey lowers the key and strips whitespace and separators so that
// "Google-Sheets " and "googlesheets" fold to the same form.
func foldAppKey(raw string) string {
	var b strings.Builder

	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch r {
		case ' ', '-', '_', '.':
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

func credentialField(label string) Field {
	return Field{Key: "credential_id", Label: label, Type: FieldTypeCredential, Required: true}
}

func (c *Catalog) registerDefaultApps() {
	c.registerApp(&App{
		Key:        appKeyGmail,
		Label:      "Gmail",
		Icon:       "gmail",
		BaseFields: []Field{credentialField("Gmail account")},
		Categories: []AppCategory{
			{
				Label: "Triggers",
				Actions: []Action{
					{Key: "gmailNewEmail", Label: "New Email", Kind: ActionKindTrigger, Fields: []Field{
						{Key: "label", Label: "Label", Type: FieldTypeText, Placeholder: "INBOX"},
					}},
				},
			},
			{
				Label: "Messages",
				Actions: []Action{
					{Key: "gmailSendEmail", Label: "Send Email", Kind: ActionKindAction, SupportsTest: true, Fields: []Field{
						{Key: "to", Label: "To", Type: FieldTypeText, Required: true},
						{Key: "subject", Label: "Subject", Type: FieldTypeText, Required: true},
						{Key: "body", Label: "Body", Type: FieldTypeTextarea},
					}},
					{Key: "gmailCreateDraft", Label: "Create Draft", Kind: ActionKindAction, Fields: []Field{
						{Key: "to", Label: "To", Type: FieldTypeText},
						{Key: "subject", Label: "Subject", Type: FieldTypeText},
						{Key: "body", Label: "Body", Type: FieldTypeTextarea},
					}},
					{Key: "gmailSearchMessages", Label: "Search Messages", Kind: ActionKindAction, SupportsTest: true, Fields: []Field{
						{Key: "query", Label: "Query", Type: FieldTypeText, Required: true},
					}},
				},
			},
		},
	})

	c.registerApp(&App{
		Key:        appKeyGoogleSheets,
		Label:      "Google Sheets",
		Icon:       "sheets",
		BaseFields: []Field{credentialField("Google account")},
		Categories: []AppCategory{
			{
				Label: "Rows",
				Actions: []Action{
					{Key: "sheetsAppendRow", Label: "Append Row", Kind: ActionKindAction, SupportsTest: true, Fields: []Field{
						{Key: "spreadsheet_id", Label: "Spreadsheet", Type: FieldTypeText, Required: true},
						{Key: "sheet", Label: "Sheet", Type: FieldTypeText, Required: true},
						{Key: "values", Label: "Values", Type: FieldTypeTextarea},
					}},
					{Key: "sheetsUpdateRow", Label: "Update Row", Kind: ActionKindAction, Fields: []Field{
						{Key: "spreadsheet_id", Label: "Spreadsheet", Type: FieldTypeText, Required: true},
						{Key: "sheet", Label: "Sheet", Type: FieldTypeText, Required: true},
						{Key: "row", Label: "Row", Type: FieldTypeNumber, Required: true},
						{Key: "values", Label: "Values", Type: FieldTypeTextarea},
					}},
					{Key: "sheetsGetRows", Label: "Get Rows", Kind: ActionKindAction, SupportsTest: true, Fields: []Field{
						{Key: "spreadsheet_id", Label: "Spreadsheet", Type: FieldTypeText, Required: true},
						{Key: "range", Label: "Range", Type: FieldTypeText, Placeholder: "A1:D20"},
					}},
				},
			},
			{
				Label: "Triggers",
				Actions: []Action{
					{Key: "sheetsNewRow", Label: "New Row", Kind: ActionKindTrigger, Fields: []Field{
						{Key: "spreadsheet_id", Label: "Spreadsheet", Type: FieldTypeText, Required: true},
					}},
				},
			},
		},
	}, "gsheets", "googlesheets", "google-sheets", "bananabear")

	c.registerApp(&App{
		Key:        appKeyGitHub,
		Label:      "GitHub",
		Icon:       "github",
		BaseFields: []Field{credentialField("GitHub account")},
		Categories: []AppCategory{
			{
				Label: "Issues",
				Actions: []Action{
					{Key: "githubCreateIssue", Label: "Create Issue", Kind: ActionKindAction, SupportsTest: true, Fields: []Field{
						{Key: "repository", Label: "Repository", Type: FieldTypeText, Required: true, Placeholder: "owner/repo"},
						{Key: "title", Label: "Title", Type: FieldTypeText, Required: true},
						{Key: "body", Label: "Body", Type: FieldTypeTextarea},
					}},
					{Key: "githubCommentOnIssue", Label: "Comment on Issue", Kind: ActionKindAction, Fields: []Field{
						{Key: "repository", Label: "Repository", Type: FieldTypeText, Required: true},
						{Key: "issue_number", Label: "Issue", Type: FieldTypeNumber, Required: true},
						{Key: "body", Label: "Comment", Type: FieldTypeTextarea, Required: true},
					}},
					{Key: "githubListIssues", Label: "List Issues", Kind: ActionKindAction, SupportsTest: true, Fields: []Field{
						{Key: "repository", Label: "Repository", Type: FieldTypeText, Required: true},
						{Key: "state", Label: "State", Type: FieldTypeSelect, Options: []string{"open", "closed", "all"}, Default: "open"},
					}},
				},
			},
			{
				Label: "Pull Requests",
				Actions: []Action{
					{Key: "githubCreatePullRequest", Label: "Create Pull Request", Kind: ActionKindAction, Disabled: true, Fields: []Field{
						{Key: "repository", Label: "Repository", Type: FieldTypeText, Required: true},
						{Key: "title", Label: "Title", Type: FieldTypeText, Required: true},
					}},
				},
			},
			{
				Label: "Triggers",
				Actions: []Action{
					{Key: "githubNewIssue", Label: "New Issue", Kind: ActionKindTrigger, Fields: []Field{
						{Key: "repository", Label: "Repository", Type: FieldTypeText, Required: true},
					}},
				},
			},
		},
	})

	c.registerApp(&App{
		Key:        appKeySlack,
		Label:      "Slack",
		Icon:       "slack",
		BaseFields: []Field{credentialField("Slack workspace")},
		Categories: []AppCategory{
			{
				Label: "Messages",
				Actions: []Action{
					{Key: "slackPostMessage", Label: "Post Message", Kind: ActionKindAction, SupportsTest: true, Fields: []Field{
						{Key: "channel", Label: "Channel", Type: FieldTypeText, Required: true, Placeholder: "#general"},
						{Key: "text", Label: "Text", Type: FieldTypeTextarea, Required: true},
					}},
					{Key: "slackUpdateMessage", Label: "Update Message", Kind: ActionKindAction, Fields: []Field{
						{Key: "channel", Label: "Channel", Type: FieldTypeText, Required: true},
						{Key: "message_ts", Label: "Message timestamp", Type: FieldTypeText, Required: true},
						{Key: "text", Label: "Text", Type: FieldTypeTextarea, Required: true},
					}},
				},
			},
			{
				Label: "Channels",
				Actions: []Action{
					{Key: "slackCreateChannel", Label: "Create Channel", Kind: ActionKindAction, Fields: []Field{
						{Key: "name", Label: "Name", Type: FieldTypeText, Required: true},
					}},
				},
			},
			{
				Label: "Triggers",
				Actions: []Action{
					{Key: "slackNewMessage", Label: "New Message", Kind: ActionKindTrigger, Fields: []Field{
						{Key: "channel", Label: "Channel", Type: FieldTypeText, Required: true},
					}},
				},
			},
		},
	})

	// OpenAI is the one app whose credential rule accepts a literal API key
	// in place of a stored credential.
	c.registerApp(&App{
		Key:   appKeyOpenAI,
		Label: "OpenAI",
		Icon:  "openai",
		BaseFields: []Field{
			{Key: "credential_id", Label: "OpenAI account", Type: FieldTypeCredential},
			{Key: "api_key", Label: "API key", Type: FieldTypePassword},
		},
		Categories: []AppCategory{
			{
				Label: "Models",
				Actions: []Action{
					{Key: "openaiCreateCompletion", Label: "Create Completion", Kind: ActionKindAction, SupportsTest: true, Fields: []Field{
						{Key: "model", Label: "Model", Type: FieldTypeText, Required: true, Placeholder: "gpt-4o-mini"},
						{Key: "prompt", Label: "Prompt", Type: FieldTypeTextarea, Required: true},
					}},
					{Key: "openaiCreateEmbedding", Label: "Create Embedding", Kind: ActionKindAction, Fields: []Field{
						{Key: "model", Label: "Model", Type: FieldTypeText, Required: true},
						{Key: "input", Label: "Input", Type: FieldTypeTextarea, Required: true},
					}},
				},
			},
		},
	})
}
