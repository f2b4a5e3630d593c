package catalog

// Tool is one entry of the derived agent tool catalog: every app action,
// flattened, with the owning app's base fields carried along. The tool key
// equals the action key, so any addition to the app catalog automatically
// becomes an available agent tool with no separate registration.
type Tool struct {
	Key          string     `json:"key"`
	Label        string     `json:"label"`
	AppKey       string     `json:"app_key"`
	AppLabel     string     `json:"app_label"`
	Kind         ActionKind `json:"kind"`
	BaseFields   []Field    `json:"base_fields"`
	Fields       []Field    `json:"fields"`
	Disabled     bool       `json:"disabled,omitempty"`
	SupportsTest bool       `json:"supports_test"`
}

// Tools returns the flattened tool catalog in app/category/action
// declaration order.
func (c *Catalog) Tools() []Tool {
	return c.tools
}

// FindTool returns the tool with the given key.
func (c *Catalog) FindTool(key string) (Tool, bool) {
	tool, ok := c.toolsByKey[key]

	return tool, ok
}

func (c *Catalog) buildToolCatalog() {
	for _, app := range c.apps {
		for _, action := range c.ListActions(app.Key) {
			tool := Tool{
				Key:          action.Key,
				Label:        action.AppLabel + ": " + action.Label,
				AppKey:       action.AppKey,
				AppLabel:     action.AppLabel,
				Kind:         action.Kind,
				BaseFields:   app.BaseFields,
				Fields:       action.Fields,
				Disabled:     action.Disabled,
				SupportsTest: action.SupportsTest,
			}

			c.tools = append(c.tools, tool)
			c.toolsByKey[tool.Key] = tool
		}
	}
}
