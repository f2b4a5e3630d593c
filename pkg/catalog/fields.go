// Package catalog holds the static registries the builder renders from: node
// type metadata with default configuration and editable field schemas, the
// app/action catalog, and the derived agent tool catalog. All data is
// immutable at runtime; construct a Catalog once and share it.
package catalog

// FieldType selects the editor widget a config field renders with.
type FieldType string

const (
	FieldTypeText       FieldType = "text"
	FieldTypeTextarea   FieldType = "textarea"
	FieldTypeNumber     FieldType = "number"
	FieldTypeBoolean    FieldType = "boolean"
	FieldTypeSelect     FieldType = "select"
	FieldTypePassword   FieldType = "password"
	FieldTypeCredential FieldType = "credential"
)

// Field describes one editable config key.
type Field struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Placeholder string    `json:"placeholder,omitempty"`
	Options     []string  `json:"options,omitempty"`
	Default     any       `json:"default,omitempty"`
}

// FieldsSchema derives a JSON Schema document from a field list, used to
// lint node config bags. Validation against it is advisory: the builder
// surfaces warnings but never rejects stored data.
func FieldsSchema(fields []Field) map[string]any {
	properties := make(map[string]any, len(fields))
	required := make([]string, 0)

	for _, field := range fields {
		property := map[string]any{"type": jsonType(field.Type)}

		if len(field.Options) > 0 {
			options := make([]any, len(field.Options))
			for i, option := range field.Options {
				options[i] = option
			}

			property["enum"] = options
		}

		properties[field.Key] = property

		if field.Required {
			required = append(required, field.Key)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

func jsonType(fieldType FieldType) string {
	switch fieldType {
	case FieldTypeNumber:
		return "number"
	case FieldTypeBoolean:
		return "boolean"
	default:
		return "string"
	}
}
