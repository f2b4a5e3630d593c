package wizard

import (
	"strings"

	"github.com/flowdeckhq/flowdeck/pkg/catalog"
)

// validateStep checks only the session's current step and returns field-keyed
// messages. Validation never errors; an unknown draft/step combination simply
// passes, matching the tolerant posture of the rest of the builder.
func validateStep(cat *catalog.Catalog, session *Session) map[string]string {
	errs := make(map[string]string)

	switch draft := session.Draft.(type) {
	case *AppNodeDraft:
		validateAppNodeStep(cat, session.Step(), draft, errs)
	case *AgentDraft:
		validateAgentStep(session.Step(), draft, errs)
	case *AgentToolDraft:
		validateAgentToolStep(cat, session.Step(), draft, errs)
	}

	if len(errs) == 0 {
		return nil
	}

	return errs
}

func validateAppNodeStep(cat *catalog.Catalog, step Step, draft *AppNodeDraft, errs map[string]string) {
	switch step {
	case StepApp:
		if blank(draft.App) {
			errs["app"] = "Choose an app"
		}
	case StepAction:
		if blank(draft.App) {
			errs["app"] = "Choose an app"
		}

		if blank(draft.Action) {
			errs["action"] = "Choose an action"
		}
	case StepCredential:
		if !cat.CredentialRuleSatisfied(draft.App, draft.CredentialID, draft.APIKey) {
			errs["credential_id"] = "Connect an account"
		}
	case StepConfigure:
		requireFields(cat.SchemaFor(draft.App, draft.Action), draft.Config, draft.CredentialID, draft.APIKey, errs)
	}
}

func validateAgentStep(step Step, draft *AgentDraft, errs map[string]string) {
	switch step {
	case StepAgent:
		if blank(draft.Label) {
			errs["label"] = "Name the agent"
		}
	case StepModel:
		if blank(draft.Model.Provider) {
			errs["provider"] = "Choose a provider"
		}

		if blank(draft.Model.Model) {
			errs["model"] = "Choose a model"
		}

		if blank(draft.Model.CredentialID) && blank(draft.Model.APIKeyOverride) {
			errs["credential_id"] = "Connect an account or enter an API key"
		}

		if len(errs) == 0 && !draft.Model.Valid() {
			errs["model"] = "Model selection is incomplete"
		}
	}
}

func validateAgentToolStep(cat *catalog.Catalog, step Step, draft *AgentToolDraft, errs map[string]string) {
	tool, known := cat.FindTool(draft.ToolKey)

	switch step {
	case StepTool:
		if blank(draft.ToolKey) || !known {
			errs["tool_key"] = "Choose a tool"
		}
	case StepCredential:
		if !cat.CredentialRuleSatisfied(tool.AppKey, draft.CredentialID, draft.APIKey) {
			errs["credential_id"] = "Connect an account"
		}
	case StepConfigure:
		fields := make([]catalog.Field, 0, len(tool.BaseFields)+len(tool.Fields))
		fields = append(fields, tool.BaseFields...)
		fields = append(fields, tool.Fields...)

		requireFields(fields, draft.Config, draft.CredentialID, draft.APIKey, errs)
	}
}

func requireFields(fields []catalog.Field, config map[string]any, credentialID, apiKey string, errs map[string]string) {
	for _, field := range fields {
		if !field.Required {
			continue
		}

		if blank(configValue(config, field.Key, credentialID, apiKey)) {
			label := field.Label
			if label == "" {
				label = field.Key
			}

			errs[field.Key] = label + " is required"
		}
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
