package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowdeckhq/flowdeck/pkg/catalog"
	"github.com/flowdeckhq/flowdeck/pkg/models"
	"github.com/flowdeckhq/flowdeck/pkg/wizard"
)

// DraftCommitter lands confirmed wizard drafts on the canvas: app and agent
// drafts become new nodes, tool drafts become tool attachments on the target
// agent. It is the wizard.Committer wired into the API binary.
type DraftCommitter struct {
	flows   *Flow
	nodes   *Node
	catalog *catalog.Catalog
}

// NewDraftCommitter creates a committer backed by the flow and node services.
func NewDraftCommitter(flows *Flow, nodes *Node, cat *catalog.Catalog) *DraftCommitter {
	return &DraftCommitter{
		flows:   flows,
		nodes:   nodes,
		catalog: cat,
	}
}

// Commit applies the session's draft to its flow.
func (c *DraftCommitter) Commit(ctx context.Context, session *wizard.Session) error {
	switch draft := session.Draft.(type) {
	case *wizard.AppNodeDraft:
		return c.commitAppNode(ctx, session.FlowID, draft)
	case *wizard.AgentDraft:
		return c.commitAgent(ctx, session.FlowID, draft)
	case *wizard.AgentToolDraft:
		return c.commitAgentTool(ctx, session.FlowID, draft)
	default:
		return fmt.Errorf("%w: unsupported draft type %T", ErrInvalidRequest, session.Draft)
	}
}

func (c *DraftCommitter) commitAppNode(ctx context.Context, flowID string, draft *wizard.AppNodeDraft) error {
	appKey, ok := c.catalog.NormalizeAppKey(draft.App)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAppAction, draft.App)
	}

	action, ok := c.catalog.FindAction(appKey, draft.Action)
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnknownAppAction, appKey, draft.Action)
	}

	config := make(map[string]any, len(draft.Config)+4)
	for key, value := range draft.Config {
		config[key] = value
	}

	config["app"] = appKey
	config["action"] = action.Key

	if draft.CredentialID != "" {
		config["credential_id"] = draft.CredentialID
	}

	if draft.APIKey != "" {
		config["api_key"] = draft.APIKey
	}

	_, err := c.nodes.CreateNode(ctx, flowID, &CreateNodeRequest{
		Type:   models.NodeTypeApp,
		Label:  action.AppLabel + ": " + action.Label,
		Config: config,
	})

	return err
}

func (c *DraftCommitter) commitAgent(ctx context.Context, flowID string, draft *wizard.AgentDraft) error {
	flow, err := c.nodes.draftFlow(ctx, flowID)
	if err != nil {
		return err
	}

	node := c.catalog.DefaultNode(models.NodeTypeAIAgent)

	if draft.Label != "" {
		node.Label = draft.Label
	}

	model := draft.Model
	node.Model = &model

	memory := draft.Memory
	node.Memory = &memory

	for _, tool := range draft.Tools {
		if tool.ID == "" {
			tool.ID = uuid.New().String()
		}

		node.AppendTool(tool)
	}

	node.PatchConfig(draft.Config)

	if draft.SystemPrompt != "" {
		node.Config["system_prompt"] = draft.SystemPrompt
	}

	flow.Nodes = append(flow.Nodes, node)

	return c.flows.Save(ctx, flow)
}

func (c *DraftCommitter) commitAgentTool(ctx context.Context, flowID string, draft *wizard.AgentToolDraft) error {
	tool := models.AgentToolConfig{
		ToolKey:      draft.ToolKey,
		Enabled:      draft.Enabled,
		CredentialID: draft.CredentialID,
		Config:       draft.Config,
	}

	if draft.APIKey != "" {
		if tool.Config == nil {
			tool.Config = make(map[string]any, 1)
		}

		tool.Config["api_key"] = draft.APIKey
	}

	_, err := c.nodes.AttachTool(ctx, flowID, draft.AgentNodeID, tool)

	return err
}
