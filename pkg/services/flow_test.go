package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeckhq/flowdeck/pkg/catalog"
	"github.com/flowdeckhq/flowdeck/pkg/models"
	"github.com/flowdeckhq/flowdeck/pkg/persistence/file"
)

func newTestFlowService(t *testing.T) *Flow {
	t.Helper()

	return NewFlow(file.NewPersistence(t.TempDir()), nil, catalog.New())
}

func draftFlowFixture(name string) *models.Flow {
	return &models.Flow{
		Name: name,
		Nodes: []*models.Node{
			{
				ID:    "trigger-1",
				Type:  models.NodeTypeManualTrigger,
				Label: "When clicking Test",
			},
			{
				ID:    "http-1",
				Type:  models.NodeTypeHTTPRequest,
				Label: "HTTP Request",
				Config: map[string]any{
					"method": "GET",
					"url":    "https://example.com",
				},
			},
		},
		Edges: []*models.Edge{
			{
				ID:           "edge-1",
				SourceHandle: models.MakeHandle("trigger-1", "main"),
				TargetHandle: models.MakeHandle("http-1", "main"),
			},
		},
	}
}

func TestFlow_Create(t *testing.T) {
	service := newTestFlowService(t)

	created, err := service.Create(t.Context(), draftFlowFixture("Order Sync"))
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.FlowStatusDraft, created.Status)
	assert.Equal(t, 1, created.Version)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())
}

func TestFlow_Create_RequiresName(t *testing.T) {
	service := newTestFlowService(t)

	_, err := service.Create(t.Context(), &models.Flow{Name: "   "})
	require.ErrorIs(t, err, ErrFlowNameRequired)
	assert.True(t, IsValidationError(err))

	_, err = service.Create(t.Context(), nil)
	require.ErrorIs(t, err, ErrFlowNil)
}

func TestFlow_FetchByID_NormalizesLegacyNodes(t *testing.T) {
	service := newTestFlowService(t)

	flow := draftFlowFixture("Legacy Flow")
	flow.Nodes = append(flow.Nodes, &models.Node{
		ID:   "legacy-1",
		Type: models.NodeTypeOpenAIChatModel,
	})

	created, err := service.Create(t.Context(), flow)
	require.NoError(t, err)

	fetched, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)

	legacy := fetched.NodeByID("legacy-1")
	require.NotNil(t, legacy)
	assert.Equal(t, models.NodeTypeChatModel, legacy.Type)
	assert.Equal(t, "openai", legacy.Config["provider"])
	assert.Equal(t, "OpenAI Chat Model", legacy.Label)
}

func TestFlow_FetchByID_NotFound(t *testing.T) {
	service := newTestFlowService(t)

	_, err := service.FetchByID(t.Context(), "missing")
	require.ErrorIs(t, err, ErrFlowNotFound)
}

func TestFlow_Update_PreservesIdentity(t *testing.T) {
	service := newTestFlowService(t)

	created, err := service.Create(t.Context(), draftFlowFixture("Before"))
	require.NoError(t, err)

	replacement := draftFlowFixture("After")
	replacement.Owner = "someone-else"
	replacement.Version = 99

	updated, err := service.Update(t.Context(), created.ID, replacement)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "After", updated.Name)
	assert.Equal(t, created.Owner, updated.Owner)
	assert.Equal(t, created.Version, updated.Version)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestFlow_Update_RejectsPublished(t *testing.T) {
	service := newTestFlowService(t)

	created, err := service.Create(t.Context(), draftFlowFixture("Published Flow"))
	require.NoError(t, err)

	_, err = service.Publish(t.Context(), created.ID)
	require.NoError(t, err)

	_, err = service.Update(t.Context(), created.ID, draftFlowFixture("Edited"))
	require.ErrorIs(t, err, ErrCannotModifyPublished)
	assert.True(t, IsConflictError(err))
}

func TestFlow_Publish(t *testing.T) {
	service := newTestFlowService(t)

	created, err := service.Create(t.Context(), draftFlowFixture("Release Me"))
	require.NoError(t, err)

	published, err := service.Publish(t.Context(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, models.FlowStatusPublished, published.Status)
	assert.Equal(t, 2, published.Version)
	require.NotNil(t, published.PublishedAt)

	_, err = service.Publish(t.Context(), created.ID)
	require.ErrorIs(t, err, ErrAlreadyPublished)
}

func TestFlow_Publish_ValidatesDocument(t *testing.T) {
	service := newTestFlowService(t)

	empty := &models.Flow{Name: "No Nodes"}
	created, err := service.Create(t.Context(), empty)
	require.NoError(t, err)

	_, err = service.Publish(t.Context(), created.ID)
	require.ErrorIs(t, err, ErrNodesRequired)

	noTrigger := &models.Flow{
		Name: "No Trigger",
		Nodes: []*models.Node{
			{ID: "http-1", Type: models.NodeTypeHTTPRequest},
		},
	}

	created, err = service.Create(t.Context(), noTrigger)
	require.NoError(t, err)

	_, err = service.Publish(t.Context(), created.ID)
	require.ErrorIs(t, err, ErrTriggerNodeRequired)
	assert.True(t, IsValidationError(err))
}

func TestFlow_Unpublish(t *testing.T) {
	service := newTestFlowService(t)

	created, err := service.Create(t.Context(), draftFlowFixture("Cycle"))
	require.NoError(t, err)

	_, err = service.Unpublish(t.Context(), created.ID)
	require.ErrorIs(t, err, ErrNotPublished)

	_, err = service.Publish(t.Context(), created.ID)
	require.NoError(t, err)

	unpublished, err := service.Unpublish(t.Context(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, models.FlowStatusDraft, unpublished.Status)
	assert.Nil(t, unpublished.PublishedAt)

	// Draft again, so document edits are allowed.
	_, err = service.Update(t.Context(), created.ID, draftFlowFixture("Edited After Cycle"))
	require.NoError(t, err)
}

func TestFlow_Delete(t *testing.T) {
	service := newTestFlowService(t)

	created, err := service.Create(t.Context(), draftFlowFixture("Doomed"))
	require.NoError(t, err)

	require.NoError(t, service.Delete(t.Context(), created.ID))

	_, err = service.FetchByID(t.Context(), created.ID)
	require.ErrorIs(t, err, ErrFlowNotFound)

	err = service.Delete(t.Context(), created.ID)
	require.ErrorIs(t, err, ErrFlowNotFound)
}

func TestFlow_ListFlows(t *testing.T) {
	service := newTestFlowService(t)

	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		_, err := service.Create(t.Context(), draftFlowFixture(name))
		require.NoError(t, err)
	}

	resp, err := service.ListFlows(t.Context(), ListFlowsRequest{SortBy: "name", SortOrder: "asc"})
	require.NoError(t, err)

	require.Len(t, resp.Flows, 3)
	assert.Equal(t, int64(3), resp.TotalCount)
	assert.False(t, resp.HasNextPage)
	assert.Equal(t, "Alpha", resp.Flows[0].Name)

	paged, err := service.ListFlows(t.Context(), ListFlowsRequest{Limit: 2, SortBy: "name", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, paged.Flows, 2)
	assert.True(t, paged.HasNextPage)
}

func TestFlow_ListFlows_RejectsBadSort(t *testing.T) {
	service := newTestFlowService(t)

	_, err := service.ListFlows(t.Context(), ListFlowsRequest{SortBy: "id; DROP TABLE flows"})
	require.ErrorIs(t, err, ErrInvalidSortField)
	assert.True(t, IsValidationError(err))

	_, err = service.ListFlows(t.Context(), ListFlowsRequest{SortOrder: "sideways"})
	require.ErrorIs(t, err, ErrInvalidSortOrder)
}

func TestFlow_FetchByID_ReconcilesStaleAppAction(t *testing.T) {
	service := newTestFlowService(t)

	// An app node saved under a synonym with an action that no longer exists
	// under that app.
	flow := draftFlowFixture("Sheets Import")
	flow.Nodes = append(flow.Nodes, &models.Node{
		ID:   "app-1",
		Type: models.NodeTypeApp,
		Config: map[string]any{
			"app":    "gsheets",
			"action": "uploadVideo",
		},
	})

	created, err := service.Create(t.Context(), flow)
	require.NoError(t, err)

	fetched, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)

	node := fetched.NodeByID("app-1")
	require.NotNil(t, node)

	assert.Equal(t, "googleSheets", node.Config["app"])
	assert.Equal(t, "sheetsAppendRow", node.Config["action"])
}

func TestFlow_FetchByID_ReconcilesMissingAppAction(t *testing.T) {
	service := newTestFlowService(t)

	flow := draftFlowFixture("Slack Notify")
	flow.Nodes = append(flow.Nodes, &models.Node{
		ID:     "app-1",
		Type:   models.NodeTypeApp,
		Config: map[string]any{"app": "slack"},
	})

	created, err := service.Create(t.Context(), flow)
	require.NoError(t, err)

	fetched, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, "slackPostMessage", fetched.NodeByID("app-1").Config["action"])
}

func TestFlow_Update_RejectsInvalidEdges(t *testing.T) {
	service := newTestFlowService(t)

	created, err := service.Create(t.Context(), draftFlowFixture("Wired"))
	require.NoError(t, err)

	t.Run("unknown node reference", func(t *testing.T) {
		update := draftFlowFixture("Wired")
		update.Edges = append(update.Edges, &models.Edge{
			ID:           "edge-2",
			SourceHandle: models.MakeHandle("http-1", "main"),
			TargetHandle: models.MakeHandle("ghost-1", "main"),
		})

		_, err := service.Update(t.Context(), created.ID, update)
		require.ErrorIs(t, err, ErrInvalidEdgeData)
		assert.True(t, IsValidationError(err))
	})

	t.Run("malformed handle", func(t *testing.T) {
		update := draftFlowFixture("Wired")
		update.Edges[0].SourceHandle = "trigger-1"

		_, err := service.Update(t.Context(), created.ID, update)
		require.ErrorIs(t, err, ErrInvalidEdgeData)
	})

	t.Run("valid edges pass", func(t *testing.T) {
		_, err := service.Update(t.Context(), created.ID, draftFlowFixture("Wired"))
		require.NoError(t, err)
	})
}
