package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/flowdeckhq/flowdeck/pkg/models"
	"github.com/flowdeckhq/flowdeck/pkg/persistence"
	"github.com/flowdeckhq/flowdeck/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"credentials", "flows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	if os.Getenv("FLOWDECK_INTEGRATION") == "" {
		t.Skip("set FLOWDECK_INTEGRATION=1 to run PostgreSQL integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("flowdeck_test"),
			postgres.WithUsername("flowdeck"),
			postgres.WithPassword("flowdeck"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)
		require.NoError(t, store.Close(ctx))
		cancel()
	})

	return store, ctx
}

func TestFlowLifecycle(t *testing.T) {
	store, ctx := setupTestDB(t)

	flow := &models.Flow{
		ID:     uuid.New().String(),
		Name:   "Orders sync",
		Status: models.FlowStatusDraft,
		Owner:  "user-1",
		Nodes: []*models.Node{
			{
				ID:     "trigger-1",
				Type:   models.NodeTypeScheduleTrigger,
				Label:  "Schedule Trigger",
				Config: map[string]any{"cron": "0 * * * *"},
			},
			{
				ID:     "http-1",
				Type:   models.NodeTypeHTTPRequest,
				Label:  "HTTP Request",
				Config: map[string]any{"method": "GET", "url": "https://api.example.com/orders"},
			},
		},
		Edges: []*models.Edge{
			{ID: "e1", SourceHandle: "trigger-1:out", TargetHandle: "http-1:in"},
		},
		Viewport: models.Viewport{X: 120, Y: 40, Zoom: 0.8},
	}

	require.NoError(t, store.SaveFlow(ctx, flow))
	assert.False(t, flow.CreatedAt.IsZero())

	loaded, err := store.FlowByID(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Orders sync", loaded.Name)
	require.Len(t, loaded.Nodes, 2)
	assert.Equal(t, models.NodeTypeScheduleTrigger, loaded.Nodes[0].Type)
	assert.Equal(t, "0 * * * *", loaded.Nodes[0].Config["cron"])
	require.Len(t, loaded.Edges, 1)
	assert.Equal(t, 0.8, loaded.Viewport.Zoom)

	// Upsert updates in place.
	loaded.Name = "Orders sync v2"
	loaded.Version = 2
	require.NoError(t, store.SaveFlow(ctx, loaded))

	reloaded, err := store.FlowByID(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Orders sync v2", reloaded.Name)
	assert.Equal(t, 2, reloaded.Version)

	require.NoError(t, store.DeleteFlow(ctx, flow.ID))

	_, err = store.FlowByID(ctx, flow.ID)
	assert.True(t, persistence.IsFlowNotFound(err))

	err = store.DeleteFlow(ctx, flow.ID)
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestFlowListing(t *testing.T) {
	store, ctx := setupTestDB(t)

	published := models.FlowStatusPublished

	for _, seed := range []struct {
		name   string
		owner  string
		status models.FlowStatus
	}{
		{"alpha", "user-1", models.FlowStatusDraft},
		{"bravo", "user-1", published},
		{"charlie", "user-2", models.FlowStatusDraft},
	} {
		flow := &models.Flow{
			ID:     uuid.New().String(),
			Name:   seed.name,
			Owner:  seed.owner,
			Status: seed.status,
		}
		require.NoError(t, store.SaveFlow(ctx, flow))
	}

	result, err := store.Flows(ctx, persistence.ListFlowsOptions{Owner: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalCount)

	result, err = store.Flows(ctx, persistence.ListFlowsOptions{Status: &published})
	require.NoError(t, err)
	require.Len(t, result.Flows, 1)
	assert.Equal(t, "bravo", result.Flows[0].Name)

	result, err = store.Flows(ctx, persistence.ListFlowsOptions{SortBy: "name", SortOrder: "asc", Limit: 2})
	require.NoError(t, err)
	require.Len(t, result.Flows, 2)
	assert.Equal(t, "alpha", result.Flows[0].Name)
	assert.True(t, result.HasNextPage)

	_, err = store.Flows(ctx, persistence.ListFlowsOptions{SortBy: "owner; DROP TABLE flows"})
	assert.Error(t, err)
}

func TestCredentialStore(t *testing.T) {
	store, ctx := setupTestDB(t)

	for _, credential := range []*models.Credential{
		{ID: uuid.New().String(), Provider: "slack", Name: "Ops workspace", Owner: "user-1"},
		{ID: uuid.New().String(), Provider: "openai", Name: "Team key", Owner: "user-1"},
		{ID: uuid.New().String(), Provider: "slack", Name: "Dev workspace", Owner: "user-2"},
	} {
		require.NoError(t, store.SaveCredential(ctx, credential))
	}

	all, err := store.Credentials(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Dev workspace", all[0].Name)

	slack, err := store.CredentialsByProvider(ctx, "slack")
	require.NoError(t, err)
	assert.Len(t, slack, 2)

	none, err := store.CredentialsByProvider(ctx, "github")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, store.HealthCheck(ctx))
}
