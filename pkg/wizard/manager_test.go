package wizard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeckhq/flowdeck/pkg/catalog"
	"github.com/flowdeckhq/flowdeck/pkg/connector"
	"github.com/flowdeckhq/flowdeck/pkg/wizard"
)

type fakeTester struct {
	callback func(connector.NodeTestRequest) (connector.TestResult, error)
	requests []connector.NodeTestRequest
}

func (t *fakeTester) Test(_ context.Context, request connector.NodeTestRequest) (connector.TestResult, error) {
	t.requests = append(t.requests, request)

	if t.callback != nil {
		return t.callback(request)
	}

	return connector.TestResult{Success: true, Message: "connection ok"}, nil
}

type fakeCommitter struct {
	err       error
	committed []*wizard.Session
}

func (c *fakeCommitter) Commit(_ context.Context, session *wizard.Session) error {
	c.committed = append(c.committed, session)

	return c.err
}

func newManager(tester connector.Tester, committer wizard.Committer) (*wizard.Manager, *wizard.MemoryStore) {
	store := wizard.NewMemoryStore()

	return wizard.NewManager(catalog.New(), store, tester, committer), store
}

func TestOpen_BuildsModeDefaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager, _ := newManager(&fakeTester{}, &fakeCommitter{})

	session, err := manager.Open(ctx, wizard.ModeAddAppNode, wizard.OpenOptions{
		FlowID: "flow-1",
		AppKey: "GSheets ",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, session.StepIndex)
	assert.Equal(t, wizard.StepApp, session.Step())

	draft, ok := session.Draft.(*wizard.AppNodeDraft)
	require.True(t, ok)
	assert.Equal(t, "googleSheets", draft.App)
	assert.Equal(t, "sheetsAppendRow", draft.Action)

	agent, err := manager.Open(ctx, wizard.ModeAddAgent, wizard.OpenOptions{FlowID: "flow-1"})
	require.NoError(t, err)

	agentDraft, ok := agent.Draft.(*wizard.AgentDraft)
	require.True(t, ok)
	assert.Equal(t, "openai", agentDraft.Model.Provider)
	assert.Equal(t, "gpt-4o-mini", agentDraft.Model.Model)
}

func TestOpen_Rejections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager, _ := newManager(&fakeTester{}, &fakeCommitter{})

	_, err := manager.Open(ctx, wizard.Mode("teleport"), wizard.OpenOptions{FlowID: "flow-1"})
	assert.ErrorIs(t, err, wizard.ErrUnknownMode)

	_, err = manager.Open(ctx, wizard.ModeAddAppNode, wizard.OpenOptions{})
	assert.ErrorIs(t, err, wizard.ErrFlowRequired)

	_, err = manager.Open(ctx, wizard.ModeAddAgentTool, wizard.OpenOptions{FlowID: "flow-1"})
	assert.ErrorIs(t, err, wizard.ErrAgentNodeRequired)
}

func TestOpen_ReplacesOwnerSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager, _ := newManager(&fakeTester{}, &fakeCommitter{})

	first, err := manager.Open(ctx, wizard.ModeAddAppNode, wizard.OpenOptions{Owner: "client-1", FlowID: "flow-1"})
	require.NoError(t, err)

	second, err := manager.Open(ctx, wizard.ModeAddAgent, wizard.OpenOptions{Owner: "client-1", FlowID: "flow-1"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = manager.Get(ctx, first.ID)
	assert.ErrorIs(t, err, wizard.ErrSessionNotFound)

	_, err = manager.Get(ctx, second.ID)
	assert.NoError(t, err)
}

func TestNext_GatesOnCurrentStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager, _ := newManager(&fakeTester{}, &fakeCommitter{})

	session, err := manager.Open(ctx, wizard.ModeAddAppNode, wizard.OpenOptions{FlowID: "flow-1"})
	require.NoError(t, err)

	// No app chosen: stay on the first step with a field error.
	session, err = manager.Next(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, session.StepIndex)
	assert.NotEmpty(t, session.Errors["app"])

	session, err = manager.PatchDraft(ctx, session.ID, map[string]any{"app": "slack"})
	require.NoError(t, err)

	session, err = manager.Next(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, session.StepIndex)
	assert.Empty(t, session.Errors)
}

func TestWalkthrough_AddAppNode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tester := &fakeTester{}
	committer := &fakeCommitter{}
	manager, _ := newManager(tester, committer)

	session, err := manager.Open(ctx, wizard.ModeAddAppNode, wizard.OpenOptions{
		FlowID: "flow-1",
		AppKey: "googleSheets",
	})
	require.NoError(t, err)

	// App and Action steps pass with the preselected defaults.
	session, err = manager.Next(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, wizard.StepAction, session.Step())

	session, err = manager.Next(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, wizard.StepCredential, session.Step())

	// Credential step blocks until an account is connected.
	session, err = manager.Next(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, wizard.StepCredential, session.Step())
	assert.NotEmpty(t, session.Errors["credential_id"])

	session, err = manager.PatchDraft(ctx, session.ID, map[string]any{"credential_id": "cred-1"})
	require.NoError(t, err)

	session, err = manager.Next(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, wizard.StepConfigure, session.Step())

	// Configure step requires the action's required fields.
	session, err = manager.Next(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, wizard.StepConfigure, session.Step())
	assert.NotEmpty(t, session.Errors["spreadsheet_id"])
	assert.NotEmpty(t, session.Errors["sheet"])

	session, err = manager.PatchDraft(ctx, session.ID, map[string]any{
		"config": map[string]any{"spreadsheet_id": "sheet-123", "sheet": "Q3"},
	})
	require.NoError(t, err)

	session, err = manager.Next(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, wizard.StepTest, session.Step())

	session, err = manager.RunTest(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, session.TestResult)
	assert.True(t, session.TestResult.Success)

	require.Len(t, tester.requests, 1)
	assert.Equal(t, connector.TestKindApp, tester.requests[0].Kind)
	assert.Equal(t, "googleSheets", tester.requests[0].Provider)
	assert.Equal(t, "sheetsAppendRow", tester.requests[0].Action)

	session, err = manager.Next(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, wizard.StepReview, session.Step())
	require.True(t, session.LastStep())

	// Advancing past the last step clamps.
	session, err = manager.Next(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepReview, session.Step())

	require.NoError(t, manager.Confirm(ctx, session.ID))
	require.Len(t, committer.committed, 1)

	_, err = manager.Get(ctx, session.ID)
	assert.ErrorIs(t, err, wizard.ErrSessionNotFound)
}

func TestPrev_ClampsAndClears(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager, _ := newManager(&fakeTester{}, &fakeCommitter{})

	session, err := manager.Open(ctx, wizard.ModeAddAppNode, wizard.OpenOptions{FlowID: "flow-1"})
	require.NoError(t, err)

	session, err = manager.Next(ctx, session.ID)
	require.NoError(t, err)
	require.NotEmpty(t, session.Errors)

	session, err = manager.Prev(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, session.StepIndex)
	assert.Empty(t, session.Errors)

	session, err = manager.Prev(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, session.StepIndex)
}

func TestPatchDraft_MergesConfigOneLevelDeeper(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager, _ := newManager(&fakeTester{}, &fakeCommitter{})

	session, err := manager.Open(ctx, wizard.ModeAddAppNode, wizard.OpenOptions{FlowID: "flow-1"})
	require.NoError(t, err)

	session, err = manager.PatchDraft(ctx, session.ID, map[string]any{
		"app":    "slack",
		"config": map[string]any{"channel": "#general"},
	})
	require.NoError(t, err)

	session, err = manager.PatchDraft(ctx, session.ID, map[string]any{
		"config": map[string]any{"text": "hello"},
	})
	require.NoError(t, err)

	draft, ok := session.Draft.(*wizard.AppNodeDraft)
	require.True(t, ok)
	assert.Equal(t, "slack", draft.App)
	assert.Equal(t, "#general", draft.Config["channel"])
	assert.Equal(t, "hello", draft.Config["text"])
}

func TestRunTest_Gating(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager, store := newManager(&fakeTester{}, &fakeCommitter{})

	session, err := manager.Open(ctx, wizard.ModeAddAppNode, wizard.OpenOptions{FlowID: "flow-1"})
	require.NoError(t, err)

	_, err = manager.RunTest(ctx, session.ID)
	assert.ErrorIs(t, err, wizard.ErrNotTestStep)

	advanceToTestStep(t, manager, session.ID)

	// A persisted busy flag blocks a second overlapping run.
	busy, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	busy.Testing = true
	require.NoError(t, store.Save(ctx, busy))

	_, err = manager.RunTest(ctx, session.ID)
	assert.ErrorIs(t, err, wizard.ErrTestInProgress)
}

func TestRunTest_DowngradesTesterError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tester := &fakeTester{callback: func(connector.NodeTestRequest) (connector.TestResult, error) {
		return connector.TestResult{}, errors.New("boom")
	}}
	manager, _ := newManager(tester, &fakeCommitter{})

	session, err := manager.Open(ctx, wizard.ModeAddAppNode, wizard.OpenOptions{FlowID: "flow-1"})
	require.NoError(t, err)

	advanceToTestStep(t, manager, session.ID)

	session, err = manager.RunTest(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, session.TestResult)
	assert.False(t, session.TestResult.Success)
	assert.Equal(t, "boom", session.TestResult.Message)
	assert.False(t, session.Testing)
}

func TestRunTest_DiscardsStaleResponse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	var manager *wizard.Manager

	var sessionID string

	// The session steps back while the test call is in flight; the late
	// response must not land.
	tester := &fakeTester{callback: func(connector.NodeTestRequest) (connector.TestResult, error) {
		_, err := manager.Prev(ctx, sessionID)
		require.NoError(t, err)

		return connector.TestResult{Success: true, Message: "late"}, nil
	}}

	manager, _ = newManager(tester, &fakeCommitter{})

	session, err := manager.Open(ctx, wizard.ModeAddAppNode, wizard.OpenOptions{FlowID: "flow-1"})
	require.NoError(t, err)

	sessionID = session.ID
	advanceToTestStep(t, manager, sessionID)

	session, err = manager.RunTest(ctx, sessionID)
	require.NoError(t, err)
	assert.Nil(t, session.TestResult)
	assert.False(t, session.Testing)
	assert.Equal(t, wizard.StepConfigure, session.Step())
}

func TestConfirm_AgentToolCommit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		commitErr error
	}{
		{name: "commit succeeds"},
		{name: "commit fails", commitErr: errors.New("storage offline")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			committer := &fakeCommitter{err: tt.commitErr}
			manager, _ := newManager(&fakeTester{}, committer)

			session, err := manager.Open(ctx, wizard.ModeAddAgentTool, wizard.OpenOptions{
				FlowID:      "flow-1",
				AgentNodeID: "agent-1",
			})
			require.NoError(t, err)

			_, err = manager.PatchDraft(ctx, session.ID, map[string]any{
				"tool_key":      "slackPostMessage",
				"credential_id": "cred-1",
				"config":        map[string]any{"channel": "#ops", "text": "ping"},
			})
			require.NoError(t, err)

			for range wizard.Steps(wizard.ModeAddAgentTool)[1:] {
				_, err = manager.Next(ctx, session.ID)
				require.NoError(t, err)
			}

			current, err := manager.Get(ctx, session.ID)
			require.NoError(t, err)
			require.True(t, current.LastStep())

			err = manager.Confirm(ctx, session.ID)
			if tt.commitErr != nil {
				assert.ErrorIs(t, err, tt.commitErr)
			} else {
				assert.NoError(t, err)
			}

			// The session closes on both paths.
			require.Len(t, committer.committed, 1)

			draft, ok := committer.committed[0].Draft.(*wizard.AgentToolDraft)
			require.True(t, ok)
			assert.Equal(t, "agent-1", draft.AgentNodeID)
			assert.Equal(t, "slackPostMessage", draft.ToolKey)

			_, err = manager.Get(ctx, session.ID)
			assert.ErrorIs(t, err, wizard.ErrSessionNotFound)
		})
	}
}

func TestConfirm_OnlyOnLastStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager, _ := newManager(&fakeTester{}, &fakeCommitter{})

	session, err := manager.Open(ctx, wizard.ModeAddAppNode, wizard.OpenOptions{FlowID: "flow-1"})
	require.NoError(t, err)

	err = manager.Confirm(ctx, session.ID)
	assert.ErrorIs(t, err, wizard.ErrNotLastStep)

	// Still open.
	_, err = manager.Get(ctx, session.ID)
	assert.NoError(t, err)
}

func TestAgentStepValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager, _ := newManager(&fakeTester{}, &fakeCommitter{})

	session, err := manager.Open(ctx, wizard.ModeAddAgent, wizard.OpenOptions{FlowID: "flow-1"})
	require.NoError(t, err)

	session, err = manager.Next(ctx, session.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Errors["label"])

	_, err = manager.PatchDraft(ctx, session.ID, map[string]any{"label": "Support Agent"})
	require.NoError(t, err)

	session, err = manager.Next(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, wizard.StepModel, session.Step())

	// Default model draft lacks authentication.
	session, err = manager.Next(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, wizard.StepModel, session.Step())
	assert.NotEmpty(t, session.Errors["credential_id"])

	_, err = manager.PatchDraft(ctx, session.ID, map[string]any{"api_key": "sk-override"})
	require.NoError(t, err)

	session, err = manager.Next(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepMemory, session.Step())
}

func advanceToTestStep(t *testing.T, manager *wizard.Manager, sessionID string) {
	t.Helper()

	ctx := context.Background()

	_, err := manager.PatchDraft(ctx, sessionID, map[string]any{
		"app":           "slack",
		"action":        "slackPostMessage",
		"credential_id": "cred-1",
		"config":        map[string]any{"channel": "#general", "text": "hi"},
	})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		session, err := manager.Next(ctx, sessionID)
		require.NoError(t, err)
		require.Empty(t, session.Errors)
	}

	session, err := manager.Get(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, wizard.StepTest, session.Step())
}
