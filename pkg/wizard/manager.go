package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowdeckhq/flowdeck/pkg/catalog"
	"github.com/flowdeckhq/flowdeck/pkg/connector"
	"github.com/flowdeckhq/flowdeck/pkg/log"
	"github.com/flowdeckhq/flowdeck/pkg/models"
)

var (
	ErrUnknownMode       = errors.New("unknown wizard mode")
	ErrFlowRequired      = errors.New("wizard requires a target flow")
	ErrAgentNodeRequired = errors.New("agent-tool wizard requires a target agent node")
	ErrNotTestStep       = errors.New("wizard is not on the test step")
	ErrTestInProgress    = errors.New("a test is already running")
	ErrNotLastStep       = errors.New("wizard is not on the review step")
)

// Manager drives wizard sessions through their step sequences. All
// transitions are serialized under one mutex; only the outbound test call
// runs unlocked, and its response is checked against the session generation
// before it is applied, so a stale response never overwrites newer state.
type Manager struct {
	mu        sync.Mutex
	catalog   *catalog.Catalog
	store     Store
	tester    connector.Tester
	committer Committer
	logger    *slog.Logger
}

func NewManager(cat *catalog.Catalog, store Store, tester connector.Tester, committer Committer) *Manager {
	return &Manager{
		catalog:   cat,
		store:     store,
		tester:    tester,
		committer: committer,
		logger:    log.WithModule("wizard"),
	}
}

// OpenOptions targets a new session. Owner scopes the one-active-session
// rule to a builder client; AppKey optionally preselects the app in
// add-app-node mode (synonyms accepted).
type OpenOptions struct {
	Owner       string
	FlowID      string
	AgentNodeID string
	AppKey      string
}

// Open starts a fresh session with a mode-appropriate default draft. A prior
// session of the same owner is replaced.
func (m *Manager) Open(ctx context.Context, mode Mode, opts OpenOptions) (*Session, error) {
	if len(stepSequences[mode]) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	if opts.FlowID == "" {
		return nil, ErrFlowRequired
	}

	if mode == ModeAddAgentTool && opts.AgentNodeID == "" {
		return nil, ErrAgentNodeRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if opts.Owner != "" {
		if prior, err := m.store.FindByOwner(ctx, opts.Owner); err == nil {
			if err := m.store.Delete(ctx, prior.ID); err != nil {
				return nil, fmt.Errorf("replace wizard session: %w", err)
			}
		}
	}

	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.New().String(),
		Owner:     opts.Owner,
		Mode:      mode,
		Draft:     m.defaultDraft(mode, opts),
		FlowID:    opts.FlowID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.Save(ctx, session); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "wizard session opened", "session_id", session.ID, "mode", mode)

	return session, nil
}

func (m *Manager) defaultDraft(mode Mode, opts OpenOptions) Draft {
	switch mode {
	case ModeAddAgent:
		provider := catalog.ChatModelProviders()[0]

		return &AgentDraft{
			Memory: models.AgentMemoryConfig{Kind: models.AgentMemoryNone},
			Model: models.AgentModelConfig{
				Provider: provider.Key,
				Model:    provider.DefaultModel,
				BaseURL:  provider.DefaultBaseURL,
			},
			Config: map[string]any{},
		}
	case ModeAddAgentTool:
		return &AgentToolDraft{
			AgentNodeID: opts.AgentNodeID,
			Enabled:     true,
			Config:      map[string]any{},
		}
	default:
		draft := &AppNodeDraft{Config: map[string]any{}}

		if canonical, ok := m.catalog.NormalizeAppKey(opts.AppKey); ok {
			draft.App = canonical
			draft.Action = m.catalog.DefaultActionKey(canonical)
		}

		return draft
	}
}

// Get returns the session by ID.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.Get(ctx, id)
}

// Next validates the current step only. On failure the session keeps its
// position and carries field-keyed messages; on success it advances one step
// and clears errors and any previous test result.
func (m *Manager) Next(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if errs := validateStep(m.catalog, session); errs != nil {
		session.Errors = errs
		session.UpdatedAt = time.Now().UTC()

		if err := m.store.Save(ctx, session); err != nil {
			return nil, err
		}

		return session, nil
	}

	if !session.LastStep() {
		session.StepIndex++
	}

	session.invalidate()
	session.UpdatedAt = time.Now().UTC()

	if err := m.store.Save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// Prev always steps back, clamped at the first step.
func (m *Manager) Prev(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.StepIndex > 0 {
		session.StepIndex--
	}

	session.invalidate()
	session.UpdatedAt = time.Now().UTC()

	if err := m.store.Save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// PatchDraft shallow-merges a partial update into the draft; a nested
// "config" object merges one level deeper instead of replacing.
func (m *Manager) PatchDraft(ctx context.Context, id string, partial map[string]any) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	session.Draft.Patch(partial)
	session.UpdatedAt = time.Now().UTC()

	if err := m.store.Save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// RunTest launches the draft's connectivity test. Overlapping runs from the
// same session are rejected, tester failures become failure results, and a
// response arriving after the session moved on is discarded.
func (m *Manager) RunTest(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()

	session, err := m.store.Get(ctx, id)
	if err != nil {
		m.mu.Unlock()

		return nil, err
	}

	if session.Step() != StepTest {
		m.mu.Unlock()

		return nil, ErrNotTestStep
	}

	if session.Testing {
		m.mu.Unlock()

		return nil, ErrTestInProgress
	}

	generation := session.Generation
	request := m.buildTestRequest(session.Draft)

	session.Testing = true
	session.TestResult = nil
	session.UpdatedAt = time.Now().UTC()

	if err := m.store.Save(ctx, session); err != nil {
		m.mu.Unlock()

		return nil, err
	}

	m.mu.Unlock()

	result, testErr := m.tester.Test(ctx, request)
	if testErr != nil {
		result = connector.TestResult{Success: false, Message: testErr.Error()}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, err = m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.Generation != generation {
		m.logger.DebugContext(ctx, "stale test result discarded", "session_id", id)

		return session, nil
	}

	session.Testing = false
	session.TestResult = &result
	session.UpdatedAt = time.Now().UTC()

	if err := m.store.Save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (m *Manager) buildTestRequest(draft Draft) connector.NodeTestRequest {
	switch d := draft.(type) {
	case *AgentDraft:
		return connector.NodeTestRequest{
			Kind:         connector.TestKindModel,
			Provider:     d.Model.Provider,
			Model:        d.Model.Model,
			CredentialID: d.Model.CredentialID,
			APIKey:       d.Model.APIKeyOverride,
			BaseURL:      d.Model.BaseURL,
		}
	case *AgentToolDraft:
		tool, _ := m.catalog.FindTool(d.ToolKey)

		return connector.NodeTestRequest{
			Kind:         connector.TestKindApp,
			Provider:     tool.AppKey,
			Action:       d.ToolKey,
			CredentialID: d.CredentialID,
			APIKey:       d.APIKey,
			Config:       d.Config,
		}
	case *AppNodeDraft:
		return connector.NodeTestRequest{
			Kind:         connector.TestKindApp,
			Provider:     d.App,
			Action:       d.Action,
			CredentialID: d.CredentialID,
			APIKey:       d.APIKey,
			Config:       d.Config,
		}
	default:
		return connector.NodeTestRequest{}
	}
}

// Confirm commits the draft and closes the session. The session closes on
// the failure path too: the commit error is surfaced once and the draft is
// gone, matching the builder's observed behavior.
func (m *Manager) Confirm(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if !session.LastStep() {
		return ErrNotLastStep
	}

	commitErr := m.committer.Commit(ctx, session)

	if err := m.store.Delete(ctx, id); err != nil {
		m.logger.WarnContext(ctx, "failed to close wizard session", "session_id", id, "error", err)
	}

	if commitErr != nil {
		m.logger.ErrorContext(ctx, "wizard commit failed", "session_id", id, "mode", session.Mode, "error", commitErr)

		return fmt.Errorf("commit wizard draft: %w", commitErr)
	}

	m.logger.InfoContext(ctx, "wizard draft committed", "session_id", id, "mode", session.Mode)

	return nil
}

// Close discards the session without committing.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.Delete(ctx, id)
}
