// Package wizard implements the step-by-step flow that assembles new canvas
// nodes: pick an app action, configure an AI agent, or attach a tool to an
// existing agent. Each builder client owns at most one session at a time;
// drafts live only inside the session and reach the flow store on confirm.
package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowdeckhq/flowdeck/pkg/connector"
)

// Mode selects what the wizard builds.
type Mode string

const (
	ModeAddAppNode   Mode = "add-app-node"
	ModeAddAgent     Mode = "add-agent"
	ModeAddAgentTool Mode = "add-agent-tool"
)

// Step is one screen of a wizard sequence.
type Step string

const (
	StepApp        Step = "app"
	StepAction     Step = "action"
	StepCredential Step = "credential"
	StepConfigure  Step = "configure"
	StepTest       Step = "test"
	StepReview     Step = "review"

	StepAgent  Step = "agent"
	StepModel  Step = "model"
	StepMemory Step = "memory"
	StepTools  Step = "tools"

	StepTool Step = "tool"
)

var stepSequences = map[Mode][]Step{
	ModeAddAppNode:   {StepApp, StepAction, StepCredential, StepConfigure, StepTest, StepReview},
	ModeAddAgent:     {StepAgent, StepModel, StepMemory, StepTools, StepReview},
	ModeAddAgentTool: {StepTool, StepCredential, StepConfigure, StepTest, StepReview},
}

// Steps returns the ordered step sequence for a mode, nil for unknown modes.
func Steps(mode Mode) []Step {
	return stepSequences[mode]
}

// Session is one in-progress wizard run. Generation increments on every
// transition that invalidates an in-flight test call; test responses carry
// the generation they were launched under and are dropped when it moved on.
type Session struct {
	ID         string                `json:"id"`
	Owner      string                `json:"owner"`
	Mode       Mode                  `json:"mode"`
	StepIndex  int                   `json:"step_index"`
	Draft      Draft                 `json:"draft"`
	Errors     map[string]string     `json:"errors,omitempty"`
	TestResult *connector.TestResult `json:"test_result,omitempty"`
	Testing    bool                  `json:"testing"`
	Generation int64                 `json:"generation"`
	FlowID     string                `json:"flow_id,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// Step returns the current step name.
func (s *Session) Step() Step {
	steps := stepSequences[s.Mode]
	if len(steps) == 0 {
		return ""
	}

	index := s.StepIndex
	if index < 0 {
		index = 0
	}

	if index >= len(steps) {
		index = len(steps) - 1
	}

	return steps[index]
}

// LastStep reports whether the session sits on its final (review) step.
func (s *Session) LastStep() bool {
	steps := stepSequences[s.Mode]

	return len(steps) > 0 && s.StepIndex == len(steps)-1
}

// invalidate marks a transition boundary: step errors and any previous test
// result are stale, and in-flight test responses must be discarded.
func (s *Session) invalidate() {
	s.Errors = nil
	s.TestResult = nil
	s.Testing = false
	s.Generation++
}

type sessionJSON struct {
	ID         string                `json:"id"`
	Owner      string                `json:"owner"`
	Mode       Mode                  `json:"mode"`
	StepIndex  int                   `json:"step_index"`
	Draft      json.RawMessage       `json:"draft"`
	Errors     map[string]string     `json:"errors,omitempty"`
	TestResult *connector.TestResult `json:"test_result,omitempty"`
	Testing    bool                  `json:"testing"`
	Generation int64                 `json:"generation"`
	FlowID     string                `json:"flow_id,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// UnmarshalJSON decodes the draft into the concrete type the mode dictates.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw sessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Session{
		ID:         raw.ID,
		Owner:      raw.Owner,
		Mode:       raw.Mode,
		StepIndex:  raw.StepIndex,
		Errors:     raw.Errors,
		TestResult: raw.TestResult,
		Testing:    raw.Testing,
		Generation: raw.Generation,
		FlowID:     raw.FlowID,
		CreatedAt:  raw.CreatedAt,
		UpdatedAt:  raw.UpdatedAt,
	}

	if len(raw.Draft) == 0 || string(raw.Draft) == "null" {
		return nil
	}

	var draft Draft

	switch raw.Mode {
	case ModeAddAppNode:
		draft = &AppNodeDraft{}
	case ModeAddAgent:
		draft = &AgentDraft{}
	case ModeAddAgentTool:
		draft = &AgentToolDraft{}
	default:
		return fmt.Errorf("unknown wizard mode %q", raw.Mode)
	}

	if err := json.Unmarshal(raw.Draft, draft); err != nil {
		return fmt.Errorf("decode %s draft: %w", raw.Mode, err)
	}

	s.Draft = draft

	return nil
}

// Committer applies a confirmed draft to the flow store: a new node for app
// and agent modes, an appended tool on the target agent for tool mode.
type Committer interface {
	Commit(ctx context.Context, session *Session) error
}
