// Package connector performs node connectivity tests: lightweight reachability
// probes against an app's or chat-model provider's API, used by the builder's
// "Test" step. Probes never report hard errors to the UI path; every failure
// becomes a TestResult with Success=false.
package connector

import "context"

// TestKind selects what a test request probes.
type TestKind string

const (
	TestKindApp   TestKind = "app"
	TestKindModel TestKind = "model"
)

// NodeTestRequest carries everything a probe needs. Provider holds the app key
// for app tests and the chat-model provider key for model tests.
type NodeTestRequest struct {
	Kind         TestKind       `json:"kind"`
	Provider     string         `json:"provider"`
	Action       string         `json:"action,omitempty"`
	CredentialID string         `json:"credential_id,omitempty"`
	APIKey       string         `json:"api_key,omitempty"`
	BaseURL      string         `json:"base_url,omitempty"`
	Model        string         `json:"model,omitempty"`
	Config       map[string]any `json:"config,omitempty"`
}

// TestResult is the outcome surfaced to the user. Output carries optional
// structured detail (status code, endpoint) for the review panel.
type TestResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Output  map[string]any `json:"output,omitempty"`
}

// Tester runs one connectivity test. Implementations should reserve the error
// return for context cancellation and programming mistakes; expected failures
// (unreachable host, auth rejection) belong in the result.
type Tester interface {
	Test(ctx context.Context, request NodeTestRequest) (TestResult, error)
}
