package connector_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flowdeckhq/flowdeck/pkg/catalog"
	"github.com/flowdeckhq/flowdeck/pkg/connector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProber_Success(t *testing.T) {
	t.Parallel()

	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	prober := connector.NewHTTPProber(catalog.New(), time.Second)

	result, err := prober.Test(context.Background(), connector.NodeTestRequest{
		Kind:     connector.TestKindModel,
		Provider: "openai",
		BaseURL:  server.URL,
		APIKey:   "sk-test",
	})
	require.NoError(t, err)

	// Reachable but unauthorized still counts as connected.
	assert.True(t, result.Success)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, http.StatusUnauthorized, result.Output["status"])
}

func TestHTTPProber_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	prober := connector.NewHTTPProber(catalog.New(), time.Second)

	result, err := prober.Test(context.Background(), connector.NodeTestRequest{
		Kind:     connector.TestKindApp,
		Provider: "slack",
		BaseURL:  server.URL,
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "502")
}

func TestHTTPProber_Unreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	server.Close()

	prober := connector.NewHTTPProber(catalog.New(), time.Second)

	result, err := prober.Test(context.Background(), connector.NodeTestRequest{
		Kind:     connector.TestKindApp,
		Provider: "github",
		BaseURL:  server.URL,
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "could not reach")
}

func TestHTTPProber_ResolvesTargets(t *testing.T) {
	t.Parallel()

	prober := connector.NewHTTPProber(catalog.New(), time.Second)

	tests := []struct {
		name    string
		request connector.NodeTestRequest
		wantMsg string
	}{
		{
			name:    "unknown provider",
			request: connector.NodeTestRequest{Kind: connector.TestKindModel, Provider: "bedrock"},
			wantMsg: `unknown provider "bedrock"`,
		},
		{
			name:    "unknown app",
			request: connector.NodeTestRequest{Kind: connector.TestKindApp, Provider: "faxmachine"},
			wantMsg: `unknown app "faxmachine"`,
		},
		{
			name:    "unknown kind",
			request: connector.NodeTestRequest{Kind: "warp", Provider: "slack"},
			wantMsg: `unknown test kind "warp"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := prober.Test(context.Background(), tt.request)
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Equal(t, tt.wantMsg, result.Message)
		})
	}
}

func TestHTTPProber_Cancelled(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	prober := connector.NewHTTPProber(catalog.New(), 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := prober.Test(ctx, connector.NodeTestRequest{
		Kind:     connector.TestKindApp,
		Provider: "slack",
		BaseURL:  server.URL,
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
