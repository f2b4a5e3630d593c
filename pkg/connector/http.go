package connector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/flowdeckhq/flowdeck/pkg/catalog"
	"github.com/flowdeckhq/flowdeck/pkg/log"
	"github.com/flowdeckhq/flowdeck/pkg/otelhelper"
)

// probe endpoints for app tests. Model tests resolve their endpoint from the
// chat-model provider table instead.
var appProbeURLs = map[string]string{
	"gmail":        "https://gmail.googleapis.com/gmail/v1/users/me/profile",
	"googleSheets": "https://sheets.googleapis.com/v4/spreadsheets",
	"github":       "https://api.github.com",
	"slack":        "https://slack.com/api/api.test",
	"openai":       "https://api.openai.com/v1/models",
}

// HTTPProber tests connectivity with a single bounded GET against the target
// service. It checks reachability, not credential validity; the backend owns
// real credential resolution.
type HTTPProber struct {
	catalog *catalog.Catalog
	client  *http.Client
	tracer  trace.Tracer
}

// NewHTTPProber builds a prober with the given request timeout.
func NewHTTPProber(cat *catalog.Catalog, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPProber{
		catalog: cat,
		client:  &http.Client{Timeout: timeout},
		tracer:  noop.NewTracerProvider().Tracer("connector"),
	}
}

// WithTracer replaces the no-op tracer so each probe records a span.
func (p *HTTPProber) WithTracer(tracer trace.Tracer) *HTTPProber {
	if tracer != nil {
		p.tracer = tracer
	}

	return p
}

// Test probes the service behind the request. Unreachable hosts, timeouts and
// unresolvable targets come back as failure results, not errors.
func (p *HTTPProber) Test(ctx context.Context, request NodeTestRequest) (TestResult, error) {
	logger := log.WithModule("connector")

	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "connector.probe",
		attribute.String(otelhelper.AppKeyKey, request.Provider),
		attribute.String(otelhelper.ActionKeyKey, request.Action),
	)
	defer span.End()

	target, err := p.resolveTarget(request)
	if err != nil {
		return TestResult{Success: false, Message: err.Error()}, nil
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("invalid probe target: %s", target)}, nil
	}

	if key := strings.TrimSpace(request.APIKey); key != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+key)
	}

	response, err := p.client.Do(httpRequest)
	if err != nil {
		if ctx.Err() != nil {
			return TestResult{}, ctx.Err()
		}

		otelhelper.SetError(span, err)
		logger.DebugContext(ctx, "probe failed", "target", target, "error", err)

		return TestResult{
			Success: false,
			Message: "could not reach " + target,
			Output:  map[string]any{"endpoint": target},
		}, nil
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusInternalServerError {
		return TestResult{
			Success: false,
			Message: fmt.Sprintf("%s responded with %d", target, response.StatusCode),
			Output:  map[string]any{"endpoint": target, "status": response.StatusCode},
		}, nil
	}

	// Any non-5xx response proves the service is reachable. 401/403 are
	// expected here since probes run without resolved credentials.
	return TestResult{
		Success: true,
		Message: "connection ok",
		Output:  map[string]any{"endpoint": target, "status": response.StatusCode},
	}, nil
}

func (p *HTTPProber) resolveTarget(request NodeTestRequest) (string, error) {
	if base := strings.TrimSpace(request.BaseURL); base != "" {
		return strings.TrimRight(base, "/"), nil
	}

	switch request.Kind {
	case TestKindModel:
		provider, ok := catalog.ChatModelProviderByKey(request.Provider)
		if !ok {
			return "", fmt.Errorf("unknown provider %q", request.Provider)
		}

		return strings.TrimRight(provider.DefaultBaseURL, "/"), nil
	case TestKindApp:
		key := request.Provider
		if p.catalog != nil {
			if canonical, ok := p.catalog.NormalizeAppKey(key); ok {
				key = canonical
			}
		}

		if target, ok := appProbeURLs[key]; ok {
			return target, nil
		}

		return "", fmt.Errorf("unknown app %q", request.Provider)
	default:
		return "", fmt.Errorf("unknown test kind %q", request.Kind)
	}
}
