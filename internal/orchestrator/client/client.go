// Package client implements the single-call HTTP contract the orchestrator uses
// to reach its backends.
package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"search-orchestrator/internal/common/config"
	apperrors "search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/common/metrics"
	"search-orchestrator/internal/common/observability"

	"github.com/go-resty/resty/v2"
)

// ServiceClient performs exactly one call against a backend. A non-200 status
// yields a BACKEND_ERROR (NOT_FOUND for 404) and an unreachable backend or an
// expired deadline yields a TRANSPORT_ERROR. It never retries.
type ServiceClient interface {
	Invoke(ctx context.Context, method, endpointPath string, body interface{}, headers map[string]string) (json.RawMessage, error)
}

// HTTPClient is the resty-backed ServiceClient.
type HTTPClient struct {
	name    string
	timeout time.Duration
	http    *resty.Client
	log     logger.Logger
	obs     *observability.Observability
}

// NewHTTPClient builds a client for one backend. name labels errors, logs and metrics.
func NewHTTPClient(name string, cfg config.EndpointConfig, log logger.Logger, obs *observability.Observability) *HTTPClient {
	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if obs == nil {
		obs = observability.NewNoop()
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("User-Agent", "search-orchestrator/1.0").
		SetRetryCount(0).
		SetTimeout(timeout)

	return &HTTPClient{
		name:    name,
		timeout: timeout,
		http:    httpClient,
		log:     log.WithFields(map[string]interface{}{"backend": name}),
		obs:     obs,
	}
}

func (c *HTTPClient) Invoke(ctx context.Context, method, endpointPath string, body interface{}, headers map[string]string) (json.RawMessage, error) {
	if method != http.MethodGet && method != http.MethodPost {
		return nil, apperrors.NewInternalError("unsupported method "+method, nil)
	}

	if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > c.timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeaders(headers)
	if body != nil {
		req.SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, endpointPath)
	duration := time.Since(start)

	if err != nil {
		c.observe(ctx, method, metrics.OutcomeError, duration)
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.log.Warn("backend call timed out", map[string]interface{}{
				"method":    method,
				"path":      endpointPath,
				"timeoutMs": c.timeout.Milliseconds(),
			})
		}
		return nil, apperrors.NewTransportError(c.name, err)
	}

	if resp.StatusCode() != http.StatusOK {
		c.observe(ctx, method, metrics.OutcomeError, duration)
		return nil, apperrors.NewBackendError(c.name, resp.StatusCode(), errorMessage(resp))
	}

	c.observe(ctx, method, metrics.OutcomeSuccess, duration)
	c.log.Debug("backend call succeeded", map[string]interface{}{
		"method":     method,
		"path":       endpointPath,
		"durationMs": duration.Milliseconds(),
	})

	return json.RawMessage(resp.Body()), nil
}

func (c *HTTPClient) observe(ctx context.Context, method, outcome string, d time.Duration) {
	metrics.BackendCallDuration.WithLabelValues(c.name, method, outcome).Observe(d.Seconds())
	c.obs.RecordBackendCall(ctx, c.name, outcome, d)
}

// errorMessage pulls a human readable message out of an error body. It
// understands {"detail": ...}, {"message": ...} and {"error": ...} and falls
// back to the raw body, then the status text.
func errorMessage(resp *resty.Response) string {
	var body map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if s, ok := body[key].(string); ok && s != "" {
				return s
			}
		}
	}
	if raw := strings.TrimSpace(resp.String()); raw != "" {
		return raw
	}
	return http.StatusText(resp.StatusCode())
}
