package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"search-orchestrator/internal/common/config"
	apperrors "search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestClient(t *testing.T, baseURL string, timeoutMs int) *HTTPClient {
	return NewHTTPClient("search", config.EndpointConfig{BaseURL: baseURL, Timeout: timeoutMs}, logger.NewTestLogger(t), nil)
}

func TestInvoke_Success(t *testing.T) {
	var gotHeader, gotMethod string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("user_id")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","count":1,"results":[{"hotelId":"1"}],"extra":true}`))
	}))
	defer server.Close()

	c := createTestClient(t, server.URL, 1000)
	raw, err := c.Invoke(context.Background(), http.MethodPost, "/api/search",
		map[string]interface{}{"search_text": "spa"},
		map[string]string{"Content-Type": "application/json", "user_id": "u1"},
	)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "u1", gotHeader)
	assert.Equal(t, "spa", gotBody["search_text"])
	assert.JSONEq(t, `{"status":"success","count":1,"results":[{"hotelId":"1"}],"extra":true}`, string(raw))
}

func TestInvoke_StatusMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    apperrors.ErrorCode
		wantMessage string
	}{
		{"service unavailable", http.StatusServiceUnavailable, `{"detail":"index unavailable"}`, apperrors.ErrCodeBackend, "index unavailable"},
		{"not found", http.StatusNotFound, `{"code":"NOT_FOUND","message":"Search history not found"}`, apperrors.ErrCodeNotFound, "Search history not found"},
		{"plain text body", http.StatusBadGateway, `upstream broke`, apperrors.ErrCodeBackend, "upstream broke"},
		{"empty body", http.StatusInternalServerError, ``, apperrors.ErrCodeBackend, "Internal Server Error"},
		{"non-200 success class", http.StatusCreated, `{}`, apperrors.ErrCodeBackend, "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := createTestClient(t, server.URL, 1000).Invoke(context.Background(), http.MethodGet, "/x", nil, nil)
			require.Error(t, err)

			stdErr, ok := apperrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.status, stdErr.StatusCode)
			assert.Equal(t, tt.wantMessage, stdErr.Message)
			assert.Equal(t, "search", stdErr.Service)
			assert.True(t, apperrors.IsBackend(err))
			assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "exactly one network call")
		})
	}
}

func TestInvoke_TransportFailures(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := createTestClient(t, url, 1000).Invoke(context.Background(), http.MethodGet, "/health", nil, nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsTransport(err))
	})

	t.Run("default deadline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		start := time.Now()
		_, err := createTestClient(t, server.URL, 50).Invoke(context.Background(), http.MethodGet, "/slow", nil, nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsTransport(err))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("caller deadline is earlier", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := createTestClient(t, server.URL, 10000).Invoke(ctx, http.MethodGet, "/slow", nil, nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsTransport(err))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("already cancelled", func(t *testing.T) {
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := createTestClient(t, server.URL, 1000).Invoke(ctx, http.MethodGet, "/x", nil, nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsTransport(err))
		assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
	})
}

func TestInvoke_UnsupportedMethod(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	_, err := createTestClient(t, server.URL, 1000).Invoke(context.Background(), http.MethodPut, "/x", nil, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.CodeOf(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}
