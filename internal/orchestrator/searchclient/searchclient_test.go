package searchclient

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	apperrors "search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	method  string
	path    string
	body    interface{}
	headers map[string]string
	resp    string
	err     error
}

func (f *fakeBackend) Invoke(ctx context.Context, method, path string, body interface{}, headers map[string]string) (json.RawMessage, error) {
	f.method, f.path, f.body, f.headers = method, path, body, headers
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.resp), nil
}

func TestSearch_BuildsRequest(t *testing.T) {
	backend := &fakeBackend{resp: `{"status":"success","count":2,"results":[{"hotelId":"1"},{"hotelId":"2"}]}`}
	query := models.NewSearchQuery(map[string]interface{}{"search_text": "luxury", "top": 5}, "u1")

	resp, err := New(backend).Search(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, backend.method)
	assert.Equal(t, "/api/search", backend.path)
	assert.Equal(t, "application/json", backend.headers["Content-Type"])
	assert.Equal(t, "application/json", backend.headers["Accept"])
	assert.Equal(t, "u1", backend.headers["user_id"])

	body := backend.body.(map[string]interface{})
	assert.Equal(t, "luxury", body["search_text"])
	assert.Equal(t, 5, body["top"])
	assert.Equal(t, models.DefaultSelectFields, body["select"])

	assert.Equal(t, "success", resp.Status)
	assert.Len(t, resp.Records, 2)
}

func TestSearch_PropagatesErrors(t *testing.T) {
	backendErr := apperrors.NewBackendError("search", http.StatusServiceUnavailable, "down")
	_, err := New(&fakeBackend{err: backendErr}).Search(context.Background(), models.NewSearchQuery(map[string]interface{}{"search_text": "x"}, ""))
	assert.Same(t, backendErr, err)

	_, err = New(&fakeBackend{resp: `not json`}).Search(context.Background(), models.NewSearchQuery(map[string]interface{}{"search_text": "x"}, ""))
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.CodeOf(err))
}
