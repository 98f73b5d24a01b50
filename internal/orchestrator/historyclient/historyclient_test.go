package historyclient

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
	method string
	path   string
	body   interface{}
	resp   string
	err    error
}

func (f *fakeBackend) Invoke(ctx context.Context, method, path string, body interface{}, headers map[string]string) (json.RawMessage, error) {
	f.method, f.path, f.body = method, path, body
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.resp), nil
}

const entryJSON = `{"id":"h1","user_id":"u1","search_text":"spa","search_fields":["description"],"saved":false,"search_name":null,"created_at":"2024-05-01T10:00:00Z"}`

func TestRecordSearch(t *testing.T) {
	backend := &fakeBackend{resp: entryJSON}
	entry, err := New(backend).RecordSearch(context.Background(), "u1", "spa", []string{"description"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, backend.method)
	assert.Equal(t, "/api/history", backend.path)
	cmd := backend.body.(models.RecordSearchCommand)
	assert.False(t, cmd.Saved)
	assert.Equal(t, "spa", cmd.SearchText)

	assert.Equal(t, "h1", entry.ID)
	assert.Nil(t, entry.SearchName)
}

func TestSaveSearch(t *testing.T) {
	backend := &fakeBackend{resp: `{"id":"h1","user_id":"u1","search_text":"spa","search_fields":[],"saved":true,"search_name":"Spa weekend","created_at":"2024-05-01T10:00:00Z"}`}
	entry, err := New(backend).SaveSearch(context.Background(), "u1", "h1", "Spa weekend")
	require.NoError(t, err)

	assert.Equal(t, "/api/history/save", backend.path)
	assert.Equal(t, models.SaveSearchCommand{UserID: "u1", SearchID: "h1", SearchName: "Spa weekend"}, backend.body)
	assert.True(t, entry.Saved)
	require.NotNil(t, entry.SearchName)
	assert.Equal(t, "Spa weekend", *entry.SearchName)
}

func TestSaveSearch_NotFoundPropagates(t *testing.T) {
	notFound := apperrors.NewBackendError("history", http.StatusNotFound, "Search history not found")
	_, err := New(&fakeBackend{err: notFound}).SaveSearch(context.Background(), "u1", "missing", "x")
	assert.Same(t, notFound, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListHistory_Paths(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name   string
		userID string
		saved  *bool
		want   string
	}{
		{"all", "u1", nil, "/api/history/user/u1"},
		{"saved only", "u1", &yes, "/api/history/user/u1?saved=true"},
		{"unsaved only", "u1", &no, "/api/history/user/u1?saved=false"},
		{"escaped id", "a b/c", nil, "/api/history/user/a%20b%2Fc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{resp: `[` + entryJSON + `]`}
			entries, err := New(backend).ListHistory(context.Background(), tt.userID, tt.saved)
			require.NoError(t, err)
			assert.Equal(t, http.MethodGet, backend.method)
			assert.Equal(t, tt.want, backend.path)
			assert.Nil(t, backend.body)
			assert.Len(t, entries, 1)
		})
	}
}

func TestListHistory_EmptyList(t *testing.T) {
	entries, err := New(&fakeBackend{resp: `[]`}).ListHistory(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}
