package searchclient

import (
	"context"
	"encoding/json"
	"net/http"

	"search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/models"
	"search-orchestrator/internal/orchestrator/client"
)

const searchPath = "/api/search"

// UserIDHeader carries the caller's user id to the search backend.
const UserIDHeader = "user_id"

type SearchClient struct {
	backend client.ServiceClient
}

func New(backend client.ServiceClient) *SearchClient {
	return &SearchClient{backend: backend}
}

// Search forwards the query to the search backend. Backend and transport errors
// are returned unchanged.
func (c *SearchClient) Search(ctx context.Context, query models.SearchQuery) (*models.SearchBackendResponse, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		UserIDHeader:   query.UserID,
	}

	raw, err := c.backend.Invoke(ctx, http.MethodPost, searchPath, query.BackendPayload(), headers)
	if err != nil {
		return nil, err
	}

	var resp models.SearchBackendResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.NewInternalError("malformed search backend response", err)
	}
	return &resp, nil
}
