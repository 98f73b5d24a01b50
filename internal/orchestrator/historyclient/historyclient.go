package historyclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/models"
	"search-orchestrator/internal/orchestrator/client"
)

const (
	recordPath   = "/api/history"
	savePath     = "/api/history/save"
	userListPath = "/api/history/user/"
)

var jsonHeaders = map[string]string{
	"Content-Type": "application/json",
	"Accept":       "application/json",
}

type HistoryClient struct {
	backend client.ServiceClient
}

func New(backend client.ServiceClient) *HistoryClient {
	return &HistoryClient{backend: backend}
}

// RecordSearch stores an unsaved history entry for the user.
func (c *HistoryClient) RecordSearch(ctx context.Context, userID, searchText string, searchFields []string) (*models.HistoryEntry, error) {
	body := models.RecordSearchCommand{
		UserID:       userID,
		SearchText:   searchText,
		SearchFields: searchFields,
		Saved:        false,
	}
	raw, err := c.backend.Invoke(ctx, http.MethodPost, recordPath, body, jsonHeaders)
	if err != nil {
		return nil, err
	}
	return decodeEntry(raw)
}

// SaveSearch marks an existing entry as saved under searchName.
func (c *HistoryClient) SaveSearch(ctx context.Context, userID, searchID, searchName string) (*models.HistoryEntry, error) {
	body := models.SaveSearchCommand{
		UserID:     userID,
		SearchID:   searchID,
		SearchName: searchName,
	}
	raw, err := c.backend.Invoke(ctx, http.MethodPost, savePath, body, jsonHeaders)
	if err != nil {
		return nil, err
	}
	return decodeEntry(raw)
}

// ListHistory returns the user's entries. A nil saved returns all of them.
func (c *HistoryClient) ListHistory(ctx context.Context, userID string, saved *bool) ([]models.HistoryEntry, error) {
	path := userListPath + url.PathEscape(userID)
	if saved != nil {
		path += "?saved=" + strconv.FormatBool(*saved)
	}

	raw, err := c.backend.Invoke(ctx, http.MethodGet, path, nil, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, err
	}

	entries := []models.HistoryEntry{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.NewInternalError("malformed history backend response", err)
	}
	return entries, nil
}

func decodeEntry(raw json.RawMessage) (*models.HistoryEntry, error) {
	var entry models.HistoryEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, errors.NewInternalError("malformed history backend response", err)
	}
	return &entry, nil
}
