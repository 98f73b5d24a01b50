// Package orchestratortest provides in-memory search and history backends
// served over httptest for exercising the orchestrator end to end.
package orchestratortest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"search-orchestrator/internal/models"

	"github.com/google/uuid"
)

// SearchBackend answers POST /api/search with canned records.
type SearchBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	status   int
	records  []map[string]interface{}
	calls    int
	lastBody map[string]interface{}
	lastUser string
	delay    time.Duration
}

func NewSearchBackend(t testing.TB, records ...map[string]interface{}) *SearchBackend {
	b := &SearchBackend{status: http.StatusOK, records: records}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

// FailWith makes subsequent searches return status with a detail body.
func (b *SearchBackend) FailWith(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

// Delay holds each response for d or until the client goes away.
func (b *SearchBackend) Delay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

func (b *SearchBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *SearchBackend) LastBody() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastBody
}

func (b *SearchBackend) LastUserHeader() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUser
}

func (b *SearchBackend) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
		return
	}

	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	b.calls++
	b.lastBody = body
	b.lastUser = r.Header.Get("user_id")
	status, records, delay := b.status, b.records, b.delay
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(delay):
		}
	}

	if status != http.StatusOK {
		writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
		return
	}
	if records == nil {
		records = []map[string]interface{}{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"count":   len(records),
		"results": records,
	})
}

// HistoryBackend is an in-memory history service.
type HistoryBackend struct {
	Server *httptest.Server

	mu          sync.Mutex
	users       map[string]bool
	entries     []models.HistoryEntry
	down        bool
	delay       time.Duration
	recordCalls int
	recorded    chan struct{}
}

func NewHistoryBackend(t testing.TB, users ...string) *HistoryBackend {
	b := &HistoryBackend{
		users:    make(map[string]bool),
		recorded: make(chan struct{}, 16),
	}
	for _, u := range users {
		b.users[u] = true
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

// SetDown makes every endpoint answer 503.
func (b *HistoryBackend) SetDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = down
}

// Delay holds record responses for d. The write is applied after the delay.
func (b *HistoryBackend) Delay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

func (b *HistoryBackend) RecordCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recordCalls
}

// Recorded signals once per completed record call.
func (b *HistoryBackend) Recorded() <-chan struct{} {
	return b.recorded
}

func (b *HistoryBackend) Entries() []models.HistoryEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.HistoryEntry(nil), b.entries...)
}

// Seed adds an entry directly and returns its id.
func (b *HistoryBackend) Seed(userID, text string, saved bool) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry := models.HistoryEntry{
		ID:           uuid.NewString(),
		UserID:       userID,
		SearchText:   text,
		SearchFields: []string{},
		Saved:        saved,
		CreatedAt:    time.Now().UTC(),
	}
	b.users[userID] = true
	b.entries = append(b.entries, entry)
	return entry.ID
}

func (b *HistoryBackend) serve(w http.ResponseWriter, r *http.Request) {
	isRecord := r.Method == http.MethodPost && r.URL.Path == "/api/history"

	b.mu.Lock()
	if isRecord {
		b.recordCalls++
	}
	down := b.down
	b.mu.Unlock()
	if down {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "history store unavailable"})
		if isRecord {
			b.signalRecorded()
		}
		return
	}

	switch {
	case r.URL.Path == "/health":
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	case isRecord:
		b.record(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/api/history/save":
		b.save(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/history/user/"):
		b.list(w, r, strings.TrimPrefix(r.URL.Path, "/api/history/user/"))
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

func (b *HistoryBackend) record(w http.ResponseWriter, r *http.Request) {
	var cmd models.RecordSearchCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	delay := b.delay
	b.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	b.mu.Lock()
	if !b.users[cmd.UserID] {
		b.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "User not found"})
		b.signalRecorded()
		return
	}
	entry := models.HistoryEntry{
		ID:           uuid.NewString(),
		UserID:       cmd.UserID,
		SearchText:   cmd.SearchText,
		SearchFields: cmd.SearchFields,
		Saved:        cmd.Saved,
		SearchName:   cmd.SearchName,
		CreatedAt:    time.Now().UTC(),
	}
	b.entries = append(b.entries, entry)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, entry)
	b.signalRecorded()
}

func (b *HistoryBackend) signalRecorded() {
	select {
	case b.recorded <- struct{}{}:
	default:
	}
}

func (b *HistoryBackend) save(w http.ResponseWriter, r *http.Request) {
	var cmd models.SaveSearchCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.users[cmd.UserID] {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "User not found"})
		return
	}
	for i := range b.entries {
		if b.entries[i].ID == cmd.SearchID && b.entries[i].UserID == cmd.UserID {
			name := cmd.SearchName
			b.entries[i].Saved = true
			b.entries[i].SearchName = &name
			writeJSON(w, http.StatusOK, b.entries[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Search history not found"})
}

func (b *HistoryBackend) list(w http.ResponseWriter, r *http.Request, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.users[userID] {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "User not found"})
		return
	}

	filter := r.URL.Query().Get("saved")
	out := []models.HistoryEntry{}
	for i := len(b.entries) - 1; i >= 0; i-- {
		e := b.entries[i]
		if e.UserID != userID {
			continue
		}
		if filter != "" && (filter == "true") != e.Saved {
			continue
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
