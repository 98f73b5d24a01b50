package models

import (
	"encoding/json"
)

// Default field lists applied when a request leaves them out.
var (
	DefaultSearchFields = []string{"hotelName", "description", "category"}
	DefaultSelectFields = []string{"hotelId", "hotelName", "description", "category"}
)

// StatusSuccess is the status reported by a successful search.
const StatusSuccess = "success"

// SearchQuery is the parsed form of an inbound search request. Raw keeps the
// original payload so unknown keys reach the search backend untouched.
type SearchQuery struct {
	Text         string
	SearchFields []string
	SelectFields []string
	UserID       string
	Raw          map[string]interface{}

	// HistoryText and HistoryFields are what gets recorded in the user's
	// history. They prefer the nested search.text / search.fields form.
	HistoryText   string
	HistoryFields []string
}

// NewSearchQuery parses a decoded request body. Text and fields are read from the
// flat keys (search_text, search_fields) or the nested search.text / search.fields
// form. The search side prefers the flat keys, the history side the nested ones.
func NewSearchQuery(raw map[string]interface{}, userID string) SearchQuery {
	q := SearchQuery{UserID: userID, Raw: raw}

	nested, _ := raw["search"].(map[string]interface{})
	flatText, hasFlatText := raw["search_text"].(string)
	nestedText, hasNestedText := nested["text"].(string)
	flatFields := toStrings(raw["search_fields"])
	nestedFields := toStrings(nested["fields"])

	q.Text = firstString(flatText, hasFlatText, nestedText, hasNestedText)
	q.HistoryText = firstString(nestedText, hasNestedText, flatText, hasFlatText)
	q.SearchFields = firstFields(flatFields, nestedFields)
	q.HistoryFields = firstFields(nestedFields, flatFields)

	if fields := toStrings(raw["select"]); fields != nil {
		q.SelectFields = fields
	} else {
		q.SelectFields = append([]string(nil), DefaultSelectFields...)
	}

	return q
}

// BackendPayload returns a copy of the raw payload. Keys the caller sent are kept
// as is; search_text, search_fields and select are added only when missing.
func (q SearchQuery) BackendPayload() map[string]interface{} {
	out := make(map[string]interface{}, len(q.Raw)+3)
	for k, v := range q.Raw {
		out[k] = v
	}
	setMissing(out, "search_text", q.Text)
	setMissing(out, "search_fields", q.SearchFields)
	setMissing(out, "select", q.SelectFields)
	return out
}

func setMissing(m map[string]interface{}, key string, v interface{}) {
	if _, ok := m[key]; !ok {
		m[key] = v
	}
}

func firstString(a string, okA bool, b string, okB bool) string {
	if okA {
		return a
	}
	if okB {
		return b
	}
	return ""
}

// firstFields returns a copy of the first non-nil list, or the defaults.
func firstFields(lists ...[]string) []string {
	for _, l := range lists {
		if l != nil {
			return append([]string(nil), l...)
		}
	}
	return append([]string(nil), DefaultSearchFields...)
}

func toStrings(v interface{}) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []interface{}:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			s, ok := item.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	}
	return nil
}

// SearchBackendResponse is the search backend's reply.
type SearchBackendResponse struct {
	Status  string                   `json:"status"`
	Count   int                      `json:"count"`
	Records []map[string]interface{} `json:"results"`
}

// UnmarshalJSON accepts "records" as an alias of "results".
func (r *SearchBackendResponse) UnmarshalJSON(data []byte) error {
	var wire struct {
		Status  string                   `json:"status"`
		Count   int                      `json:"count"`
		Results []map[string]interface{} `json:"results"`
		Records []map[string]interface{} `json:"records"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.Status = wire.Status
	r.Count = wire.Count
	r.Records = wire.Results
	if r.Records == nil {
		r.Records = wire.Records
	}
	return nil
}

// SearchResult is what the orchestrator returns for a search.
type SearchResult struct {
	Status    string
	Count     int
	Records   []map[string]interface{}
	HistoryID *string
}

// SearchResponse is the boundary JSON for a search. search_id is null when no
// history entry was recorded.
type SearchResponse struct {
	Status   string                   `json:"status"`
	Count    int                      `json:"count"`
	Results  []map[string]interface{} `json:"results"`
	SearchID *string                  `json:"search_id"`
}

// ToResponse converts a result to its wire form. Results is never null.
func (r *SearchResult) ToResponse() SearchResponse {
	records := r.Records
	if records == nil {
		records = []map[string]interface{}{}
	}
	return SearchResponse{
		Status:   r.Status,
		Count:    r.Count,
		Results:  records,
		SearchID: r.HistoryID,
	}
}
