package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) interface{} {
	t.Helper()
	var doc interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	return doc
}

func TestSearchRequest(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		valid bool
	}{
		{"flat form", `{"search_text":"luxury","search_fields":["hotelName"],"select":["hotelId"]}`, true},
		{"nested form", `{"search":{"text":"spa","fields":["description"]}}`, true},
		{"empty text allowed", `{"search_text":""}`, true},
		{"extra keys pass through", `{"search_text":"x","filter":"rating gt 4"}`, true},
		{"missing text", `{"select":["hotelId"]}`, false},
		{"nested without text", `{"search":{"fields":["a"]}}`, false},
		{"text wrong type", `{"search_text":42}`, false},
		{"fields not strings", `{"search_text":"x","search_fields":[1,2]}`, false},
		{"not an object", `["x"]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SearchRequest.Validate(decode(t, tt.body))
			assert.Equal(t, tt.valid, result.Valid, result.Summary())
			if !tt.valid {
				assert.NotEmpty(t, result.Errors)
			}
		})
	}
}

func TestSaveSearchRequest(t *testing.T) {
	result := SaveSearchRequest.Validate(decode(t, `{"user_id":"u1","search_id":"s1","search_name":"Beach trips"}`))
	assert.True(t, result.Valid)

	result = SaveSearchRequest.Validate(decode(t, `{"user_id":"u1","search_id":"","search_name":"x"}`))
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("search_id"))

	result = SaveSearchRequest.Validate(decode(t, `{"user_id":"u1"}`))
	assert.False(t, result.Valid)
	assert.Len(t, result.GetErrorMessages(), 2)
	assert.True(t, result.HasErrors("search_name"))
}

func TestRecordHistoryRequest(t *testing.T) {
	assert.True(t, RecordHistoryRequest.Validate(decode(t, `{"user_id":"u1","search_text":"spa","search_fields":["a"],"saved":false,"search_name":null}`)).Valid)
	assert.False(t, RecordHistoryRequest.Validate(decode(t, `{"user_id":"u1","search_text":"spa","saved":"no"}`)).Valid)
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("ana@example.com"))
	assert.False(t, ValidateEmail("ana@"))
}
