package validation

var stringArray = map[string]interface{}{
	"type":  "array",
	"items": map[string]interface{}{"type": "string"},
}

var nonEmptyString = map[string]interface{}{
	"type":      "string",
	"minLength": 1,
}

// SearchRequest accepts either the flat form {search_text, search_fields, select}
// or the nested form {search: {text, fields}}. Unknown keys are forwarded untouched.
var SearchRequest = MustCompile("search_request", map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"search_text":   map[string]interface{}{"type": "string"},
		"search_fields": stringArray,
		"select":        stringArray,
		"search": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text":   map[string]interface{}{"type": "string"},
				"fields": stringArray,
			},
		},
	},
	"anyOf": []interface{}{
		map[string]interface{}{"required": []interface{}{"search_text"}},
		map[string]interface{}{
			"required": []interface{}{"search"},
			"properties": map[string]interface{}{
				"search": map[string]interface{}{"required": []interface{}{"text"}},
			},
		},
	},
})

// SaveSearchRequest is the body of a save-search call, on both sides of the wire.
var SaveSearchRequest = MustCompile("save_search_request", map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"user_id", "search_id", "search_name"},
	"properties": map[string]interface{}{
		"user_id":     nonEmptyString,
		"search_id":   nonEmptyString,
		"search_name": nonEmptyString,
	},
})

// RecordHistoryRequest is the body the history backend accepts on POST /api/history.
var RecordHistoryRequest = MustCompile("record_history_request", map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"user_id", "search_text"},
	"properties": map[string]interface{}{
		"user_id":       nonEmptyString,
		"search_text":   map[string]interface{}{"type": "string"},
		"search_fields": stringArray,
		"saved":         map[string]interface{}{"type": "boolean"},
		"search_name":   map[string]interface{}{"type": []interface{}{"string", "null"}},
	},
})

var CreateUserRequest = MustCompile("create_user_request", map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"username", "email"},
	"properties": map[string]interface{}{
		"username": nonEmptyString,
		"email":    nonEmptyString,
	},
})
