package models

import "time"

// HistoryEntry is one recorded search for a user.
type HistoryEntry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	SearchText   string    `json:"search_text"`
	SearchFields []string  `json:"search_fields"`
	Saved        bool      `json:"saved"`
	SearchName   *string   `json:"search_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecordSearchCommand is the body of POST /api/history.
type RecordSearchCommand struct {
	UserID       string   `json:"user_id"`
	SearchText   string   `json:"search_text"`
	SearchFields []string `json:"search_fields"`
	Saved        bool     `json:"saved"`
	SearchName   *string  `json:"search_name,omitempty"`
}

// SaveSearchCommand marks an existing entry as saved under a name.
type SaveSearchCommand struct {
	UserID     string `json:"user_id"`
	SearchID   string `json:"search_id"`
	SearchName string `json:"search_name"`
}

// User is a history-service account.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateUserCommand is the body of POST /api/users.
type CreateUserCommand struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}
