// Package historysvc is the history backend: users and their recorded searches
// in PostgreSQL, with user existence cached in Redis.
package historysvc

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Schema is applied at startup. Every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		username   TEXT NOT NULL UNIQUE,
		email      TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS search_history (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL REFERENCES users(id),
		search_text   TEXT NOT NULL,
		search_fields TEXT[] NOT NULL DEFAULT '{}',
		saved         BOOLEAN NOT NULL DEFAULT FALSE,
		search_name   TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_search_history_user_created ON search_history (user_id, created_at DESC)`,
}

// postgres error codes
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

const (
	msgUserNotFound   = "User not found"
	msgSearchNotFound = "Search history not found"
	historyColumns    = "id, user_id, search_text, search_fields, saved, search_name, created_at"
	userColumns       = "id, username, email, created_at"
)

// Repository persists users and history entries.
type Repository interface {
	CreateUser(ctx context.Context, cmd models.CreateUserCommand) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	UserExists(ctx context.Context, id string) (bool, error)
	ProvisionUser(ctx context.Context, id string) error
	InsertEntry(ctx context.Context, cmd models.RecordSearchCommand) (*models.HistoryEntry, error)
	MarkSaved(ctx context.Context, cmd models.SaveSearchCommand) (*models.HistoryEntry, error)
	ListEntries(ctx context.Context, userID string, saved *bool) ([]models.HistoryEntry, error)
}

type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *PostgresRepository) CreateUser(ctx context.Context, cmd models.CreateUserCommand) (*models.User, error) {
	user := &models.User{
		ID:        uuid.NewString(),
		Username:  cmd.Username,
		Email:     cmd.Email,
		CreatedAt: r.now(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, created_at) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Username, user.Email, user.CreatedAt,
	)
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return nil, errors.NewValidationError("username or email already exists", err.Error())
		}
		return nil, errors.NewInternalError("failed to create user", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	var email sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Username, &email, &user.CreatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError(msgUserNotFound)
		}
		return nil, errors.NewInternalError("failed to load user", err)
	}
	user.Email = email.String
	return &user, nil
}

func (r *PostgresRepository) UserExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, errors.NewInternalError("failed to check user", err)
	}
	return exists, nil
}

// ProvisionUser creates a placeholder user whose username is its id.
func (r *PostgresRepository) ProvisionUser(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, created_at) VALUES ($1, $1, $2) ON CONFLICT (id) DO NOTHING`,
		id, r.now(),
	)
	if err != nil {
		return errors.NewInternalError("failed to provision user", err)
	}
	return nil
}

func (r *PostgresRepository) InsertEntry(ctx context.Context, cmd models.RecordSearchCommand) (*models.HistoryEntry, error) {
	fields := cmd.SearchFields
	if fields == nil {
		fields = []string{}
	}
	entry := &models.HistoryEntry{
		ID:           uuid.NewString(),
		UserID:       cmd.UserID,
		SearchText:   cmd.SearchText,
		SearchFields: fields,
		Saved:        cmd.Saved,
		SearchName:   cmd.SearchName,
		CreatedAt:    r.now(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO search_history (`+historyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.UserID, entry.SearchText, pq.Array(entry.SearchFields), entry.Saved, entry.SearchName, entry.CreatedAt,
	)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return nil, errors.NewNotFoundError(msgUserNotFound)
		}
		return nil, errors.NewInternalError("failed to record search", err)
	}
	return entry, nil
}

// MarkSaved sets saved=true and the name on the user's entry. It never writes
// saved=false, so a saved entry stays saved.
func (r *PostgresRepository) MarkSaved(ctx context.Context, cmd models.SaveSearchCommand) (*models.HistoryEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE search_history SET saved = TRUE, search_name = $3 WHERE id = $1 AND user_id = $2 RETURNING `+historyColumns,
		cmd.SearchID, cmd.UserID, cmd.SearchName,
	)
	entry, err := scanEntry(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError(msgSearchNotFound)
		}
		return nil, errors.NewInternalError("failed to save search", err)
	}
	return entry, nil
}

// ListEntries returns the user's entries, newest first.
func (r *PostgresRepository) ListEntries(ctx context.Context, userID string, saved *bool) ([]models.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM search_history WHERE user_id = $1`
	args := []interface{}{userID}
	if saved != nil {
		query += ` AND saved = $2`
		args = append(args, *saved)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternalError("failed to list history", err)
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, errors.NewInternalError("failed to read history row", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternalError("failed to list history", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*models.HistoryEntry, error) {
	var entry models.HistoryEntry
	var name sql.NullString
	fields := []string{}
	if err := s.Scan(
		&entry.ID, &entry.UserID, &entry.SearchText, pq.Array(&fields),
		&entry.Saved, &name, &entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	entry.SearchFields = fields
	if name.Valid {
		entry.SearchName = &name.String
	}
	return &entry, nil
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
