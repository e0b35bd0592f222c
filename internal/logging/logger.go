// Package logging keeps a sqlite log of every oracle completion so runs can
// be reviewed and rated afterwards.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"adaptivestory/internal/llm"
)

// ErrNotFound is returned when rating a completion id that does not exist.
var ErrNotFound = errors.New("completion not found")

type CompletionLog struct {
	ID           int       `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	SessionID    string    `json:"session_id"`
	Operation    string    `json:"operation"`
	Backend      string    `json:"backend"`
	Model        string    `json:"model"`
	SystemPrompt string    `json:"system_prompt"`
	UserInput    string    `json:"user_input"`
	Response     string    `json:"response"`
	Metadata     string    `json:"metadata"`
	Rating       *int      `json:"rating,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
}

type CompletionMetadata struct {
	Model        string  `json:"model"`
	Genre        string  `json:"genre,omitempty"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
	ResponseTime int64   `json:"response_time_ms"`
	Error        *string `json:"error,omitempty"`
}

type CompletionLogger struct {
	db *sql.DB
}

// NewCompletionLogger opens (or creates) the completion log at path.
func NewCompletionLogger(path string) (*CompletionLogger, error) {
	if path == "" {
		path = "./completions.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger := &CompletionLogger{db: db}
	if err := logger.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return logger, nil
}

func (cl *CompletionLogger) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS completions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		session_id TEXT NOT NULL DEFAULT '',
		operation TEXT NOT NULL DEFAULT '',
		backend TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		system_prompt TEXT NOT NULL,
		user_input TEXT NOT NULL,
		response TEXT NOT NULL,
		metadata TEXT NOT NULL,
		rating INTEGER,
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_completions_timestamp ON completions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_completions_session ON completions(session_id);
	CREATE INDEX IF NOT EXISTS idx_completions_rating ON completions(rating);
	`

	_, err := cl.db.Exec(schema)
	return err
}

// RecordCompletion stores one exchange. It satisfies llm.Recorder.
func (cl *CompletionLogger) RecordCompletion(ctx context.Context, rec llm.CompletionRecord) error {
	meta := CompletionMetadata{
		Model:        rec.Model,
		Genre:        rec.Prompt.Genre,
		MaxTokens:    rec.Params.MaxNewTokens,
		Temperature:  rec.Params.Temperature,
		ResponseTime: rec.Duration.Milliseconds(),
	}
	if rec.Err != nil {
		msg := rec.Err.Error()
		meta.Error = &msg
	}
	metadataJson, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = cl.db.ExecContext(ctx, `
		INSERT INTO completions (session_id, operation, backend, model, system_prompt, user_input, response, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.SessionID, rec.Operation, rec.Backend, rec.Model, rec.Prompt.System, rec.Prompt.User, rec.Response, string(metadataJson))

	return err
}

// GetRecentCompletions returns up to limit completions, newest first.
func (cl *CompletionLogger) GetRecentCompletions(limit int) ([]CompletionLog, error) {
	rows, err := cl.db.Query(`
		SELECT id, timestamp, session_id, operation, backend, model, system_prompt, user_input, response, metadata, rating, notes
		FROM completions
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completions []CompletionLog
	for rows.Next() {
		var c CompletionLog
		err := rows.Scan(&c.ID, &c.Timestamp, &c.SessionID, &c.Operation, &c.Backend, &c.Model,
			&c.SystemPrompt, &c.UserInput, &c.Response, &c.Metadata, &c.Rating, &c.Notes)
		if err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}

	return completions, rows.Err()
}

// RateCompletion attaches a 1-5 rating and optional notes to a completion.
func (cl *CompletionLogger) RateCompletion(id int, rating int, notes string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}
	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}

	res, err := cl.db.Exec(`
		UPDATE completions
		SET rating = ?, notes = ?
		WHERE id = ?
	`, rating, notesPtr, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

func (cl *CompletionLogger) Close() error {
	return cl.db.Close()
}
