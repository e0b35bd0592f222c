// Package store persists story trees and session snapshots in sqlite.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"adaptivestory/internal/story"
	"adaptivestory/internal/story/chapter"
	"adaptivestory/internal/story/tree"
)

var ErrNotFound = errors.New("not found")

type TreeInfo struct {
	ID        string    `json:"id"`
	Genre     string    `json:"genre"`
	Title     string    `json:"title"`
	Nodes     int       `json:"nodes"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trees (
		id TEXT PRIMARY KEY,
		genre TEXT NOT NULL,
		title TEXT NOT NULL,
		nodes INTEGER NOT NULL,
		data TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_trees_genre ON trees(genre);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		genre TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		snapshot TEXT NOT NULL,
		book TEXT,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveTree stores t under id, replacing any tree with the same id.
func (s *Store) SaveTree(ctx context.Context, id string, t *tree.Tree) error {
	var buf bytes.Buffer
	if err := t.Save(&buf); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trees (id, genre, title, nodes, data) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET genre = excluded.genre, title = excluded.title,
			nodes = excluded.nodes, data = excluded.data
	`, id, strings.ToLower(t.Genre), t.Title, len(t.Nodes), buf.String())
	if err != nil {
		return fmt.Errorf("save tree %s: %w", id, err)
	}
	return nil
}

func (s *Store) LoadTree(ctx context.Context, id string) (*tree.Tree, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM trees WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tree %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load tree %s: %w", id, err)
	}
	return tree.Load(strings.NewReader(data))
}

// LatestTree returns the most recently stored tree for genre and its id.
func (s *Store) LatestTree(ctx context.Context, genre string) (*tree.Tree, string, error) {
	var id, data string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, data FROM trees WHERE genre = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1
	`, strings.ToLower(genre)).Scan(&id, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("tree for genre %s: %w", genre, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("load tree for genre %s: %w", genre, err)
	}
	t, err := tree.Load(strings.NewReader(data))
	return t, id, err
}

func (s *Store) ListTrees(ctx context.Context) ([]TreeInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, genre, title, nodes, created_at FROM trees ORDER BY genre, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	infos := []TreeInfo{}
	for rows.Next() {
		var info TreeInfo
		if err := rows.Scan(&info.ID, &info.Genre, &info.Title, &info.Nodes, &info.CreatedAt); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// SaveSession upserts a session snapshot together with its chapters. A nil
// book is stored as NULL.
func (s *Store) SaveSession(ctx context.Context, snap story.Snapshot, model string, book *chapter.Book) error {
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	var bookJSON *string
	if book != nil {
		data, err := json.Marshal(book)
		if err != nil {
			return fmt.Errorf("failed to marshal chapters: %w", err)
		}
		str := string(data)
		bookJSON = &str
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, genre, model, snapshot, book, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET genre = excluded.genre, model = excluded.model,
			snapshot = excluded.snapshot, book = excluded.book, updated_at = excluded.updated_at
	`, snap.ID, snap.Genre, model, string(snapJSON), bookJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save session %s: %w", snap.ID, err)
	}
	return nil
}

type SavedSession struct {
	Snapshot story.Snapshot
	Model    string
	// Book is nil when the session was saved without chapters.
	Book *chapter.Book
}

func (s *Store) LoadSession(ctx context.Context, id string) (SavedSession, error) {
	var (
		saved    SavedSession
		snapJSON string
		bookJSON sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT model, snapshot, book FROM sessions WHERE id = ?`, id).
		Scan(&saved.Model, &snapJSON, &bookJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedSession{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return SavedSession{}, fmt.Errorf("load session %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(snapJSON), &saved.Snapshot); err != nil {
		return SavedSession{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	if bookJSON.Valid {
		saved.Book = &chapter.Book{}
		if err := json.Unmarshal([]byte(bookJSON.String), saved.Book); err != nil {
			return SavedSession{}, fmt.Errorf("decode chapters %s: %w", id, err)
		}
	}
	return saved, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
