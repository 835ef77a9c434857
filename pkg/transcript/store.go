// Package transcript хранит реплики чата в sqlite по идентификатору сессии.
//
// Chat UI пишет каждую реплику сразу после ответа и при старте
// проигрывает сохранённую сессию обратно в память диалога.
package transcript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ilkoid/poncho-assist/pkg/llm"
	"github.com/ilkoid/poncho-assist/pkg/memory"
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session    TEXT    NOT NULL,
	role       TEXT    NOT NULL,
	content    TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session, id);
`

// Entry: сохранённая реплика.
type Entry struct {
	ID        int64
	Session   string
	Turn      memory.Turn
	CreatedAt time.Time
}

// Store: sqlite хранилище транскриптов. *sql.DB сам по себе
// потокобезопасен, отдельная блокировка не нужна.
type Store struct {
	db *sql.DB
}

// Open открывает (и при необходимости создаёт) базу по пути path.
// ":memory:" даёт базу в памяти.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create transcript dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open transcript db: %w", err)
	}
	// sqlite: один писатель, иначе "database is locked"
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init transcript schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close закрывает базу.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append сохраняет реплику в сессию.
func (s *Store) Append(ctx context.Context, session string, turn memory.Turn) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (session, role, content, created_at) VALUES (?, ?, ?, ?)`,
		session, string(turn.Role), turn.Content, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

// Load возвращает реплики сессии в хронологическом порядке.
func (s *Store) Load(ctx context.Context, session string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session, role, content, created_at FROM turns WHERE session = ? ORDER BY id`,
		session)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			role    string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Session, &role, &e.Turn.Content, &created); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		e.Turn.Role = llm.Role(role)
		e.CreatedAt = time.UnixMilli(created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Sessions возвращает идентификаторы сессий, последние сверху.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session FROM turns GROUP BY session ORDER BY MAX(id) DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Delete удаляет сессию.
func (s *Store) Delete(ctx context.Context, session string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE session = ?`, session); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Replay загружает сессию в память диалога и возвращает число реплик.
// Ошибка summary памяти не прерывает проигрывание.
func (s *Store) Replay(ctx context.Context, session string, mem memory.Memory) (int, error) {
	entries, err := s.Load(ctx, session)
	if err != nil {
		return 0, err
	}
	turns := make([]memory.Turn, len(entries))
	for i, e := range entries {
		turns[i] = e.Turn
	}
	if err := mem.Append(ctx, turns...); err != nil && !errors.Is(err, memory.ErrSummarize) {
		return 0, err
	}
	return len(entries), nil
}
