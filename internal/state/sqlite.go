package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := New(db, opts...)
	s.path = path
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Debug("state store opened", slog.String("path", path))
	return s, nil
}

// New wraps an already opened database without migrating it.
func New(db *sql.DB, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{
		db:     db,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the database path given to Open.
func (s *SQLiteStore) Path() string { return s.path }

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save inserts d, or replaces the row with the same ID. An empty ID is
// assigned a fresh one; timestamps are set on d.
func (s *SQLiteStore) Save(ctx context.Context, d *SavedDashboard) error {
	if d.Name == "" {
		return fmt.Errorf("saved dashboard name is required")
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	payload, err := json.Marshal(d.State)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO saved_dashboards (id, name, description, template, item_count, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			template = excluded.template,
			item_count = excluded.item_count,
			state = excluded.state,
			updated_at = excluded.updated_at`,
		d.ID, d.Name, d.Description, d.Template, len(d.State.CanvasItems), string(payload),
		formatTime(d.CreatedAt), formatTime(d.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save dashboard %s: %w", d.ID, err)
	}
	s.logger.Debug("dashboard saved", slog.String("id", d.ID), slog.String("name", d.Name))
	return nil
}

// Get loads a saved dashboard by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*SavedDashboard, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, template, state, created_at, updated_at
		FROM saved_dashboards WHERE id = ?`, id)

	var (
		d                SavedDashboard
		payload          string
		created, updated string
	)
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.Template, &payload, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(payload), &d.State); err != nil {
		return nil, fmt.Errorf("failed to decode state for %s: %w", id, err)
	}
	if d.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns summaries, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, template, item_count, updated_at
		FROM saved_dashboards ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []Summary{}
	for rows.Next() {
		var (
			sm      Summary
			updated string
		)
		if err := rows.Scan(&sm.ID, &sm.Name, &sm.Description, &sm.Template, &sm.Items, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan dashboard row: %w", err)
		}
		if sm.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Delete removes a saved dashboard.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_dashboards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dashboard %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete dashboard %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", v, err)
	}
	return t, nil
}
