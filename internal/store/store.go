// Package store persists subtitle projects, one per video path, in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mgpai22/subtake/internal/subtitle"
)

// ErrNotFound is returned when no project exists for a video.
var ErrNotFound = errors.New("project not found")

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	video_path TEXT NOT NULL UNIQUE,
	filename TEXT NOT NULL,
	duration REAL,
	operation_memory INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	begin_time REAL,
	end_time REAL,
	text TEXT NOT NULL,
	option INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (project_id, position)
);
CREATE TABLE IF NOT EXISTS options (
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	style TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (project_id, position)
);
CREATE INDEX IF NOT EXISTS idx_projects_updated ON projects(updated_at);
`

// Project is the saved state of one video's subtitles.
type Project struct {
	ID              string
	VideoPath       string
	Filename        string
	Duration        float64
	OperationMemory int
	Entries         []subtitle.Entry
	Options         []subtitle.Option
	UpdatedAt       time.Time
}

// Summary is a project row without its entries.
type Summary struct {
	ID         string
	VideoPath  string
	Filename   string
	Duration   float64
	EntryCount int
	UpdatedAt  time.Time
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// foreign_keys is per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes p, replacing any earlier save for the same video path. p.ID
// and p.UpdatedAt are filled in.
func (s *Store) Save(ctx context.Context, p *Project) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx, "SELECT id FROM projects WHERE video_path = ?", p.VideoPath).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
	case err != nil:
		return fmt.Errorf("lookup project: %w", err)
	}

	updated := s.now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, video_path, filename, duration, operation_memory, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			duration = excluded.duration,
			operation_memory = excluded.operation_memory,
			updated_at = excluded.updated_at`,
		id, p.VideoPath, p.Filename, nullFloat(p.Duration), p.OperationMemory, updated.Unix())
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}

	for _, table := range []string{"entries", "options"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE project_id = ?", id); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, e := range p.Entries {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO entries (project_id, position, begin_time, end_time, text, option) VALUES (?, ?, ?, ?, ?, ?)",
			id, i, nullFloat(e.BeginTime), nullFloat(e.EndTime), e.Text, e.Option)
		if err != nil {
			return fmt.Errorf("save entry %d: %w", i, err)
		}
	}
	for i, o := range p.Options {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO options (project_id, position, name, style) VALUES (?, ?, ?, ?)",
			id, i, o.Name, o.Style)
		if err != nil {
			return fmt.Errorf("save option %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	p.ID = id
	p.UpdatedAt = time.Unix(updated.Unix(), 0)
	return nil
}

// Load returns the project saved for videoPath.
func (s *Store) Load(ctx context.Context, videoPath string) (*Project, error) {
	p := &Project{VideoPath: videoPath}
	var (
		duration sql.NullFloat64
		updated  int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, filename, duration, operation_memory, updated_at FROM projects WHERE video_path = ?",
		videoPath).Scan(&p.ID, &p.Filename, &duration, &p.OperationMemory, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	p.Duration = fromNull(duration)
	p.UpdatedAt = time.Unix(updated, 0)

	rows, err := s.db.QueryContext(ctx,
		"SELECT begin_time, end_time, text, option FROM entries WHERE project_id = ? ORDER BY position",
		p.ID)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			e          subtitle.Entry
			begin, end sql.NullFloat64
		)
		if err := rows.Scan(&begin, &end, &e.Text, &e.Option); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.BeginTime, e.EndTime = fromNull(begin), fromNull(end)
		p.Entries = append(p.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}

	optRows, err := s.db.QueryContext(ctx,
		"SELECT name, style FROM options WHERE project_id = ? ORDER BY position", p.ID)
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	defer func() { _ = optRows.Close() }()
	for optRows.Next() {
		var o subtitle.Option
		if err := optRows.Scan(&o.Name, &o.Style); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		p.Options = append(p.Options, o)
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}

	return p, nil
}

// List returns every saved project, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.video_path, p.filename, p.duration, p.updated_at,
			(SELECT COUNT(*) FROM entries e WHERE e.project_id = p.id)
		FROM projects p
		ORDER BY p.updated_at DESC, p.video_path`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Summary
	for rows.Next() {
		var (
			sum      Summary
			duration sql.NullFloat64
			updated  int64
		)
		if err := rows.Scan(&sum.ID, &sum.VideoPath, &sum.Filename, &duration, &updated, &sum.EntryCount); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		sum.Duration = fromNull(duration)
		sum.UpdatedAt = time.Unix(updated, 0)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the project saved for videoPath.
func (s *Store) Delete(ctx context.Context, videoPath string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE video_path = ?", videoPath)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// unset times are stored as NULL
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
