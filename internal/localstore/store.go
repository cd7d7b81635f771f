// Package localstore provides durable on-device persistence for tasks,
// task groups, and scalar settings.
//
// The store is an embedded SQLite database (ncruces/go-sqlite3) opened in
// WAL mode. It exposes whole-collection read/replace/clear operations: at
// the observed scale (dozens to low hundreds of records) the CRUD layer
// works read-modify-write on full collections, and the replace runs inside
// a single transaction so a partial write can never be observed.
//
// The store does no networking. Cloud reconciliation lives in the sync
// engine; this package is its durable substrate.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonahr4/taskapp-sync/internal/model"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Store wraps the SQLite connection with collection-level operations.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates a new store at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// If the database doesn't exist, it is created along with the schema.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	store, err := localstore.Open(filepath.Join(dir, "tasksync.db"))
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("failed to create database directory: %w", err)}
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("failed to ping database: %w", err)}
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := s.conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, &StorageError{Op: "open", Err: fmt.Errorf("%s: %w", pragma, err)}
		}
	}

	if err := s.initSchema(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the on-disk location of the database file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return &StorageError{Op: "close", Err: err}
	}

	s.conn = nil
	return nil
}

// initSchema creates the tables if they don't exist. Idempotent.
func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		notes TEXT,
		location TEXT,
		urgent INTEGER,     -- NULL = uncategorized
		important INTEGER,  -- NULL = uncategorized
		due_date TEXT,
		due_time TEXT,
		auto_escalate_days INTEGER,
		group_id TEXT,
		done INTEGER NOT NULL DEFAULT 0,
		sort_order INTEGER NOT NULL DEFAULT 0,
		pending INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT,
		sort_order INTEGER NOT NULL DEFAULT 0,
		pending INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_group ON tasks(group_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_done ON tasks(done);
	CREATE INDEX IF NOT EXISTS idx_tasks_pending ON tasks(pending);
	CREATE INDEX IF NOT EXISTS idx_tasks_order ON tasks(sort_order);
	CREATE INDEX IF NOT EXISTS idx_groups_order ON groups(sort_order);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return &StorageError{Op: "init schema", Err: err}
	}

	return nil
}

// ReadAllTasks returns every locally stored task, ordered by sort order
// then creation time. An empty database yields an empty slice, not an
// error.
func (s *Store) ReadAllTasks(ctx context.Context) ([]*model.Task, error) {
	query := `
	SELECT id, title, notes, location, urgent, important,
	       due_date, due_time, auto_escalate_days, group_id,
	       done, sort_order, pending, created_at, updated_at
	FROM tasks
	ORDER BY sort_order ASC, created_at ASC
	`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, &StorageError{Op: "read tasks", Err: err}
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, &StorageError{Op: "read tasks", Err: err}
	}
	return tasks, nil
}

// WriteAllTasks replaces the full stored task collection.
//
// The delete and inserts run in one transaction: either the new collection
// is fully persisted or the old one remains intact.
func (s *Store) WriteAllTasks(ctx context.Context, tasks []*model.Task) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "write tasks", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return &StorageError{Op: "write tasks", Err: err}
	}

	insert := `
	INSERT INTO tasks (
		id, title, notes, location, urgent, important,
		due_date, due_time, auto_escalate_days, group_id,
		done, sort_order, pending, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, task := range tasks {
		if err := task.Validate(); err != nil {
			return &StorageError{Op: "write tasks", Err: fmt.Errorf("invalid task %s: %w", task.ID, err)}
		}
		_, err := tx.ExecContext(ctx, insert,
			task.ID,
			task.Title,
			nullIfEmpty(task.Notes),
			nullIfEmpty(task.Location),
			boolToNullInt(task.Urgent),
			boolToNullInt(task.Important),
			nullIfEmpty(task.DueDate),
			nullIfEmpty(task.DueTime),
			intToNullInt(task.AutoEscalateDays),
			nullIfEmpty(task.GroupID),
			task.Done,
			task.Order,
			task.Pending,
			task.CreatedAt.Format(time.RFC3339Nano),
			task.UpdatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return &StorageError{Op: "write tasks", Err: fmt.Errorf("failed to insert task %s: %w", task.ID, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "write tasks", Err: err}
	}
	return nil
}

// ClearTasks removes all stored tasks.
func (s *Store) ClearTasks(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return &StorageError{Op: "clear tasks", Err: err}
	}
	return nil
}

// ReadAllGroups returns every locally stored group, ordered by sort order
// then creation time.
func (s *Store) ReadAllGroups(ctx context.Context) ([]*model.TaskGroup, error) {
	query := `
	SELECT id, name, color, sort_order, pending, created_at
	FROM groups
	ORDER BY sort_order ASC, created_at ASC
	`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, &StorageError{Op: "read groups", Err: err}
	}
	defer rows.Close()

	var groups []*model.TaskGroup
	for rows.Next() {
		var g model.TaskGroup
		var color sql.NullString
		var createdAt string

		if err := rows.Scan(&g.ID, &g.Name, &color, &g.Order, &g.Pending, &createdAt); err != nil {
			return nil, &StorageError{Op: "read groups", Err: err}
		}
		g.Color = color.String
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			g.CreatedAt = ts
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "read groups", Err: err}
	}

	return groups, nil
}

// WriteAllGroups replaces the full stored group collection atomically.
func (s *Store) WriteAllGroups(ctx context.Context, groups []*model.TaskGroup) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "write groups", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM groups"); err != nil {
		return &StorageError{Op: "write groups", Err: err}
	}

	insert := `
	INSERT INTO groups (id, name, color, sort_order, pending, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	for _, g := range groups {
		if err := g.Validate(); err != nil {
			return &StorageError{Op: "write groups", Err: fmt.Errorf("invalid group %s: %w", g.ID, err)}
		}
		_, err := tx.ExecContext(ctx, insert,
			g.ID,
			g.Name,
			nullIfEmpty(g.Color),
			g.Order,
			g.Pending,
			g.CreatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return &StorageError{Op: "write groups", Err: fmt.Errorf("failed to insert group %s: %w", g.ID, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "write groups", Err: err}
	}
	return nil
}

// ClearGroups removes all stored groups.
func (s *Store) ClearGroups(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM groups"); err != nil {
		return &StorageError{Op: "clear groups", Err: err}
	}
	return nil
}

// GetSetting returns the scalar setting for key, or ("", false, nil) when
// the key has never been written.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, &StorageError{Op: "get setting", Err: err}
	}
	return value, true, nil
}

// SetSetting writes the scalar setting for key, replacing any prior value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO settings (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
	`
	if _, err := s.conn.ExecContext(ctx, query, key, value, time.Now().Format(time.RFC3339Nano)); err != nil {
		return &StorageError{Op: "set setting", Err: err}
	}
	return nil
}

// DeleteSetting removes the scalar setting for key. Idempotent.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return &StorageError{Op: "delete setting", Err: err}
	}
	return nil
}

// scanTasks scans task rows into model values.
func scanTasks(rows *sql.Rows) ([]*model.Task, error) {
	var tasks []*model.Task

	for rows.Next() {
		var task model.Task
		var notes, location, dueDate, dueTime, groupID sql.NullString
		var urgent, important, escalate sql.NullInt64
		var createdAt, updatedAt string

		err := rows.Scan(
			&task.ID,
			&task.Title,
			&notes,
			&location,
			&urgent,
			&important,
			&dueDate,
			&dueTime,
			&escalate,
			&groupID,
			&task.Done,
			&task.Order,
			&task.Pending,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		task.Notes = notes.String
		task.Location = location.String
		task.DueDate = dueDate.String
		task.DueTime = dueTime.String
		task.GroupID = groupID.String
		task.Urgent = nullIntToBool(urgent)
		task.Important = nullIntToBool(important)
		if escalate.Valid {
			v := int(escalate.Int64)
			task.AutoEscalateDays = &v
		}

		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			task.CreatedAt = ts
		}
		if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			task.UpdatedAt = ts
		}

		tasks = append(tasks, &task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// nullIfEmpty converts an empty string to NULL for SQL.
func nullIfEmpty(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

// boolToNullInt converts a bool pointer to a nullable integer for SQL.
func boolToNullInt(b *bool) sql.NullInt64 {
	if b == nil {
		return sql.NullInt64{}
	}
	if *b {
		return sql.NullInt64{Int64: 1, Valid: true}
	}
	return sql.NullInt64{Int64: 0, Valid: true}
}

// intToNullInt converts an int pointer to a nullable integer for SQL.
func intToNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// nullIntToBool converts a nullable SQL integer to a bool pointer.
func nullIntToBool(v sql.NullInt64) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Int64 != 0
	return &b
}
