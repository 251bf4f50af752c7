// Package local implements service.Service on an embedded SQLite database.
// Tasks belong to the signed-in account, as on the hosted backend.
package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"todo/internal/logging"
	"todo/internal/service"
)

// Store implements service.Service and service.Authenticator.
type Store struct {
	db          *sql.DB
	sessionPath string
	logger      *log.Logger

	userID  int64
	session *service.Session

	now func() time.Time
}

// Options configures a Store.
type Options struct {
	// Database is the SQLite path or ":memory:".
	Database string

	// SessionPath persists the signed-in account. Empty keeps it in memory only.
	SessionPath string

	Logger *log.Logger
}

// Open opens the database, applies migrations and restores the session.
func Open(opts Options) (*Store, error) {
	if opts.Database == "" {
		return nil, errors.New("local backend: no database configured")
	}
	db, err := openDatabase(opts.Database)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:          db,
		sessionPath: opts.SessionPath,
		logger:      opts.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if err := s.restore(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) requireUser() error {
	if s.userID == 0 {
		return service.ErrNotLoggedIn
	}
	return nil
}

// ListTasks implements service.Service, oldest first.
func (s *Store) ListTasks(ctx context.Context) ([]service.Task, error) {
	if err := s.requireUser(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, category, completed, timestamp FROM task WHERE user_id = ? ORDER BY timestamp, id`,
		s.userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []service.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (service.Task, error) {
	var (
		id        int64
		t         service.Task
		category  string
		timestamp time.Time
	)
	if err := row.Scan(&id, &t.Description, &category, &t.Completed, &timestamp); err != nil {
		return service.Task{}, err
	}
	t.ID = strconv.FormatInt(id, 10)
	t.Category = service.Category(category)
	t.Created = timestamp.UTC()
	return t, nil
}

// CreateTask implements service.Service.
func (s *Store) CreateTask(ctx context.Context, description string, category service.Category) (service.Task, error) {
	if err := s.requireUser(); err != nil {
		return service.Task{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO task (user_id, description, category, completed, timestamp) VALUES (?, ?, ?, 0, ?)`,
		s.userID, description, string(category), s.now())
	if err != nil {
		return service.Task{}, fmt.Errorf("create task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return service.Task{}, err
	}
	s.logger.Debug("task created", "id", id)
	return s.get(ctx, id)
}

func (s *Store) get(ctx context.Context, id int64) (service.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, description, category, completed, timestamp FROM task WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Task{}, service.ErrNotFound
	}
	return t, err
}

// owned resolves id and checks it belongs to the signed-in user.
func (s *Store) owned(ctx context.Context, id string) (int64, error) {
	if err := s.requireUser(); err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid task id %q", service.ErrNotFound, id)
	}
	var owner int64
	err = s.db.QueryRowContext(ctx, `SELECT user_id FROM task WHERE id = ?`, n).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, service.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if owner != s.userID {
		return 0, service.ErrUnauthorized
	}
	return n, nil
}

// UpdateTask implements service.Service.
func (s *Store) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	n, err := s.owned(ctx, id)
	if err != nil {
		return service.Task{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return service.Task{}, err
	}
	defer tx.Rollback()

	if patch.Description != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE task SET description = ? WHERE id = ?`, *patch.Description, n); err != nil {
			return service.Task{}, fmt.Errorf("update task: %w", err)
		}
	}
	if patch.Category != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE task SET category = ? WHERE id = ?`, string(*patch.Category), n); err != nil {
			return service.Task{}, fmt.Errorf("update task: %w", err)
		}
	}
	if patch.Completed != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE task SET completed = ? WHERE id = ?`, *patch.Completed, n); err != nil {
			return service.Task{}, fmt.Errorf("update task: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return service.Task{}, err
	}
	return s.get(ctx, n)
}

// DeleteTask implements service.Service.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	n, err := s.owned(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM task WHERE id = ?`, n); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
