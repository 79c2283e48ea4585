// Package history keeps a local record of run attempts triggered from
// this console. The backend remains the source of truth for results;
// this is the operator's own attempt log.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/benchtop/benchtop/internal/domain"
)

// Attempt is one recorded run attempt
type Attempt struct {
	ID           string
	TaskID       string
	Status       domain.RunStatus
	Success      bool
	Step         string
	Detail       string
	TokensTotal  int
	TokensPrompt int
	Duration     time.Duration
	CreatedAt    time.Time
}

// Store provides SQLite-backed attempt persistence
type Store struct {
	db *sql.DB
}

// New creates a Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one attempt row for a settled run
func (s *Store) Record(taskID string, result *domain.RunResult, elapsed time.Duration) error {
	if result == nil {
		return fmt.Errorf("nil result for task %s", taskID)
	}

	_, err := s.db.Exec(`
		INSERT INTO attempts (id, task_id, status, success, step, detail, tokens_total, tokens_prompt, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(),
		taskID,
		string(result.Status),
		result.Success,
		result.Step,
		result.Detail,
		result.TokenUsage.Total,
		result.TokenUsage.Prompt,
		elapsed.Milliseconds(),
		time.Now(),
	)
	return err
}

// ListOptions filters attempt listings
type ListOptions struct {
	TaskID string
	Limit  int
}

// List returns attempts, most recent first
func (s *Store) List(opts ListOptions) ([]*Attempt, error) {
	query := `SELECT id, task_id, status, success, step, detail, tokens_total, tokens_prompt, duration_ms, created_at FROM attempts WHERE 1=1`
	var args []interface{}

	if opts.TaskID != "" {
		query += " AND task_id = ?"
		args = append(args, opts.TaskID)
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		var a Attempt
		var status string
		var durationMs int64
		err := rows.Scan(&a.ID, &a.TaskID, &status, &a.Success, &a.Step, &a.Detail,
			&a.TokensTotal, &a.TokensPrompt, &durationMs, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		a.Status = domain.RunStatus(status)
		a.Duration = time.Duration(durationMs) * time.Millisecond
		attempts = append(attempts, &a)
	}

	return attempts, rows.Err()
}

// CountByOutcome returns how many recorded attempts passed, failed
// evaluation, and errored for a task (empty task id means all tasks)
func (s *Store) CountByOutcome(taskID string) (passed, failed, errored int, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = ? AND success THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? AND NOT success THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM attempts`
	args := []interface{}{string(domain.RunCompleted), string(domain.RunCompleted), string(domain.RunError)}

	if taskID != "" {
		query += " WHERE task_id = ?"
		args = append(args, taskID)
	}

	err = s.db.QueryRow(query, args...).Scan(&passed, &failed, &errored)
	return passed, failed, errored, err
}
