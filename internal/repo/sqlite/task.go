package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BuzzLyutic/todo-api/internal/model"
)

const taskColumns = "id, title, description, due_date, done, owner_id"

type TaskRepo struct {
	db *sql.DB
}

func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (model.Task, error) {
	var (
		t       model.Task
		dueDate sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &dueDate, &t.Done, &t.OwnerID); err != nil {
		return t, mapError(err)
	}
	due, err := parseTime(dueDate)
	if err != nil {
		return t, err
	}
	t.DueDate = due
	return t, nil
}

func (r *TaskRepo) Create(ctx context.Context, d model.TaskDraft, ownerID int64) (model.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx, `
		INSERT INTO tasks (title, description, due_date, owner_id)
		VALUES (?, ?, ?, ?)
		RETURNING `+taskColumns,
		d.Title, d.Description, formatTime(d.DueDate), ownerID,
	))
}

func (r *TaskRepo) List(ctx context.Context, ownerID int64, skip, limit int) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE owner_id = ?
		ORDER BY id
		LIMIT ? OFFSET ?
	`, ownerID, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0, limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) Get(ctx context.Context, id, ownerID int64) (model.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = ? AND owner_id = ?
	`, id, ownerID))
}

// Update reads, patches and writes the row inside one transaction.
func (r *TaskRepo) Update(ctx context.Context, id, ownerID int64, p model.TaskPatch) (model.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	current, err := scanTask(tx.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = ? AND owner_id = ?
	`, id, ownerID))
	if err != nil {
		return current, err
	}
	if p.Empty() {
		return current, nil
	}

	next := p.Apply(current)
	updated, err := scanTask(tx.QueryRowContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, due_date = ?, done = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND owner_id = ?
		RETURNING `+taskColumns,
		next.Title, next.Description, formatTime(next.DueDate), next.Done, id, ownerID,
	))
	if err != nil {
		return updated, err
	}
	return updated, tx.Commit()
}

func (r *TaskRepo) Delete(ctx context.Context, id, ownerID int64) (model.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx, `
		DELETE FROM tasks
		WHERE id = ? AND owner_id = ?
		RETURNING `+taskColumns,
		id, ownerID,
	))
}

// SaveIdempotencyKey binds key to taskID. A key whose task still exists keeps
// its first binding; a key left pointing at a deleted task is rebound.
func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, ownerID int64, key string, taskID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (owner_id, key, task_id, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (owner_id, key) DO UPDATE
		SET task_id = excluded.task_id, created_at = excluded.created_at
		WHERE NOT EXISTS (SELECT 1 FROM tasks WHERE tasks.id = idempotency_keys.task_id)
	`, ownerID, key, taskID, keyTime(time.Now()))
	return err
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, ownerID int64, key string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		SELECT task_id FROM idempotency_keys WHERE owner_id = ? AND key = ?
	`, ownerID, key).Scan(&id)
	return id, mapError(err)
}

// keyTime uses a fixed-width layout so created_at compares correctly as text.
func keyTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05.000000")
}

// PurgeIdempotencyKeys deletes keys recorded before cutoff and reports how many went.
func (r *TaskRepo) PurgeIdempotencyKeys(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE created_at < ?`, keyTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
