package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/todo-api/internal/model"
)

const taskColumns = "id, title, description, due_date, done, owner_id"

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo { // Конструктор
	return &TaskRepo{
		pool: pool,
	}
}

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Done, &t.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	if t.DueDate != nil {
		due := t.DueDate.UTC() // pgx отдает timestamptz в локальной зоне процесса
		t.DueDate = &due
	}
	return t, err
}

func (r *TaskRepo) Create(ctx context.Context, d model.TaskDraft, ownerID int64) (model.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, due_date, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+taskColumns,
		d.Title, d.Description, d.DueDate, ownerID,
	))
	return t, mapError(err)
}

func (r *TaskRepo) List(ctx context.Context, ownerID int64, skip, limit int) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE owner_id = $1
		ORDER BY id
		OFFSET $2
		LIMIT $3
	`, ownerID, skip, limit)
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
	return scanTask(r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID))
}

// Update применяет только переданные поля одним UPDATE, так что
// чтение-изменение-запись не разрывается конкурентным запросом.
func (r *TaskRepo) Update(ctx context.Context, id, ownerID int64, p model.TaskPatch) (model.Task, error) {
	if p.Empty() {
		return r.Get(ctx, id, ownerID)
	}

	sets := []string{"updated_at = now()"}
	args := []any{id, ownerID}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description.Set {
		add("description", p.Description.Ptr())
	}
	if p.DueDate.Set {
		add("due_date", p.DueDate.Ptr())
	}
	if p.Done != nil {
		add("done", *p.Done)
	}

	t, err := scanTask(r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET `+strings.Join(sets, ", ")+`
		WHERE id = $1 AND owner_id = $2
		RETURNING `+taskColumns,
		args...,
	))
	return t, mapError(err)
}

func (r *TaskRepo) Delete(ctx context.Context, id, ownerID int64) (model.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `
		DELETE FROM tasks
		WHERE id = $1 AND owner_id = $2
		RETURNING `+taskColumns,
		id, ownerID,
	))
}

// SaveIdempotencyKey binds key to taskID. A key whose task still exists keeps
// its first binding; a key left pointing at a deleted task is rebound.
func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, ownerID int64, key string, taskID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (owner_id, key, task_id) VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, key) DO UPDATE
		SET task_id = EXCLUDED.task_id, created_at = now()
		WHERE NOT EXISTS (SELECT 1 FROM tasks WHERE tasks.id = idempotency_keys.task_id)
	`, ownerID, key, taskID)
	return err
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, ownerID int64, key string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT task_id FROM idempotency_keys WHERE owner_id = $1 AND key = $2
	`, ownerID, key).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrorNotFound
	}
	return id, err
}

// PurgeIdempotencyKeys deletes keys recorded before cutoff and reports how many went.
func (r *TaskRepo) PurgeIdempotencyKeys(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // unique_violation
			return ErrorConflict
		}
	}
	return err
}
