package repo

import (
	"context"
	"errors"

	"github.com/BuzzLyutic/todo-api/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
)

// TaskRepository определяет интерфейс для работы с задачами.
// Все операции ограничены владельцем: чужая задача неотличима от отсутствующей.
type TaskRepository interface {
	Create(ctx context.Context, d model.TaskDraft, ownerID int64) (model.Task, error)
	List(ctx context.Context, ownerID int64, skip, limit int) ([]model.Task, error)
	Get(ctx context.Context, id, ownerID int64) (model.Task, error)
	Update(ctx context.Context, id, ownerID int64, p model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, id, ownerID int64) (model.Task, error)
	SaveIdempotencyKey(ctx context.Context, ownerID int64, key string, taskID int64) error
	GetIdempotencyKey(ctx context.Context, ownerID int64, key string) (int64, error)
}

// UserRepository хранит пользователей. Уникальность email обеспечивается и здесь.
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
}
