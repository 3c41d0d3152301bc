package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-api/internal/model"
	"github.com/BuzzLyutic/todo-api/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	maxTitleLength          = 255
	maxIdempotencyKeyLength = 255
)

type TaskService struct {
	repo   repo.TaskRepository
	logger *zap.Logger
}

func NewTaskService(repo repo.TaskRepository, logger *zap.Logger) *TaskService {
	return &TaskService{repo: repo, logger: logger}
}

func (s *TaskService) Create(ctx context.Context, ownerID int64, d model.TaskDraft, idempKey string) (model.Task, error) {
	title, err := validateTitle(d.Title) // Валидация модели на корректность введенных данных
	if err != nil {
		return model.Task{}, err
	}
	d.Title = title
	if len(idempKey) > maxIdempotencyKeyLength {
		return model.Task{}, fmt.Errorf("%w: idempotency key is too long", ErrValidation)
	}

	if idempKey != "" { // Обеспечение идемпотентности - если ключ уже использован владельцем, новую задачу не создаем
		if existingID, err := s.repo.GetIdempotencyKey(ctx, ownerID, idempKey); err == nil {
			existing, err := s.repo.Get(ctx, existingID, ownerID)
			if err == nil {
				return existing, nil
			}
			if !errors.Is(err, repo.ErrorNotFound) {
				return model.Task{}, err
			}
		} else if !errors.Is(err, repo.ErrorNotFound) {
			return model.Task{}, err
		}
	}

	task, err := s.repo.Create(ctx, d, ownerID)
	if err != nil {
		return task, err
	}
	s.logger.Info("task created", zap.Int64("task_id", task.ID), zap.Int64("owner_id", ownerID))

	if idempKey != "" {
		if err := s.repo.SaveIdempotencyKey(ctx, ownerID, idempKey, task.ID); err != nil {
			s.logger.Warn("failed to save idempotency key", zap.Int64("task_id", task.ID), zap.Error(err))
		}
	}

	return task, nil
}

// List returns one page of the owner's tasks. An empty page marks the end.
func (s *TaskService) List(ctx context.Context, ownerID int64, skip, limit int) ([]model.Task, error) {
	if skip < 0 {
		return nil, fmt.Errorf("%w: skip must not be negative", ErrValidation)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrValidation)
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return s.repo.List(ctx, ownerID, skip, limit)
}

func (s *TaskService) Get(ctx context.Context, id, ownerID int64) (model.Task, error) {
	return s.repo.Get(ctx, id, ownerID)
}

func (s *TaskService) Update(ctx context.Context, id, ownerID int64, p model.TaskPatch) (model.Task, error) {
	if p.Title != nil {
		title, err := validateTitle(*p.Title)
		if err != nil {
			return model.Task{}, err
		}
		p.Title = &title
	}

	task, err := s.repo.Update(ctx, id, ownerID, p)
	if err != nil {
		return task, err
	}
	s.logger.Info("task updated", zap.Int64("task_id", id), zap.Int64("owner_id", ownerID))
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, id, ownerID int64) (model.Task, error) {
	task, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		return task, err
	}
	s.logger.Info("task deleted", zap.Int64("task_id", id), zap.Int64("owner_id", ownerID))
	return task, nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", fmt.Errorf("%w: title must be at most %d characters", ErrValidation, maxTitleLength)
	}
	return title, nil
}
