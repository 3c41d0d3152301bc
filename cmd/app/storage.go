package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-api/internal/repo"
	"github.com/BuzzLyutic/todo-api/internal/repo/sqlite"
	"github.com/BuzzLyutic/todo-api/internal/worker"
	"github.com/BuzzLyutic/todo-api/migrations"
)

type storage struct {
	users  repo.UserRepository
	tasks  repo.TaskRepository
	purger worker.KeyPurger
	ping   func(ctx context.Context) error
	close  func()
}

// openStorage выбирает бэкенд по схеме DATABASE_URL: sqlite:// или postgres://.
func openStorage(ctx context.Context, databaseURL string, logger *zap.Logger) (*storage, error) {
	if path, ok := sqlite.PathFromURL(databaseURL); ok {
		db, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		logger.Info("Using SQLite storage", zap.String("path", path))
		tasks := sqlite.NewTaskRepo(db)
		return &storage{
			users:  sqlite.NewUserRepo(db),
			tasks:  tasks,
			purger: tasks,
			ping:   db.PingContext,
			close:  func() { db.Close() },
		}, nil
	}

	pool, err := pgxpool.New(ctx, databaseURL) // Создаем новое соединение к БД
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil { // Пытаемся пингануть БД
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrations.Apply(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("Successfully connected to the Database!")

	tasks := repo.NewTaskRepo(pool)
	return &storage{
		users:  repo.NewUserRepo(pool),
		tasks:  tasks,
		purger: tasks,
		ping:   pool.Ping,
		close:  pool.Close,
	}, nil
}
