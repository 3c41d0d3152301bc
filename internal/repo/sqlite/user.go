package sqlite

import (
	"context"
	"database/sql"

	"github.com/BuzzLyutic/todo-api/internal/model"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash)
	return u, mapError(err)
}

func (r *UserRepo) Create(ctx context.Context, email, passwordHash string) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES (?, ?)
		RETURNING id, email, password_hash
	`, email, passwordHash))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash FROM users WHERE email = ?
	`, email))
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash FROM users WHERE id = ?
	`, id))
}
