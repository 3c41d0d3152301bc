package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-api/internal/auth"
	"github.com/BuzzLyutic/todo-api/internal/model"
	"github.com/BuzzLyutic/todo-api/internal/repo"
)

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrUnauthorized   = errors.New("unauthorized")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type TokenIssuer interface {
	Issue(subjectID int64, ttl time.Duration) (string, error)
	Verify(token string) (int64, error)
}

// UserService - каталог пользователей: регистрация, вход и проверка токена.
type UserService struct {
	repo     repo.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	tokenTTL time.Duration
	logger   *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(repo repo.UserRepository, hasher PasswordHasher, tokens TokenIssuer, tokenTTL time.Duration, logger *zap.Logger) *UserService {
	return &UserService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// Signup registers a new user. The email is checked up front; a concurrent
// signup that slips past the check is caught by the storage constraint.
func (s *UserService) Signup(ctx context.Context, email, password string) (model.User, error) {
	email, err := validateEmail(email)
	if err != nil {
		return model.User{}, err
	}
	if password == "" {
		return model.User{}, fmt.Errorf("%w: password must not be empty", ErrValidation)
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		s.logger.Warn("email already registered", zap.String("email", email))
		return model.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, repo.ErrorNotFound) {
		return model.User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return model.User{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err != nil {
		return model.User{}, err
	}

	user, err := s.repo.Create(ctx, email, hash)
	if errors.Is(err, repo.ErrorConflict) {
		return model.User{}, ErrDuplicateEmail
	}
	if err != nil {
		return model.User{}, err
	}

	s.logger.Info("user created", zap.Int64("user_id", user.ID), zap.String("email", user.Email))
	return user, nil
}

// Login verifies credentials and issues an access token. Unknown email and
// wrong password both yield ErrUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email) // как и при регистрации
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repo.ErrorNotFound) {
		return "", err
	}

	if err != nil {
		// сравниваем с фиктивным хэшем, чтобы время ответа не выдавало наличие email
		s.hasher.Verify(password, s.fallbackHash())
		s.logger.Warn("login failed", zap.String("email", email))
		return "", ErrUnauthorized
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Warn("login failed", zap.String("email", email))
		return "", ErrUnauthorized
	}

	token, err := s.tokens.Issue(user.ID, s.tokenTTL)
	if err != nil {
		return "", err
	}
	s.logger.Info("login successful", zap.Int64("user_id", user.ID))
	return token, nil
}

// Authenticate resolves a bearer token to an existing user.
func (s *UserService) Authenticate(ctx context.Context, token string) (model.User, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug("token rejected", zap.Error(err))
		return model.User{}, ErrUnauthorized
	}

	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repo.ErrorNotFound) {
		s.logger.Warn("token subject does not exist", zap.Int64("user_id", id))
		return model.User{}, ErrUnauthorized
	}
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) GetByID(ctx context.Context, id int64) (model.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) fallbackHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			s.logger.Error("failed to prepare fallback hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func validateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return email, nil
}
