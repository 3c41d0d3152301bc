package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/BuzzLyutic/todo-api/internal/auth"
	"github.com/BuzzLyutic/todo-api/internal/model"
	"github.com/BuzzLyutic/todo-api/internal/repo/sqlite"
	"github.com/BuzzLyutic/todo-api/internal/service"
)

type testEnv struct {
	router http.Handler
	users  *service.UserService
	tasks  *service.TaskService
	tokens *auth.TokenService
}

func setupEnv(t *testing.T) *testEnv {
	return setupEnvWithLimit(t, 0, 0)
}

func setupEnvWithLimit(t *testing.T, perSecond float64, burst int) *testEnv {
	t.Helper()

	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	tokens, err := auth.NewTokenService("test-secret", "HS256")
	require.NoError(t, err)

	users := service.NewUserService(
		sqlite.NewUserRepo(db),
		auth.NewPasswordHasher(bcrypt.MinCost),
		tokens,
		time.Hour,
		logger,
	)
	tasks := service.NewTaskService(sqlite.NewTaskRepo(db), logger)

	router := NewRouter(Deps{
		Users:         users,
		Tasks:         tasks,
		Logger:        logger,
		Ping:          db.PingContext,
		AuthRateLimit: perSecond,
		AuthRateBurst: burst,
	})

	return &testEnv{router: router, users: users, tasks: tasks, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) signup(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, "/signup", "", map[string]string{"email": email, "password": password})
}

func (e *testEnv) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// registerUser signs up and logs in, returning the access token.
func (e *testEnv) registerUser(t *testing.T, email string) string {
	t.Helper()
	require.Equal(t, http.StatusOK, e.signup(t, email, "pw").Code)

	w := e.login(t, email, "pw")
	require.Equal(t, http.StatusOK, w.Code)

	var resp tokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.AccessToken
}

func (e *testEnv) createTask(t *testing.T, token string, body any) model.Task {
	t.Helper()
	w := e.do(t, http.MethodPost, "/tasks", token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var task model.Task
	require.NoError(t, json.NewDecoder(w.Body).Decode(&task))
	return task
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func taskPath(id int64) string {
	return fmt.Sprintf("/tasks/%d", id)
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func nopLogger() *zap.Logger {
	return zap.NewNop()
}
