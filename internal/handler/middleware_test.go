package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/todo-api/internal/model"
	"github.com/BuzzLyutic/todo-api/internal/service"
)

type stubAuthenticator struct {
	user model.User
	err  error
	got  string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (model.User, error) {
	s.got = token
	return s.user, s.err
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		wantOK bool
	}{
		{name: "valid", header: "Bearer abc.def.ghi", want: "abc.def.ghi", wantOK: true},
		{name: "lowercase scheme", header: "bearer abc", want: "abc", wantOK: true},
		{name: "extra spaces", header: "Bearer   abc  ", want: "abc", wantOK: true},
		{name: "missing", header: "", wantOK: false},
		{name: "basic auth", header: "Basic dXNlcjpwYXNz", wantOK: false},
		{name: "scheme only", header: "Bearer", wantOK: false},
		{name: "empty token", header: "Bearer   ", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, ok := bearerToken(req)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequireUser(t *testing.T) {
	var seen model.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name     string
		header   string
		stub     *stubAuthenticator
		wantCode int
		wantUser model.User
	}{
		{
			name:     "authenticated",
			header:   "Bearer good",
			stub:     &stubAuthenticator{user: model.User{ID: 3, Email: "a@x.com"}},
			wantCode: http.StatusTeapot,
			wantUser: model.User{ID: 3, Email: "a@x.com"},
		},
		{
			name:     "no header",
			stub:     &stubAuthenticator{},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "rejected token",
			header:   "Bearer bad",
			stub:     &stubAuthenticator{err: service.ErrUnauthorized},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "storage failure",
			header:   "Bearer good",
			stub:     &stubAuthenticator{err: errors.New("db down")},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = model.User{}
			req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			RequireUser(tt.stub, nopLogger())(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantUser, seen)
		})
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)
}

func TestHealth(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	failing := NewRouter(Deps{
		Users:  env.users,
		Tasks:  env.tasks,
		Logger: nopLogger(),
		Ping:   func(context.Context) error { return errors.New("db down") },
	})
	w = httptest.NewRecorder()
	failing.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
