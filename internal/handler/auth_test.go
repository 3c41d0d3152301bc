package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/todo-api/internal/model"
)

func TestAuthHandler_Signup(t *testing.T) {
	env := setupEnv(t)

	t.Run("success", func(t *testing.T) {
		w := env.signup(t, "a@x.com", "pw")
		require.Equal(t, http.StatusOK, w.Code)

		user := decode[map[string]any](t, w)
		assert.Equal(t, "a@x.com", user["email"])
		assert.NotZero(t, user["id"])
		assert.NotContains(t, user, "password_hash")
		assert.Len(t, user, 2)
	})

	t.Run("duplicate email", func(t *testing.T) {
		w := env.signup(t, "a@x.com", "other")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Email already registered", decode[map[string]string](t, w)["error"])
	})

	t.Run("validation errors", func(t *testing.T) {
		tests := []struct {
			name string
			body any
		}{
			{name: "invalid json", body: "{"},
			{name: "missing email", body: map[string]string{"password": "pw"}},
			{name: "bad email", body: map[string]string{"email": "nope", "password": "pw"}},
			{name: "missing password", body: map[string]string{"email": "b@x.com"}},
			{name: "password too long", body: map[string]string{"email": "c@x.com", "password": strings.Repeat("p", 80)}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := env.do(t, http.MethodPost, "/signup", "", tt.body)
				assert.Equal(t, http.StatusBadRequest, w.Code)
			})
		}
	})
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupEnv(t)
	require.Equal(t, http.StatusOK, env.signup(t, "a@x.com", "pw").Code)

	t.Run("success", func(t *testing.T) {
		w := env.login(t, "a@x.com", "pw")
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[tokenResponse](t, w)
		assert.Equal(t, "bearer", resp.TokenType)

		id, err := env.tokens.Verify(resp.AccessToken)
		require.NoError(t, err)
		user, err := env.users.GetByEmail(t.Context(), "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, id)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		wrong := env.login(t, "a@x.com", "nope")
		unknown := env.login(t, "nobody@x.com", "pw")

		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, wrong.Body.String(), unknown.Body.String())
		assert.Equal(t, "Bearer", wrong.Header().Get("WWW-Authenticate"))
	})

	t.Run("padded email as at signup", func(t *testing.T) {
		require.Equal(t, http.StatusOK, env.signup(t, " padded@x.com ", "pw").Code)
		assert.Equal(t, http.StatusOK, env.login(t, " padded@x.com ", "pw").Code)
		assert.Equal(t, http.StatusOK, env.login(t, "padded@x.com", "pw").Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := env.login(t, "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("json body is not a form", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/login", "", map[string]string{"username": "a@x.com", "password": "pw"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuth_RateLimit(t *testing.T) {
	env := setupEnvWithLimit(t, 0.001, 2)

	assert.Equal(t, http.StatusUnauthorized, env.login(t, "a@x.com", "pw").Code)
	assert.Equal(t, http.StatusUnauthorized, env.login(t, "a@x.com", "pw").Code)

	w := env.login(t, "a@x.com", "pw")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// task routes are not limited
	token, err := env.tokens.Issue(1, 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.NotEqual(t, http.StatusTooManyRequests, env.do(t, http.MethodGet, "/tasks", token, nil).Code)
	}
}

func TestAuth_RateLimit_IgnoresForwardedHeaders(t *testing.T) {
	env := setupEnvWithLimit(t, 0.001, 2)

	loginFrom := func(router http.Handler, forwarded string) int {
		form := url.Values{"username": {"a@x.com"}, "password": {"pw"}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", forwarded)
		req.Header.Set("X-Real-IP", forwarded)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	// заголовки от клиента не дают обойти лимит
	assert.NotEqual(t, http.StatusTooManyRequests, loginFrom(env.router, "10.0.0.1"))
	assert.NotEqual(t, http.StatusTooManyRequests, loginFrom(env.router, "10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(env.router, "10.0.0.3"))

	// behind a trusted proxy each forwarded client gets its own bucket
	proxied := NewRouter(Deps{
		Users:             env.users,
		Tasks:             env.tasks,
		Logger:            nopLogger(),
		AuthRateLimit:     0.001,
		AuthRateBurst:     1,
		TrustProxyHeaders: true,
	})
	assert.NotEqual(t, http.StatusTooManyRequests, loginFrom(proxied, "10.0.0.1"))
	assert.NotEqual(t, http.StatusTooManyRequests, loginFrom(proxied, "10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(proxied, "10.0.0.1"))
}

func TestUserView_HidesHash(t *testing.T) {
	view := model.User{ID: 1, Email: "a@x.com", PasswordHash: "secret"}.View()
	assert.Equal(t, model.UserView{ID: 1, Email: "a@x.com"}, view)
}
