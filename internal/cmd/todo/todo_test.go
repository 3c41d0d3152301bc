package todo

import (
	"bytes"
	"context"
	"flag"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/BuzzLyutic/todo-api/internal/auth"
	"github.com/BuzzLyutic/todo-api/internal/client"
	"github.com/BuzzLyutic/todo-api/internal/handler"
	"github.com/BuzzLyutic/todo-api/internal/repo/sqlite"
	"github.com/BuzzLyutic/todo-api/internal/service"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		want    Config
		wantErr bool
	}{
		{
			name: "defaults",
			args: []string{"list"},
			want: Config{Server: defaultServer, Command: "list", Args: []string{}},
		},
		{
			name: "env",
			args: []string{"rm", "3"},
			env:  map[string]string{"TODO_SERVER": "http://api:9000", "TODO_TOKEN": "tok"},
			want: Config{Server: "http://api:9000", Token: "tok", Command: "rm", Args: []string{"3"}},
		},
		{
			name: "flags override env",
			args: []string{"-server", "http://other", "-token", "flag-tok", "done", "1"},
			env:  map[string]string{"TODO_SERVER": "http://api:9000", "TODO_TOKEN": "tok"},
			want: Config{Server: "http://other", Token: "flag-tok", Command: "done", Args: []string{"1"}},
		},
		{
			name:    "no command",
			args:    []string{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("todo", flag.ContinueOnError)
			fs.SetOutput(io.Discard)
			lookup := func(key string) (string, bool) {
				v, ok := tt.env[key]
				return v, ok
			}

			got, err := ParseConfig(fs, tt.args, lookup)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUsage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type cli struct {
	server string
	token  string
}

func setupCLI(t *testing.T) *cli {
	t.Helper()

	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	tokens, err := auth.NewTokenService("cli-secret", "HS256")
	require.NoError(t, err)

	server := httptest.NewServer(handler.NewRouter(handler.Deps{
		Users:  service.NewUserService(sqlite.NewUserRepo(db), auth.NewPasswordHasher(bcrypt.MinCost), tokens, time.Hour, logger),
		Tasks:  service.NewTaskService(sqlite.NewTaskRepo(db), logger),
		Logger: logger,
	}))
	t.Cleanup(server.Close)

	return &cli{server: server.URL}
}

func (c *cli) run(t *testing.T, command string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := Run(context.Background(), Config{
		Server:  c.server,
		Token:   c.token,
		Command: command,
		Args:    args,
	}, &out, io.Discard)
	return out.String(), err
}

func (c *cli) mustRun(t *testing.T, command string, args ...string) string {
	t.Helper()
	out, err := c.run(t, command, args...)
	require.NoError(t, err)
	return out
}

func (c *cli) loginAs(t *testing.T, email string) {
	t.Helper()
	c.mustRun(t, "signup", email, "pw")
	c.token = strings.TrimSpace(c.mustRun(t, "login", email, "pw"))
	require.NotEmpty(t, c.token)
}

func TestRun_Workflow(t *testing.T) {
	c := setupCLI(t)

	out := c.mustRun(t, "signup", "a@x.com", "pw")
	assert.Contains(t, out, "registered a@x.com")

	c.token = strings.TrimSpace(c.mustRun(t, "login", "a@x.com", "pw"))

	out = c.mustRun(t, "add", "-desc", "2 liters", "-due", "2025-06-01", "Buy", "milk")
	assert.Equal(t, "added task 1\n", out)

	out = c.mustRun(t, "list")
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "2 liters")
	assert.Contains(t, out, "2025-06-01 00:00:00")
	assert.Contains(t, out, "[ ]")

	assert.Equal(t, "task 1 is done\n", c.mustRun(t, "done", "1"))
	assert.Contains(t, c.mustRun(t, "list"), "[x]")
	assert.Equal(t, "task 1 is open\n", c.mustRun(t, "undone", "1"))

	assert.Equal(t, "updated task 1\n", c.mustRun(t, "edit", "1", "-title", "Buy oat milk", "-clear-desc"))
	out = c.mustRun(t, "list")
	assert.Contains(t, out, "Buy oat milk")
	assert.NotContains(t, out, "2 liters")

	assert.Equal(t, "deleted task 1\n", c.mustRun(t, "rm", "1"))
	assert.Equal(t, "no tasks\n", c.mustRun(t, "list"))

	_, err := c.run(t, "rm", "1")
	assert.True(t, client.IsNotFound(err))
}

func TestRun_AddRejectsDuplicateTitle(t *testing.T) {
	c := setupCLI(t)
	c.loginAs(t, "a@x.com")

	c.mustRun(t, "add", "Buy milk")

	_, err := c.run(t, "add", "  BUY MILK ")
	assert.ErrorIs(t, err, ErrDuplicateTitle)

	// Другой пользователь может завести задачу с тем же названием
	other := &cli{server: c.server}
	other.loginAs(t, "b@x.com")
	other.mustRun(t, "add", "Buy milk")
}

func TestRun_ListPage(t *testing.T) {
	c := setupCLI(t)
	c.loginAs(t, "a@x.com")

	for _, title := range []string{"one", "two", "three"} {
		c.mustRun(t, "add", title)
	}

	out := c.mustRun(t, "list", "-page", "2", "-size", "2")
	assert.Contains(t, out, "three")
	assert.NotContains(t, out, "one")

	assert.Equal(t, "no tasks\n", c.mustRun(t, "list", "-page", "3", "-size", "2"))
}

func TestRun_UsageErrors(t *testing.T) {
	c := setupCLI(t)

	tests := []struct {
		command string
		args    []string
	}{
		{command: "bogus"},
		{command: "signup", args: []string{"a@x.com"}},
		{command: "login"},
		{command: "add"},
		{command: "done", args: []string{"abc"}},
		{command: "done", args: []string{"0"}},
		{command: "rm"},
		{command: "edit", args: []string{"1"}},
		{command: "edit"},
		{command: "list", args: []string{"-page", "-1"}},
		{command: "list", args: []string{"-size", "200"}},
	}

	for _, tt := range tests {
		t.Run(tt.command+" "+strings.Join(tt.args, " "), func(t *testing.T) {
			_, err := c.run(t, tt.command, tt.args...)
			assert.ErrorIs(t, err, ErrUsage)
		})
	}
}

func TestRun_RequiresToken(t *testing.T) {
	c := setupCLI(t)

	_, err := c.run(t, "list")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
}
