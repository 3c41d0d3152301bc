// Package client is a typed HTTP client for the todo API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BuzzLyutic/todo-api/internal/model"
)

const (
	defaultPageSize = 10
	// maxPageSize matches the server-side clamp on limit.
	maxPageSize = 100
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of the client that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) Signup(ctx context.Context, email, password string) (model.UserView, error) {
	var user model.UserView
	body := map[string]string{"email": email, "password": password}
	err := c.doJSON(ctx, http.MethodPost, "/signup", body, &user)
	return user, err
}

// Login exchanges credentials for an access token. The server expects a form body.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{"username": {email}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

func (c *Client) CreateTask(ctx context.Context, d model.TaskDraft) (model.Task, error) {
	body := map[string]any{"title": d.Title}
	if d.Description != nil {
		body["description"] = *d.Description
	}
	if d.DueDate != nil {
		body["due_date"] = d.DueDate.UTC().Format(time.RFC3339Nano)
	}

	var task model.Task
	err := c.doJSON(ctx, http.MethodPost, "/tasks", body, &task)
	return task, err
}

func (c *Client) ListTasks(ctx context.Context, skip, limit int) ([]model.Task, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))

	var tasks []model.Task
	err := c.doJSON(ctx, http.MethodGet, "/tasks?"+q.Encode(), nil, &tasks)
	return tasks, err
}

// AllTasks pages through the caller's tasks until a short or empty page.
// Page sizes above the server maximum are clamped to it.
func (c *Client) AllTasks(ctx context.Context, pageSize int) ([]model.Task, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)

	var all []model.Task
	for skip := 0; ; {
		page, err := c.ListTasks(ctx, skip, pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		skip += len(page)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

func (c *Client) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var task model.Task
	err := c.doJSON(ctx, http.MethodGet, taskPath(id), nil, &task)
	return task, err
}

// UpdateTask sends only the fields set in p. Description and DueDate may be
// cleared with model.Null.
func (c *Client) UpdateTask(ctx context.Context, id int64, p model.TaskPatch) (model.Task, error) {
	body := map[string]any{}
	if p.Title != nil {
		body["title"] = *p.Title
	}
	if p.Description.Set {
		body["description"] = p.Description.Ptr()
	}
	if p.DueDate.Set {
		if p.DueDate.Null {
			body["due_date"] = nil
		} else {
			body["due_date"] = p.DueDate.Value.UTC().Format(time.RFC3339Nano)
		}
	}
	if p.Done != nil {
		body["done"] = *p.Done
	}

	var task model.Task
	err := c.doJSON(ctx, http.MethodPut, taskPath(id), body, &task)
	return task, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
