package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-api/internal/model"
	"github.com/BuzzLyutic/todo-api/internal/repo"
	"github.com/BuzzLyutic/todo-api/internal/service"
	"github.com/BuzzLyutic/todo-api/pkg/respond"
)

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

type createTaskRequest struct {
	Title       string           `json:"title"`
	Description *string          `json:"description"`
	DueDate     *model.Timestamp `json:"due_date"`
}

func (req createTaskRequest) draft() model.TaskDraft {
	d := model.TaskDraft{Title: req.Title, Description: req.Description}
	if req.DueDate != nil {
		due := req.DueDate.Time
		d.DueDate = &due
	}
	return d
}

type updateTaskRequest struct {
	Title       *string                         `json:"title"`
	Description model.Nullable[string]          `json:"description"`
	DueDate     model.Nullable[model.Timestamp] `json:"due_date"`
	Done        *bool                           `json:"done"`
}

func (req updateTaskRequest) patch() model.TaskPatch {
	p := model.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Done:        req.Done,
	}
	switch {
	case !req.DueDate.Set:
	case req.DueDate.Null:
		p.DueDate = model.Null[time.Time]()
	default:
		p.DueDate = model.Some(req.DueDate.Value.Time)
	}
	return p
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	if r.ContentLength == 0 {
		respond.Error(w, r, http.StatusBadRequest, "empty request body")
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("failed to decode json", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}

	idempKey := r.Header.Get("Idempotency-Key")
	task, err := h.service.Create(r.Context(), user.ID, req.draft(), idempKey)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/tasks/%d", task.ID))
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	id, ok := taskID(r)
	if !ok {
		handleErrors(w, r, h.logger, repo.ErrorNotFound)
		return
	}

	task, err := h.service.Get(r.Context(), id, user.ID)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	limit, err := queryInt(r, "limit", service.DefaultPageSize)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	tasks, err := h.service.List(r.Context(), user.ID, skip, limit)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	id, ok := taskID(r)
	if !ok {
		handleErrors(w, r, h.logger, repo.ErrorNotFound)
		return
	}

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}

	task, err := h.service.Update(r.Context(), id, user.ID, req.patch())
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	id, ok := taskID(r)
	if !ok {
		handleErrors(w, r, h.logger, repo.ErrorNotFound)
		return
	}

	if _, err := h.service.Delete(r.Context(), id, user.ID); err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.Message(w, r, http.StatusOK, "Task deleted")
}

// taskID parses the {id} route parameter; a malformed id is treated as absent.
func taskID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", service.ErrValidation, key)
	}
	return v, nil
}
