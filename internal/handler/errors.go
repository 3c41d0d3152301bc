package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-api/internal/repo"
	"github.com/BuzzLyutic/todo-api/internal/service"
	"github.com/BuzzLyutic/todo-api/pkg/respond"
)

const (
	msgTaskNotFound       = "Task not found"
	msgDuplicateEmail     = "Email already registered"
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidToken       = "Invalid token"
	msgNotAuthenticated   = "Not authenticated"
)

// handleErrors maps service and repository errors to HTTP responses.
// Anything unrecognised is logged and reported as a 500.
func handleErrors(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, msgTaskNotFound)
	case errors.Is(err, service.ErrDuplicateEmail):
		respond.Error(w, r, http.StatusBadRequest, msgDuplicateEmail)
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		unauthorized(w, r, msgInvalidCredentials)
	default:
		logger.Error("internal error",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	respond.Error(w, r, http.StatusUnauthorized, message)
}
