package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/gdrive-files/internal/files"
	"github.com/tonimelisma/gdrive-files/internal/gdrive"
	"github.com/tonimelisma/gdrive-files/internal/tasks"
)

// TaskIDHeader carries the id of the background task a write was queued as.
const TaskIDHeader = "X-Task-ID"

// Detail is the body of acknowledgments and errors.
type Detail struct {
	Detail string `json:"Detail"`
}

// sendJSON sends a JSON response with the given status code and data.
func sendJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// sendDetail sends {"Detail": message}.
func sendDetail(w http.ResponseWriter, statusCode int, message string) {
	sendJSON(w, statusCode, Detail{Detail: message})
}

// sendAck acknowledges a queued write.
func sendAck(w http.ResponseWriter, statusCode int, ack files.Ack) {
	w.Header().Set(TaskIDHeader, ack.Task.ID)
	sendDetail(w, statusCode, ack.Detail)
}

// sendError maps a service error onto a status code and detail message.
func sendError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, message := classify(err)

	attrs := []any{
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("path", r.URL.Path),
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	sendDetail(w, status, message)
}

func classify(err error) (int, string) {
	var resolveErr *files.ResolveError
	if errors.As(err, &resolveErr) {
		if errors.Is(resolveErr, files.ErrConflict) {
			return http.StatusConflict, "Your folders or files are duplicated by name. Please remove duplicate items"
		}

		return http.StatusNotFound, resolveErr.Error()
	}

	switch {
	case errors.Is(err, gdrive.ErrNotLoggedIn):
		return http.StatusServiceUnavailable, "Not signed in to Google Drive. Run: gdrive-files login"
	case errors.Is(err, tasks.ErrClosed):
		return http.StatusServiceUnavailable, "Server is shutting down, try again later"
	}

	var opErr *files.OpError
	if errors.As(err, &opErr) && opErr.Kind == files.InvalidExecutionRequest {
		return http.StatusInternalServerError,
			fmt.Sprintf("Something went wrong while querying Google Drive. Detail: %v", opErr.Err)
	}

	return http.StatusInternalServerError, "Internal server error"
}
