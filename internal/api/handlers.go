package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tonimelisma/gdrive-files/internal/files"
)

// StoreFactory returns a Drive handle for one request. It is called on every
// request; handles are never reused.
type StoreFactory func(ctx context.Context) (files.Store, error)

// FilesHandler serves the /v1/google_drive_files routes.
type FilesHandler struct {
	newStore  StoreFactory
	sched     files.Scheduler
	maxUpload int64
	pages     *pages
	logger    *slog.Logger
}

// service builds the per-request file service.
func (h *FilesHandler) service(w http.ResponseWriter, r *http.Request) (*files.Service, bool) {
	store, err := h.newStore(r.Context())
	if err != nil {
		sendError(w, r, h.logger, err)
		return nil, false
	}

	return files.NewService(store, h.sched, h.logger), true
}

// requireQuery returns the named query parameters, or answers 422 naming
// every missing one.
func requireQuery(w http.ResponseWriter, r *http.Request, names ...string) ([]string, bool) {
	q := r.URL.Query()
	values := make([]string, len(names))

	var missing []string

	for i, name := range names {
		values[i] = q.Get(name)
		if values[i] == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		sendDetail(w, http.StatusUnprocessableEntity,
			"Missing required query parameter: "+strings.Join(missing, ", "))

		return nil, false
	}

	return values, true
}

// pathParam returns a decoded URL parameter. chi matches against RawPath
// when the request has one, which leaves parameters percent-encoded.
func pathParam(r *http.Request, key string) (string, error) {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value, nil
	}

	return url.PathUnescape(value)
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// Index serves the static landing page.
func (h *FilesHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, h.logger, listPage{Title: "Google Drive files"})
}

// ListFiles serves GET /files_list/?folder_name=.
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	folderName := r.URL.Query().Get("folder_name")

	refs, err := svc.ListFiles(r.Context(), folderName)
	if err != nil {
		sendError(w, r, h.logger, err)
		return
	}

	if wantsHTML(r) {
		h.pages.render(w, r, h.logger, listPage{
			Title:  "Google Drive files",
			Folder: folderName,
			Files:  refs,
			Listed: true,
		})

		return
	}

	sendJSON(w, http.StatusOK, refs)
}

// GetFile serves GET /files/{file_name}/?folder_name=.
func (h *FilesHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	fileName, err := pathParam(r, "file_name")
	if err != nil {
		sendDetail(w, http.StatusUnprocessableEntity, "Invalid file name in path")
		return
	}

	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	ref, err := svc.GetFileByName(r.Context(), fileName, r.URL.Query().Get("folder_name"))
	if err != nil {
		sendError(w, r, h.logger, err)
		return
	}

	sendJSON(w, http.StatusOK, ref)
}

// UploadFile serves POST /files/?file_name=&folder_name=.
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	params, ok := requireQuery(w, r, "file_name")
	if !ok {
		return
	}

	content, ok := h.readBody(w, r)
	if !ok {
		return
	}

	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	ack, err := svc.CreateFile(r.Context(), params[0], content, r.URL.Query().Get("folder_name"))
	if err != nil {
		sendError(w, r, h.logger, err)
		return
	}

	sendAck(w, http.StatusCreated, ack)
}

// UpdateFile serves PUT /files/?file_name=&folder_name=.
func (h *FilesHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	params, ok := requireQuery(w, r, "file_name")
	if !ok {
		return
	}

	content, ok := h.readBody(w, r)
	if !ok {
		return
	}

	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	ack, err := svc.UpdateFileContent(r.Context(), params[0], content, r.URL.Query().Get("folder_name"))
	if err != nil {
		sendError(w, r, h.logger, err)
		return
	}

	sendAck(w, http.StatusAccepted, ack)
}

// MoveFile serves PATCH /files/?file_name=&old_folder_name=&new_folder_name=.
func (h *FilesHandler) MoveFile(w http.ResponseWriter, r *http.Request) {
	params, ok := requireQuery(w, r, "file_name", "old_folder_name", "new_folder_name")
	if !ok {
		return
	}

	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	ack, err := svc.MoveFile(r.Context(), params[0], params[1], params[2])
	if err != nil {
		sendError(w, r, h.logger, err)
		return
	}

	sendAck(w, http.StatusAccepted, ack)
}

// DeleteFile serves DELETE /files/?file_name=&folder_name=.
func (h *FilesHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	params, ok := requireQuery(w, r, "file_name")
	if !ok {
		return
	}

	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	ack, err := svc.DeleteFileByName(r.Context(), params[0], r.URL.Query().Get("folder_name"))
	if err != nil {
		sendError(w, r, h.logger, err)
		return
	}

	sendAck(w, http.StatusAccepted, ack)
}

func (h *FilesHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	content, err := readUpload(w, r, h.maxUpload)

	switch {
	case err == nil:
		return content, true
	case errors.Is(err, errUploadTooLarge):
		sendDetail(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, errUploadMissing):
		sendDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Info("unreadable upload", slog.String("error", err.Error()))
		sendDetail(w, http.StatusUnprocessableEntity, "Invalid upload body")
	}

	return nil, false
}

// Health serves GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
