package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tonimelisma/gdrive-files/internal/files"
)

// RoutePrefix is the mount point of the file routes.
const RoutePrefix = "/v1/google_drive_files"

// Deps wires the router to the rest of the program.
type Deps struct {
	NewStore       StoreFactory
	Scheduler      files.Scheduler
	Tokens         TokenValidator // nil disables bearer-token checks
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// NewRouter configures all routes.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)

	router.Get("/health", Health)

	h := &FilesHandler{
		newStore:  deps.NewStore,
		sched:     deps.Scheduler,
		maxUpload: deps.MaxUploadBytes,
		pages:     newPages(RoutePrefix),
		logger:    logger,
	}

	router.Route(RoutePrefix, func(api chi.Router) {
		if deps.Tokens != nil {
			api.Use(bearerAuth(deps.Tokens, logger))
		}

		api.Get("/index/", h.Index)
		api.Get("/files_list/", h.ListFiles)
		api.Get("/files/{file_name}/", h.GetFile)
		api.Post("/files/", h.UploadFile)
		api.Put("/files/", h.UpdateFile)
		api.Patch("/files/", h.MoveFile)
		api.Delete("/files/", h.DeleteFile)
	})

	return router
}
