package users

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Avi-Nandwani/vercel-backend/internal/observability"
	"github.com/Avi-Nandwani/vercel-backend/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the user directory.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	exportDir string
	metrics   *observability.Metrics
}

// NewHandler constructs a Handler instance. Metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, exportDir string, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		exportDir: exportDir,
		metrics:   metrics,
	}
}

// MountRoutes registers the user directory routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/export", h.Export)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListUsersRequest{Search: r.URL.Query().Get("search")}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		req.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		req.Limit = v
	}

	resp, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	user, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	user, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "User removed"})
}

// Export streams all matching users as a CSV download. The CSV is staged as a
// transient file which is removed on every exit path, including client
// disconnects mid-transfer.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Export(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.metrics.CountExport("empty")
		} else {
			h.logger.Error("export query failed", slog.Any("error", err))
			h.metrics.CountExport("failed")
		}
		h.respondError(w, err)
		return
	}

	path, err := writeExportArtifact(h.exportDir, result)
	if err != nil {
		h.logger.Error("export write failed", slog.Any("error", err))
		h.metrics.CountExport("failed")
		httpx.Problem(w, http.StatusInternalServerError, "Export Failed", "could not prepare export file")
		return
	}
	defer h.removeArtifact(path)

	f, err := os.Open(path)
	if err != nil {
		h.logger.Error("export open failed", slog.Any("error", err), slog.String("path", path))
		h.metrics.CountExport("failed")
		httpx.Problem(w, http.StatusInternalServerError, "Export Failed", "could not deliver export file")
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		h.logger.Error("export stat failed", slog.Any("error", err), slog.String("path", path))
		h.metrics.CountExport("failed")
		httpx.Problem(w, http.StatusInternalServerError, "Export Failed", "could not deliver export file")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFilename))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		// Headers are already on the wire; all we can do is record it.
		h.logger.Error("export delivery failed", slog.Any("error", err), slog.String("path", path))
		h.metrics.CountExport("failed")
		return
	}
	h.metrics.CountExport("success")
}

// removeArtifact deletes the transient export file. Failures are logged so an
// orphaned artifact is never silent; the sweeper job picks it up later.
func (h *Handler) removeArtifact(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		h.logger.Error("remove export artifact failed", slog.Any("error", err), slog.String("path", path))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateEmail):
		httpx.Problem(w, http.StatusBadRequest, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, httpx.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
