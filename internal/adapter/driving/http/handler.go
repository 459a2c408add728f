// Package httphandler is the HTTP driving adapter: badge images, refresh,
// setup and table discovery.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/livebadge/internal/application"
	"github.com/ericfisherdev/livebadge/internal/domain/model"
	"github.com/ericfisherdev/livebadge/internal/domain/port/driven"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// Handler is the HTTP driving adapter that serves badges and the setup API.
type Handler struct {
	resolveSvc   *application.ResolveService
	refreshSvc   *application.RefreshService
	setupSvc     *application.SetupService
	discoverySvc *application.DiscoveryService
	store        driven.MetricStore
	baseURL      string
	logger       *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. baseURL is the
// public origin used to build badge and refresh URLs.
func NewHandler(
	resolveSvc *application.ResolveService,
	refreshSvc *application.RefreshService,
	setupSvc *application.SetupService,
	discoverySvc *application.DiscoveryService,
	store driven.MetricStore,
	baseURL string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		resolveSvc:   resolveSvc,
		refreshSvc:   refreshSvc,
		setupSvc:     setupSvc,
		discoverySvc: discoverySvc,
		store:        store,
		baseURL:      strings.TrimRight(baseURL, "/"),
		logger:       logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with CORS, logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /badge/{id}", h.GetBadge)
	mux.HandleFunc("POST /badge/{id}/refresh", h.RefreshBadge)
	mux.HandleFunc("POST /api/v1/badges", h.CreateBadge)
	mux.HandleFunc("POST /api/v1/tables", h.ListTables)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = corsMiddleware(wrapped)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// GetBadge renders the badge's current state. It always answers 200 with an
// image, whatever the outcome.
func (h *Handler) GetBadge(w http.ResponseWriter, r *http.Request) {
	res := h.resolveSvc.Resolve(r.Context(), r.PathValue("id"))
	writeBadge(w, res, cacheControlBadge)
}

// RefreshBadge re-probes a badge under the privileged key in the request body
// and renders the result. It always answers 200 with an image.
func (h *Handler) RefreshBadge(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug("refresh body rejected", "error", err)
	}

	res := h.refreshSvc.Refresh(r.Context(), r.PathValue("id"), req.ServiceKey)
	writeBadge(w, res, cacheControlNoStore)
}

// CreateBadge runs the setup flow and returns the new badge's URLs and snippets.
func (h *Handler) CreateBadge(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.setupSvc.Create(r.Context(), application.SetupInput{
		Endpoint:          req.ProjectURL,
		PublicCredential:  req.AnonKey,
		ServiceCredential: req.ServiceRoleKey,
		Label:             req.Label,
		Color:             req.Color,
		Kind:              model.MetricKind(req.MetricType),
		Table:             req.TableName,
	})
	if err != nil {
		h.writeServiceError(w, "badge setup failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toBadgeResponse(res))
}

// ListTables returns the tables the supplied key can see.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	var req TablesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tables, err := h.discoverySvc.ListTables(r.Context(), req.ProjectURL, req.ServiceKey)
	if err != nil {
		h.writeServiceError(w, "table discovery failed", err)
		return
	}

	resp := TablesResponse{Tables: make([]TableResponse, 0, len(tables))}
	for _, t := range tables {
		resp.Tables = append(resp.Tables, toTableResponse(t))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health reports whether the metric store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("store ping failed", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{
		Status: status,
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps the application error taxonomy onto HTTP statuses.
// Diagnostic text is returned because these flows are operator facing.
func (h *Handler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, application.ErrInputInvalid),
		errors.Is(err, application.ErrAuthFailed),
		errors.Is(err, application.ErrAccessBlocked):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, application.ErrProbeFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) badgeURL(id string) string {
	return h.baseURL + "/badge/" + id
}

func (h *Handler) refreshURL(id string) string {
	return h.badgeURL(id) + "/refresh"
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
