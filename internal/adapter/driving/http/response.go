package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/livebadge/internal/application"
	"github.com/ericfisherdev/livebadge/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", cacheControlNoStore)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// SetupRequest is the JSON body for the create badge endpoint.
type SetupRequest struct {
	ProjectURL     string `json:"project_url"`
	AnonKey        string `json:"anon_key"`
	ServiceRoleKey string `json:"service_role_key,omitempty"`
	Label          string `json:"label"`
	MetricType     string `json:"metric_type"`
	TableName      string `json:"table_name,omitempty"`
	Color          string `json:"color,omitempty"`
}

// RefreshRequest is the JSON body for the refresh endpoint.
type RefreshRequest struct {
	ServiceKey string `json:"service_key"`
}

// TablesRequest is the JSON body for the table discovery endpoint.
type TablesRequest struct {
	ProjectURL string `json:"project_url"`
	ServiceKey string `json:"service_key"`
}

// BadgeResponse is the JSON representation of a newly created badge.
type BadgeResponse struct {
	BadgeID     string `json:"badge_id"`
	BadgeURL    string `json:"badge_url"`
	Protected   bool   `json:"protected"`
	Rule        string `json:"rule,omitempty"`
	RefreshURL  string `json:"refresh_url,omitempty"`
	CachedValue *int64 `json:"cached_value,omitempty"`
	Markdown    string `json:"markdown"`
	HTML        string `json:"html"`
	CreatedAt   string `json:"created_at"`
}

// TableResponse is the JSON representation of a discovered table.
type TableResponse struct {
	Schema   string `json:"schema"`
	Table    string `json:"table"`
	FullName string `json:"full_name"`
}

// TablesResponse wraps the discovered tables.
type TablesResponse struct {
	Tables []TableResponse `json:"tables"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toBadgeResponse converts a setup result to its JSON representation. The
// refresh URL is only offered for protected badges.
func (h *Handler) toBadgeResponse(res *application.SetupResult) BadgeResponse {
	rec := res.Record
	badgeURL := h.badgeURL(rec.ID)
	markdown := markdownSnippet(rec.Label, badgeURL)

	resp := BadgeResponse{
		BadgeID:     rec.ID,
		BadgeURL:    badgeURL,
		Protected:   res.Posture.Protected,
		Rule:        res.Posture.Rule,
		CachedValue: rec.CachedValue,
		Markdown:    markdown,
		HTML:        htmlSnippet(markdown),
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	if res.Posture.Protected {
		resp.RefreshURL = h.refreshURL(rec.ID)
	}
	return resp
}

// toTableResponse converts a domain TableRef to its JSON representation.
func toTableResponse(t model.TableRef) TableResponse {
	return TableResponse{
		Schema:   t.Schema,
		Table:    t.Name,
		FullName: t.FullName(),
	}
}
