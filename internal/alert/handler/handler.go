// Package handler exposes alert listing and receipt tracking over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatehouse/internal/alert/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/httputil"
	"gatehouse/pkg/requestcontext"
)

// Service defines the alert operations the handler exposes.
type Service interface {
	List(ctx context.Context, f models.Filter, unresolvedOnly bool) ([]*models.Alert, error)
	Get(ctx context.Context, alertID id.AlertID) (*models.Alert, error)
	MarkRead(ctx context.Context, alertID id.AlertID, user id.UserID) (*models.Alert, error)
	Acknowledge(ctx context.Context, alertID id.AlertID, user id.UserID, note string) (*models.Alert, error)
	Dismiss(ctx context.Context, alertID id.AlertID) (*models.Alert, error)
}

// Handler wires alert endpoints to the alert service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts alert endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/alerts", h.HandleList)
	r.Get("/alerts/{alertID}", h.HandleGet)
	r.Put("/alerts/{alertID}/read", h.HandleRead)
	r.Put("/alerts/{alertID}/acknowledge", h.HandleAcknowledge)
	r.Put("/alerts/{alertID}/dismiss", h.HandleDismiss)
}

// HandleList handles GET /alerts.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var f models.Filter
	q := r.URL.Query()
	if raw := q.Get("site_id"); raw != "" {
		siteID, err := id.ParseSiteID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid site_id"))
			return
		}
		f.SiteID = siteID
	}
	if raw := q.Get("severity"); raw != "" {
		sev := models.Severity(raw)
		if !sev.IsValid() {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "unknown severity %q", raw))
			return
		}
		f.Severities = []models.Severity{sev}
	}
	unresolvedOnly := q.Get("unresolved") == "true"

	alerts, err := h.service.List(r.Context(), f, unresolvedOnly)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"alerts": alerts, "count": len(alerts)})
}

// HandleGet handles GET /alerts/{alertID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	alertID, ok := h.alertID(w, r)
	if !ok {
		return
	}
	a, err := h.service.Get(r.Context(), alertID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

// HandleRead handles PUT /alerts/{alertID}/read.
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	alertID, ok := h.alertID(w, r)
	if !ok {
		return
	}
	a, err := h.service.MarkRead(r.Context(), alertID, requestcontext.ActorID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

// AcknowledgeRequest is the optional PUT /alerts/{id}/acknowledge body.
type AcknowledgeRequest struct {
	Note string `json:"note"`
}

// HandleAcknowledge handles PUT /alerts/{alertID}/acknowledge.
func (h *Handler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	alertID, ok := h.alertID(w, r)
	if !ok {
		return
	}
	var req AcknowledgeRequest
	if r.ContentLength != 0 {
		if req, ok = httputil.Decode[AcknowledgeRequest](w, r); !ok {
			return
		}
	}
	a, err := h.service.Acknowledge(r.Context(), alertID, requestcontext.ActorID(r.Context()), req.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

// HandleDismiss handles PUT /alerts/{alertID}/dismiss.
func (h *Handler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	alertID, ok := h.alertID(w, r)
	if !ok {
		return
	}
	a, err := h.service.Dismiss(r.Context(), alertID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) alertID(w http.ResponseWriter, r *http.Request) (id.AlertID, bool) {
	alertID, err := id.ParseAlertID(chi.URLParam(r, "alertID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid alert id"))
		return id.AlertID{}, false
	}
	return alertID, true
}
