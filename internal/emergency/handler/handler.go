// Package handler exposes emergency activation and incident reporting over
// HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	alertmodels "gatehouse/internal/alert/models"
	"gatehouse/internal/emergency"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/httputil"
	"gatehouse/pkg/requestcontext"
)

// Service defines the emergency operations the handler exposes.
type Service interface {
	Activate(ctx context.Context, siteID id.SiteID, typ, message, location string) (*emergency.State, error)
	Deactivate(ctx context.Context, siteID id.SiteID) error
	Status(ctx context.Context, siteID id.SiteID) *emergency.State
	ReportIncident(ctx context.Context, siteID id.SiteID, typ, message string, severity alertmodels.Severity) (*alertmodels.Alert, error)
}

// Handler wires emergency endpoints to the emergency service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts emergency endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/emergency/activate", h.HandleActivate)
	r.Post("/emergency/deactivate", h.HandleDeactivate)
	r.Get("/emergency", h.HandleStatus)
	r.Post("/incidents", h.HandleReportIncident)
}

// ActivateRequest is the POST /emergency/activate body.
type ActivateRequest struct {
	SiteID   string `json:"site_id"`
	Type     string `json:"type"`
	Message  string `json:"message"`
	Location string `json:"location"`
}

// DeactivateRequest is the POST /emergency/deactivate body.
type DeactivateRequest struct {
	SiteID string `json:"site_id"`
}

// HandleActivate handles POST /emergency/activate.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[ActivateRequest](w, r)
	if !ok {
		return
	}
	siteID, err := id.ParseSiteID(req.SiteID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid site_id"))
		return
	}

	state, err := h.service.Activate(ctx, siteID, req.Type, req.Message, req.Location)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.WarnContext(ctx, "emergency activated via API",
		"request_id", requestcontext.RequestID(ctx),
		"site_id", siteID,
		"type", req.Type,
	)
	httputil.WriteJSON(w, http.StatusCreated, state)
}

// HandleDeactivate handles POST /emergency/deactivate.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[DeactivateRequest](w, r)
	if !ok {
		return
	}
	siteID, err := id.ParseSiteID(req.SiteID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid site_id"))
		return
	}
	if err := h.service.Deactivate(r.Context(), siteID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReportIncidentRequest is the POST /incidents body.
type ReportIncidentRequest struct {
	SiteID   string `json:"site_id"`
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// HandleReportIncident handles POST /incidents.
func (h *Handler) HandleReportIncident(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[ReportIncidentRequest](w, r)
	if !ok {
		return
	}
	siteID, err := id.ParseSiteID(req.SiteID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid site_id"))
		return
	}

	alert, err := h.service.ReportIncident(ctx, siteID, req.Type, req.Message, alertmodels.Severity(req.Severity))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, alert)
}

// HandleStatus handles GET /emergency?site_id=.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	siteID, err := id.ParseSiteID(r.URL.Query().Get("site_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid site_id"))
		return
	}
	state := h.service.Status(r.Context(), siteID)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"active": state != nil,
		"state":  state,
	})
}
