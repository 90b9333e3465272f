// Package handler exposes the visitor lifecycle over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gatehouse/internal/visitor/models"
	visitorstore "gatehouse/internal/visitor/store/visitor"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/httputil"
	"gatehouse/pkg/requestcontext"
)

// Service defines the lifecycle operations the handler exposes.
type Service interface {
	CheckIn(ctx context.Context, in models.CheckInInput) (*models.Visitor, error)
	CheckOut(ctx context.Context, visitorID id.VisitorID, notes string) (*models.Visitor, error)
	Visitor(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error)
	ListVisitors(ctx context.Context, f visitorstore.Filter) ([]*models.Visitor, error)
}

// Handler wires visitor endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a visitor handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts visitor endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/visitors/check-in", h.HandleCheckIn)
	r.Put("/visitors/{visitorID}/check-out", h.HandleCheckOut)
	r.Get("/visitors/{visitorID}", h.HandleGet)
	r.Get("/visitors", h.HandleList)
}

// HandleCheckIn handles POST /visitors/check-in.
func (h *Handler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, ok := httputil.Decode[CheckInRequest](w, r)
	if !ok {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	v, err := h.service.CheckIn(ctx, in)
	if err != nil {
		h.logger.WarnContext(ctx, "check-in refused",
			"request_id", requestcontext.RequestID(ctx),
			"site_id", req.SiteID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "check-in handled",
		"request_id", requestcontext.RequestID(ctx),
		"visitor_id", v.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, CheckInResponse{
		Visitor: v,
		Badge:   BadgeResponse{Number: v.BadgeNumber, QRPayload: v.QRPayload},
	})
}

// HandleCheckOut handles PUT /visitors/{visitorID}/check-out.
func (h *Handler) HandleCheckOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	visitorID, err := id.ParseVisitorID(chi.URLParam(r, "visitorID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid visitor id"))
		return
	}

	// The body is optional; check-out works with no notes at all.
	var req CheckOutRequest
	if r.ContentLength != 0 {
		var ok bool
		if req, ok = httputil.Decode[CheckOutRequest](w, r); !ok {
			return
		}
	}

	v, err := h.service.CheckOut(ctx, visitorID, req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

// HandleGet handles GET /visitors/{visitorID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	visitorID, err := id.ParseVisitorID(chi.URLParam(r, "visitorID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid visitor id"))
		return
	}
	v, err := h.service.Visitor(r.Context(), visitorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

// HandleList handles GET /visitors. Without a status filter it returns
// everyone currently on site.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	f := visitorstore.Filter{
		Statuses: []models.Status{models.StatusCheckedIn, models.StatusOverstayed},
	}
	if raw := r.URL.Query().Get("site_id"); raw != "" {
		siteID, err := id.ParseSiteID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid site_id"))
			return
		}
		f.SiteID = siteID
	}
	if raw := r.URL.Query().Get("access_point_id"); raw != "" {
		apID, err := id.ParseAccessPointID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid access_point_id"))
			return
		}
		f.AccessPointID = apID
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.Status(raw)
		if !status.IsValid() {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "unknown status %q", raw))
			return
		}
		f.Statuses = []models.Status{status}
	}

	visitors, err := h.service.ListVisitors(r.Context(), f)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"visitors": visitors, "count": len(visitors)})
}
