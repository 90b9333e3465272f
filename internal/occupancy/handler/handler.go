// Package handler exposes access points and live occupancy over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gatehouse/internal/occupancy"
	"gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/httputil"
	"gatehouse/pkg/requestcontext"
)

// Creator registers new access points. Separate from the tracker because
// the tracker only ever adjusts counters on existing points.
type Creator interface {
	Create(ctx context.Context, ap *models.AccessPoint) error
	List(ctx context.Context, siteID id.SiteID) ([]*models.AccessPoint, error)
}

// Handler wires access point and occupancy endpoints.
type Handler struct {
	tracker *occupancy.Tracker
	creator Creator
	logger  *slog.Logger
}

func New(tracker *occupancy.Tracker, creator Creator, logger *slog.Logger) *Handler {
	return &Handler{tracker: tracker, creator: creator, logger: logger}
}

// Register mounts access point endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/access-points", h.HandleCreate)
	r.Get("/access-points", h.HandleList)
	r.Get("/access-points/{accessPointID}", h.HandleGet)
	r.Get("/sites/{siteID}/occupancy", h.HandleSiteOccupancy)
}

// CreateRequest is the POST /access-points body.
type CreateRequest struct {
	SiteID   string `json:"site_id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// HandleCreate handles POST /access-points.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[CreateRequest](w, r)
	if !ok {
		return
	}
	siteID, err := id.ParseSiteID(req.SiteID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid site_id"))
		return
	}
	if req.Name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "name is required"))
		return
	}

	ap := &models.AccessPoint{
		ID:        id.AccessPointID(uuid.New()),
		SiteID:    siteID,
		Name:      req.Name,
		Capacity:  req.Capacity,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := h.creator.Create(ctx, ap); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create access point"))
		return
	}

	h.logger.InfoContext(ctx, "access point created",
		"access_point_id", ap.ID,
		"site_id", ap.SiteID,
	)
	httputil.WriteJSON(w, http.StatusCreated, ap)
}

// HandleList handles GET /access-points?site_id=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var siteID id.SiteID
	if raw := r.URL.Query().Get("site_id"); raw != "" {
		parsed, err := id.ParseSiteID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid site_id"))
			return
		}
		siteID = parsed
	}
	points, err := h.creator.List(r.Context(), siteID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list access points"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"access_points": points, "count": len(points)})
}

// HandleGet handles GET /access-points/{accessPointID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	apID, err := id.ParseAccessPointID(chi.URLParam(r, "accessPointID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid access point id"))
		return
	}
	ap, err := h.tracker.AccessPoint(r.Context(), apID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ap)
}

// HandleSiteOccupancy handles GET /sites/{siteID}/occupancy.
func (h *Handler) HandleSiteOccupancy(w http.ResponseWriter, r *http.Request) {
	siteID, err := id.ParseSiteID(chi.URLParam(r, "siteID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid site id"))
		return
	}
	total, err := h.tracker.SiteOccupancy(r.Context(), siteID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"site_id": siteID, "occupancy": total})
}
