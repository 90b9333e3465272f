// Package handler exposes the activity feed over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"gatehouse/internal/activity/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/httputil"
)

// Service defines the feed operations the handler exposes.
type Service interface {
	List(ctx context.Context, f models.Filter) ([]*models.Activity, error)
}

// Handler serves the activity feed.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the feed endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/activities", h.HandleList)
}

// HandleList handles GET /activities with site, type, time-range, and
// pagination filters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	activities, err := h.service.List(r.Context(), f)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"activities": activities, "count": len(activities)})
}

func filterFromQuery(r *http.Request) (models.Filter, error) {
	var f models.Filter
	q := r.URL.Query()

	if raw := q.Get("site_id"); raw != "" {
		siteID, err := id.ParseSiteID(raw)
		if err != nil {
			return f, dErrors.Wrap(err, dErrors.CodeValidation, "invalid site_id")
		}
		f.SiteID = siteID
	}
	if raw := q.Get("type"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			f.Types = append(f.Types, models.Type(strings.TrimSpace(t)))
		}
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, dErrors.New(dErrors.CodeValidation, "from must be RFC 3339")
		}
		f.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, dErrors.New(dErrors.CodeValidation, "to must be RFC 3339")
		}
		f.To = t
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer")
		}
		f.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, dErrors.New(dErrors.CodeValidation, "offset must be a non-negative integer")
		}
		f.Offset = n
	}
	return f, nil
}
