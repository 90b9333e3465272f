// Package handler exposes the banned-entry registry over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gatehouse/internal/screening/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/httputil"
	"gatehouse/pkg/requestcontext"
)

// Service defines the registry operations the handler exposes.
type Service interface {
	AddEntry(ctx context.Context, e *models.BannedEntry) (*models.BannedEntry, error)
	DeactivateEntry(ctx context.Context, entryID id.BannedEntryID) error
	ListEntries(ctx context.Context) ([]*models.BannedEntry, error)
}

// Handler wires banned-registry endpoints to the screening service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts banned-registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/banned-entries", h.HandleAdd)
	r.Get("/banned-entries", h.HandleList)
	r.Delete("/banned-entries/{entryID}", h.HandleDeactivate)
}

// AddEntryRequest is the POST /banned-entries body.
type AddEntryRequest struct {
	FullName  string     `json:"full_name"`
	Email     string     `json:"email"`
	Company   string     `json:"company"`
	Reason    string     `json:"reason"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// HandleAdd handles POST /banned-entries.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[AddEntryRequest](w, r)
	if !ok {
		return
	}

	entry, err := h.service.AddEntry(ctx, &models.BannedEntry{
		FullName:  req.FullName,
		Email:     req.Email,
		Company:   req.Company,
		Reason:    req.Reason,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "banned entry created",
		"request_id", requestcontext.RequestID(ctx),
		"entry_id", entry.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

// HandleList handles GET /banned-entries.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListEntries(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// HandleDeactivate handles DELETE /banned-entries/{entryID}. The entry is
// deactivated, not removed, so past screening decisions stay explainable.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	entryID, err := id.ParseBannedEntryID(chi.URLParam(r, "entryID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid entry id"))
		return
	}
	if err := h.service.DeactivateEntry(r.Context(), entryID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
