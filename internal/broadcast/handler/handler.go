// Package handler streams real-time events to dashboards over SSE.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gatehouse/internal/broadcast"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/httputil"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 25 * time.Second

// Handler serves the per-site event stream.
type Handler struct {
	broadcaster broadcast.Broadcaster
	logger      *slog.Logger
}

func New(broadcaster broadcast.Broadcaster, logger *slog.Logger) *Handler {
	return &Handler{broadcaster: broadcaster, logger: logger}
}

// Register mounts the stream endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/sites/{siteID}/events", h.HandleStream)
}

// HandleStream handles GET /sites/{siteID}/events. The connection joins the
// site's room and receives its events (plus global emergency events) as
// server-sent events until the client disconnects.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	siteID, err := id.ParseSiteID(chi.URLParam(r, "siteID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid site id"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}

	connID := uuid.NewString()
	events, err := h.broadcaster.Join(ctx, connID, siteID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "event stream unavailable"))
		return
	}
	defer h.broadcaster.Leave(connID, siteID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.InfoContext(ctx, "event stream opened",
		"conn_id", connID,
		"site_id", siteID,
	)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.InfoContext(ctx, "event stream closed",
				"conn_id", connID,
				"site_id", siteID,
			)
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				h.logger.WarnContext(ctx, "event write failed",
					"conn_id", connID,
					"error", err,
				)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev broadcast.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
	return err
}
