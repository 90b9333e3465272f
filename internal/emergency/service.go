// Package emergency holds the per-site emergency latch and security-incident
// reporting.
//
// Emergency state is deliberately in-memory only: it describes the current
// operational posture of a running deployment, not durable history. The
// durable trail lives in the activity log.
package emergency

import (
	"context"
	"log/slog"
	"sync"
	"time"

	activitymodels "gatehouse/internal/activity/models"
	alertmodels "gatehouse/internal/alert/models"
	"gatehouse/internal/broadcast"
	"gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/requestcontext"
)

// State describes an active emergency at one site.
type State struct {
	SiteID      id.SiteID `json:"site_id"`
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	Location    string    `json:"location,omitempty"`
	ActivatedBy id.UserID `json:"activated_by,omitempty"`
	ActivatedAt time.Time `json:"activated_at"`
}

// Activities is the event bus facet emergencies record into.
type Activities interface {
	Record(ctx context.Context, a *activitymodels.Activity) (*activitymodels.Activity, error)
}

// Alerts raises dashboard alerts from recorded activities.
type Alerts interface {
	FromActivity(ctx context.Context, act *activitymodels.Activity, title string) (*alertmodels.Alert, error)
}

// Service manages emergency activation per site. Emergency notifications go
// out globally: every connected dashboard hears them, whatever room it is in.
type Service struct {
	activities  Activities
	alerts      Alerts
	broadcaster broadcast.Broadcaster
	logger      *slog.Logger

	mu     sync.Mutex
	active map[id.SiteID]*State
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithBroadcaster(b broadcast.Broadcaster) Option {
	return func(s *Service) { s.broadcaster = b }
}

func New(activities Activities, alerts Alerts, opts ...Option) *Service {
	s := &Service{
		activities: activities,
		alerts:     alerts,
		logger:     slog.Default(),
		active:     make(map[id.SiteID]*State),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Activate raises an emergency for the site. A second activation while one
// is already active is refused so operators cannot mask an ongoing incident.
func (s *Service) Activate(ctx context.Context, siteID id.SiteID, typ, message, location string) (*State, error) {
	if siteID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "site_id is required")
	}
	if typ == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "emergency type is required")
	}

	state := &State{
		SiteID:      siteID,
		Type:        typ,
		Message:     message,
		Location:    location,
		ActivatedBy: requestcontext.ActorID(ctx),
		ActivatedAt: requestcontext.Now(ctx),
	}

	s.mu.Lock()
	if existing, ok := s.active[siteID]; ok {
		s.mu.Unlock()
		return nil, dErrors.Newf(dErrors.CodeConflict, "emergency %q already active for site", existing.Type)
	}
	s.active[siteID] = state
	s.mu.Unlock()

	s.logger.ErrorContext(ctx, "emergency activated",
		"site_id", siteID,
		"type", typ,
		"actor_id", state.ActivatedBy,
	)

	act, err := s.activities.Record(ctx, &activitymodels.Activity{
		Type:        activitymodels.TypeEmergency,
		Description: "Emergency activated: " + typ,
		Priority:    activitymodels.PriorityCritical,
		SiteID:      siteID,
		ActorID:     state.ActivatedBy,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "emergency activity record failed", "error", err)
	} else if s.alerts != nil {
		if _, err := s.alerts.FromActivity(ctx, act, "Emergency activated"); err != nil {
			s.logger.ErrorContext(ctx, "emergency alert failed", "error", err)
		}
	}

	s.publishGlobal(ctx, models.EventEmergencyAlert, models.EmergencyAlertEvent{
		EmergencyType: typ,
		Message:       message,
		Location:      location,
		ActivatedBy:   state.ActivatedBy,
		Timestamp:     state.ActivatedAt,
	})
	return state, nil
}

// Deactivate clears the site's emergency.
func (s *Service) Deactivate(ctx context.Context, siteID id.SiteID) error {
	s.mu.Lock()
	state, ok := s.active[siteID]
	if ok {
		delete(s.active, siteID)
	}
	s.mu.Unlock()
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "no active emergency for site")
	}

	s.logger.InfoContext(ctx, "emergency deactivated",
		"site_id", siteID,
		"type", state.Type,
	)

	if _, err := s.activities.Record(ctx, &activitymodels.Activity{
		Type:        activitymodels.TypeEmergency,
		Description: "Emergency deactivated: " + state.Type,
		Priority:    activitymodels.PriorityHigh,
		SiteID:      siteID,
		ActorID:     requestcontext.ActorID(ctx),
	}); err != nil {
		s.logger.ErrorContext(ctx, "emergency activity record failed", "error", err)
	}

	// The clear signal itself carries no payload; dashboards re-read status.
	s.publishGlobal(ctx, models.EventEmergencyCleared, struct{}{})
	return nil
}

// ReportIncident records a security incident at the site with the reporter's
// chosen severity and notifies the site's dashboards. Unlike an emergency,
// an incident latches no state: it is a durable record plus a signal.
func (s *Service) ReportIncident(ctx context.Context, siteID id.SiteID, typ, message string, severity alertmodels.Severity) (*alertmodels.Alert, error) {
	if siteID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "site_id is required")
	}
	if typ == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "incident type is required")
	}
	if !severity.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid incident severity %q", severity)
	}

	description := typ
	if message != "" {
		description = typ + ": " + message
	}
	act, err := s.activities.Record(ctx, &activitymodels.Activity{
		Type:        activitymodels.TypeIncident,
		Description: description,
		Priority:    incidentPriority(severity),
		SiteID:      siteID,
		ActorID:     requestcontext.ActorID(ctx),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record incident")
	}

	var alert *alertmodels.Alert
	if s.alerts != nil {
		alert, err = s.alerts.FromActivity(ctx, act, "Security incident")
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to raise incident alert")
		}
	}

	s.logger.WarnContext(ctx, "security incident reported",
		"site_id", siteID,
		"type", typ,
		"severity", severity,
	)

	s.publish(ctx, siteID, models.EventSecurityAlert, models.SecurityAlertEvent{
		Type:     typ,
		Message:  message,
		Severity: string(severity),
	})
	return alert, nil
}

// incidentPriority encodes the reporter's severity onto the activity record;
// the alert layer recovers it with the inverse mapping.
func incidentPriority(severity alertmodels.Severity) activitymodels.Priority {
	switch severity {
	case alertmodels.SeverityCritical:
		return activitymodels.PriorityCritical
	case alertmodels.SeverityError:
		return activitymodels.PriorityHigh
	case alertmodels.SeverityWarning:
		return activitymodels.PriorityNormal
	}
	return activitymodels.PriorityLow
}

// Status returns the active emergency for the site, or nil when clear.
func (s *Service) Status(ctx context.Context, siteID id.SiteID) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.active[siteID]; ok {
		cp := *state
		return &cp
	}
	return nil
}

func (s *Service) publishGlobal(ctx context.Context, name string, payload any) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.PublishGlobal(ctx, name, payload); err != nil {
		s.logger.WarnContext(ctx, "emergency broadcast failed",
			"event", name,
			"error", err,
		)
	}
}

func (s *Service) publish(ctx context.Context, siteID id.SiteID, name string, payload any) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Publish(ctx, siteID, name, payload); err != nil {
		s.logger.WarnContext(ctx, "incident broadcast failed",
			"event", name,
			"site_id", siteID,
			"error", err,
		)
	}
}
