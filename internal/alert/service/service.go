// Package service manages dashboard alerts derived from activities.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	activitymodels "gatehouse/internal/activity/models"
	"gatehouse/internal/alert/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/requestcontext"
)

// Store is the alert persistence surface the service depends on.
type Store interface {
	Create(ctx context.Context, a *models.Alert) error
	Get(ctx context.Context, alertID id.AlertID) (*models.Alert, error)
	Update(ctx context.Context, alertID id.AlertID, fn func(*models.Alert) error) (*models.Alert, error)
	List(ctx context.Context, f models.Filter) ([]*models.Alert, error)
}

// Service creates alerts and tracks per-user read/acknowledge receipts.
type Service struct {
	store  Store
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, opts ...Option) *Service {
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// defaultAudience targets staff who watch the dashboard. Explicit audiences
// on the alert override it.
var defaultAudience = models.Audience{Roles: []string{"admin", "security"}}

// severityFor maps an activity type to the alert severity it raises.
// Routine traffic stays informational; banned attempts and emergencies are
// the only sources of critical alerts.
func severityFor(t activitymodels.Type, p activitymodels.Priority) models.Severity {
	switch t {
	case activitymodels.TypeCheckIn, activitymodels.TypeCheckOut:
		return models.SeverityInfo
	case activitymodels.TypeOverstay:
		return models.SeverityWarning
	case activitymodels.TypeBannedAttempt, activitymodels.TypeEmergency:
		return models.SeverityCritical
	case activitymodels.TypeIncident:
		// Incident priority encodes the reporter's chosen severity.
		switch p {
		case activitymodels.PriorityCritical:
			return models.SeverityCritical
		case activitymodels.PriorityHigh:
			return models.SeverityError
		case activitymodels.PriorityNormal:
			return models.SeverityWarning
		}
		return models.SeverityInfo
	}
	return models.SeverityInfo
}

// FromActivity raises the alert an activity implies and stores it.
func (s *Service) FromActivity(ctx context.Context, act *activitymodels.Activity, title string) (*models.Alert, error) {
	a := &models.Alert{
		Severity:   severityFor(act.Type, act.Priority),
		Title:      title,
		Message:    act.Description,
		SiteID:     act.SiteID,
		VisitorID:  act.VisitorID,
		ActivityID: act.ID,
	}
	return s.Create(ctx, a)
}

// Create stores a new alert. ID, status, audience, and creation time are
// assigned here when unset.
func (s *Service) Create(ctx context.Context, a *models.Alert) (*models.Alert, error) {
	if !a.Severity.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid alert severity %q", a.Severity)
	}
	if a.Title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "alert title is required")
	}
	if a.SiteID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "alert site is required")
	}
	if a.ID.IsNil() {
		a.ID = id.NewAlertID()
	}
	a.Status = models.StatusUnread
	if len(a.Audience.Roles) == 0 && len(a.Audience.UserIDs) == 0 {
		a.Audience = defaultAudience
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = requestcontext.Now(ctx)
	}

	if err := s.store.Create(ctx, a); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create alert")
	}
	s.logger.InfoContext(ctx, "alert raised",
		"alert_id", a.ID,
		"severity", a.Severity,
		"site_id", a.SiteID,
	)
	return a, nil
}

// MarkRead records that the user has seen the alert. Idempotent per user;
// reading an already-dismissed alert is a no-op rather than an error.
func (s *Service) MarkRead(ctx context.Context, alertID id.AlertID, user id.UserID) (*models.Alert, error) {
	if user.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "acting user is required")
	}
	now := requestcontext.Now(ctx)
	a, err := s.store.Update(ctx, alertID, func(a *models.Alert) error {
		if a.EffectiveStatus(now) == models.StatusDismissed {
			return nil
		}
		a.RecordRead(user, now)
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err, alertID)
	}
	return s.withEffectiveStatus(a, now), nil
}

// Acknowledge records that the user has acted on the alert.
func (s *Service) Acknowledge(ctx context.Context, alertID id.AlertID, user id.UserID, note string) (*models.Alert, error) {
	if user.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "acting user is required")
	}
	now := requestcontext.Now(ctx)
	a, err := s.store.Update(ctx, alertID, func(a *models.Alert) error {
		if a.EffectiveStatus(now) == models.StatusDismissed {
			return dErrors.New(dErrors.CodeInvalidTransition, "alert is dismissed")
		}
		a.RecordAck(user, now, note)
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err, alertID)
	}
	return a, nil
}

// Dismiss retires the alert. Terminal and idempotent.
func (s *Service) Dismiss(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	a, err := s.store.Update(ctx, alertID, func(a *models.Alert) error {
		a.Dismiss()
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err, alertID)
	}
	return a, nil
}

// Get returns the alert with auto-expiry folded into its status.
func (s *Service) Get(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	a, err := s.store.Get(ctx, alertID)
	if err != nil {
		return nil, wrapStoreErr(err, alertID)
	}
	return s.withEffectiveStatus(a, requestcontext.Now(ctx)), nil
}

// List returns matching alerts, newest first, with auto-expiry folded in.
// unresolvedOnly drops alerts that are acknowledged or dismissed.
func (s *Service) List(ctx context.Context, f models.Filter, unresolvedOnly bool) ([]*models.Alert, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	alerts, err := s.store.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list alerts")
	}
	now := requestcontext.Now(ctx)
	out := alerts[:0]
	for _, a := range alerts {
		a = s.withEffectiveStatus(a, now)
		if unresolvedOnly && (a.Status == models.StatusAcknowledged || a.Status == models.StatusDismissed) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Service) withEffectiveStatus(a *models.Alert, now time.Time) *models.Alert {
	a.Status = a.EffectiveStatus(now)
	return a
}

func wrapStoreErr(err error, alertID id.AlertID) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "alert %s not found", alertID)
	}
	// Coded errors from the mutation callback pass through untouched.
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "alert store failure")
}
