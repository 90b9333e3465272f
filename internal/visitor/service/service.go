// Package service implements the visitor lifecycle: check-in with banned
// screening and badge issuance, check-out, and the overstay transition.
//
// The service is the only writer of visitor status and the only caller of
// the occupancy tracker's Apply path. A status write and its occupancy
// delta always share one unit of work.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	activitymodels "gatehouse/internal/activity/models"
	alertmodels "gatehouse/internal/alert/models"
	"gatehouse/internal/broadcast"
	"gatehouse/internal/occupancy"
	"gatehouse/internal/platform/metrics"
	screeningmodels "gatehouse/internal/screening/models"
	"gatehouse/internal/visitor/badge"
	"gatehouse/internal/visitor/models"
	visitorstore "gatehouse/internal/visitor/store/visitor"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/platform/tx"
	"gatehouse/pkg/requestcontext"
)

// defaultBadgeAttempts bounds badge regeneration on collision.
const defaultBadgeAttempts = 5

// Store is the visitor persistence surface the lifecycle drives.
type Store interface {
	CreateCheckedIn(ctx context.Context, v *models.Visitor) error
	FindByID(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error)
	CompleteCheckOut(ctx context.Context, visitorID id.VisitorID, at time.Time, actor id.UserID, notes string) (*models.Visitor, error)
	MarkOverstayed(ctx context.Context, visitorID id.VisitorID, now time.Time) (*models.Visitor, bool, error)
	List(ctx context.Context, f visitorstore.Filter) ([]*models.Visitor, error)
}

// Screener answers whether an identity is banned. Pure read.
type Screener interface {
	Screen(ctx context.Context, name, email, company string) (*screeningmodels.BannedEntry, error)
}

// Activities is the event bus facet the lifecycle records into.
type Activities interface {
	Record(ctx context.Context, a *activitymodels.Activity) (*activitymodels.Activity, error)
}

// Alerts raises dashboard alerts from recorded activities.
type Alerts interface {
	FromActivity(ctx context.Context, act *activitymodels.Activity, title string) (*alertmodels.Alert, error)
}

// Service coordinates the visitor lifecycle.
type Service struct {
	store       Store
	occupancy   *occupancy.Tracker
	screener    Screener
	activities  Activities
	alerts      Alerts
	runner      tx.Runner
	broadcaster broadcast.Broadcaster
	badges      *badge.Issuer

	badgeAttempts int
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithBroadcaster attaches the real-time event fan-out.
func WithBroadcaster(b broadcast.Broadcaster) Option {
	return func(s *Service) { s.broadcaster = b }
}

// WithBadgeIssuer overrides the badge generator (tests inject a fixed clock).
func WithBadgeIssuer(i *badge.Issuer) Option {
	return func(s *Service) { s.badges = i }
}

// WithBadgeAttempts bounds regeneration retries on badge collision.
func WithBadgeAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.badgeAttempts = n
		}
	}
}

func New(store Store, occ *occupancy.Tracker, screener Screener, activities Activities, alerts Alerts, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:         store,
		occupancy:     occ,
		screener:      screener,
		activities:    activities,
		alerts:        alerts,
		runner:        runner,
		badges:        badge.New(),
		badgeAttempts: defaultBadgeAttempts,
		logger:        slog.Default(),
		tracer:        otel.Tracer("gatehouse/visitor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckIn admits a visitor: validate, screen against the banned registry,
// issue a badge, and persist the record together with the +1 occupancy
// delta. A banned match refuses admission and leaves an audit trail but
// creates no visitor record.
func (s *Service) CheckIn(ctx context.Context, in models.CheckInInput) (*models.Visitor, error) {
	ctx, span := s.tracer.Start(ctx, "visitor.CheckIn",
		trace.WithAttributes(attribute.String("site_id", in.SiteID.String())))
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	entry, err := s.screener.Screen(ctx, in.FullName, in.Email, in.Company)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		s.refuseBanned(ctx, in, entry)
		return nil, dErrors.New(dErrors.CodeBanned, "check-in refused: visitor is banned")
	}

	ap, err := s.occupancy.AccessPoint(ctx, in.AccessPointID)
	if err != nil {
		return nil, err
	}
	if ap.SiteID != in.SiteID {
		return nil, dErrors.New(dErrors.CodeValidation, "access point does not belong to the given site")
	}

	now := requestcontext.Now(ctx)
	v := &models.Visitor{
		ID:                    id.NewVisitorID(),
		SiteID:                in.SiteID,
		AccessPointID:         in.AccessPointID,
		FullName:              in.FullName,
		Email:                 in.Email,
		Phone:                 in.Phone,
		Company:               in.Company,
		Purpose:               in.Purpose,
		Status:                models.StatusCheckedIn,
		SpecialAccess:         in.SpecialAccess,
		EmergencyContact:      in.EmergencyContact,
		ExpectedDurationHours: in.ExpectedDurationHours,
		CheckInTime:           now,
		CheckedInBy:           requestcontext.ActorID(ctx),
	}

	var occupancyAfter int
	persisted := false
	for attempt := 0; attempt < s.badgeAttempts; attempt++ {
		b, err := s.badges.Issue(v.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadgeAllocation, "badge generation failed")
		}
		v.BadgeNumber = b.Number
		v.QRPayload = b.QRPayload

		err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.store.CreateCheckedIn(ctx, v); err != nil {
				return err
			}
			updated, err := s.occupancy.Apply(ctx, v.AccessPointID, +1)
			if err != nil {
				return err
			}
			occupancyAfter = updated.CurrentOccupancy
			return nil
		})
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.logger.DebugContext(ctx, "badge collision, regenerating",
				"visitor_id", v.ID,
				"attempt", attempt+1,
			)
			continue
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist check-in")
		}
		persisted = true
		break
	}
	if !persisted {
		return nil, dErrors.Newf(dErrors.CodeBadgeAllocation,
			"could not allocate a unique badge after %d attempts", s.badgeAttempts)
	}

	if s.metrics != nil {
		s.metrics.CheckIns.Inc()
	}
	s.logger.InfoContext(ctx, "visitor checked in",
		"visitor_id", v.ID,
		"site_id", v.SiteID,
		"access_point_id", v.AccessPointID,
		"badge", v.BadgeNumber,
	)

	act := s.record(ctx, &activitymodels.Activity{
		Type:          activitymodels.TypeCheckIn,
		Description:   v.FullName + " checked in",
		Priority:      activitymodels.PriorityNormal,
		SiteID:        v.SiteID,
		AccessPointID: v.AccessPointID,
		VisitorID:     v.ID,
		ActorID:       v.CheckedInBy,
	}, "Visitor checked in")

	s.publish(ctx, v.SiteID, models.EventVisitorCheckedIn, models.CheckedInEvent{
		ID:            v.ID,
		FullName:      v.FullName,
		Company:       v.Company,
		AccessPointID: v.AccessPointID,
		Timestamp:     now,
	})
	s.publish(ctx, v.SiteID, models.EventVisitorActivity, models.ActivityEvent{
		Type:          string(activitymodels.TypeCheckIn),
		VisitorID:     v.ID,
		FullName:      v.FullName,
		AccessPointID: v.AccessPointID,
		Occupancy:     occupancyAfter,
		Timestamp:     actTime(act, now),
	})
	return v, nil
}

// CheckOut releases a visitor. Legal from checked_in or overstayed only;
// the status write and the -1 occupancy delta share one unit of work.
func (s *Service) CheckOut(ctx context.Context, visitorID id.VisitorID, notes string) (*models.Visitor, error) {
	ctx, span := s.tracer.Start(ctx, "visitor.CheckOut",
		trace.WithAttributes(attribute.String("visitor_id", visitorID.String())))
	defer span.End()

	now := requestcontext.Now(ctx)
	actor := requestcontext.ActorID(ctx)

	var (
		v              *models.Visitor
		occupancyAfter int
	)
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		v, err = s.store.CompleteCheckOut(ctx, visitorID, now, actor, notes)
		if err != nil {
			return err
		}
		updated, err := s.occupancy.Apply(ctx, v.AccessPointID, -1)
		if err != nil {
			return err
		}
		occupancyAfter = updated.CurrentOccupancy
		return nil
	})
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Newf(dErrors.CodeNotFound, "visitor %s not found", visitorID)
	case errors.Is(err, sentinel.ErrInvalidState):
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "visitor is not on site")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist check-out")
	}

	if s.metrics != nil {
		s.metrics.CheckOuts.Inc()
	}
	s.logger.InfoContext(ctx, "visitor checked out",
		"visitor_id", v.ID,
		"site_id", v.SiteID,
	)

	act := s.record(ctx, &activitymodels.Activity{
		Type:          activitymodels.TypeCheckOut,
		Description:   v.FullName + " checked out",
		Priority:      activitymodels.PriorityNormal,
		SiteID:        v.SiteID,
		AccessPointID: v.AccessPointID,
		VisitorID:     v.ID,
		ActorID:       v.CheckedOutBy,
	}, "Visitor checked out")

	s.publish(ctx, v.SiteID, models.EventVisitorCheckedOut, models.CheckedOutEvent{
		ID:        v.ID,
		FullName:  v.FullName,
		Timestamp: now,
	})
	s.publish(ctx, v.SiteID, models.EventVisitorActivity, models.ActivityEvent{
		Type:          string(activitymodels.TypeCheckOut),
		VisitorID:     v.ID,
		FullName:      v.FullName,
		AccessPointID: v.AccessPointID,
		Occupancy:     occupancyAfter,
		Timestamp:     actTime(act, now),
	})
	return v, nil
}

// MarkOverstayed transitions a checked_in visitor past their expected
// duration to overstayed. Idempotent: an already-overstayed visitor returns
// unchanged with no side effects, so sweep re-scans fire alerts only once.
// Occupancy is untouched because the visitor is still on site.
func (s *Service) MarkOverstayed(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error) {
	ctx, span := s.tracer.Start(ctx, "visitor.MarkOverstayed",
		trace.WithAttributes(attribute.String("visitor_id", visitorID.String())))
	defer span.End()

	now := requestcontext.Now(ctx)
	v, changed, err := s.store.MarkOverstayed(ctx, visitorID, now)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Newf(dErrors.CodeNotFound, "visitor %s not found", visitorID)
	case errors.Is(err, sentinel.ErrInvalidState):
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "visitor is not eligible for overstay")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark overstay")
	}
	if !changed {
		return v, nil
	}

	if s.metrics != nil {
		s.metrics.OverstaysFlagged.Inc()
	}
	s.logger.WarnContext(ctx, "visitor overstayed",
		"visitor_id", v.ID,
		"site_id", v.SiteID,
		"expected_hours", v.ExpectedDurationHours,
	)

	act := s.record(ctx, &activitymodels.Activity{
		Type:          activitymodels.TypeOverstay,
		Description:   v.FullName + " exceeded the expected visit duration",
		Priority:      activitymodels.PriorityHigh,
		SiteID:        v.SiteID,
		AccessPointID: v.AccessPointID,
		VisitorID:     v.ID,
	}, "Visitor overstay")

	s.publish(ctx, v.SiteID, models.EventVisitorActivity, models.ActivityEvent{
		Type:          string(activitymodels.TypeOverstay),
		VisitorID:     v.ID,
		FullName:      v.FullName,
		AccessPointID: v.AccessPointID,
		Timestamp:     actTime(act, now),
	})
	return v, nil
}

// Visitor returns a single visit record.
func (s *Service) Visitor(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error) {
	v, err := s.store.FindByID(ctx, visitorID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "visitor %s not found", visitorID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load visitor")
	}
	return v, nil
}

// CurrentVisitors lists everyone physically on site (checked_in or
// overstayed), newest check-in first.
func (s *Service) CurrentVisitors(ctx context.Context, siteID id.SiteID) ([]*models.Visitor, error) {
	return s.ListVisitors(ctx, visitorstore.Filter{
		SiteID:   siteID,
		Statuses: []models.Status{models.StatusCheckedIn, models.StatusOverstayed},
	})
}

// ListVisitors lists visit records matching the filter.
func (s *Service) ListVisitors(ctx context.Context, f visitorstore.Filter) ([]*models.Visitor, error) {
	visitors, err := s.store.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list visitors")
	}
	return visitors, nil
}

// refuseBanned leaves the audit trail for a refused check-in: an activity,
// a critical alert, and a real-time notification. No visitor record exists.
func (s *Service) refuseBanned(ctx context.Context, in models.CheckInInput, entry *screeningmodels.BannedEntry) {
	if s.metrics != nil {
		s.metrics.BannedAttempts.Inc()
	}
	s.logger.WarnContext(ctx, "banned visitor refused",
		"site_id", in.SiteID,
		"entry_id", entry.ID,
	)

	s.record(ctx, &activitymodels.Activity{
		Type:          activitymodels.TypeBannedAttempt,
		Description:   in.FullName + " attempted to check in but is banned: " + entry.Reason,
		Priority:      activitymodels.PriorityCritical,
		SiteID:        in.SiteID,
		AccessPointID: in.AccessPointID,
		ActorID:       requestcontext.ActorID(ctx),
	}, "Banned visitor attempted check-in")

	s.publish(ctx, in.SiteID, models.EventBannedVisitor, models.BannedVisitorEvent{
		Visitor: models.BannedVisitorIdentity{
			FullName: in.FullName,
			Email:    in.Email,
			Company:  in.Company,
		},
		BannedEntry: models.BannedEntryRef{Reason: entry.Reason},
	})
}

// record appends an activity and raises its alert. Best-effort: the
// lifecycle operation already committed, so failures here are logged, not
// returned.
func (s *Service) record(ctx context.Context, a *activitymodels.Activity, alertTitle string) *activitymodels.Activity {
	recorded, err := s.activities.Record(ctx, a)
	if err != nil {
		s.logger.ErrorContext(ctx, "activity record failed",
			"type", a.Type,
			"visitor_id", a.VisitorID,
			"error", err,
		)
		return a
	}
	if s.alerts != nil {
		if _, err := s.alerts.FromActivity(ctx, recorded, alertTitle); err != nil {
			s.logger.ErrorContext(ctx, "alert creation failed",
				"activity_id", recorded.ID,
				"error", err,
			)
		}
	}
	return recorded
}

// publish sends a real-time event to the site room. Best-effort.
func (s *Service) publish(ctx context.Context, siteID id.SiteID, name string, payload any) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Publish(ctx, siteID, name, payload); err != nil {
		s.logger.WarnContext(ctx, "event publish failed",
			"event", name,
			"site_id", siteID,
			"error", err,
		)
	}
}

func actTime(act *activitymodels.Activity, fallback time.Time) time.Time {
	if act != nil && !act.OccurredAt.IsZero() {
		return act.OccurredAt
	}
	return fallback
}
