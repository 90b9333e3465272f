package visitor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
	txcontext "gatehouse/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// PostgresStore persists visitors in Postgres. Lifecycle transitions are
// single conditional UPDATEs so concurrent mutually-exclusive transitions
// cannot both succeed. All statements join a transaction carried in context,
// which is how the visitor write and the occupancy delta share one atomic
// unit of work.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const visitorColumns = `id, site_id, access_point_id, full_name, email, phone, company, purpose,
	badge_number, qr_payload, status, special_access,
	emergency_contact_name, emergency_contact_phone, expected_duration_hours,
	check_in_time, check_out_time, check_out_notes, checked_in_by, checked_out_by`

func (s *PostgresStore) CreateCheckedIn(ctx context.Context, v *models.Visitor) error {
	query := `
		INSERT INTO visitors (` + visitorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(v.ID), uuid.UUID(v.SiteID), uuid.UUID(v.AccessPointID),
		v.FullName, v.Email, v.Phone, v.Company, v.Purpose,
		v.BadgeNumber, v.QRPayload, string(v.Status), string(v.SpecialAccess),
		v.EmergencyContact.Name, v.EmergencyContact.Phone, v.ExpectedDurationHours,
		v.CheckInTime, v.CheckOutTime, v.CheckOutNotes,
		nullableID(uuid.UUID(v.CheckedInBy)), nullableID(uuid.UUID(v.CheckedOutBy)),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert visitor: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+visitorColumns+` FROM visitors WHERE id = $1`, uuid.UUID(visitorID))
	return scanVisitor(row)
}

func (s *PostgresStore) CompleteCheckOut(ctx context.Context, visitorID id.VisitorID, at time.Time, actor id.UserID, notes string) (*models.Visitor, error) {
	query := `
		UPDATE visitors
		SET status = $2, check_out_time = $3, check_out_notes = $4, checked_out_by = $5
		WHERE id = $1 AND status IN ($6, $7)
		RETURNING ` + visitorColumns
	row := s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(visitorID), string(models.StatusCheckedOut), at, notes,
		nullableID(uuid.UUID(actor)),
		string(models.StatusCheckedIn), string(models.StatusOverstayed),
	)
	v, err := scanVisitor(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		// Distinguish a missing record from an illegal transition.
		if _, findErr := s.FindByID(ctx, visitorID); findErr == nil {
			return nil, sentinel.ErrInvalidState
		}
		return nil, sentinel.ErrNotFound
	}
	return v, err
}

func (s *PostgresStore) MarkOverstayed(ctx context.Context, visitorID id.VisitorID, now time.Time) (*models.Visitor, bool, error) {
	query := `
		UPDATE visitors
		SET status = $2
		WHERE id = $1 AND status = $3
		  AND expected_duration_hours > 0
		  AND check_in_time + make_interval(secs => expected_duration_hours * 3600) < $4
		RETURNING ` + visitorColumns
	row := s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(visitorID), string(models.StatusOverstayed), string(models.StatusCheckedIn), now)
	v, err := scanVisitor(row)
	if err == nil {
		return v, true, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, err
	}

	existing, findErr := s.FindByID(ctx, visitorID)
	if findErr != nil {
		return nil, false, findErr
	}
	if existing.Status == models.StatusOverstayed {
		return existing, false, nil
	}
	return nil, false, sentinel.ErrInvalidState
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*models.Visitor, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !f.SiteID.IsNil() {
		conds = append(conds, "site_id = "+arg(uuid.UUID(f.SiteID)))
	}
	if !f.AccessPointID.IsNil() {
		conds = append(conds, "access_point_id = "+arg(uuid.UUID(f.AccessPointID)))
	}
	if len(f.Statuses) > 0 {
		var ph []string
		for _, st := range f.Statuses {
			ph = append(ph, arg(string(st)))
		}
		conds = append(conds, "status IN ("+strings.Join(ph, ", ")+")")
	}

	query := `SELECT ` + visitorColumns + ` FROM visitors`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY check_in_time DESC"

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}
	defer rows.Close()
	return scanVisitors(rows)
}

func (s *PostgresStore) ListOverdue(ctx context.Context, now time.Time) ([]*models.Visitor, error) {
	query := `
		SELECT ` + visitorColumns + `
		FROM visitors
		WHERE status = $1
		  AND expected_duration_hours > 0
		  AND check_in_time + make_interval(secs => expected_duration_hours * 3600) < $2
		ORDER BY check_in_time ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query, string(models.StatusCheckedIn), now)
	if err != nil {
		return nil, fmt.Errorf("list overdue visitors: %w", err)
	}
	defer rows.Close()
	return scanVisitors(rows)
}

func (s *PostgresStore) CountOnSite(ctx context.Context, accessPointID id.AccessPointID) (int, error) {
	var n int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT count(*) FROM visitors WHERE access_point_id = $1 AND status IN ($2, $3)`,
		uuid.UUID(accessPointID), string(models.StatusCheckedIn), string(models.StatusOverstayed),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count on-site visitors: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisitor(row rowScanner) (*models.Visitor, error) {
	var (
		v                       models.Visitor
		vid, sid, apid          uuid.UUID
		status, access          string
		checkOutTime            sql.NullTime
		checkedInB, checkedOutB uuid.NullUUID
	)
	err := row.Scan(
		&vid, &sid, &apid, &v.FullName, &v.Email, &v.Phone, &v.Company, &v.Purpose,
		&v.BadgeNumber, &v.QRPayload, &status, &access,
		&v.EmergencyContact.Name, &v.EmergencyContact.Phone, &v.ExpectedDurationHours,
		&v.CheckInTime, &checkOutTime, &v.CheckOutNotes, &checkedInB, &checkedOutB,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan visitor: %w", err)
	}

	v.ID = id.VisitorID(vid)
	v.SiteID = id.SiteID(sid)
	v.AccessPointID = id.AccessPointID(apid)
	v.Status = models.Status(status)
	v.SpecialAccess = models.SpecialAccess(access)
	if checkOutTime.Valid {
		t := checkOutTime.Time
		v.CheckOutTime = &t
	}
	if checkedInB.Valid {
		v.CheckedInBy = id.UserID(checkedInB.UUID)
	}
	if checkedOutB.Valid {
		v.CheckedOutBy = id.UserID(checkedOutB.UUID)
	}
	return &v, nil
}

func scanVisitors(rows *sql.Rows) ([]*models.Visitor, error) {
	var out []*models.Visitor
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// nullableID maps the nil UUID onto SQL NULL so unset actor references do
// not masquerade as a real user.
func nullableID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}
