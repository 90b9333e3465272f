package accesspoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
	txcontext "gatehouse/pkg/platform/tx"
)

// PostgresStore persists access points. ApplyDelta is a single conditional
// UPDATE and joins any transaction carried in context, which keeps the
// counter change in the same atomic unit of work as the visitor write.
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

func (s *PostgresStore) Create(ctx context.Context, ap *models.AccessPoint) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO access_points (id, site_id, name, capacity, current_occupancy, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(ap.ID), uuid.UUID(ap.SiteID), ap.Name, ap.Capacity, ap.CurrentOccupancy, ap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert access point: %w", err)
	}
	return nil
}

func (s *PostgresStore) ApplyDelta(ctx context.Context, apID id.AccessPointID, delta int) (*models.AccessPoint, error) {
	// GREATEST clamps at zero so drift never violates the CHECK constraint;
	// the reconciler converges the counter back to ground truth.
	row := s.execer(ctx).QueryRowContext(ctx, `
		UPDATE access_points
		SET current_occupancy = GREATEST(current_occupancy + $2, 0)
		WHERE id = $1
		RETURNING id, site_id, name, capacity, current_occupancy, created_at`,
		uuid.UUID(apID), delta,
	)
	ap, err := scanAccessPoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return ap, err
}

func (s *PostgresStore) SetOccupancy(ctx context.Context, apID id.AccessPointID, n int) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE access_points SET current_occupancy = $2 WHERE id = $1`,
		uuid.UUID(apID), n,
	)
	if err != nil {
		return fmt.Errorf("set occupancy: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, apID id.AccessPointID) (*models.AccessPoint, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, site_id, name, capacity, current_occupancy, created_at
		FROM access_points WHERE id = $1`,
		uuid.UUID(apID),
	)
	ap, err := scanAccessPoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return ap, err
}

func (s *PostgresStore) List(ctx context.Context, siteID id.SiteID) ([]*models.AccessPoint, error) {
	query := `SELECT id, site_id, name, capacity, current_occupancy, created_at FROM access_points`
	var args []any
	if !siteID.IsNil() {
		query += ` WHERE site_id = $1`
		args = append(args, uuid.UUID(siteID))
	}
	query += ` ORDER BY name`

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list access points: %w", err)
	}
	defer rows.Close()

	var out []*models.AccessPoint
	for rows.Next() {
		ap, err := scanAccessPoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ap)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccessPoint(row rowScanner) (*models.AccessPoint, error) {
	var (
		ap        models.AccessPoint
		apID, sID uuid.UUID
	)
	err := row.Scan(&apID, &sID, &ap.Name, &ap.Capacity, &ap.CurrentOccupancy, &ap.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scan access point: %w", err)
	}
	ap.ID = id.AccessPointID(apID)
	ap.SiteID = id.SiteID(sID)
	return &ap, nil
}
