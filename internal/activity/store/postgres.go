package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gatehouse/internal/activity/models"
	id "gatehouse/pkg/domain"
	txcontext "gatehouse/pkg/platform/tx"
)

// PostgresStore persists activities. Insert-only; the table has no UPDATE
// or DELETE path in this codebase.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, a *models.Activity) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO activities (id, type, description, priority, site_id, access_point_id, visitor_id, actor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(a.ID), string(a.Type), a.Description, string(a.Priority),
		uuid.UUID(a.SiteID), nullableID(uuid.UUID(a.AccessPointID)),
		nullableID(uuid.UUID(a.VisitorID)), nullableID(uuid.UUID(a.ActorID)),
		a.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f models.Filter) ([]*models.Activity, error) {
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
	if len(f.Types) > 0 {
		var ph []string
		for _, t := range f.Types {
			ph = append(ph, arg(string(t)))
		}
		conds = append(conds, "type IN ("+strings.Join(ph, ", ")+")")
	}
	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at <= "+arg(f.To))
	}

	query := `SELECT id, type, description, priority, site_id, access_point_id, visitor_id, actor_id, occurred_at FROM activities`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY occurred_at DESC"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += " OFFSET " + arg(f.Offset)
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []*models.Activity
	for rows.Next() {
		var (
			a                models.Activity
			aid, sid         uuid.UUID
			apID, vID, actID uuid.NullUUID
			typ, prio        string
		)
		if err := rows.Scan(&aid, &typ, &a.Description, &prio, &sid, &apID, &vID, &actID, &a.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.ID = id.ActivityID(aid)
		a.Type = models.Type(typ)
		a.Priority = models.Priority(prio)
		a.SiteID = id.SiteID(sid)
		if apID.Valid {
			a.AccessPointID = id.AccessPointID(apID.UUID)
		}
		if vID.Valid {
			a.VisitorID = id.VisitorID(vID.UUID)
		}
		if actID.Valid {
			a.ActorID = id.UserID(actID.UUID)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func nullableID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}
