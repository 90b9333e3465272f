package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gatehouse/internal/alert/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

// PostgresStore persists alerts. Audience and the read/ack receipt sets live
// in JSONB columns; Update serializes receipt appends with SELECT FOR UPDATE
// so concurrent readers of the same alert never overwrite each other.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const alertColumns = "id, severity, status, title, message, site_id, visitor_id, activity_id, audience, reads, acks, expires_at, created_at"

func (s *PostgresStore) Create(ctx context.Context, a *models.Alert) error {
	audience, reads, acks, err := marshalJSONB(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (`+alertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		uuid.UUID(a.ID), string(a.Severity), string(a.Status), a.Title, a.Message,
		uuid.UUID(a.SiteID), nullableID(uuid.UUID(a.VisitorID)), nullableID(uuid.UUID(a.ActivityID)),
		audience, reads, acks, a.ExpiresAt, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE id = $1`, uuid.UUID(alertID))
	return scanAlert(row)
}

// Update applies fn to the alert inside a transaction holding a row lock.
func (s *PostgresStore) Update(ctx context.Context, alertID id.AlertID, fn func(*models.Alert) error) (*models.Alert, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin alert update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE id = $1 FOR UPDATE`, uuid.UUID(alertID))
	a, err := scanAlert(row)
	if err != nil {
		return nil, err
	}
	if err := fn(a); err != nil {
		return nil, err
	}

	audience, reads, acks, err := marshalJSONB(a)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE alerts SET status = $2, reads = $3, acks = $4, audience = $5
		WHERE id = $1`,
		uuid.UUID(alertID), string(a.Status), reads, acks, audience,
	); err != nil {
		return nil, fmt.Errorf("update alert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit alert update: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) List(ctx context.Context, f models.Filter) ([]*models.Alert, error) {
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
	if len(f.Severities) > 0 {
		var ph []string
		for _, sev := range f.Severities {
			ph = append(ph, arg(string(sev)))
		}
		conds = append(conds, "severity IN ("+strings.Join(ph, ", ")+")")
	}

	query := `SELECT ` + alertColumns + ` FROM alerts`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []*models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var (
		a              models.Alert
		aid, sid       uuid.UUID
		vID, actID     uuid.NullUUID
		sev, status    string
		audienceRaw    []byte
		readsRaw, acks []byte
	)
	err := row.Scan(&aid, &sev, &status, &a.Title, &a.Message, &sid, &vID, &actID,
		&audienceRaw, &readsRaw, &acks, &a.ExpiresAt, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	a.ID = id.AlertID(aid)
	a.Severity = models.Severity(sev)
	a.Status = models.Status(status)
	a.SiteID = id.SiteID(sid)
	if vID.Valid {
		a.VisitorID = id.VisitorID(vID.UUID)
	}
	if actID.Valid {
		a.ActivityID = id.ActivityID(actID.UUID)
	}
	if err := json.Unmarshal(audienceRaw, &a.Audience); err != nil {
		return nil, fmt.Errorf("decode alert audience: %w", err)
	}
	if err := json.Unmarshal(readsRaw, &a.Reads); err != nil {
		return nil, fmt.Errorf("decode alert reads: %w", err)
	}
	if err := json.Unmarshal(acks, &a.Acks); err != nil {
		return nil, fmt.Errorf("decode alert acks: %w", err)
	}
	return &a, nil
}

func marshalJSONB(a *models.Alert) (audience, reads, acks []byte, err error) {
	if audience, err = json.Marshal(a.Audience); err != nil {
		return nil, nil, nil, fmt.Errorf("encode alert audience: %w", err)
	}
	if a.Reads == nil {
		reads = []byte("[]")
	} else if reads, err = json.Marshal(a.Reads); err != nil {
		return nil, nil, nil, fmt.Errorf("encode alert reads: %w", err)
	}
	if a.Acks == nil {
		acks = []byte("[]")
	} else if acks, err = json.Marshal(a.Acks); err != nil {
		return nil, nil, nil, fmt.Errorf("encode alert acks: %w", err)
	}
	return audience, reads, acks, nil
}

func nullableID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}
