package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gatehouse/internal/screening/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

// PostgresStore persists banned entries. Matching happens in SQL so the hot
// screening path does one indexed query instead of streaming the registry.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, e *models.BannedEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO banned_entries (id, full_name, email, company, reason, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(e.ID), e.FullName, e.Email, e.Company, e.Reason, e.IsActive, e.ExpiresAt, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert banned entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, entryID id.BannedEntryID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE banned_entries SET is_active = FALSE WHERE id = $1`, uuid.UUID(entryID))
	if err != nil {
		return fmt.Errorf("deactivate banned entry: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.BannedEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, email, company, reason, is_active, expires_at, created_at
		FROM banned_entries ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list banned entries: %w", err)
	}
	defer rows.Close()

	var out []*models.BannedEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindMatch mirrors models.BannedEntry.Matches in SQL: partial
// case-insensitive name/company, exact case-insensitive email, active and
// unexpired at now. Pure read.
func (s *PostgresStore) FindMatch(ctx context.Context, name, email, company string, now time.Time) (*models.BannedEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, company, reason, is_active, expires_at, created_at
		FROM banned_entries
		WHERE is_active = TRUE
		  AND (expires_at IS NULL OR expires_at > $4)
		  AND (
			(full_name <> '' AND $1 ILIKE '%' || full_name || '%')
			OR (company <> '' AND $3 ILIKE '%' || company || '%')
			OR (email <> '' AND lower(email) = lower(btrim($2)))
		  )
		LIMIT 1`,
		name, email, company, now,
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return e, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.BannedEntry, error) {
	var (
		e         models.BannedEntry
		entryID   uuid.UUID
		expiresAt sql.NullTime
	)
	err := row.Scan(&entryID, &e.FullName, &e.Email, &e.Company, &e.Reason, &e.IsActive, &expiresAt, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scan banned entry: %w", err)
	}
	e.ID = id.BannedEntryID(entryID)
	if expiresAt.Valid {
		t := expiresAt.Time
		e.ExpiresAt = &t
	}
	return &e, nil
}
