package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatchesPartialName(t *testing.T) {
	e := &BannedEntry{FullName: "john smith"}

	assert.True(t, e.Matches("John Smith", "", ""))
	assert.True(t, e.Matches("Dr. John Smith Jr.", "", ""), "partial match on name")
	assert.False(t, e.Matches("Jane Doe", "", ""))
}

func TestMatchesExactEmail(t *testing.T) {
	e := &BannedEntry{Email: "banned@example.com"}

	assert.True(t, e.Matches("", "banned@example.com", ""))
	assert.True(t, e.Matches("", "BANNED@Example.COM", ""), "email compare is case-insensitive")
	assert.True(t, e.Matches("", "  banned@example.com ", ""), "email is trimmed")
	assert.False(t, e.Matches("", "banned@example.co", ""), "email is exact, not partial")
}

func TestMatchesPartialCompany(t *testing.T) {
	e := &BannedEntry{Company: "acme"}

	assert.True(t, e.Matches("", "", "Acme Logistics Ltd"))
	assert.False(t, e.Matches("", "", "Globex"))
}

func TestMatchesEmptyFieldsNeverMatch(t *testing.T) {
	e := &BannedEntry{}
	assert.False(t, e.Matches("anyone", "any@example.com", "any co"))
}

func TestActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	active := &BannedEntry{IsActive: true}
	assert.True(t, active.ActiveAt(now))

	deactivated := &BannedEntry{IsActive: false}
	assert.False(t, deactivated.ActiveAt(now))

	past := now.Add(-time.Hour)
	expired := &BannedEntry{IsActive: true, ExpiresAt: &past}
	assert.False(t, expired.ActiveAt(now), "expired entry stops matching without a background job")

	future := now.Add(time.Hour)
	pending := &BannedEntry{IsActive: true, ExpiresAt: &future}
	assert.True(t, pending.ActiveAt(now))
}
