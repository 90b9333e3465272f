// Package models holds the banned-entry registry types.
package models

import (
	"strings"
	"time"

	id "gatehouse/pkg/domain"
)

// BannedEntry is a standing denial record matched against incoming
// check-in attempts.
type BannedEntry struct {
	ID       id.BannedEntryID `json:"id"`
	FullName string           `json:"full_name,omitempty"`
	Email    string           `json:"email,omitempty"`
	Company  string           `json:"company,omitempty"`
	Reason   string           `json:"reason"`
	IsActive bool             `json:"is_active"`
	// ExpiresAt past means the entry no longer matches, even when IsActive
	// was never cleared. Computed at query time; no background job.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ActiveAt reports whether the entry participates in screening at now.
func (e *BannedEntry) ActiveAt(now time.Time) bool {
	if !e.IsActive {
		return false
	}
	if e.ExpiresAt != nil && !e.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Matches reports whether the entry matches the given identity:
// case-insensitive partial match on name or company, exact
// (case-insensitive) match on email. Empty entry fields never match.
func (e *BannedEntry) Matches(name, email, company string) bool {
	if e.FullName != "" && containsFold(name, e.FullName) {
		return true
	}
	if e.Company != "" && containsFold(company, e.Company) {
		return true
	}
	if e.Email != "" && strings.EqualFold(strings.TrimSpace(email), e.Email) {
		return true
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
