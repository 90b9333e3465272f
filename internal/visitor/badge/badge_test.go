package badge

import (
	"encoding/base64"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "gatehouse/pkg/domain"
)

var badgePattern = regexp.MustCompile(`^V\d{9}$`)

func TestIssueFormat(t *testing.T) {
	issuer := NewAt(func() time.Time {
		return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	})

	b, err := issuer.Issue(id.NewVisitorID())
	require.NoError(t, err)
	assert.Regexp(t, badgePattern, b.Number)
}

func TestIssueQRPayloadRoundTrips(t *testing.T) {
	visitorID := id.NewVisitorID()
	b, err := New().Issue(visitorID)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(b.QRPayload)
	require.NoError(t, err)

	var decoded struct {
		VisitorID   id.VisitorID `json:"visitor_id"`
		BadgeNumber string       `json:"badge_number"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, visitorID, decoded.VisitorID)
	assert.Equal(t, b.Number, decoded.BadgeNumber)
}

func TestIssueVariesAcrossCalls(t *testing.T) {
	issuer := New()
	seen := make(map[string]bool)
	for range 20 {
		b, err := issuer.Issue(id.NewVisitorID())
		require.NoError(t, err)
		seen[b.Number] = true
	}
	// The random suffix gives 1000 possibilities per second; 20 draws should
	// not all collapse to one value.
	assert.Greater(t, len(seen), 1)
}
