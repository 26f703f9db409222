package model

import (
	"strings"
	"time"

	"telegram-object-publisher/internal/domain"
)

// Grant is the publishing permission of a submitter together with the contact
// template that replaces the contact block of their posts.
type Grant struct {
	SubmitterID   int64
	DestinationID string // empty means the configured default channel
	Template      string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ExpiresAt     *time.Time // nil = never expires
}

// NewGrant constructs an active grant. ttl <= 0 means no expiry.
func NewGrant(submitterID int64, destinationID, template string, ttl time.Duration) (*Grant, error) {
	if submitterID == 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	g := &Grant{
		SubmitterID:   submitterID,
		DestinationID: strings.TrimSpace(destinationID),
		Template:      template,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		g.ExpiresAt = &exp
	}
	return g, nil
}

// Usable reports whether the grant allows publishing at the given instant.
func (g *Grant) Usable(at time.Time) bool {
	if g == nil || !g.Active {
		return false
	}
	if g.ExpiresAt != nil && !at.Before(*g.ExpiresAt) {
		return false
	}
	return strings.TrimSpace(g.Template) != ""
}

// Authorization is the answer to "may this submitter publish, where, and with what template".
type Authorization struct {
	SubmitterID   int64
	DestinationID string
	Template      string
}
