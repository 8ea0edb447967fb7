// Package model defines the core data types used throughout the darkroom job API.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Plan represents a user's subscription tier.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type Plan string

const (
	// PlanBasic is the entry tier: one concurrent job.
	PlanBasic Plan = "basic"
	// PlanPro is the paid tier: five concurrent jobs.
	PlanPro Plan = "pro"
)

// Valid returns true if the Plan is valid.
func (p Plan) Valid() bool {
	return p == PlanBasic || p == PlanPro
}

// UnmarshalText implements encoding.TextUnmarshaler for Plan to allow env and
// flag parsing.
func (p *Plan) UnmarshalText(text []byte) error {
	v := Plan(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid plan: %q", string(text))
	}
	*p = v
	return nil
}

// ConcurrencyLimit returns the maximum number of jobs a user on this plan may
// have in flight (queued or processing) at once.
func (p Plan) ConcurrencyLimit() int {
	if p == PlanPro {
		return 5
	}
	return 1
}

// User represents an account that owns jobs and spends credits.
// Credits are mutated only through the ledger's atomic deduct/refund
// operations, never through a read-modify-write on this struct.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Plan      Plan       `json:"plan"`
	Credits   int        `json:"credits"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}
