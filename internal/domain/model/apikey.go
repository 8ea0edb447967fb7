package model

import "time"

// APIKey represents a stored API key. Only the SHA-256 hash of the full key
// string is persisted; the plaintext exists only at issuance time.
type APIKey struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	KeyHash       string     `json:"-"`
	Name          string     `json:"name"`
	WebhookSecret string     `json:"-"`
	Active        bool       `json:"active"`
	LastUsedAt    *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// AuthContext is the resolved identity attached to a request after API key
// verification.
type AuthContext struct {
	UserID        string
	APIKeyID      string
	WebhookSecret string
}
