package model

import "time"

// IdempotencyRecord is a cached response for a (user, idempotency key) pair.
// Records are written only for 2xx outcomes and expire after a fixed TTL;
// a reused key with a different request hash is rejected, never replayed.
type IdempotencyRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Key          string    `json:"key"`
	RequestHash  string    `json:"requestHash"`
	StatusCode   int       `json:"statusCode"`
	ResponseBody []byte    `json:"responseBody"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired reports whether the record is past its TTL at the given instant.
func (r *IdempotencyRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
