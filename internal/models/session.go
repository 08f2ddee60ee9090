package models

import "time"

// ActivityRecord is a best-effort "last seen" marker for a caller. Key is
// user-{id} for identified callers, otherwise a fingerprint hash.
type ActivityRecord struct {
	Key       string    `json:"key"`
	UserID    *int64    `json:"user_id,omitempty"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	LastSeen  time.Time `json:"last_seen"`
}
