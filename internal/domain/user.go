package domain

import "time"

// User represents a platform account as seen by the signaling tier
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Rank        string    `json:"rank,omitempty"` // e.g. "SGT", "LT"
	CreatedAt   time.Time `json:"created_at"`
}
