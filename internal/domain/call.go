package domain

import "time"

// Call represents one voice/video session attempt, direct or group.
// Exactly one of ReceiverID/RoomID is set.
type Call struct {
	ID         int64      `json:"id"`
	CallerID   int64      `json:"caller_id"`
	ReceiverID *int64     `json:"receiver_id,omitempty"` // set for direct calls
	RoomID     *int64     `json:"room_id,omitempty"`     // set for group calls
	CallType   string     `json:"call_type"`             // audio, video
	Status     string     `json:"status"`                // pending, answered, ended, missed, declined
	StartedAt  time.Time  `json:"started_at"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Duration   int        `json:"duration,omitempty"` // in seconds, measured from answer
}

// IsGroup reports whether the call targets a room rather than a single user
func (c *Call) IsGroup() bool {
	return c.RoomID != nil
}

// IsTerminal reports whether the call has reached a terminal status
func (c *Call) IsTerminal() bool {
	switch c.Status {
	case "ended", "missed", "declined":
		return true
	}
	return false
}
