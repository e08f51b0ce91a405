// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// DefaultTimeout is the default timeout for most operations
	DefaultTimeout = 30 * time.Second

	// WebSocketPingInterval is the interval for WebSocket ping/pong
	WebSocketPingInterval = 60 * time.Second

	// WebSocketWriteTimeout is the deadline applied to each socket write
	WebSocketWriteTimeout = 10 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second
)

// Database connection constants
const (
	// MaxConnLifetime is the maximum lifetime of a database connection
	MaxConnLifetime = 1 * time.Hour

	// MaxConnIdleTime is the maximum idle time for a database connection
	MaxConnIdleTime = 30 * time.Minute

	// HealthCheckPeriod is the interval between database health checks
	HealthCheckPeriod = 1 * time.Minute
)

// Call-related constants
const (
	// DefaultRingTimeout is how long an unanswered call rings before it is
	// marked missed
	DefaultRingTimeout = 45 * time.Second

	// MaxCallDuration is the maximum allowed call duration (24 hours)
	MaxCallDuration = 24 * time.Hour

	// CallStatusPending indicates a call is waiting to be answered
	CallStatusPending = "pending"

	// CallStatusAnswered indicates a call is in progress
	CallStatusAnswered = "answered"

	// CallStatusEnded indicates a call has ended
	CallStatusEnded = "ended"

	// CallStatusMissed indicates a call rang out unanswered
	CallStatusMissed = "missed"

	// CallStatusDeclined indicates the callee rejected the call
	CallStatusDeclined = "declined"

	// CallTypeAudio indicates an audio-only call
	CallTypeAudio = "audio"

	// CallTypeVideo indicates a video call
	CallTypeVideo = "video"
)

// Presence constants
const (
	// PresenceTTL is how long a presence entry lives without a heartbeat
	PresenceTTL = 5 * time.Minute
)

// Pagination constants
const (
	// DefaultPageSize is the default number of items per page
	DefaultPageSize = 20

	// MaxPageSize is the maximum number of items per page
	MaxPageSize = 100
)
