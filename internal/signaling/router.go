package signaling

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/metrics"
)

// Router delivers payloads to every live connection of a target user
type Router struct {
	registry *Registry
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewRouter creates a router over the given registry. The metrics argument
// may be nil.
func NewRouter(registry *Registry, log *zap.Logger, m *metrics.Metrics) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		registry: registry,
		log:      log,
		metrics:  m,
	}
}

// Send marshals the payload and delivers it to every live connection of the
// target user. It returns true iff at least one connection accepted the
// frame. A user with zero live connections is a no-op that reports false,
// never an error.
func (r *Router) Send(targetUserID int64, payload interface{}) bool {
	frame, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("failed to marshal outbound frame",
			zap.Int64("target_user_id", targetUserID),
			zap.Error(err))
		return false
	}
	return r.SendRaw(targetUserID, frame)
}

// SendRaw delivers a pre-encoded frame to every live connection of the target
// user. A rejected write on one connection does not block delivery to the
// others.
func (r *Router) SendRaw(targetUserID int64, frame []byte) bool {
	delivered := false
	for _, peer := range r.registry.Connections(targetUserID) {
		if peer.Enqueue(frame) {
			delivered = true
		} else {
			r.log.Debug("dropped frame for saturated connection",
				zap.Int64("target_user_id", targetUserID),
				zap.String("channel", string(peer.Channel())))
		}
	}

	if r.metrics != nil {
		r.metrics.RecordRoutedFrame(delivered)
	}
	if !delivered {
		r.log.Debug("no live connection accepted frame",
			zap.Int64("target_user_id", targetUserID))
	}
	return delivered
}
