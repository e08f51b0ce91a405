package webrtc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FathanAkram-app/VCOMM-web-sub005/internal/signaling"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/logger"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/response"
)

// FramePublisher forwards a frame toward whatever process holds the target
// user's sockets
type FramePublisher interface {
	Publish(ctx context.Context, userID int64, frame []byte) error
}

// Handler relays WebRTC payloads over HTTP for clients that cannot hold a
// WebSocket open. It is an alternate transport for the same relay
// operations, not a separate protocol.
type Handler struct {
	router *signaling.Router
	bridge FramePublisher // optional
}

// NewHandler creates a new WebRTC fallback handler. bridge may be nil.
func NewHandler(router *signaling.Router, bridge FramePublisher) *Handler {
	return &Handler{router: router, bridge: bridge}
}

// OfferRequest carries a session description toward a callee
type OfferRequest struct {
	CallID       int64           `json:"callId" binding:"required"`
	TargetUserID int64           `json:"targetUserId" binding:"required"`
	Offer        json.RawMessage `json:"offer" binding:"required"`
}

// AnswerRequest carries a session description back to a caller
type AnswerRequest struct {
	CallID       int64           `json:"callId" binding:"required"`
	TargetUserID int64           `json:"targetUserId" binding:"required"`
	Answer       json.RawMessage `json:"answer" binding:"required"`
}

// ICECandidateRequest carries a connectivity candidate between peers
type ICECandidateRequest struct {
	CallID       int64           `json:"callId" binding:"required"`
	TargetUserID int64           `json:"targetUserId" binding:"required"`
	Candidate    json.RawMessage `json:"candidate" binding:"required"`
}

type relayFrame struct {
	Type      string          `json:"type"`
	CallID    int64           `json:"callId"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// Offer relays an SDP offer to the target user
// POST /webrtc/offer
func (h *Handler) Offer(c *gin.Context) {
	var req OfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	h.relay(c, req.TargetUserID, relayFrame{
		Type:   signaling.TypeCallOffer,
		CallID: req.CallID,
		SDP:    req.Offer,
	})
}

// Answer relays an SDP answer to the target user
// POST /webrtc/answer
func (h *Handler) Answer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	h.relay(c, req.TargetUserID, relayFrame{
		Type:   signaling.TypeCallAnswer,
		CallID: req.CallID,
		SDP:    req.Answer,
	})
}

// ICECandidate relays an ICE candidate to the target user
// POST /webrtc/ice-candidate
func (h *Handler) ICECandidate(c *gin.Context) {
	var req ICECandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	h.relay(c, req.TargetUserID, relayFrame{
		Type:      signaling.TypeCallICECandidate,
		CallID:    req.CallID,
		Candidate: req.Candidate,
	})
}

// relay delivers the frame locally, falling back to the cross-process bridge
// when no local socket accepted it. An offline target with a healthy bridge
// is an expected condition; a failed bridge publish is an internal error,
// since it was the last delivery path.
func (h *Handler) relay(c *gin.Context, targetUserID int64, frame relayFrame) {
	delivered := h.router.Send(targetUserID, frame)

	if !delivered && h.bridge != nil {
		raw, err := json.Marshal(frame)
		if err != nil {
			logger.Error("failed to marshal relay frame", zap.Error(err))
			response.InternalError(c, "Failed to relay")
			return
		}
		if err := h.bridge.Publish(c.Request.Context(), targetUserID, raw); err != nil {
			logger.Error("failed to publish relay frame",
				zap.Int64("target_user_id", targetUserID),
				zap.Error(err))
			response.InternalError(c, "Failed to relay")
			return
		}
	}

	response.Success(c, http.StatusOK, gin.H{"delivered": delivered})
}
