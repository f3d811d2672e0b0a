package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"writemystory/pkg/logger"
	"writemystory/pkg/outbox"
	"writemystory/reply-service/internal/model"
)

// ContextModeratorID is the gin context key set by the auth middleware
const ContextModeratorID = "moderator_id"

type ModerationService interface {
	List(ctx context.Context, f model.EmailResponseFilter) ([]*model.EmailResponse, error)
	SetStatus(ctx context.Context, id string, to model.ResponseStatus, moderatorID string) (*model.EmailResponse, error)
}

type ModerationHandler struct {
	moderation ModerationService
	logger     *zap.Logger
}

func NewModerationHandler(moderation ModerationService, logger *zap.Logger) *ModerationHandler {
	return &ModerationHandler{moderation: moderation, logger: logger}
}

// ListResponses handles GET /admin/email-responses?status=&story_id=&limit=
func (h *ModerationHandler) ListResponses(c *gin.Context) {
	f := model.EmailResponseFilter{
		Status:  model.ResponseStatus(c.Query("status")),
		StoryID: c.Query("story_id"),
	}
	if f.StoryID != "" {
		if _, err := uuid.Parse(f.StoryID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid story_id"})
			return
		}
	}
	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 || limit > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		f.Limit = limit
	}

	responses, err := h.moderation.List(c.Request.Context(), f)
	if err != nil {
		if errors.Is(err, model.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to list email responses", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list responses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"responses": responses})
}

// SetStatus handles PATCH /admin/email-responses/:id/status
func (h *ModerationHandler) SetStatus(c *gin.Context) {
	var req struct {
		Status model.ResponseStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	// ids are uuids in the datastore; anything else cannot exist
	if _, err := uuid.Parse(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "email response not found"})
		return
	}

	updated, err := h.moderation.SetStatus(c.Request.Context(), c.Param("id"), req.Status, c.GetString(ContextModeratorID))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, updated)
	case errors.Is(err, model.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "email response not found"})
	case errors.Is(err, model.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to update email response status",
			zap.String("email_response_id", c.Param("id")),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update status"})
	}
}

type OutboxReplayer interface {
	ReplayEvent(ctx context.Context, eventID int64) error
	ReplayFailedEvents(ctx context.Context, limit int) (int, error)
}

type OutboxHandler struct {
	replayer OutboxReplayer
	logger   *zap.Logger
}

func NewOutboxHandler(replayer OutboxReplayer, logger *zap.Logger) *OutboxHandler {
	return &OutboxHandler{replayer: replayer, logger: logger}
}

// Replay handles POST /admin/outbox/replay?id=
func (h *OutboxHandler) Replay(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	if err := h.replayer.ReplayEvent(c.Request.Context(), id); err != nil {
		if errors.Is(err, outbox.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		logger.WithTrace(c.Request.Context(), h.logger).Error("Outbox replay failed", zap.Int64("event_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "replay failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"event_id": id, "status": "replayed"})
}

// ReplayFailed handles POST /admin/outbox/replay-failed?limit=
func (h *OutboxHandler) ReplayFailed(c *gin.Context) {
	limit := 100
	if l := c.Query("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = v
	}

	n, err := h.replayer.ReplayFailedEvents(c.Request.Context(), limit)
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed outbox replay failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "replay failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"replayed": n})
}
