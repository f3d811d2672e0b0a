package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "writemystory/contracts/mq"
	"writemystory/pkg/logger"
	"writemystory/pkg/metrics"
	"writemystory/pkg/util"
	"writemystory/reply-service/internal/model"
)

const handlerName = "reply_notification"

type StoryStore interface {
	GetStoryByID(ctx context.Context, id string) (*model.Story, error)
}

type NotificationStore interface {
	Insert(ctx context.Context, n *model.ReplyNotification) (bool, error)
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, id string) bool
	Release(ctx context.Context, handler string, id string)
}

type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type DLQPublisher interface {
	PublishToDLQ(routingKey string, payload []byte, originalError string) error
}

// ReplyReceivedHandler writes an owner notification for every stored reply
type ReplyReceivedHandler struct {
	stories       StoryStore
	notifications NotificationStore
	deduper       Deduper
	retryCounter  RetryCounter
	dlq           DLQPublisher
	maxRetries    int64
	logger        *zap.Logger
}

func NewReplyReceivedHandler(
	stories StoryStore,
	notifications NotificationStore,
	deduper Deduper,
	retryCounter RetryCounter,
	dlq DLQPublisher,
	maxRetries int,
	logger *zap.Logger,
) *ReplyReceivedHandler {
	return &ReplyReceivedHandler{
		stories:       stories,
		notifications: notifications,
		deduper:       deduper,
		retryCounter:  retryCounter,
		dlq:           dlq,
		maxRetries:    int64(maxRetries),
		logger:        logger,
	}
}

// Handle returns an error only for retryable failures within the retry budget
func (h *ReplyReceivedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.ReplyReceivedPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RecordID == "" {
		if err == nil {
			err = fmt.Errorf("missing record_id")
		}
		log.Error("Invalid reply.received payload, sending to DLQ", zap.Error(err), zap.String("raw_payload", string(raw)))
		h.toDLQ(log, raw, err)
		return nil
	}

	log = log.With(
		zap.String("record_id", p.RecordID),
		zap.String("channel", p.Channel),
	)

	if p.StoryID == nil {
		// unmatched email: moderators see it in the review queue
		log.Debug("Reply has no story, no owner to notify")
		metrics.IncrementNotification("skipped")
		return nil
	}

	if !h.deduper.AcquireOnce(ctx, handlerName, p.RecordID) {
		metrics.IncrementNotification("skipped")
		return nil
	}

	if err := h.notify(ctx, &p); err != nil {
		h.deduper.Release(ctx, handlerName, p.RecordID)
		return h.handleError(ctx, log, &p, raw, err)
	}

	if err := h.retryCounter.Reset(ctx, util.FormatRetryKey(handlerName, p.RecordID)); err != nil {
		log.Warn("Failed to reset retry counter", zap.Error(err))
	}
	metrics.IncrementNotification("success")
	return nil
}

func (h *ReplyReceivedHandler) notify(ctx context.Context, p *mqcontracts.ReplyReceivedPayload) error {
	story, err := h.stories.GetStoryByID(ctx, *p.StoryID)
	if err != nil {
		return fmt.Errorf("get story: %w", err)
	}

	inserted, err := h.notifications.Insert(ctx, &model.ReplyNotification{
		StoryID:    story.ID,
		UserID:     story.UserID,
		QuestionID: p.QuestionID,
		Channel:    model.Channel(p.Channel),
		Message:    notificationMessage(p),
		SourceID:   p.RecordID,
	})
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	if !inserted {
		h.logger.Debug("Notification already written", zap.String("record_id", p.RecordID))
	}
	return nil
}

func (h *ReplyReceivedHandler) handleError(ctx context.Context, log *zap.Logger, p *mqcontracts.ReplyReceivedPayload, raw []byte, err error) error {
	retryable, errType := util.IsRetryableError(err)
	log = log.With(zap.String("error_type", errType), zap.Bool("retryable", retryable), zap.Error(err))

	if !retryable {
		log.Error("Owner notification failed, not retrying")
		metrics.IncrementNotification("failed")
		return nil
	}

	retryKey := util.FormatRetryKey(handlerName, p.RecordID)
	count, cerr := h.retryCounter.IncrementAndGet(ctx, retryKey)
	if cerr != nil {
		log.Warn("Failed to get retry count, continuing anyway", zap.NamedError("counter_error", cerr))
		count = 1
	}

	if !util.ShouldRetry(count, h.maxRetries, retryable) {
		log.Error("Max retries exceeded, sending to DLQ", zap.Int64("retry_count", count))
		h.toDLQ(log, raw, err)
		if rerr := h.retryCounter.Reset(ctx, retryKey); rerr != nil {
			log.Warn("Failed to reset retry counter", zap.NamedError("reset_error", rerr))
		}
		metrics.IncrementNotification("failed")
		return nil
	}

	log.Warn("Owner notification failed, will retry", zap.Int64("retry_count", count))
	return err
}

func (h *ReplyReceivedHandler) toDLQ(log *zap.Logger, raw []byte, cause error) {
	if err := h.dlq.PublishToDLQ(mqcontracts.RoutingKeyReplyReceived, raw, cause.Error()); err != nil {
		log.Error("Failed to publish to DLQ", zap.Error(err))
	}
}

func notificationMessage(p *mqcontracts.ReplyReceivedPayload) string {
	who := p.SenderName
	if who == "" {
		who = p.Sender
	}
	via := "email"
	if p.Channel == string(model.ChannelWhatsApp) {
		via = "WhatsApp"
	}
	if p.QuestionID == nil {
		return fmt.Sprintf("%s sent a reply via %s that is waiting for review.", who, via)
	}
	return fmt.Sprintf("%s answered a question in your story via %s.", who, via)
}
