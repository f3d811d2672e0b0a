package reply

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "writemystory/contracts/mq"
	"writemystory/pkg/logger"
	"writemystory/pkg/metrics"
	"writemystory/pkg/trace"
	"writemystory/reply-service/internal/model"
	"writemystory/reply-service/internal/service/media"
)

type Outcome string

const (
	// question resolved and the reply stored
	OutcomeAnswered Outcome = "answered"
	// email stored without a question for moderators to place
	OutcomeStoredUnmatched Outcome = "stored_unmatched"
	// email dropped because nothing resolved
	OutcomeDiscarded Outcome = "discarded"
	// whatsapp reply without a question, nothing stored
	OutcomeNoQuestion Outcome = "no_question"
)

const noQuestionMessage = "Thanks for your message! We couldn't find an open question to attach it to. " +
	"Please answer from your dashboard or reply to one of our question messages."

type Resolver interface {
	Resolve(ctx context.Context, msg *model.InboundMessage) (*model.Resolution, error)
}

type EmailResponseStore interface {
	CreateWithEvent(ctx context.Context, e *model.EmailResponse, routingKey string, payload any) error
}

type AnswerStore interface {
	CreateWithMedia(ctx context.Context, a *model.Answer, media []*model.MediaAnswer, routingKey string, payload any) error
}

type MediaFetcher interface {
	Fetch(ctx context.Context, url, contentType string) (*media.Download, error)
}

const (
	defaultMediaTimeout = 10 * time.Second
	defaultStoreTimeout = 10 * time.Second
)

type Config struct {
	// store email replies even when no story could be determined
	PersistUnmatchedEmail bool
	// budget for each media download
	MediaTimeout time.Duration
	// budget for storing a WhatsApp answer, independent of the request deadline
	StoreTimeout time.Duration
}

// Result is what the webhook handler reports back
type Result struct {
	Outcome    Outcome
	Resolution *model.Resolution
	RecordID   string
	// text sent back to WhatsApp senders
	ReplyText string
}

type Service struct {
	resolver  Resolver
	responses EmailResponseStore
	answers   AnswerStore
	media     MediaFetcher
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(resolver Resolver, responses EmailResponseStore, answers AnswerStore, media MediaFetcher, cfg Config, logger *zap.Logger) *Service {
	if cfg.MediaTimeout <= 0 {
		cfg.MediaTimeout = defaultMediaTimeout
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	return &Service{
		resolver:  resolver,
		responses: responses,
		answers:   answers,
		media:     media,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleEmail resolves and stores an inbound email reply.
// Replays of the same message are stored again.
func (s *Service) HandleEmail(ctx context.Context, msg *model.InboundMessage) (*Result, error) {
	log := s.log(ctx, msg)

	res, err := s.resolver.Resolve(ctx, msg)
	if err != nil {
		log.Error("Failed to resolve email reply", zap.Error(err))
		return nil, fmt.Errorf("resolve email reply: %w", err)
	}
	s.recordResolution(msg.Channel, res)

	if !res.HasStory() && !s.cfg.PersistUnmatchedEmail {
		log.Warn("Email reply matched no story, discarding")
		return &Result{Outcome: OutcomeDiscarded, Resolution: res}, nil
	}

	resp := &model.EmailResponse{
		ID:              uuid.NewString(),
		QuestionID:      res.QuestionID,
		StoryID:         res.StoryID,
		TeamMemberID:    res.TeamMemberID,
		TeamMemberName:  res.TeamMemberName,
		SenderEmail:     msg.From,
		ResponseContent: msg.Body,
		Status:          model.StatusReceived,
	}
	if resp.TeamMemberName == nil && msg.SenderName != "" {
		resp.TeamMemberName = &msg.SenderName
	}
	if msg.MessageID != "" {
		resp.EmailMessageID = &msg.MessageID
	}

	payload := s.payload(ctx, msg, res, resp.ID)
	if err := s.responses.CreateWithEvent(ctx, resp, mqcontracts.RoutingKeyReplyReceived, payload); err != nil {
		log.Error("Failed to store email response", zap.Error(err))
		return nil, fmt.Errorf("store email response: %w", err)
	}

	outcome := OutcomeAnswered
	if !res.HasQuestion() {
		outcome = OutcomeStoredUnmatched
		log.Warn("Email reply stored without question",
			zap.String("email_response_id", resp.ID),
			zap.Bool("has_story", res.HasStory()),
		)
	} else {
		log.Info("Email reply stored",
			zap.String("email_response_id", resp.ID),
			zap.String("question_id", *res.QuestionID),
			zap.String("matched_by", string(res.MatchedBy)),
		)
	}

	return &Result{Outcome: outcome, Resolution: res, RecordID: resp.ID}, nil
}

// HandleWhatsApp resolves a WhatsApp reply and stores it as an answer with its media.
// Media that cannot be downloaded is skipped; the answer is kept.
func (s *Service) HandleWhatsApp(ctx context.Context, msg *model.InboundMessage) (*Result, error) {
	log := s.log(ctx, msg)

	res, err := s.resolver.Resolve(ctx, msg)
	if err != nil {
		log.Error("Failed to resolve whatsapp reply", zap.Error(err))
		return nil, fmt.Errorf("resolve whatsapp reply: %w", err)
	}
	s.recordResolution(msg.Channel, res)

	if !res.HasQuestion() {
		log.Warn("WhatsApp reply matched no question", zap.Bool("has_story", res.HasStory()))
		return &Result{Outcome: OutcomeNoQuestion, Resolution: res, ReplyText: noQuestionMessage}, nil
	}

	answer := &model.Answer{
		ID:         uuid.NewString(),
		QuestionID: *res.QuestionID,
		StoryID:    *res.StoryID,
		UserID:     res.TeamMemberUserID,
		Answer:     msg.Body,
		Source:     model.SourceWhatsApp,
	}

	mediaRows := s.downloadMedia(ctx, log, msg.Media)

	payload := s.payload(ctx, msg, res, answer.ID)
	payload.MediaCount = len(mediaRows)

	// slow downloads may have used up the request deadline; the answer is stored anyway
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
	defer cancel()
	if err := s.answers.CreateWithMedia(storeCtx, answer, mediaRows, mqcontracts.RoutingKeyReplyReceived, payload); err != nil {
		log.Error("Failed to store whatsapp answer", zap.Error(err))
		return nil, fmt.Errorf("store whatsapp answer: %w", err)
	}

	log.Info("WhatsApp answer stored",
		zap.String("answer_id", answer.ID),
		zap.String("question_id", answer.QuestionID),
		zap.Int("media_count", len(mediaRows)),
	)

	return &Result{
		Outcome:    OutcomeAnswered,
		Resolution: res,
		RecordID:   answer.ID,
		ReplyText:  thanksMessage(res, msg),
	}, nil
}

func (s *Service) downloadMedia(ctx context.Context, log *zap.Logger, attachments []model.MediaAttachment) []*model.MediaAnswer {
	var rows []*model.MediaAnswer
	for _, att := range attachments {
		fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.MediaTimeout)
		dl, err := s.media.Fetch(fetchCtx, att.URL, att.ContentType)
		cancel()
		if err != nil {
			log.Warn("Failed to download media, skipping",
				zap.String("media_url", att.URL),
				zap.Error(err),
			)
			continue
		}
		rows = append(rows, &model.MediaAnswer{
			ID:          uuid.NewString(),
			ContentType: dl.ContentType,
			SourceURL:   att.URL,
			Data:        dl.Data,
			SizeBytes:   len(dl.Data),
		})
	}
	return rows
}

func (s *Service) payload(ctx context.Context, msg *model.InboundMessage, res *model.Resolution, recordID string) mqcontracts.ReplyReceivedPayload {
	return mqcontracts.ReplyReceivedPayload{
		Channel:      string(msg.Channel),
		RecordID:     recordID,
		QuestionID:   res.QuestionID,
		StoryID:      res.StoryID,
		TeamMemberID: res.TeamMemberID,
		SenderName:   senderName(res, msg),
		Sender:       msg.From,
		MatchedBy:    string(res.MatchedBy),
		ReceivedAt:   s.now().UTC(),
		TraceID:      trace.FromContext(ctx),
	}
}

func (s *Service) recordResolution(channel model.Channel, res *model.Resolution) {
	if res.HasQuestion() {
		metrics.IncrementReplyResolved(string(channel), string(res.MatchedBy))
		return
	}
	metrics.IncrementReplyUnmatched(string(channel))
}

func (s *Service) log(ctx context.Context, msg *model.InboundMessage) *zap.Logger {
	return logger.WithTrace(ctx, s.logger).With(
		zap.String("channel", string(msg.Channel)),
		zap.String("sender", msg.From),
		zap.String("message_id", msg.MessageID),
	)
}

func senderName(res *model.Resolution, msg *model.InboundMessage) string {
	if res.TeamMemberName != nil && *res.TeamMemberName != "" {
		return *res.TeamMemberName
	}
	return msg.SenderName
}

func thanksMessage(res *model.Resolution, msg *model.InboundMessage) string {
	if name := senderName(res, msg); name != "" {
		return fmt.Sprintf("Thank you, %s! Your answer has been saved to the story.", name)
	}
	return "Thank you! Your answer has been saved to the story."
}
