package resolver

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"writemystory/pkg/logger"
	"writemystory/pkg/otel"
	"writemystory/reply-service/internal/model"
)

// QuestionStore is the question lookup the resolver needs
type QuestionStore interface {
	GetQuestionByID(ctx context.Context, id string) (*model.Question, error)
	// LatestUnansweredQuestion returns model.ErrNotFound when every question has an answer
	LatestUnansweredQuestion(ctx context.Context, storyID string) (*model.Question, error)
}

// TeamMemberStore finds active members by normalized address.
// An empty storyID searches all stories. Ties resolve to the most recently invited member.
type TeamMemberStore interface {
	FindActiveByEmail(ctx context.Context, email string, storyID string) (*model.TeamMember, error)
	FindActiveByPhone(ctx context.Context, phone string, storyID string) (*model.TeamMember, error)
}

// Matcher is one resolution strategy. It returns nil when it has nothing to add.
// partial holds what earlier strategies found.
type Matcher interface {
	Name() model.MatchedBy
	Match(ctx context.Context, msg *model.InboundMessage, partial *model.Resolution) (*model.Resolution, error)
}

type Resolver struct {
	matchers []Matcher
	members  TeamMemberStore
	logger   *zap.Logger
}

// New builds the default strategy chain: header, body, subject, sender, latest unanswered.
func New(questions QuestionStore, members TeamMemberStore, logger *zap.Logger) *Resolver {
	return NewWithMatchers(members, logger,
		NewHeaderMatcher(questions),
		NewBodyMatcher(questions),
		NewSubjectMatcher(questions),
		NewSenderMatcher(members),
		NewLatestUnansweredMatcher(questions),
	)
}

func NewWithMatchers(members TeamMemberStore, logger *zap.Logger, matchers ...Matcher) *Resolver {
	return &Resolver{
		matchers: matchers,
		members:  members,
		logger:   logger,
	}
}

// Resolve runs the matchers in order until one yields a question.
// A miss is not an error; datastore errors abort and are returned.
func (r *Resolver) Resolve(ctx context.Context, msg *model.InboundMessage) (*model.Resolution, error) {
	ctx, span := otel.StartSpan(ctx, "reply.resolve")
	defer span.End()

	log := logger.WithTrace(ctx, r.logger).With(
		zap.String("channel", string(msg.Channel)),
		zap.String("message_id", msg.MessageID),
	)

	res := &model.Resolution{MatchedBy: model.MatchedByNone}
	for _, m := range r.matchers {
		found, err := m.Match(ctx, msg, res)
		if err != nil {
			return nil, fmt.Errorf("%s matcher: %w", m.Name(), err)
		}
		if found == nil {
			continue
		}
		merge(res, found)
		res.MatchedBy = m.Name()

		if res.HasQuestion() {
			break
		}
	}

	if res.HasQuestion() && res.TeamMemberID == nil {
		if err := r.fillTeamMember(ctx, msg, res); err != nil {
			return nil, err
		}
	}

	span.SetAttributes(
		attribute.String("reply.channel", string(msg.Channel)),
		attribute.String("reply.matched_by", string(res.MatchedBy)),
	)
	log.Debug("Reply resolved",
		zap.String("matched_by", string(res.MatchedBy)),
		zap.Bool("has_question", res.HasQuestion()),
		zap.Bool("has_story", res.HasStory()),
	)
	return res, nil
}

// fillTeamMember attaches the sender's membership in the matched story
func (r *Resolver) fillTeamMember(ctx context.Context, msg *model.InboundMessage, res *model.Resolution) error {
	member, err := findMember(ctx, r.members, msg, *res.StoryID)
	if err != nil {
		return fmt.Errorf("team member lookup: %w", err)
	}
	if member != nil {
		res.TeamMemberID = &member.ID
		res.TeamMemberName = &member.Name
		res.TeamMemberUserID = member.UserID
	}
	return nil
}

// findMember returns nil without error when nobody matches
func findMember(ctx context.Context, members TeamMemberStore, msg *model.InboundMessage, storyID string) (*model.TeamMember, error) {
	var (
		member *model.TeamMember
		err    error
	)
	switch msg.Channel {
	case model.ChannelWhatsApp:
		phone := NormalizePhone(msg.From)
		if phone == "" {
			return nil, nil
		}
		member, err = members.FindActiveByPhone(ctx, phone, storyID)
	default:
		email := NormalizeEmail(msg.From)
		if email == "" {
			return nil, nil
		}
		member, err = members.FindActiveByEmail(ctx, email, storyID)
	}

	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return member, nil
}

func merge(dst, src *model.Resolution) {
	if src.QuestionID != nil {
		dst.QuestionID = src.QuestionID
	}
	if src.StoryID != nil {
		dst.StoryID = src.StoryID
	}
	if src.TeamMemberID != nil {
		dst.TeamMemberID = src.TeamMemberID
	}
	if src.TeamMemberName != nil {
		dst.TeamMemberName = src.TeamMemberName
	}
	if src.TeamMemberUserID != nil {
		dst.TeamMemberUserID = src.TeamMemberUserID
	}
}
