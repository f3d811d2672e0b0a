package resolver

import (
	"context"
	"errors"

	"writemystory/reply-service/internal/model"
)

// questionByID resolves an explicit id. Unknown ids fall through.
func questionByID(ctx context.Context, questions QuestionStore, id string) (*model.Resolution, error) {
	q, err := questions.GetQuestionByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// story always comes from the question row
	return &model.Resolution{
		QuestionID: &q.ID,
		StoryID:    &q.StoryID,
	}, nil
}

type HeaderMatcher struct {
	questions QuestionStore
}

func NewHeaderMatcher(questions QuestionStore) *HeaderMatcher {
	return &HeaderMatcher{questions: questions}
}

func (m *HeaderMatcher) Name() model.MatchedBy { return model.MatchedByHeader }

func (m *HeaderMatcher) Match(ctx context.Context, msg *model.InboundMessage, _ *model.Resolution) (*model.Resolution, error) {
	id, ok := parseQuestionID(msg.Header(QuestionIDHeader))
	if !ok {
		return nil, nil
	}
	return questionByID(ctx, m.questions, id)
}

type BodyMatcher struct {
	questions QuestionStore
}

func NewBodyMatcher(questions QuestionStore) *BodyMatcher {
	return &BodyMatcher{questions: questions}
}

func (m *BodyMatcher) Name() model.MatchedBy { return model.MatchedByBody }

func (m *BodyMatcher) Match(ctx context.Context, msg *model.InboundMessage, _ *model.Resolution) (*model.Resolution, error) {
	// a labelled id that is not a question, e.g. a quoted Story ID, gives way to the next one
	for _, id := range ExtractBodyIDs(msg.Body) {
		res, err := questionByID(ctx, m.questions, id)
		if err != nil || res != nil {
			return res, err
		}
	}
	return nil, nil
}

type SubjectMatcher struct {
	questions QuestionStore
}

func NewSubjectMatcher(questions QuestionStore) *SubjectMatcher {
	return &SubjectMatcher{questions: questions}
}

func (m *SubjectMatcher) Name() model.MatchedBy { return model.MatchedBySubject }

func (m *SubjectMatcher) Match(ctx context.Context, msg *model.InboundMessage, _ *model.Resolution) (*model.Resolution, error) {
	id, ok := ExtractSubjectID(msg.Subject)
	if !ok {
		return nil, nil
	}
	return questionByID(ctx, m.questions, id)
}

// SenderMatcher yields the story and team member but never a question
type SenderMatcher struct {
	members TeamMemberStore
}

func NewSenderMatcher(members TeamMemberStore) *SenderMatcher {
	return &SenderMatcher{members: members}
}

func (m *SenderMatcher) Name() model.MatchedBy { return model.MatchedBySender }

func (m *SenderMatcher) Match(ctx context.Context, msg *model.InboundMessage, _ *model.Resolution) (*model.Resolution, error) {
	member, err := findMember(ctx, m.members, msg, "")
	if err != nil || member == nil {
		return nil, err
	}
	return &model.Resolution{
		StoryID:          &member.StoryID,
		TeamMemberID:     &member.ID,
		TeamMemberName:   &member.Name,
		TeamMemberUserID: member.UserID,
	}, nil
}

// LatestUnansweredMatcher picks the newest unanswered question of the story found so far
type LatestUnansweredMatcher struct {
	questions QuestionStore
}

func NewLatestUnansweredMatcher(questions QuestionStore) *LatestUnansweredMatcher {
	return &LatestUnansweredMatcher{questions: questions}
}

func (m *LatestUnansweredMatcher) Name() model.MatchedBy { return model.MatchedByLatestUnanswered }

func (m *LatestUnansweredMatcher) Match(ctx context.Context, _ *model.InboundMessage, partial *model.Resolution) (*model.Resolution, error) {
	if !partial.HasStory() {
		return nil, nil
	}
	q, err := m.questions.LatestUnansweredQuestion(ctx, *partial.StoryID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.Resolution{QuestionID: &q.ID}, nil
}
