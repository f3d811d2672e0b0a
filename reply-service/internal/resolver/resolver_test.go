package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"writemystory/reply-service/internal/model"
)

const (
	storyS    = "aaaaaaaa-0000-0000-0000-000000000001"
	storyT    = "aaaaaaaa-0000-0000-0000-000000000002"
	question1 = "11111111-1111-1111-1111-111111111111"
	question2 = "22222222-2222-2222-2222-222222222222"
	question3 = "33333333-3333-3333-3333-333333333333"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newResolver(s *memStore) *Resolver {
	return New(s, s, zap.NewNop())
}

func TestResolve_BodyLabelWinsRegardlessOfSender(t *testing.T) {
	s := newMemStore()
	s.addQuestion(question1, storyS, base)
	s.addQuestion(question2, storyT, base.Add(time.Hour))
	s.addMember(model.TeamMember{ID: "m-1", StoryID: storyT, Name: "Piet", Email: strPtr("piet@example.com"), CreatedAt: base})

	for _, body := range []string{
		"Here is my answer.\nID: " + question1,
		"Question ID: " + question1 + "\nthanks",
		"Answer text [Question: " + question1 + "]",
	} {
		res, err := newResolver(s).Resolve(context.Background(), &model.InboundMessage{
			Channel: model.ChannelEmail,
			From:    "piet@example.com",
			Body:    body,
		})
		require.NoError(t, err)
		require.True(t, res.HasQuestion(), body)
		assert.Equal(t, question1, *res.QuestionID)
		assert.Equal(t, storyS, *res.StoryID)
		assert.Equal(t, model.MatchedByBody, res.MatchedBy)
	}
}

func TestResolve_SenderMatchReturnsStory(t *testing.T) {
	s := newMemStore()
	s.addMember(model.TeamMember{ID: "m-1", StoryID: storyS, Name: "Jan", Email: strPtr("Jan@Example.com"), CreatedAt: base})

	res, err := newResolver(s).Resolve(context.Background(), &model.InboundMessage{
		Channel: model.ChannelEmail,
		From:    "  jan@example.COM ",
		Body:    "no identifiers here",
	})
	require.NoError(t, err)
	require.True(t, res.HasStory())
	assert.Equal(t, storyS, *res.StoryID)
	assert.Equal(t, "m-1", *res.TeamMemberID)
	assert.False(t, res.HasQuestion())
	assert.Equal(t, model.MatchedBySender, res.MatchedBy)
}

func TestResolve_AllAnsweredYieldsNoQuestion(t *testing.T) {
	s := newMemStore()
	s.addQuestion(question1, storyS, base)
	s.addQuestion(question2, storyS, base.Add(time.Hour))
	s.answered[question1] = true
	s.answered[question2] = true
	s.addMember(model.TeamMember{ID: "m-1", StoryID: storyS, Name: "Jan", Email: strPtr("jan@example.com"), CreatedAt: base})

	res, err := newResolver(s).Resolve(context.Background(), &model.InboundMessage{Channel: model.ChannelEmail, From: "jan@example.com"})
	require.NoError(t, err)
	assert.Nil(t, res.QuestionID)
	assert.Equal(t, storyS, *res.StoryID)
}

func TestResolve_LatestUnansweredByCreatedAt(t *testing.T) {
	s := newMemStore()
	s.addQuestion(question1, storyS, base)
	s.addQuestion(question3, storyS, base.Add(2*time.Hour))
	s.addQuestion(question2, storyS, base.Add(time.Hour))
	s.addMember(model.TeamMember{ID: "m-1", StoryID: storyS, Name: "Jan", Email: strPtr("jan@example.com"), CreatedAt: base})

	res, err := newResolver(s).Resolve(context.Background(), &model.InboundMessage{Channel: model.ChannelEmail, From: "jan@example.com"})
	require.NoError(t, err)
	require.True(t, res.HasQuestion())
	assert.Equal(t, question3, *res.QuestionID)
	assert.Equal(t, model.MatchedByLatestUnanswered, res.MatchedBy)
	assert.Equal(t, "m-1", *res.TeamMemberID)
}

func TestResolve_ForwardedEmailFromUnknownSender(t *testing.T) {
	s := newMemStore()
	s.addQuestion(question1, storyS, base)

	res, err := newResolver(s).Resolve(context.Background(), &model.InboundMessage{
		Channel: model.ChannelEmail,
		From:    "stranger@example.org",
		Body:    "My answer...\n-----Original Message-----\nID: 11111111-1111-1111-1111-111111111111",
	})
	require.NoError(t, err)
	require.True(t, res.HasQuestion())
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", *res.QuestionID)
	assert.Equal(t, storyS, *res.StoryID)
	assert.Nil(t, res.TeamMemberID)
}

func TestResolve_WhatsAppFromKnownMember(t *testing.T) {
	s := newMemStore()
	s.addQuestion(question1, storyS, base)
	s.addQuestion(question2, storyS, base.Add(-time.Hour))
	s.answered[question1] = true
	s.addMember(model.TeamMember{ID: "m-jan", StoryID: storyS, Name: "Jan", Phone: strPtr("+31 6 1234 5678"), CreatedAt: base})

	res, err := newResolver(s).Resolve(context.Background(), &model.InboundMessage{
		Channel: model.ChannelWhatsApp,
		From:    "whatsapp:+31612345678",
		Body:    "We went to the sea every summer.",
	})
	require.NoError(t, err)
	require.True(t, res.HasQuestion())
	assert.Equal(t, question2, *res.QuestionID)
	assert.Equal(t, storyS, *res.StoryID)
	assert.Equal(t, "Jan", *res.TeamMemberName)
}

func TestResolve_PriorityOrder(t *testing.T) {
	s := newMemStore()
	s.addQuestion(question1, storyS, base)
	s.addQuestion(question2, storyS, base)
	s.addQuestion(question3, storyS, base)

	msg := &model.InboundMessage{
		Channel: model.ChannelEmail,
		From:    "someone@example.com",
		Headers: map[string]string{"x-question-id": question1},
		Body:    "ID: " + question2,
		Subject: "Re: your story [Q: " + question3 + "]",
	}

	res, err := newResolver(s).Resolve(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, question1, *res.QuestionID)
	assert.Equal(t, model.MatchedByHeader, res.MatchedBy)

	delete(msg.Headers, "x-question-id")
	res, err = newResolver(s).Resolve(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, question2, *res.QuestionID)
	assert.Equal(t, model.MatchedByBody, res.MatchedBy)

	msg.Body = "plain answer"
	res, err = newResolver(s).Resolve(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, question3, *res.QuestionID)
	assert.Equal(t, model.MatchedBySubject, res.MatchedBy)
}

func TestResolve_UnknownExplicitIDFallsThrough(t *testing.T) {
	s := newMemStore()
	s.addQuestion(question2, storyS, base)
	s.addMember(model.TeamMember{ID: "m-1", StoryID: storyS, Name: "Jan", Email: strPtr("jan@example.com"), CreatedAt: base})

	res, err := newResolver(s).Resolve(context.Background(), &model.InboundMessage{
		Channel: model.ChannelEmail,
		From:    "jan@example.com",
		Headers: map[string]string{"X-Question-ID": "not-a-uuid"},
		Body:    "ID: " + question1,
	})
	require.NoError(t, err)
	require.True(t, res.HasQuestion())
	assert.Equal(t, question2, *res.QuestionID)
	assert.Equal(t, model.MatchedByLatestUnanswered, res.MatchedBy)
}

func TestResolve_BodySkipsLabelledIDThatIsNotAQuestion(t *testing.T) {
	s := newMemStore()
	s.addQuestion(question1, storyS, base)

	res, err := newResolver(s).Resolve(context.Background(), &model.InboundMessage{
		Channel: model.ChannelEmail,
		From:    "stranger@example.org",
		Body:    "my answer\n> Message-ID: " + question2 + "\n> Story ID: " + storyT + "\n> [Question: " + question1 + "]",
	})
	require.NoError(t, err)
	require.True(t, res.HasQuestion())
	assert.Equal(t, question1, *res.QuestionID)
	assert.Equal(t, storyS, *res.StoryID)
	assert.Equal(t, model.MatchedByBody, res.MatchedBy)
}

func TestResolve_ExplicitMatchFillsTeamMemberWithinStory(t *testing.T) {
	s := newMemStore()
	s.addQuestion(question1, storyS, base)
	s.addMember(model.TeamMember{ID: "m-other", StoryID: storyT, Name: "Jan T", Email: strPtr("jan@example.com"), CreatedAt: base.Add(time.Hour)})
	s.addMember(model.TeamMember{ID: "m-s", StoryID: storyS, Name: "Jan S", Email: strPtr("jan@example.com"), CreatedAt: base})

	res, err := newResolver(s).Resolve(context.Background(), &model.InboundMessage{
		Channel: model.ChannelEmail,
		From:    "jan@example.com",
		Subject: "[" + question1 + "]",
	})
	require.NoError(t, err)
	assert.Equal(t, storyS, *res.StoryID)
	require.NotNil(t, res.TeamMemberID)
	assert.Equal(t, "m-s", *res.TeamMemberID)
}

func TestResolve_InactiveMemberIgnored(t *testing.T) {
	s := newMemStore()
	s.addQuestion(question1, storyS, base)
	s.addMember(model.TeamMember{ID: "m-1", StoryID: storyS, Name: "Jan", Email: strPtr("jan@example.com"), Status: model.MemberInactive, CreatedAt: base})

	res, err := newResolver(s).Resolve(context.Background(), &model.InboundMessage{Channel: model.ChannelEmail, From: "jan@example.com"})
	require.NoError(t, err)
	assert.Nil(t, res.StoryID)
	assert.Equal(t, model.MatchedByNone, res.MatchedBy)
}

func TestResolve_SharedAddressPrefersMostRecentlyInvited(t *testing.T) {
	s := newMemStore()
	s.addQuestion(question1, storyS, base)
	s.addQuestion(question2, storyT, base)
	s.addMember(model.TeamMember{ID: "m-old", StoryID: storyS, Name: "Jan", Email: strPtr("jan@example.com"), CreatedAt: base})
	s.addMember(model.TeamMember{ID: "m-new", StoryID: storyT, Name: "Jan", Email: strPtr("jan@example.com"), CreatedAt: base.Add(time.Hour)})

	res, err := newResolver(s).Resolve(context.Background(), &model.InboundMessage{Channel: model.ChannelEmail, From: "jan@example.com"})
	require.NoError(t, err)
	assert.Equal(t, storyT, *res.StoryID)
	assert.Equal(t, question2, *res.QuestionID)
}

func TestResolve_DatastoreErrorAborts(t *testing.T) {
	s := newMemStore()
	s.err = errors.New("connection refused")

	res, err := newResolver(s).Resolve(context.Background(), &model.InboundMessage{
		Channel: model.ChannelEmail,
		From:    "jan@example.com",
		Body:    "ID: " + question1,
	})
	assert.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 1, s.calls)
}

func TestResolve_NoMatchAtAll(t *testing.T) {
	s := newMemStore()

	res, err := newResolver(s).Resolve(context.Background(), &model.InboundMessage{Channel: model.ChannelWhatsApp, From: "whatsapp:+4900000"})
	require.NoError(t, err)
	assert.Nil(t, res.QuestionID)
	assert.Nil(t, res.StoryID)
	assert.Nil(t, res.TeamMemberID)
	assert.Equal(t, model.MatchedByNone, res.MatchedBy)
}
