package resolver

import (
	"context"
	"sort"
	"strings"
	"time"

	"writemystory/reply-service/internal/model"
)

// memStore is an in-memory QuestionStore and TeamMemberStore
type memStore struct {
	questions []*model.Question
	members   []*model.TeamMember
	answered  map[string]bool
	err       error
	calls     int
}

func newMemStore() *memStore {
	return &memStore{answered: map[string]bool{}}
}

func (s *memStore) addQuestion(id, storyID string, createdAt time.Time) {
	s.questions = append(s.questions, &model.Question{ID: id, StoryID: storyID, Question: "q " + id, CreatedAt: createdAt})
}

func (s *memStore) addMember(m model.TeamMember) {
	if m.Status == "" {
		m.Status = model.MemberActive
	}
	s.members = append(s.members, &m)
}

func (s *memStore) GetQuestionByID(_ context.Context, id string) (*model.Question, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	for _, q := range s.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *memStore) LatestUnansweredQuestion(_ context.Context, storyID string) (*model.Question, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var best *model.Question
	for _, q := range s.questions {
		if q.StoryID != storyID || s.answered[q.ID] {
			continue
		}
		if best == nil || q.CreatedAt.After(best.CreatedAt) {
			best = q
		}
	}
	if best == nil {
		return nil, model.ErrNotFound
	}
	return best, nil
}

func (s *memStore) FindActiveByEmail(_ context.Context, email string, storyID string) (*model.TeamMember, error) {
	return s.find(storyID, func(m *model.TeamMember) bool {
		return m.Email != nil && NormalizeEmail(*m.Email) == email
	})
}

func (s *memStore) FindActiveByPhone(_ context.Context, phone string, storyID string) (*model.TeamMember, error) {
	return s.find(storyID, func(m *model.TeamMember) bool {
		return m.Phone != nil && NormalizePhone(*m.Phone) == phone
	})
}

func (s *memStore) find(storyID string, match func(*model.TeamMember) bool) (*model.TeamMember, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var found []*model.TeamMember
	for _, m := range s.members {
		if m.Status != model.MemberActive || (storyID != "" && m.StoryID != storyID) {
			continue
		}
		if match(m) {
			found = append(found, m)
		}
	}
	if len(found) == 0 {
		return nil, model.ErrNotFound
	}
	sort.Slice(found, func(i, j int) bool {
		if !found[i].CreatedAt.Equal(found[j].CreatedAt) {
			return found[i].CreatedAt.After(found[j].CreatedAt)
		}
		return strings.Compare(found[i].ID, found[j].ID) < 0
	})
	return found[0], nil
}

func strPtr(s string) *string { return &s }
