package model

type MatchedBy string

const (
	MatchedByHeader           MatchedBy = "header"
	MatchedByBody             MatchedBy = "body"
	MatchedBySubject          MatchedBy = "subject"
	MatchedBySender           MatchedBy = "sender"
	MatchedByLatestUnanswered MatchedBy = "latest_unanswered"
	MatchedByNone             MatchedBy = "none"
)

// Resolution maps an inbound reply to its question, story and team member.
// Any field may be nil; a sender match without a question leaves QuestionID nil.
type Resolution struct {
	QuestionID     *string `json:"questionId"`
	StoryID        *string `json:"storyId"`
	TeamMemberID   *string `json:"teamMemberId"`
	TeamMemberName *string `json:"teamMemberName,omitempty"`
	// linked user account of the team member, if any
	TeamMemberUserID *string   `json:"teamMemberUserId,omitempty"`
	MatchedBy        MatchedBy `json:"matchedBy"`
}

// HasQuestion reports whether a question was found
func (r *Resolution) HasQuestion() bool {
	return r != nil && r.QuestionID != nil
}

func (r *Resolution) HasStory() bool {
	return r != nil && r.StoryID != nil
}
