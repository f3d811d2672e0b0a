package model

import "time"

type ResponseStatus string

const (
	StatusReceived   ResponseStatus = "received"
	StatusReviewed   ResponseStatus = "reviewed"
	StatusIntegrated ResponseStatus = "integrated"
)

var nextStatus = map[ResponseStatus]ResponseStatus{
	StatusReceived: StatusReviewed,
	StatusReviewed: StatusIntegrated,
}

// Valid reports whether s is a known status
func (s ResponseStatus) Valid() bool {
	switch s {
	case StatusReceived, StatusReviewed, StatusIntegrated:
		return true
	}
	return false
}

// CanTransitionTo allows only the single forward step.
func (s ResponseStatus) CanTransitionTo(to ResponseStatus) bool {
	next, ok := nextStatus[s]
	return ok && next == to
}

// EmailResponse is the stored record of an inbound email reply.
// Question, story and team member stay nil when resolution failed partially or completely.
type EmailResponse struct {
	ID              string         `json:"id"`
	QuestionID      *string        `json:"question_id"`
	StoryID         *string        `json:"story_id"`
	TeamMemberID    *string        `json:"team_member_id"`
	TeamMemberName  *string        `json:"team_member_name"`
	SenderEmail     string         `json:"sender_email"`
	ResponseContent string         `json:"response_content"`
	EmailMessageID  *string        `json:"email_message_id"`
	Status          ResponseStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// EmailResponseFilter narrows moderation listings
type EmailResponseFilter struct {
	Status  ResponseStatus
	StoryID string
	Limit   int
}

type ReplyNotification struct {
	ID         string
	StoryID    string
	UserID     string
	QuestionID *string
	Channel    Channel
	Message    string
	SourceID   string
	CreatedAt  time.Time
}
