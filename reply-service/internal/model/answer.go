package model

import "time"

type AnswerSource string

const (
	SourceDashboard AnswerSource = "dashboard"
	SourceEmail     AnswerSource = "email"
	SourceWhatsApp  AnswerSource = "whatsapp"
)

type Answer struct {
	ID         string
	QuestionID string
	StoryID    string
	UserID     *string
	Answer     string
	Source     AnswerSource
	CreatedAt  time.Time
}

// MediaAnswer is a downloaded attachment linked to an Answer
type MediaAnswer struct {
	ID          string
	AnswerID    string
	ContentType string
	SourceURL   string
	Data        []byte
	SizeBytes   int
	CreatedAt   time.Time
}
