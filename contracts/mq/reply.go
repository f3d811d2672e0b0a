package mq

import "time"

const RoutingKeyReplyReceived = "reply.received"

// ReplyReceivedPayload is published once an inbound reply has been stored.
// RecordID is the email_responses id for email and the answers id for WhatsApp.
type ReplyReceivedPayload struct {
	Channel      string    `json:"channel"` // email / whatsapp
	RecordID     string    `json:"record_id"`
	QuestionID   *string   `json:"question_id,omitempty"`
	StoryID      *string   `json:"story_id,omitempty"`
	TeamMemberID *string   `json:"team_member_id,omitempty"`
	SenderName   string    `json:"sender_name,omitempty"`
	Sender       string    `json:"sender"`
	MatchedBy    string    `json:"matched_by"`
	MediaCount   int       `json:"media_count,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
	TraceID      string    `json:"trace_id,omitempty"`
}
