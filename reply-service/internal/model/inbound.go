package model

import "strings"

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

type MediaAttachment struct {
	URL         string
	ContentType string
}

// InboundMessage is a provider payload normalized for resolution
type InboundMessage struct {
	Channel    Channel
	From       string
	SenderName string
	To         []string
	Subject    string
	Body       string
	MessageID  string
	Headers    map[string]string
	Media      []MediaAttachment
}

// Header looks a transport header up case-insensitively
func (m *InboundMessage) Header(name string) string {
	for k, v := range m.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
