package inbound

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"writemystory/reply-service/internal/model"
)

// ErrInvalidPayload marks a webhook body that cannot be normalized
var ErrInvalidPayload = errors.New("invalid inbound payload")

var htmlConverter = md.NewConverter("", true, nil)

// address accepts either "Name <a@b>" or {"email": ..., "name": ...}
type address struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (a *address) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = parseAddress(s)
		return nil
	}

	type plain address
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = address(p)
	return nil
}

func parseAddress(s string) address {
	s = strings.TrimSpace(s)
	if s == "" {
		return address{}
	}
	parsed, err := mail.ParseAddress(s)
	if err != nil {
		return address{Email: s}
	}
	return address{Email: parsed.Address, Name: parsed.Name}
}

type genericEmail struct {
	From      address           `json:"from"`
	To        []address         `json:"to"`
	Subject   string            `json:"subject"`
	Text      string            `json:"text"`
	HTML      string            `json:"html"`
	MessageID string            `json:"message-id"`
	Headers   map[string]string `json:"headers"`
}

// ParseGenericEmail normalizes the generic inbound JSON shape
func ParseGenericEmail(data []byte) (*model.InboundMessage, error) {
	var p genericEmail
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if p.From.Email == "" {
		return nil, fmt.Errorf("%w: missing sender", ErrInvalidPayload)
	}

	body, err := textOrHTML(p.Text, p.HTML)
	if err != nil {
		return nil, err
	}

	msg := &model.InboundMessage{
		Channel:    model.ChannelEmail,
		From:       p.From.Email,
		SenderName: p.From.Name,
		Subject:    p.Subject,
		Body:       body,
		MessageID:  p.MessageID,
		Headers:    p.Headers,
	}
	for _, to := range p.To {
		if to.Email != "" {
			msg.To = append(msg.To, to.Email)
		}
	}
	if msg.MessageID == "" {
		msg.MessageID = msg.Header("Message-ID")
	}
	return msg, nil
}

type postmarkHeader struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type postmarkEmail struct {
	From     string `json:"From"`
	FromName string `json:"FromName"`
	FromFull struct {
		Email string `json:"Email"`
		Name  string `json:"Name"`
	} `json:"FromFull"`
	To        string           `json:"To"`
	Subject   string           `json:"Subject"`
	TextBody  string           `json:"TextBody"`
	HTMLBody  string           `json:"HtmlBody"`
	MessageID string           `json:"MessageID"`
	Headers   []postmarkHeader `json:"Headers"`
}

// ParsePostmarkEmail normalizes a Postmark inbound webhook
func ParsePostmarkEmail(data []byte) (*model.InboundMessage, error) {
	var p postmarkEmail
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	from := address{Email: p.FromFull.Email, Name: p.FromFull.Name}
	if from.Email == "" {
		from = parseAddress(p.From)
	}
	if from.Name == "" {
		from.Name = p.FromName
	}
	if from.Email == "" {
		return nil, fmt.Errorf("%w: missing sender", ErrInvalidPayload)
	}

	body, err := textOrHTML(p.TextBody, p.HTMLBody)
	if err != nil {
		return nil, err
	}

	// repeated names keep the first value, compared case-insensitively
	headers := make(map[string]string, len(p.Headers))
	seen := make(map[string]bool, len(p.Headers))
	for _, h := range p.Headers {
		key := strings.ToLower(h.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		headers[h.Name] = h.Value
	}

	msg := &model.InboundMessage{
		Channel:    model.ChannelEmail,
		From:       from.Email,
		SenderName: from.Name,
		Subject:    p.Subject,
		Body:       body,
		Headers:    headers,
	}
	for _, to := range strings.Split(p.To, ",") {
		if a := parseAddress(to); a.Email != "" {
			msg.To = append(msg.To, a.Email)
		}
	}

	// prefer the RFC Message-ID so replays of one mail share an id
	msg.MessageID = msg.Header("Message-ID")
	if msg.MessageID == "" {
		msg.MessageID = p.MessageID
	}
	return msg, nil
}

func textOrHTML(text, html string) (string, error) {
	if strings.TrimSpace(text) != "" || strings.TrimSpace(html) == "" {
		return text, nil
	}
	converted, err := htmlConverter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("%w: html body: %v", ErrInvalidPayload, err)
	}
	return converted, nil
}
