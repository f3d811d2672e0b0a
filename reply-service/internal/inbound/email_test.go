package inbound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"writemystory/reply-service/internal/model"
)

func TestParseGenericEmail(t *testing.T) {
	data := []byte(`{
		"from": {"email": "jan@example.com", "name": "Jan"},
		"to": ["replies@writemystory.ai", {"email": "copy@writemystory.ai"}],
		"subject": "Re: your story",
		"text": "My answer",
		"message-id": "<abc@mail>",
		"headers": {"X-Question-ID": "11111111-1111-1111-1111-111111111111"}
	}`)

	msg, err := ParseGenericEmail(data)
	require.NoError(t, err)
	assert.Equal(t, model.ChannelEmail, msg.Channel)
	assert.Equal(t, "jan@example.com", msg.From)
	assert.Equal(t, "Jan", msg.SenderName)
	assert.Equal(t, []string{"replies@writemystory.ai", "copy@writemystory.ai"}, msg.To)
	assert.Equal(t, "My answer", msg.Body)
	assert.Equal(t, "<abc@mail>", msg.MessageID)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", msg.Header("x-question-id"))
}

func TestParseGenericEmail_StringSender(t *testing.T) {
	msg, err := ParseGenericEmail([]byte(`{"from": "Jan de Vries <jan@example.com>", "text": "hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "jan@example.com", msg.From)
	assert.Equal(t, "Jan de Vries", msg.SenderName)
}

func TestParseGenericEmail_HTMLFallback(t *testing.T) {
	msg, err := ParseGenericEmail([]byte(`{"from": {"email": "jan@example.com"}, "text": "", "html": "<p>We lived in <b>Utrecht</b></p>"}`))
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Utrecht")
	assert.NotContains(t, msg.Body, "<p>")
}

func TestParseGenericEmail_Invalid(t *testing.T) {
	_, err := ParseGenericEmail([]byte(`{not json`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = ParseGenericEmail([]byte(`{"subject": "no sender"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestParsePostmarkEmail(t *testing.T) {
	data := []byte(`{
		"From": "jan@example.com",
		"FromName": "Jan",
		"FromFull": {"Email": "jan@example.com", "Name": "Jan"},
		"To": "Replies <replies@writemystory.ai>",
		"Subject": "Re: [Q: 11111111-1111-1111-1111-111111111111]",
		"TextBody": "Answer body",
		"HtmlBody": "<p>Answer body</p>",
		"MessageID": "pm-123",
		"Headers": [
			{"Name": "Message-ID", "Value": "<rfc@mail>"},
			{"Name": "X-Question-ID", "Value": "22222222-2222-2222-2222-222222222222"}
		]
	}`)

	msg, err := ParsePostmarkEmail(data)
	require.NoError(t, err)
	assert.Equal(t, "jan@example.com", msg.From)
	assert.Equal(t, "Jan", msg.SenderName)
	assert.Equal(t, []string{"replies@writemystory.ai"}, msg.To)
	assert.Equal(t, "Answer body", msg.Body)
	assert.Equal(t, "<rfc@mail>", msg.MessageID)
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", msg.Header("X-Question-ID"))
}

func TestParsePostmarkEmail_RepeatedHeaderKeepsFirst(t *testing.T) {
	msg, err := ParsePostmarkEmail([]byte(`{
		"From": "jan@example.com",
		"TextBody": "x",
		"Headers": [
			{"Name": "X-Question-ID", "Value": "11111111-1111-1111-1111-111111111111"},
			{"Name": "x-question-id", "Value": "22222222-2222-2222-2222-222222222222"}
		]
	}`))
	require.NoError(t, err)
	assert.Len(t, msg.Headers, 1)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", msg.Header("X-Question-ID"))
}

func TestParsePostmarkEmail_FallsBackToFromField(t *testing.T) {
	msg, err := ParsePostmarkEmail([]byte(`{"From": "Jan <jan@example.com>", "TextBody": "x", "MessageID": "pm-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "jan@example.com", msg.From)
	assert.Equal(t, "Jan", msg.SenderName)
	assert.Equal(t, "pm-1", msg.MessageID)

	_, err = ParsePostmarkEmail([]byte(`{"TextBody": "x"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
