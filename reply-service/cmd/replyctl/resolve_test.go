package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"writemystory/reply-service/internal/model"
)

func TestParseHeaders(t *testing.T) {
	headers, err := parseHeaders([]string{"X-Question-ID = 3f2b1c9e-0000-4000-8000-000000000001", "Empty="})
	require.NoError(t, err)
	assert.Equal(t, "3f2b1c9e-0000-4000-8000-000000000001", headers["X-Question-ID"])
	assert.Equal(t, "", headers["Empty"])

	_, err = parseHeaders([]string{"no-separator"})
	assert.Error(t, err)

	_, err = parseHeaders([]string{"=value"})
	assert.Error(t, err)
}

func TestResolveFlags_Message(t *testing.T) {
	msg, err := resolveFlags{channel: "WhatsApp", from: "+15550001111", body: "hi"}.message()
	require.NoError(t, err)
	assert.Equal(t, model.ChannelWhatsApp, msg.Channel)
	assert.Equal(t, "+15550001111", msg.From)

	_, err = resolveFlags{channel: "sms"}.message()
	assert.Error(t, err)
}
