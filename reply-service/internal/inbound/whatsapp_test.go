package inbound

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"writemystory/reply-service/internal/model"
)

func TestParseWhatsAppForm(t *testing.T) {
	form := url.Values{
		"From":              {"whatsapp:+31612345678"},
		"To":                {"whatsapp:+14155238886"},
		"Body":              {"Here is a photo"},
		"ProfileName":       {"Jan"},
		"MessageSid":        {"SM123"},
		"NumMedia":          {"2"},
		"MediaUrl0":         {"https://api.twilio.com/media/0"},
		"MediaContentType0": {"image/jpeg"},
		"MediaUrl1":         {"https://api.twilio.com/media/1"},
		"MediaContentType1": {"audio/ogg"},
	}

	msg, err := ParseWhatsAppForm(form)
	require.NoError(t, err)
	assert.Equal(t, model.ChannelWhatsApp, msg.Channel)
	assert.Equal(t, "whatsapp:+31612345678", msg.From)
	assert.Equal(t, "Jan", msg.SenderName)
	assert.Equal(t, "SM123", msg.MessageID)
	require.Len(t, msg.Media, 2)
	assert.Equal(t, "audio/ogg", msg.Media[1].ContentType)
}

func TestParseWhatsAppForm_Invalid(t *testing.T) {
	_, err := ParseWhatsAppForm(url.Values{"Body": {"hi"}})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = ParseWhatsAppForm(url.Values{"From": {"whatsapp:+1"}, "NumMedia": {"x"}})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestTwilioSignature(t *testing.T) {
	// example from Twilio's webhook security documentation
	params := url.Values{
		"CallSid": {"CA1234567890ABCDE"},
		"Caller":  {"+12349013030"},
		"Digits":  {"1234"},
		"From":    {"+12349013030"},
		"To":      {"+18005551212"},
	}
	const fullURL = "https://mycompany.com/myapp.php?foo=1&bar=2"

	sig := TwilioSignature("12345", fullURL, params)
	assert.Equal(t, "0/KCTR6DLpKmkAf8muzZqo1nDgQ=", sig)
	assert.True(t, VerifyTwilioSignature("12345", fullURL, params, sig))
	assert.False(t, VerifyTwilioSignature("12345", fullURL, params, ""))
	assert.False(t, VerifyTwilioSignature("other", fullURL, params, sig))
}
