package inbound

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"writemystory/reply-service/internal/model"
)

// SignatureHeader is set by Twilio on every webhook request
const SignatureHeader = "X-Twilio-Signature"

// max attachments Twilio sends on one message
const maxMedia = 10

// ParseWhatsAppForm normalizes a Twilio WhatsApp webhook form
func ParseWhatsAppForm(form url.Values) (*model.InboundMessage, error) {
	from := strings.TrimSpace(form.Get("From"))
	if from == "" {
		return nil, fmt.Errorf("%w: missing From", ErrInvalidPayload)
	}

	msg := &model.InboundMessage{
		Channel:    model.ChannelWhatsApp,
		From:       from,
		SenderName: form.Get("ProfileName"),
		Body:       form.Get("Body"),
		MessageID:  form.Get("MessageSid"),
	}
	if to := form.Get("To"); to != "" {
		msg.To = []string{to}
	}

	numMedia := 0
	if n := form.Get("NumMedia"); n != "" {
		v, err := strconv.Atoi(n)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: NumMedia %q", ErrInvalidPayload, n)
		}
		numMedia = min(v, maxMedia)
	}

	for i := 0; i < numMedia; i++ {
		mediaURL := form.Get("MediaUrl" + strconv.Itoa(i))
		if mediaURL == "" {
			continue
		}
		msg.Media = append(msg.Media, model.MediaAttachment{
			URL:         mediaURL,
			ContentType: form.Get("MediaContentType" + strconv.Itoa(i)),
		})
	}

	return msg, nil
}

// TwilioSignature computes the request signature: base64 HMAC-SHA1 over the
// full URL followed by every POST parameter name and value in name order.
func TwilioSignature(authToken, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyTwilioSignature compares in constant time
func VerifyTwilioSignature(authToken, fullURL string, params url.Values, signature string) bool {
	if signature == "" {
		return false
	}
	expected := TwilioSignature(authToken, fullURL, params)
	return hmac.Equal([]byte(expected), []byte(signature))
}
