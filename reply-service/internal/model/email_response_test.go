package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to ResponseStatus
		want     bool
	}{
		{StatusReceived, StatusReviewed, true},
		{StatusReviewed, StatusIntegrated, true},
		{StatusReceived, StatusIntegrated, false},
		{StatusReviewed, StatusReceived, false},
		{StatusIntegrated, StatusReviewed, false},
		{StatusIntegrated, StatusIntegrated, false},
		{StatusReceived, StatusReceived, false},
		{StatusReceived, "archived", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestResponseStatus_Valid(t *testing.T) {
	assert.True(t, StatusIntegrated.Valid())
	assert.False(t, ResponseStatus("deleted").Valid())
}

func TestInboundMessage_Header(t *testing.T) {
	msg := InboundMessage{Headers: map[string]string{"x-question-id": "abc"}}
	assert.Equal(t, "abc", msg.Header("X-Question-ID"))
	assert.Empty(t, msg.Header("X-Other"))
}
