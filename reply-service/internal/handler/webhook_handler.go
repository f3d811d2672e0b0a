package handler

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"writemystory/pkg/logger"
	"writemystory/reply-service/internal/inbound"
	"writemystory/reply-service/internal/model"
	"writemystory/reply-service/internal/service/reply"
)

const maxEmailBody = 10 << 20

type ReplyService interface {
	HandleEmail(ctx context.Context, msg *model.InboundMessage) (*reply.Result, error)
	HandleWhatsApp(ctx context.Context, msg *model.InboundMessage) (*reply.Result, error)
}

type WebhookConfig struct {
	// empty disables X-Twilio-Signature verification
	TwilioAuthToken string
	// public webhook URL; derived from the request when empty
	TwilioWebhookURL string
	RequestTimeout   time.Duration
}

type WebhookHandler struct {
	replies ReplyService
	cfg     WebhookConfig
	logger  *zap.Logger
}

func NewWebhookHandler(replies ReplyService, cfg WebhookConfig, logger *zap.Logger) *WebhookHandler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &WebhookHandler{replies: replies, cfg: cfg, logger: logger}
}

// twimlResponse is the TwiML document Twilio expects back
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// Email handles POST /webhooks/email
func (h *WebhookHandler) Email(c *gin.Context) {
	h.email(c, inbound.ParseGenericEmail)
}

// Postmark handles POST /webhooks/email/postmark
func (h *WebhookHandler) Postmark(c *gin.Context) {
	h.email(c, inbound.ParsePostmarkEmail)
}

func (h *WebhookHandler) email(c *gin.Context, parse func([]byte) (*model.InboundMessage, error)) {
	log := logger.WithTrace(c.Request.Context(), h.logger)

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEmailBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	msg, err := parse(data)
	if err != nil {
		log.Warn("Rejected email webhook", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	result, err := h.replies.HandleEmail(ctx, msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process reply"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     result.Outcome,
		"record_id":  result.RecordID,
		"resolution": result.Resolution,
	})
}

// WhatsApp handles POST /webhooks/whatsapp and answers with TwiML
func (h *WebhookHandler) WhatsApp(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)

	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	if h.cfg.TwilioAuthToken != "" {
		sig := c.GetHeader(inbound.SignatureHeader)
		if !inbound.VerifyTwilioSignature(h.cfg.TwilioAuthToken, h.webhookURL(c.Request), c.Request.PostForm, sig) {
			log.Warn("Rejected whatsapp webhook with bad signature")
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
	}

	msg, err := inbound.ParseWhatsAppForm(c.Request.PostForm)
	if err != nil {
		log.Warn("Rejected whatsapp webhook", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	result, err := h.replies.HandleWhatsApp(ctx, msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process reply"})
		return
	}

	c.XML(http.StatusOK, twimlResponse{Message: result.ReplyText})
}

func (h *WebhookHandler) webhookURL(r *http.Request) string {
	if h.cfg.TwilioWebhookURL != "" {
		return h.cfg.TwilioWebhookURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
