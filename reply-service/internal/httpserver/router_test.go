package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"writemystory/pkg/rbac"
	"writemystory/pkg/trace"
	"writemystory/pkg/util"
	"writemystory/reply-service/internal/handler"
	"writemystory/reply-service/internal/model"
	"writemystory/reply-service/internal/service/reply"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type nopReplies struct{}

func (nopReplies) HandleEmail(context.Context, *model.InboundMessage) (*reply.Result, error) {
	return &reply.Result{Outcome: reply.OutcomeDiscarded, Resolution: &model.Resolution{}}, nil
}

func (nopReplies) HandleWhatsApp(context.Context, *model.InboundMessage) (*reply.Result, error) {
	return &reply.Result{Outcome: reply.OutcomeNoQuestion}, nil
}

type nopModeration struct{}

func (nopModeration) List(context.Context, model.EmailResponseFilter) ([]*model.EmailResponse, error) {
	return []*model.EmailResponse{}, nil
}

func (nopModeration) SetStatus(context.Context, string, model.ResponseStatus, string) (*model.EmailResponse, error) {
	return &model.EmailResponse{}, nil
}

type nopReplayer struct{}

func (nopReplayer) ReplayEvent(context.Context, int64) error { return nil }

func (nopReplayer) ReplayFailedEvents(context.Context, int) (int, error) { return 0, nil }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestRouter(opts Options) *gin.Engine {
	opts.JWTSecret = secret
	log := zap.NewNop()
	return NewRouter(
		handler.NewWebhookHandler(nopReplies{}, handler.WebhookConfig{}, log),
		handler.NewModerationHandler(nopModeration{}, log),
		handler.NewOutboxHandler(nopReplayer{}, log),
		opts,
	).Engine
}

func token(t *testing.T, role string) string {
	tok, err := util.GenerateJWT("mod-1", role, secret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestAdminRoutes_RequireRole(t *testing.T) {
	r := newTestRouter(Options{})

	do := func(method, target, auth string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, target, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/admin/email-responses", ""))
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/admin/email-responses", "Bearer garbage"))
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/admin/email-responses", token(t, rbac.RoleModerator)))
	assert.Equal(t, http.StatusForbidden, do(http.MethodPost, "/admin/outbox/replay-failed", token(t, rbac.RoleModerator)))
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/admin/outbox/replay-failed", token(t, rbac.RoleAdmin)))
	assert.Equal(t, http.StatusForbidden, do(http.MethodGet, "/admin/email-responses", token(t, "viewer")))
}

func TestTraceMiddleware(t *testing.T) {
	r := newTestRouter(Options{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(trace.HeaderName(), "abc123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc123", w.Header().Get(trace.HeaderName()))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Len(t, w.Header().Get(trace.HeaderName()), 32)
}

func TestReadyz(t *testing.T) {
	healthy := newTestRouter(Options{Readiness: []ReadinessCheck{PingCheck("db", pingFunc(func(context.Context) error { return nil }))}})
	w := httptest.NewRecorder()
	healthy.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	broken := newTestRouter(Options{Readiness: []ReadinessCheck{PingCheck("redis", pingFunc(func(context.Context) error { return errors.New("refused") }))}})
	w = httptest.NewRecorder()
	broken.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "redis_not_ready")
}

func TestPostmarkBasicAuth(t *testing.T) {
	r := newTestRouter(Options{PostmarkUser: "postmark", PostmarkPassword: "pw"})
	body := `{"From": "jan@example.com", "TextBody": "x"}`

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/email/postmark", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/email/postmark", strings.NewReader(body))
	req.SetBasicAuth("postmark", "pw")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
