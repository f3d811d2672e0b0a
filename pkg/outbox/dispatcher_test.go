package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"writemystory/pkg/trace"
)

type fakeStore struct {
	pending []*Event
	failed  []*Event
	byID    map[int64]*Event
	sent    []int64
	marked  []int64
}

func (f *fakeStore) GetPendingEvents(ctx context.Context, limit int) ([]*Event, error) {
	return f.pending, nil
}

func (f *fakeStore) GetFailedEvents(ctx context.Context, limit int) ([]*Event, error) {
	return f.failed, nil
}

func (f *fakeStore) GetEventByID(ctx context.Context, id int64) (*Event, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	return e, nil
}

func (f *fakeStore) MarkAsSent(ctx context.Context, id int64) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeStore) MarkAsFailed(ctx context.Context, id int64, maxRetries int) error {
	f.marked = append(f.marked, id)
	return nil
}

type published struct {
	routingKey string
	payload    any
	traceID    string
}

type fakePublisher struct {
	calls  []published
	failOn string
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	if routingKey == p.failOn {
		return errors.New("channel closed")
	}
	p.calls = append(p.calls, published{routingKey: routingKey, payload: payload, traceID: trace.FromContext(ctx)})
	return nil
}

func TestDispatcher_PublishesAndMarksSent(t *testing.T) {
	store := &fakeStore{pending: []*Event{
		{ID: 1, RoutingKey: "reply.received", Payload: json.RawMessage(`{"record_id":"a","trace_id":"t-1"}`)},
		{ID: 2, RoutingKey: "broken", Payload: json.RawMessage(`{}`)},
	}}
	pub := &fakePublisher{failOn: "broken"}

	NewDispatcher(store, pub, zap.NewNop()).ProcessPendingEvents(context.Background())

	require.Len(t, pub.calls, 1)
	assert.Equal(t, "reply.received", pub.calls[0].routingKey)
	assert.Equal(t, "t-1", pub.calls[0].traceID)
	assert.Equal(t, []int64{1}, store.sent)
	assert.Equal(t, []int64{2}, store.marked)
}

func TestReplayService_ReplayFailedEvents(t *testing.T) {
	e1 := &Event{ID: 7, RoutingKey: "reply.received", Payload: json.RawMessage(`{}`)}
	e2 := &Event{ID: 8, RoutingKey: "broken", Payload: json.RawMessage(`{}`)}
	store := &fakeStore{
		failed: []*Event{e1, e2},
		byID:   map[int64]*Event{7: e1, 8: e2},
	}
	pub := &fakePublisher{failOn: "broken"}

	n, err := NewReplayService(store, pub, zap.NewNop()).ReplayFailedEvents(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{7}, store.sent)
	assert.Equal(t, []int64{8}, store.marked)
}

func TestReplayService_UnknownEvent(t *testing.T) {
	store := &fakeStore{byID: map[int64]*Event{}}
	err := NewReplayService(store, &fakePublisher{}, zap.NewNop()).ReplayEvent(context.Background(), 99)
	assert.ErrorIs(t, err, ErrEventNotFound)
}
