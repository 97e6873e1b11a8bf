package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
	"github.com/taekwondodev/go-BaaS-Client/internal/logger"
	"github.com/taekwondodev/go-BaaS-Client/internal/models"
)

// fakeListener hands payloads pushed with publish to the active Listen calls.
type fakeListener struct {
	mu       sync.Mutex
	channels map[string]chan string
	ready    chan string
}

func newFakeListener() *fakeListener {
	return &fakeListener{
		channels: make(map[string]chan string),
		ready:    make(chan string, 8),
	}
}

func (f *fakeListener) Listen(ctx context.Context, channel string, deliver func(payload string)) error {
	ch := make(chan string, 16)
	f.mu.Lock()
	f.channels[channel] = ch
	f.mu.Unlock()
	f.ready <- channel

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-ch:
			deliver(payload)
		}
	}
}

func (f *fakeListener) publish(t *testing.T, channel string, change models.Change) {
	payload, err := json.Marshal(change)
	require.NoError(t, err)
	f.publishRaw(channel, string(payload))
}

func (f *fakeListener) publishRaw(channel, payload string) {
	f.mu.Lock()
	ch := f.channels[channel]
	f.mu.Unlock()
	ch <- payload
}

func (f *fakeListener) waitReady(t *testing.T) string {
	select {
	case channel := <-f.ready:
		return channel
	case <-time.After(time.Second):
		t.Fatal("listener never started")
		return ""
	}
}

func receive(t *testing.T, ch <-chan models.Change) models.Change {
	select {
	case c := <-ch:
		return c
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
		return models.Change{}
	}
}

func TestRealtime_SubscribeFiltersEvents(t *testing.T) {
	listener := newFakeListener()
	realtime := NewRealtime(listener, "", 100, logger.Discard())
	t.Cleanup(realtime.Close)

	got := make(chan models.Change, 4)
	sub, err := realtime.Subscribe(context.Background(), "posts", func(c models.Change) { got <- c }, models.ChangeInsert)
	require.NoError(t, err)
	assert.Equal(t, "public:posts", listener.waitReady(t))
	assert.Equal(t, "public:posts", sub.Channel)

	listener.publishRaw(sub.Channel, "{broken")
	listener.publish(t, sub.Channel, models.Change{Type: models.ChangeUpdate, Table: "posts"})
	listener.publish(t, sub.Channel, models.Change{Type: models.ChangeInsert, Table: "posts", Record: map[string]any{"id": float64(1)}})

	change := receive(t, got)
	assert.Equal(t, models.ChangeInsert, change.Type)
	assert.Equal(t, float64(1), change.Record["id"])
	assert.Empty(t, got)
}

func TestRealtime_DefaultFilterMatchesAll(t *testing.T) {
	listener := newFakeListener()
	realtime := NewRealtime(listener, "public", 100, logger.Discard())
	t.Cleanup(realtime.Close)

	got := make(chan models.Change, 4)
	sub, err := realtime.Subscribe(context.Background(), "comments", func(c models.Change) { got <- c }, "")
	require.NoError(t, err)
	listener.waitReady(t)
	assert.Equal(t, models.ChangeAll, sub.Filter)

	listener.publish(t, sub.Channel, models.Change{Type: models.ChangeDelete})
	listener.publish(t, sub.Channel, models.Change{Type: models.ChangeInsert})

	assert.Equal(t, models.ChangeDelete, receive(t, got).Type)
	assert.Equal(t, models.ChangeInsert, receive(t, got).Type)
}

func TestRealtime_Unsubscribe(t *testing.T) {
	listener := newFakeListener()
	realtime := NewRealtime(listener, "", 10, logger.Discard())

	sub, err := realtime.Subscribe(context.Background(), "posts", func(models.Change) {}, models.ChangeAll)
	require.NoError(t, err)
	listener.waitReady(t)

	require.NoError(t, realtime.Unsubscribe(sub))

	select {
	case <-sub.Done():
	default:
		t.Fatal("subscription still running")
	}
}

func TestRealtime_UnsubscribeFromHandler(t *testing.T) {
	listener := newFakeListener()
	realtime := NewRealtime(listener, "", 100, logger.Discard())

	var sub *Subscription
	ready := make(chan struct{})
	unsubscribed := make(chan error, 1)
	sub, err := realtime.Subscribe(context.Background(), "posts", func(models.Change) {
		<-ready
		unsubscribed <- realtime.Unsubscribe(sub)
	}, models.ChangeAll)
	require.NoError(t, err)
	close(ready)
	listener.waitReady(t)

	listener.publish(t, sub.Channel, models.Change{Type: models.ChangeInsert})

	select {
	case err := <-unsubscribed:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("unsubscribe from handler did not return")
	}
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription still running")
	}

	closed := make(chan struct{})
	go func() {
		realtime.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("close blocked after self unsubscribe")
	}
}

func TestRealtime_SubscriptionOutlivesCallerContext(t *testing.T) {
	listener := newFakeListener()
	realtime := NewRealtime(listener, "", 100, logger.Discard())
	t.Cleanup(realtime.Close)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan models.Change, 1)
	sub, err := realtime.Subscribe(ctx, "posts", func(c models.Change) { got <- c }, models.ChangeAll)
	require.NoError(t, err)
	listener.waitReady(t)
	cancel()

	listener.publish(t, sub.Channel, models.Change{Type: models.ChangeInsert})

	assert.Equal(t, models.ChangeInsert, receive(t, got).Type)
}

func TestRealtime_InvalidArguments(t *testing.T) {
	realtime := NewRealtime(newFakeListener(), "", 10, logger.Discard())

	_, err := realtime.Subscribe(context.Background(), "", func(models.Change) {}, models.ChangeAll)
	assert.ErrorIs(t, err, customerrors.ErrBadRequest)

	_, err = realtime.Subscribe(context.Background(), "posts", nil, models.ChangeAll)
	assert.ErrorIs(t, err, customerrors.ErrBadRequest)

	_, err = realtime.Subscribe(context.Background(), "posts", func(models.Change) {}, "TRUNCATE")
	assert.ErrorIs(t, err, customerrors.ErrBadRequest)

	assert.ErrorIs(t, realtime.Unsubscribe(nil), customerrors.ErrBadRequest)
}
