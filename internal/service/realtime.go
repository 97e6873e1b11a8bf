package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
	"github.com/taekwondodev/go-BaaS-Client/internal/models"
	"golang.org/x/time/rate"
)

// Listener delivers the payloads published on one channel until ctx ends.
type Listener interface {
	Listen(ctx context.Context, channel string, deliver func(payload string)) error
}

type pgListener struct {
	pool *pgxpool.Pool
}

// NewPgListener listens with LISTEN/NOTIFY on a dedicated pooled connection.
func NewPgListener(pool *pgxpool.Pool) Listener {
	return &pgListener{pool: pool}
}

func (l *pgListener) Listen(ctx context.Context, channel string, deliver func(payload string)) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	ident := pgx.Identifier{channel}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+ident); err != nil {
		return err
	}
	defer func() {
		if !conn.Conn().IsClosed() {
			_, _ = conn.Exec(context.Background(), "UNLISTEN "+ident)
		}
	}()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		deliver(n.Payload)
	}
}

type ChangeHandler func(change models.Change)

type Subscription struct {
	ID      uuid.UUID
	Table   string
	Channel string
	Filter  models.ChangeType

	cancel     context.CancelFunc
	done       chan struct{}
	delivering atomic.Bool
}

// Done is closed once the subscription stopped receiving.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

type RealtimeService interface {
	Subscribe(ctx context.Context, table string, handler ChangeHandler, filter models.ChangeType) (*Subscription, error)
	Unsubscribe(sub *Subscription) error
	Close()
}

type realtimeService struct {
	listener Listener
	schema   string
	limiter  *rate.Limiter
	log      *slog.Logger

	mu   sync.Mutex
	subs map[uuid.UUID]*Subscription
}

// NewRealtime throttles delivery across all subscriptions to eventsPerSecond.
func NewRealtime(listener Listener, schema string, eventsPerSecond int, log *slog.Logger) RealtimeService {
	if schema == "" {
		schema = "public"
	}
	if eventsPerSecond <= 0 {
		eventsPerSecond = 10
	}
	return &realtimeService{
		listener: listener,
		schema:   schema,
		limiter:  rate.NewLimiter(rate.Limit(eventsPerSecond), eventsPerSecond),
		log:      log,
		subs:     make(map[uuid.UUID]*Subscription),
	}
}

func (r *realtimeService) Subscribe(ctx context.Context, table string, handler ChangeHandler, filter models.ChangeType) (*Subscription, error) {
	if table == "" || handler == nil {
		return nil, customerrors.ErrBadRequest
	}
	switch filter {
	case "":
		filter = models.ChangeAll
	case models.ChangeAll, models.ChangeInsert, models.ChangeUpdate, models.ChangeDelete:
	default:
		return nil, customerrors.ErrBadRequest
	}

	// the subscription outlives the call that created it
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &Subscription{
		ID:      uuid.New(),
		Table:   table,
		Channel: r.schema + ":" + table,
		Filter:  filter,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	r.mu.Lock()
	r.subs[sub.ID] = sub
	r.mu.Unlock()

	go r.run(subCtx, sub, handler)

	r.log.Debug("realtime subscribed", "channel", sub.Channel, "filter", string(filter), "subscription_id", sub.ID.String())
	return sub, nil
}

func (r *realtimeService) run(ctx context.Context, sub *Subscription, handler ChangeHandler) {
	defer close(sub.done)
	defer r.forget(sub.ID)

	err := r.listener.Listen(ctx, sub.Channel, func(payload string) {
		var change models.Change
		if err := json.Unmarshal([]byte(payload), &change); err != nil {
			r.log.Warn("dropping malformed change payload", "channel", sub.Channel, "error", err)
			return
		}
		if !sub.Filter.Matches(change.Type) {
			return
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return
		}
		sub.delivering.Store(true)
		defer sub.delivering.Store(false)
		handler(change)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		r.log.Error("realtime channel closed", "channel", sub.Channel, "error", err)
	}
}

// Unsubscribe stops sub and waits for its listener to return. Called from a
// handler of sub it only cancels; the listener stops once the handler returns.
func (r *realtimeService) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return customerrors.ErrBadRequest
	}
	sub.cancel()
	if !sub.delivering.Load() {
		<-sub.done
	}
	r.log.Debug("realtime unsubscribed", "channel", sub.Channel, "subscription_id", sub.ID.String())
	return nil
}

// Close stops every open subscription.
func (r *realtimeService) Close() {
	r.mu.Lock()
	subs := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.mu.Unlock()

	for _, sub := range subs {
		_ = r.Unsubscribe(sub)
	}
}

func (r *realtimeService) forget(id uuid.UUID) {
	r.mu.Lock()
	delete(r.subs, id)
	r.mu.Unlock()
}
