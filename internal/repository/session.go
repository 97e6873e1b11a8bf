package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/taekwondodev/go-BaaS-Client/internal/models"
)

// SessionStore persists the signed-in session between calls.
// LoadSession returns nil, nil when nothing is stored.
type SessionStore interface {
	LoadSession(ctx context.Context) (*models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context) error
}

type memorySessionStore struct {
	mu      sync.RWMutex
	session *models.Session
}

func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{}
}

func (m *memorySessionStore) LoadSession(_ context.Context) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, nil
	}
	s := *m.session
	return &s, nil
}

func (m *memorySessionStore) SaveSession(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session == nil {
		m.session = nil
		return nil
	}
	s := *session
	m.session = &s
	return nil
}

func (m *memorySessionStore) DeleteSession(_ context.Context) error {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
	return nil
}

type redisSessionStore struct {
	client *redis.Client
	key    string
}

// NewRedisSessionStore stores the session as JSON under "session:<storageKey>".
func NewRedisSessionStore(client *redis.Client, storageKey string) SessionStore {
	return &redisSessionStore{
		client: client,
		key:    fmt.Sprintf("session:%s", storageKey),
	}
}

func (r *redisSessionStore) LoadSession(ctx context.Context) (*models.Session, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (r *redisSessionStore) SaveSession(ctx context.Context, session *models.Session) error {
	if session == nil {
		return r.DeleteSession(ctx)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	// no TTL: the refresh token outlives the access token
	return r.client.Set(ctx, r.key, data, 0).Err()
}

func (r *redisSessionStore) DeleteSession(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
