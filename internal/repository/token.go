package repository

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/argon2"
)

// TokenStore holds the access token the HTTP facade attaches as a bearer
// token. Token returns "" when nothing is stored.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	DeleteToken(ctx context.Context) error
}

type memoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryTokenStore() TokenStore {
	return &memoryTokenStore{}
}

func (m *memoryTokenStore) Token(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *memoryTokenStore) SetToken(_ context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *memoryTokenStore) DeleteToken(_ context.Context) error {
	return m.SetToken(context.Background(), "")
}

type redisTokenStore struct {
	client *redis.Client
	key    string
}

func NewRedisTokenStore(client *redis.Client, storageKey string) TokenStore {
	return &redisTokenStore{
		client: client,
		key:    fmt.Sprintf("token:%s", storageKey),
	}
}

func (r *redisTokenStore) Token(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

func (r *redisTokenStore) SetToken(ctx context.Context, token string) error {
	return r.client.Set(ctx, r.key, token, 0).Err()
}

func (r *redisTokenStore) DeleteToken(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

// RevocationList remembers signed-out access tokens until they expire.
type RevocationList interface {
	IsTokenRevoked(ctx context.Context, token string) (bool, error)
	RevokeToken(ctx context.Context, token string, expiration time.Time) error
}

type redisRevocationList struct {
	client   *redis.Client
	hashSalt []byte
}

func NewRevocationList(client *redis.Client, hashSalt []byte) RevocationList {
	return &redisRevocationList{
		client:   client,
		hashSalt: hashSalt,
	}
}

func (r *redisRevocationList) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	redisKey := fmt.Sprintf("blacklist:%s", r.hashToken(token))

	exists, err := r.client.Exists(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}

	return exists > 0, nil
}

func (r *redisRevocationList) RevokeToken(ctx context.Context, token string, expiration time.Time) error {
	redisKey := fmt.Sprintf("blacklist:%s", r.hashToken(token))

	ttl := time.Until(expiration)
	if ttl <= 0 {
		return nil
	}

	return r.client.SetArgs(ctx, redisKey, "1", redis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Err()
}

func (r *redisRevocationList) hashToken(token string) string {
	hash := argon2.IDKey(
		[]byte(token),
		r.hashSalt,
		3,
		64*1024,
		4,
		32,
	)
	return hex.EncodeToString(hash)
}

type noopRevocationList struct{}

// NoopRevocationList is used when no Redis is configured.
func NoopRevocationList() RevocationList {
	return noopRevocationList{}
}

func (noopRevocationList) IsTokenRevoked(context.Context, string) (bool, error) { return false, nil }

func (noopRevocationList) RevokeToken(context.Context, string, time.Time) error { return nil }
