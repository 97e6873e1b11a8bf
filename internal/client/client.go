// Package client is the single entry point to the backend: auth, table
// queries, RPC, storage and realtime. Every remote call goes through the
// retry wrapper and fails with a *customerrors.Error.
package client

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
	"github.com/taekwondodev/go-BaaS-Client/internal/models"
	"github.com/taekwondodev/go-BaaS-Client/internal/repository"
	"github.com/taekwondodev/go-BaaS-Client/internal/retry"
	"github.com/taekwondodev/go-BaaS-Client/internal/service"
)

type Deps struct {
	Auth     service.AuthService
	Data     repository.DataRepository
	Storage  service.StorageService
	Realtime service.RealtimeService
	Retrier  *retry.Retrier
	Logger   *slog.Logger
}

type Client struct {
	auth     service.AuthService
	data     repository.DataRepository
	storage  service.StorageService
	realtime service.RealtimeService
	retrier  *retry.Retrier
	log      *slog.Logger
}

func New(deps Deps) *Client {
	if deps.Retrier == nil {
		deps.Retrier = retry.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		auth:     deps.Auth,
		data:     deps.Data,
		storage:  deps.Storage,
		realtime: deps.Realtime,
		retrier:  deps.Retrier,
		log:      deps.Logger,
	}
}

// call runs fn with retries and normalizes its final failure.
func call[T any](ctx context.Context, c *Client, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := retry.Do(ctx, c.retrier, op, func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		if err != nil {
			return v, customerrors.Normalize(err)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		normalized := customerrors.Normalize(err)
		c.log.Debug("backend call failed", "op", op, "code", normalized.Code, "reason", normalized.Reason, "error", normalized.Message)
		return zero, normalized
	}
	return v, nil
}

func run(ctx context.Context, c *Client, op string, fn func(ctx context.Context) error) error {
	_, err := call(ctx, c, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (c *Client) Auth() *Auth {
	return &Auth{c: c}
}

// From starts a query on table.
func (c *Client) From(table string) *Query {
	return &Query{c: c, q: repository.Query{Table: table}}
}

// RPC calls a database function with named parameters.
func (c *Client) RPC(ctx context.Context, fn string, params map[string]any) ([]repository.Row, error) {
	return call(ctx, c, "rpc."+fn, func(ctx context.Context) ([]repository.Row, error) {
		return c.data.Call(ctx, fn, params)
	})
}

func (c *Client) Session(ctx context.Context) (*models.Session, error) {
	return c.Auth().GetSession(ctx)
}

// CheckConnection pings the database and logs the outcome.
func (c *Client) CheckConnection(ctx context.Context) bool {
	err := run(ctx, c, "health", c.data.Ping)
	if err != nil {
		c.log.Error("connection failed", "error", err.Error())
		return false
	}
	c.log.Info("connection successful")
	return true
}

func (c *Client) Storage() *Storage {
	return &Storage{c: c}
}

func (c *Client) Realtime() *Realtime {
	return &Realtime{c: c}
}

// Close stops open realtime subscriptions.
func (c *Client) Close() {
	if c.realtime != nil {
		c.realtime.Close()
	}
}

type Storage struct {
	c *Client
}

// Upload reads content fully before the first attempt so it can be retried.
func (s *Storage) Upload(ctx context.Context, bucket, path string, content io.Reader, opts service.UploadOptions) (*models.FileObject, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, customerrors.Normalize(err)
	}
	return call(ctx, s.c, "storage.upload", func(ctx context.Context) (*models.FileObject, error) {
		return s.c.storage.Upload(ctx, bucket, path, bytes.NewReader(data), opts)
	})
}

func (s *Storage) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	return call(ctx, s.c, "storage.download", func(ctx context.Context) ([]byte, error) {
		return s.c.storage.Download(ctx, bucket, path)
	})
}

func (s *Storage) GetPublicURL(bucket, path string) string {
	return s.c.storage.GetPublicURL(bucket, path)
}

func (s *Storage) Remove(ctx context.Context, bucket string, paths []string) ([]models.FileObject, error) {
	return call(ctx, s.c, "storage.remove", func(ctx context.Context) ([]models.FileObject, error) {
		return s.c.storage.Remove(ctx, bucket, paths)
	})
}

type Realtime struct {
	c *Client
}

// Subscribe follows row changes of table. filter is INSERT, UPDATE, DELETE
// or "*" (the default).
func (r *Realtime) Subscribe(ctx context.Context, table string, handler service.ChangeHandler, filter models.ChangeType) (*service.Subscription, error) {
	sub, err := r.c.realtime.Subscribe(ctx, table, handler, filter)
	if err != nil {
		return nil, customerrors.Normalize(err)
	}
	return sub, nil
}

func (r *Realtime) Unsubscribe(sub *service.Subscription) error {
	if err := r.c.realtime.Unsubscribe(sub); err != nil {
		return customerrors.Normalize(err)
	}
	return nil
}
