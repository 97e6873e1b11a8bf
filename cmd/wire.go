package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"github.com/viant/afs"

	"github.com/taekwondodev/go-BaaS-Client/internal/client"
	"github.com/taekwondodev/go-BaaS-Client/internal/config"
	"github.com/taekwondodev/go-BaaS-Client/internal/hooks"
	"github.com/taekwondodev/go-BaaS-Client/internal/httpapi"
	"github.com/taekwondodev/go-BaaS-Client/internal/logger"
	"github.com/taekwondodev/go-BaaS-Client/internal/repository"
	"github.com/taekwondodev/go-BaaS-Client/internal/retry"
	"github.com/taekwondodev/go-BaaS-Client/internal/service"
	"github.com/taekwondodev/go-BaaS-Client/pkg"
)

// container holds everything a command needs, built from configuration.
type container struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *prometheus.Registry
	pool     *pgxpool.Pool
	redis    *config.RedisClient
	client   *client.Client
	http     *httpapi.Client
	loading  hooks.Loading

	progress         io.Writer
	progressInterval time.Duration
}

func build(c *cli.Context) (*container, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Debug:  cfg.App.Debug,
	})

	registry := prometheus.NewRegistry()
	retrier := retry.New(
		retry.WithMaxRetries(cfg.Retry.Count),
		retry.WithBaseDelay(cfg.Retry.Delay),
		retry.WithMetrics(retry.NewMetrics(registry)),
		retry.WithLogger(log),
	)

	pool, err := config.Connect(cfg)
	if err != nil {
		return nil, err
	}

	rc, err := config.ConnectRedis(cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	sessions, tokens, revoked := stores(cfg, rc)

	auth := service.NewAuth(
		service.NewGoTrue(cfg.AuthURL(), cfg.Supabase.Key, cfg.ClientInfo(), cfg.API.Timeout),
		sessions,
		tokens,
		revoked,
		pkg.NewJWT(cfg.Supabase.JWTSecret),
		service.AuthOptions{
			AutoRefresh: cfg.Auth.AutoRefresh,
			FlowType:    cfg.Auth.FlowType,
			RedirectURL: cfg.Auth.RedirectURL,
			Debug:       cfg.App.Debug,
		},
		log,
	)

	baas := client.New(client.Deps{
		Auth:     auth,
		Data:     repository.New(pool, cfg.Supabase.Schema, cfg.DB.DefaultLimit),
		Storage:  service.NewStorage(afs.New(), cfg.Storage.URL, cfg.PublicStorageURL()),
		Realtime: service.NewRealtime(service.NewPgListener(pool), cfg.Supabase.Schema, cfg.Realtime.EventsPerSecond, log),
		Retrier:  retrier,
		Logger:   log,
	})

	baseURL := cfg.API.BaseURL
	if baseURL == "" {
		baseURL = cfg.Supabase.URL
	}
	navigator := httpapi.NavigatorFunc(func(path string) {
		log.Warn("session expired, sign in again", "route", path)
	})
	api := httpapi.New(baseURL, tokens, navigator,
		httpapi.WithTimeout(cfg.API.Timeout),
		httpapi.WithLoginPath(cfg.API.LoginPath),
		httpapi.WithRetrier(retrier),
		httpapi.WithLogger(log),
	)

	return &container{
		cfg:      cfg,
		log:      log,
		registry: registry,
		pool:     pool,
		redis:    rc,
		client:   baas,
		http:     api,

		progress:         os.Stderr,
		progressInterval: time.Second,
	}, nil
}

// stores keeps sessions in Redis when it is configured and persistence is
// on, in process memory otherwise.
func stores(cfg *config.Config, rc *config.RedisClient) (repository.SessionStore, repository.TokenStore, repository.RevocationList) {
	if rc == nil {
		return repository.NewMemorySessionStore(), repository.NewMemoryTokenStore(), nil
	}

	revoked := repository.NewRevocationList(rc.Client, rc.HashSalt)
	if !cfg.Auth.PersistSession {
		return repository.NewMemorySessionStore(), repository.NewMemoryTokenStore(), revoked
	}

	key := cfg.App.Name
	return repository.NewRedisSessionStore(rc.Client, key), repository.NewRedisTokenStore(rc.Client, key), revoked
}

func (c *container) Close() {
	c.client.Close()
	c.pool.Close()
	if c.redis != nil {
		if err := c.redis.Client.Close(); err != nil {
			c.log.Warn("failed to close redis", "error", err)
		}
	}
}

// withContainer builds the container for one command and closes it after.
func withContainer(action func(c *cli.Context, app *container) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		app, err := build(c)
		if err != nil {
			return err
		}
		defer app.Close()
		return action(c, app)
	}
}

// track runs op under the container's loading flag and prints a progress
// line to stderr every interval while the flag is set.
func track[T any](ctx context.Context, app *container, op func(ctx context.Context) (T, error)) (T, error) {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		ticker := time.NewTicker(app.progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if app.loading.IsLoading() {
					fmt.Fprintln(app.progress, "waiting for the backend...")
				}
			}
		}
	}()

	return hooks.Track(ctx, &app.loading, op)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
