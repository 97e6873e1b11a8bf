// Package httpapi is the generic JSON HTTP facade: bearer token from the
// token store, payload unwrapping, network retries and the 401 redirect.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
	"github.com/taekwondodev/go-BaaS-Client/internal/repository"
	"github.com/taekwondodev/go-BaaS-Client/internal/retry"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultLoginPath = "/login"
)

// Navigator moves the application to another route.
type Navigator interface {
	Navigate(path string)
}

type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) {
	f(path)
}

type Client struct {
	baseURL   string
	http      *http.Client
	tokens    repository.TokenStore
	navigator Navigator
	loginPath string
	retrier   *retry.Retrier
	log       *slog.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLoginPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.loginPath = path
		}
	}
}

func WithRetrier(r *retry.Retrier) Option {
	return func(c *Client) {
		c.retrier = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithTransport replaces the transport under the bearer interceptor.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = &bearerTransport{tokens: c.tokens, transport: rt}
	}
}

func New(baseURL string, tokens repository.TokenStore, navigator Navigator, options ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		tokens:    tokens,
		navigator: navigator,
		loginPath: DefaultLoginPath,
		retrier:   retry.New(),
		log:       slog.New(slog.DiscardHandler),
	}
	c.http = &http.Client{
		Timeout:   DefaultTimeout,
		Transport: &bearerTransport{tokens: tokens, transport: http.DefaultTransport},
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

type response struct {
	status int
	body   []byte
}

// do sends the request and decodes the payload into out. Failures come back
// as *customerrors.Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return customerrors.Normalize(err)
		}
	}

	res, err := retry.Do(ctx, c.retrier, method+" "+path, func(ctx context.Context) (*response, error) {
		return c.send(ctx, method, path, payload)
	})
	if err != nil {
		return c.transportError(err)
	}

	if res.status == http.StatusUnauthorized {
		return c.unauthorized(ctx, res)
	}

	if res.status >= http.StatusBadRequest {
		return &customerrors.Error{
			Code:    res.status,
			Message: serverMessage(res, statusMessage(res.status)),
			Kind:    kindForStatus(res.status),
		}
	}

	if out == nil || len(bytes.TrimSpace(res.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return customerrors.Normalize(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

// unauthorized clears the token and sends the user to the login route once
// per 401 response. The call still fails.
func (c *Client) unauthorized(ctx context.Context, res *response) error {
	if err := c.tokens.DeleteToken(ctx); err != nil {
		c.log.Warn("failed to clear access token", "error", err)
	}
	if c.navigator != nil {
		c.navigator.Navigate(c.loginPath)
	}

	return &customerrors.Error{
		Code:    http.StatusUnauthorized,
		Message: serverMessage(res, statusMessage(res.status)),
		Kind:    customerrors.KindAuth,
	}
}

// transportError is reached only when no response arrived.
func (c *Client) transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return customerrors.Normalize(err)
	}
	if retry.IsTransient(err) {
		c.log.Error("network request failed", "error", err.Error())
		return customerrors.Network(err)
	}

	message := err.Error()
	if message == "" {
		message = customerrors.MsgUnknown
	}
	return &customerrors.Error{Code: 500, Message: message, Kind: customerrors.KindUnknown, Err: err}
}

func serverMessage(res *response, fallback string) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(res.body, &body); err == nil && body.Message != "" {
		return body.Message
	}
	if fallback == "" {
		return customerrors.MsgUnknown
	}
	return fallback
}

func statusMessage(status int) string {
	return fmt.Sprintf("Request failed with status code %d", status)
}

func kindForStatus(status int) customerrors.Kind {
	switch {
	case status == http.StatusForbidden:
		return customerrors.KindAuth
	case status == http.StatusNotFound:
		return customerrors.KindNotFound
	case status < http.StatusInternalServerError:
		return customerrors.KindValidation
	default:
		return customerrors.KindUnknown
	}
}
