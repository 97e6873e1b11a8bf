package api

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
	"github.com/taekwondodev/go-BaaS-Client/internal/logger"
)

type stubController struct {
	callbackErr error
}

func (s *stubController) Callback(w http.ResponseWriter, r *http.Request) error {
	if s.callbackErr != nil {
		return s.callbackErr
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

func (s *stubController) Health(w http.ResponseWriter, r *http.Request) error {
	w.WriteHeader(http.StatusOK)
	return nil
}

func setupRouter(ctrl *stubController) *http.ServeMux {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "baas_test_total", Help: "test"}))
	return SetupRoutes(Routes{
		CallbackPath: "/auth/callback",
		Controller:   ctrl,
		Gatherer:     reg,
		Logger:       logger.Discard(),
	})
}

func TestSetupRoutes(t *testing.T) {
	testCases := []struct {
		name           string
		method         string
		path           string
		callbackErr    error
		expectedStatus int
	}{
		{name: "callback", method: http.MethodGet, path: "/auth/callback?code=x", expectedStatus: http.StatusOK},
		{name: "callback error", method: http.MethodGet, path: "/auth/callback", callbackErr: customerrors.ErrBadRequest, expectedStatus: http.StatusBadRequest},
		{name: "health", method: http.MethodGet, path: "/healthz", expectedStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", expectedStatus: http.StatusOK},
		{name: "wrong method", method: http.MethodPost, path: "/auth/callback", expectedStatus: http.StatusMethodNotAllowed},
		{name: "unknown route", method: http.MethodGet, path: "/nope", expectedStatus: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := setupRouter(&stubController{callbackErr: tc.callbackErr})
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

			assert.Equal(t, tc.expectedStatus, rec.Code)
		})
	}
}

func TestMetricsExposeRegistry(t *testing.T) {
	router := setupRouter(&stubController{})
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Contains(t, rec.Body.String(), "baas_test_total")
}

func TestServer_StopsWhenContextDone(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := NewServer(addr, setupRouter(&stubController{}), logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.StartWithGracefulShutdown(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
