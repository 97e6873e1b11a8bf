package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
)

func LoggingMiddleware(log *slog.Logger) func(HandlerFunc) HandlerFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error {
			start := time.Now()
			log.Debug("request started", "method", r.Method, "path", r.URL.Path)

			err := next(w, r)

			status := http.StatusOK
			if err != nil {
				status = customerrors.GetStatus(err)
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", time.Since(start),
			}
			if err != nil {
				log.Warn("request failed", append(attrs, "error", err.Error())...)
			} else {
				log.Info("request completed", attrs...)
			}

			return err
		}
	}
}
