package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/tonimelisma/gdrive-files/internal/apitoken"
)

// TokenValidator checks API bearer tokens.
type TokenValidator interface {
	Validate(token string) (*apitoken.Claims, error)
}

// requestLogger logs one line per request with slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
			)
		})
	}
}

// bearerAuth rejects requests without a valid "Authorization: Bearer" token.
func bearerAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				sendUnauthorized(w, "Authorization header is required")
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				sendUnauthorized(w, "Invalid authorization header format. Use: Bearer <token>")
				return
			}

			token = strings.TrimSpace(token)
			if token == "" {
				sendUnauthorized(w, "Token is required")
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				logger.Info("api token rejected",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("error", err.Error()),
				)

				if errors.Is(err, apitoken.ErrExpiredToken) {
					sendUnauthorized(w, "Token has expired")
					return
				}

				sendUnauthorized(w, "Invalid token")

				return
			}

			logger.Debug("api token accepted", slog.String("subject", claims.Subject))

			next.ServeHTTP(w, r)
		})
	}
}

func sendUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="gdrive-files"`)
	sendDetail(w, http.StatusUnauthorized, message)
}
