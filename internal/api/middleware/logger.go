package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github/chapool/ledger-signer/internal/util"
)

type LoggerConfig struct {
	Level zerolog.Level
}

// Logger attaches a request scoped zerolog logger carrying the request id to the request
// context and logs every request once it completed.
func Logger(config LoggerConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()

			id := req.Header.Get(echo.HeaderXRequestID)
			if len(id) == 0 {
				id = res.Header().Get(echo.HeaderXRequestID)
			}

			l := log.With().Str("id", id).Logger()
			ctx := l.WithContext(req.Context())
			ctx = context.WithValue(ctx, util.CTXKeyRequestID, id)
			c.SetRequest(req.WithContext(ctx))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			l.WithLevel(config.Level).
				Str("method", req.Method).
				Str("url", req.RequestURI).
				Int("status", res.Status).
				Int64("bytes_out", res.Size).
				Dur("duration", time.Since(start)).
				Msg("http_request")

			return nil
		}
	}
}
