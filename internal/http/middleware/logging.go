// Package middleware contains the Gin middleware stack shared by the REST
// surface and the websocket upgrade endpoint.
//
// This file covers request correlation and panic containment:
//
//   - RequestID tags every request with an X-Request-ID (reusing a
//     client-supplied one) so an error envelope, a websocket upgrade failure,
//     and the matching log lines can be tied together.
//   - Recovery converts panics into the same JSON error envelope the handlers
//     emit, keeping the correlation id and, when the request was
//     authenticated, the user id in the log record.
//   - LoggerFrom hands handlers the request-scoped zerolog.Logger attached by
//     RedactingLogger, with a plain fallback so callers never nil-check.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key holding the correlation id.
	requestIDKey = "requestID"
	// requestIDHeader carries the correlation id on requests and responses.
	requestIDHeader = "X-Request-ID"
	// loggerKey is the Gin context key holding the request-scoped logger.
	loggerKey = "logger"
)

// RequestID attaches a correlation identifier to the request. An incoming
// X-Request-ID is reused so ids survive proxies; otherwise a fresh UUIDv4 is
// generated. The id lands in the Gin context and on the response header.
// Install this first so every later middleware and handler can rely on it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// ridFrom returns the correlation id stored by RequestID, or "".
func ridFrom(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Recovery intercepts panics, logs the stack, and answers with the standard
// error envelope: {"request_id": ..., "code": "internal_error", ...}.
// When the handler already wrote part of a response, only the status is
// forced to 500; no envelope is appended to a half-written body.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := ridFrom(c)
			ev := log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid)
			if uid, ok := UserID(c); ok {
				ev = ev.Uint("user_id", uid)
			}
			ev.Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header("Content-Type", "application/json")
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger attached by
// RedactingLogger. Outside a request (or when the logger middleware is not
// installed) it returns the global logger, so the result is always usable.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}
