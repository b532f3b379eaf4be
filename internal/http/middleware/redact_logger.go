// Access logging with secret and PII scrubbing.
//
// RedactingLogger is the single access logger of the service. Each request
// produces one structured line with method, route, status, size, latency, and
// scrubbed request metadata. Request and response bodies are never logged, so
// message text, passwords, and registration payloads cannot leak through the
// log pipeline; the remaining exposure is query strings and headers, which
// are scrubbed before logging:
//
//   - credential-bearing headers (Authorization, Cookie, Set-Cookie, and
//     Sec-WebSocket-Protocol, which some browser clients abuse to smuggle a
//     bearer token into the websocket upgrade) are masked whole;
//   - query parameters named token or password are masked by name;
//   - anything JWT-shaped or email-shaped that survives in query strings or
//     header values is replaced with a placeholder marker.
//
// The middleware also attaches a request-scoped zerolog.Logger (correlation
// id, method, route) under the logger context key; handler code reaches it
// through LoggerFrom.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// maxQueryLogLength caps the logged query string; longer ones are truncated.
const maxQueryLogLength = 2048

// RedactOptions extends the built-in scrub lists of RedactingLogger.
//
// MaskHeaders names additional headers whose values are replaced whole with
// "[REDACTED]". MaskQueryParams does the same for query parameter values.
// Matching is case-insensitive and merged with the built-ins.
type RedactOptions struct {
	MaskHeaders     []string
	MaskQueryParams []string
}

// RedactingLogger returns the access-logging middleware. Severity follows the
// outcome: info for success, warn for 4xx, error for 5xx or when the Gin
// context collected errors. Install it after RequestID so the log line and
// the response share a correlation id, and before Recovery so panics are
// still logged as requests.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	// Session tokens are JWTs: three dot-joined base64url segments starting
	// with the {"alg"... header. Match the shape rather than specific claims
	// so foreign tokens pasted into a query get caught too.
	jwtRE := regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`)
	emailRE := regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)

	// Mask the values of credential query parameters wholesale (key kept).
	params := []string{"token", "password"}
	for _, p := range opts.MaskQueryParams {
		if p = strings.TrimSpace(p); p != "" {
			params = append(params, regexp.QuoteMeta(p))
		}
	}
	credQueryRE := regexp.MustCompile(`(?i)\b(` + strings.Join(params, "|") + `)=[^&]*`)

	scrub := func(s string) string {
		if s == "" {
			return s
		}
		s = jwtRE.ReplaceAllString(s, "[REDACTED:token]")
		return emailRE.ReplaceAllString(s, "[REDACTED:email]")
	}

	maskHeaders := map[string]struct{}{
		"authorization":          {},
		"cookie":                 {},
		"set-cookie":             {},
		"sec-websocket-protocol": {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			// Unmatched request (404): no route pattern to log.
			path = c.Request.URL.Path
		}
		query := c.Request.URL.RawQuery
		query = credQueryRE.ReplaceAllString(query, "$1=[REDACTED]")
		query = truncate(scrub(query), maxQueryLogLength)

		rid := c.Writer.Header().Get(requestIDHeader)
		if rid == "" {
			rid = c.GetHeader(requestIDHeader)
		}

		reqLog := log.With().
			Str("request_id", rid).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &reqLog)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, masked := maskHeaders[strings.ToLower(k)]; masked {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = scrub(strings.Join(vv, ", "))
		}

		ev := log.Info()
		switch {
		case status >= 500 || len(c.Errors) > 0:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		ev = ev.
			Str("request_id", rid).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", latency).
			Interface("headers", headers)
		if uid, ok := UserID(c); ok {
			ev = ev.Uint("user_id", uid)
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Msg("http_request")
	}
}

// truncate caps s at max bytes, appending an ellipsis when it cut anything.
// A max <= 0 disables truncation. Byte-based slicing is fine for log output.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
