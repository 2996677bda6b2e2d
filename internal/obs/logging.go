package obs

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/loja-api/internal/common"
)

// NewLogger builds the process logger. format "console" or "text" selects the
// human readable writer, anything else emits JSON lines.
func NewLogger(format, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stdout
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// RequestLogger writes one access log line per request. It also stores a
// request scoped logger in the context; downstream code reaches it through
// zerolog.Ctx and inherits the request and trace ids.
type RequestLogger struct {
	Logger zerolog.Logger
	// Quiet lists paths logged at debug level, such as probes and /metrics.
	Quiet []string
}

// Middleware implements the chi middleware signature.
func (l RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := l.Logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
			reqLogger = reqLogger.With().
				Str("trace_id", sc.TraceID().String()).
				Str("span_id", sc.SpanID().String()).
				Logger()
		}
		r = r.WithContext(reqLogger.WithContext(r.Context()))

		ww := wrap(w, r)
		start := time.Now()
		next.ServeHTTP(ww, r)

		// handlers may have enriched the shared logger, e.g. with the admin name
		logger := zerolog.Ctx(r.Context())
		status := statusOf(ww)
		evt := logger.Info()
		switch {
		case status >= http.StatusInternalServerError:
			evt = logger.Error()
		case l.quiet(r.URL.Path):
			evt = logger.Debug()
		}
		route := Route(r)
		if route == "" {
			route = r.URL.Path
		}
		evt = evt.
			Str("method", r.Method).
			Str("route", route).
			Str("path", r.URL.Path).
			Int("status", status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Int("bytes", ww.BytesWritten())
		if ip := common.ClientIP(r); ip != "" {
			evt = evt.Str("client_ip", ip)
		}
		if ua := strings.TrimSpace(r.UserAgent()); ua != "" {
			evt = evt.Str("user_agent", ua)
		}
		evt.Msg("http_request")
	})
}

func (l RequestLogger) quiet(path string) bool {
	for _, p := range l.Quiet {
		if p == path {
			return true
		}
	}
	return false
}
