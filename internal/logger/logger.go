// Package logger is the structured logger used across DataLink.
package logger

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	TimeFormat string // rfc3339, unix, unixms
	Output     io.Writer
}

// DefaultConfig logs JSON at info level to stderr. Stdout is reserved for
// the MCP stdio transport and CLI output.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "json",
		TimeFormat: "rfc3339",
		Output:     os.Stderr,
	}
}

// New creates a logger from cfg. A nil cfg uses DefaultConfig.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = timeFormat(cfg.TimeFormat)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	zlog := zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// WithContext stores the logger in ctx.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.zlog.WithContext(ctx)
}

// FromContext retrieves the logger stored by WithContext, or a no-op logger.
func FromContext(ctx context.Context) *Logger {
	zlog := zerolog.Ctx(ctx)
	if zlog.GetLevel() == zerolog.Disabled {
		return Nop()
	}
	return &Logger{zlog: *zlog}
}

// With creates a child logger builder with additional fields.
func (l *Logger) With() *Context {
	return &Context{ctx: l.zlog.With()}
}

// Context wraps zerolog.Context for field chaining.
type Context struct {
	ctx zerolog.Context
}

func (c *Context) Str(key, val string) *Context {
	c.ctx = c.ctx.Str(key, val)
	return c
}

func (c *Context) Int(key string, val int) *Context {
	c.ctx = c.ctx.Int(key, val)
	return c
}

func (c *Context) Err(err error) *Context {
	c.ctx = c.ctx.Err(err)
	return c
}

func (c *Context) Any(key string, val any) *Context {
	c.ctx = c.ctx.Interface(key, val)
	return c
}

func (c *Context) Logger() *Logger {
	return &Logger{zlog: c.ctx.Logger()}
}

func (l *Logger) Debug(msg string) {
	l.zlog.Debug().Msg(msg)
}

func (l *Logger) Debugf(format string, args ...any) {
	l.zlog.Debug().Msgf(format, args...)
}

func (l *Logger) Info(msg string) {
	l.zlog.Info().Msg(msg)
}

func (l *Logger) Infof(format string, args ...any) {
	l.zlog.Info().Msgf(format, args...)
}

func (l *Logger) Warn(msg string) {
	l.zlog.Warn().Msg(msg)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.zlog.Warn().Msgf(format, args...)
}

func (l *Logger) Error(msg string) {
	l.zlog.Error().Msg(msg)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.zlog.Error().Msgf(format, args...)
}

// ErrorWith logs err with extra structured fields.
func (l *Logger) ErrorWith(msg string, err error, fields map[string]any) {
	event := l.zlog.Error().Err(err)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

// WarnWith logs a warning carrying err and extra fields.
func (l *Logger) WarnWith(msg string, err error, fields map[string]any) {
	event := l.zlog.Warn().Err(err)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

// Middleware logs one line per HTTP request and puts the logger on the
// request context.
func (l *Logger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(l.WithContext(r.Context())))

		l.zlog.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func timeFormat(format string) string {
	switch format {
	case "unix":
		return zerolog.TimeFormatUnix
	case "unixms":
		return zerolog.TimeFormatUnixMs
	default:
		return time.RFC3339
	}
}
