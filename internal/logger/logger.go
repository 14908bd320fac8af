// Package logger owns the process-wide zerolog logger.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	pkgctx "github.com/worketyamo/workplace/services/auth-service/internal/pkg/context"
)

const serviceName = "auth-service"

// Logger stays a no-op until Init is called, so packages can log from tests.
var Logger = zerolog.Nop()

type Options struct {
	Level  zerolog.Level
	Format string // "json" or "console"
}

// OptionsFromEnv reads LOG_LEVEL and LOG_FORMAT. Unknown values fall back to
// info and console.
func OptionsFromEnv() Options {
	opts := Options{Level: zerolog.InfoLevel, Format: "console"}
	if lvl, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL"))); err == nil && lvl != zerolog.NoLevel {
		opts.Level = lvl
	}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		opts.Format = "json"
	}
	return opts
}

// New builds a service logger writing to w.
func New(w io.Writer, opts Options) zerolog.Logger {
	if opts.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).
		Level(opts.Level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

func Init() {
	InitWithWriter(os.Stdout)
}

// InitWithWriter replaces both Logger and the zerolog global.
func InitWithWriter(w io.Writer) {
	Logger = New(w, OptionsFromEnv())
	zlog.Logger = Logger
}

// WithCtx returns Logger enriched with the request and account ids carried by ctx.
func WithCtx(ctx context.Context) *zerolog.Logger {
	rid := pkgctx.GetRequestID(ctx)
	aid := pkgctx.GetAccountID(ctx)
	if rid == "" && aid == "" {
		l := Logger
		return &l
	}

	c := Logger.With()
	if rid != "" {
		c = c.Str("request_id", rid)
	}
	if aid != "" {
		c = c.Str("account_id", aid)
	}
	l := c.Logger()
	return &l
}
