package audit

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	pkgctx "github.com/worketyamo/workplace/services/auth-service/internal/pkg/context"
)

// warnActions are logged at warn level; everything else is info.
var warnActions = map[string]bool{
	"login_failed":        true,
	"refresh_reused":      true,
	"password_reset":      true,
	"account_deleted":     true,
	"verify_failed":       true,
	"unverified_purged":   true,
	"revocation_degraded": true,
}

// Logger provides structured audit logging for auth business events
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Record writes one audit line. Email values are masked; OTP codes and
// passwords must never be passed in fields.
func (l *Logger) Record(ctx context.Context, action string, fields map[string]string) {
	ev := l.log.Info()
	if warnActions[action] {
		ev = l.log.Warn()
	}
	ev = ev.Str("action", action)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		if strings.Contains(k, "email") {
			v = maskEmail(v)
		}
		ev = ev.Str(k, v)
	}

	if rid := pkgctx.GetRequestID(ctx); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	ev.Msg("audit")
}

// maskEmail partially masks email for privacy in logs
func maskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email[:1] + "***"
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
