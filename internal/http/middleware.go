package httpx

import (
	"regexp"
	"time"

	"github.com/rs/cors"

	"presence-server/internal/app"
	"presence-server/pkg/ratelimit"
)

type Middleware struct {
	cors   *cors.Cors
	rlimit *ratelimit.Limiter
}

// NewMiddleware builds the shared middleware stack from config. Origins on
// the explicit allowlist pass, as does any subdomain of the configured
// suffix and localhost on any port. Requests with no Origin header (curl,
// mobile apps) are allowed through.
func NewMiddleware(cfg app.Config) *Middleware {
	match := OriginMatcher(cfg.OriginSuffix)
	allow := map[string]bool{}
	for _, o := range cfg.CORSAllow {
		allow[o] = true
	}
	return &Middleware{
		cors: cors.New(cors.Options{
			AllowOriginFunc: func(origin string) bool {
				return allow[origin] || match(origin)
			},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}),
		rlimit: ratelimit.New(30, time.Minute), // 30 req/min default
	}
}

// OriginMatcher returns a predicate accepting http(s) origins that are the
// suffix itself, any subdomain of it, or localhost with an optional port.
func OriginMatcher(suffix string) func(string) bool {
	re := regexp.MustCompile(`^https?://(([a-zA-Z0-9-]+\.)*` + regexp.QuoteMeta(suffix) + `|localhost(:\d+)?)$`)
	return func(origin string) bool {
		if origin == "" {
			return false
		}
		return re.MatchString(origin)
	}
}
