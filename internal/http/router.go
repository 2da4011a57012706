package httpx

import (
	"net/http"

	"log/slog"

	"presence-server/internal/app"
	"presence-server/internal/ws"
	"presence-server/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *ws.Hub, profiles AvatarStore) http.Handler {
	mw := NewMiddleware(cfg)
	avatarAPI := &AvatarAPI{Store: profiles}

	mux := http.NewServeMux()

	// Liveness text + health / readiness / metrics
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("Server is running"))
	}))
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// WebSocket endpoint (origin-checked at upgrade time, never rate-limited)
	mux.Handle("/ws", http.HandlerFunc(hub.ServeWS))

	// REST avatar update (the external profile-store surface), rate-limited
	// per IP; the websocket path is not
	mux.Handle("/api/update-avatar", mw.rlimit.Middleware(http.HandlerFunc(avatarAPI.Update)))

	// CORS applied globally
	return mw.cors.Handler(mux)
}
