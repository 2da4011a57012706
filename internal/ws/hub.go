package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"log/slog"

	"github.com/google/uuid"

	"presence-server/internal/app"
	"presence-server/internal/presence"
	"presence-server/pkg/metrics"
)

// Hub owns the connection table and bridges the transport to the presence
// coordinator: inbound frames are decoded and dispatched by event name,
// outbound fanout comes back in through the presence.Sender methods.
type Hub struct {
	log            *slog.Logger
	originPatterns []string
	coord          *presence.Coordinator

	mu    sync.RWMutex
	conns map[string]*Conn // by connection id
}

// NewHub sets up the hub; the coordinator is attached with Bind once it has
// been built around this hub.
func NewHub(logger *slog.Logger, cfg app.Config) *Hub {
	return &Hub{
		log: logger,
		originPatterns: []string{
			cfg.OriginSuffix,
			"*." + cfg.OriginSuffix,
			"localhost",
			"localhost:*",
		},
		conns: map[string]*Conn{},
	}
}

// Bind attaches the coordinator. Must be called before ServeWS.
func (h *Hub) Bind(c *presence.Coordinator) { h.coord = c }

// ServeWS handles one websocket session end to end: accept, read loop,
// dispatch, and disconnect teardown when the read loop ends for any reason.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sock, err := Accept(w, r, h.originPatterns)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	c := NewConn(uuid.NewString(), sock)
	h.mu.Lock()
	h.conns[c.ID()] = c
	h.mu.Unlock()
	metrics.Connections.Inc()
	h.log.Debug("ws.connected", "connId", c.ID())

	go c.WriteLoop(ctx)

	for {
		frame, ok := c.Read(ctx)
		if !ok {
			break
		}
		h.dispatch(c.ID(), frame)
	}

	h.mu.Lock()
	delete(h.conns, c.ID())
	h.mu.Unlock()
	metrics.Connections.Dec()

	h.coord.Disconnect(c.ID())
	_ = c.Close()
	h.log.Debug("ws.closed", "connId", c.ID())
}

// dispatch decodes the envelope and routes it by event name. Malformed
// frames get one error reply; unknown event names are logged and dropped.
func (h *Hub) dispatch(connID string, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Event == "" {
		h.sendError(connID, "malformed event frame")
		return
	}

	switch env.Event {
	case presence.EvJoinRoom:
		var req presence.JoinRequest
		if h.decode(connID, env.Data, &req) {
			h.coord.Join(connID, req)
		}
	case presence.EvUpdatePosition:
		var req presence.PositionUpdate
		if h.decode(connID, env.Data, &req) {
			h.coord.UpdatePosition(connID, req)
		}
	case presence.EvUpdatePlayerData:
		var req presence.PlayerDataUpdate
		if h.decode(connID, env.Data, &req) {
			h.coord.UpdatePlayerData(connID, req)
		}
	case presence.EvChatMessage:
		var req presence.ChatMessage
		if h.decode(connID, env.Data, &req) {
			h.coord.Chat(connID, req)
		}
	case presence.EvAudioStream:
		// opaque relay, no decode
		h.coord.AudioStream(connID, env.Data)
	case presence.EvToggleMute:
		var req presence.MuteUpdate
		if h.decode(connID, env.Data, &req) {
			h.coord.ToggleMute(connID, req)
		}
	case presence.EvScreenShare:
		var req presence.ScreenShareUpdate
		if h.decode(connID, env.Data, &req) {
			h.coord.ScreenShare(connID, req)
		}
	case presence.EvRemovePlayer:
		var req presence.RemovePlayerRequest
		if h.decode(connID, env.Data, &req) {
			h.coord.RemovePlayer(req.UserID)
		}
	case presence.EvLeaveRoom:
		// flat payload: the data is the bare userId string
		var userID string
		if h.decode(connID, env.Data, &userID) {
			h.coord.LeaveRoom(connID, userID)
		}
	default:
		// unknown names are not counted; the label set stays bounded
		h.log.Debug("ws.event.unknown", "event", env.Event, "connId", connID)
		return
	}
	metrics.Events.WithLabelValues(env.Event).Inc()
}

func (h *Hub) decode(connID string, raw json.RawMessage, v any) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		h.sendError(connID, "invalid event payload")
		return false
	}
	return true
}

func (h *Hub) sendError(connID, msg string) {
	h.Send(connID, presence.EvError, presence.ErrorEvent{Message: msg})
}

// Send delivers one event to one connection. Part of presence.Sender.
func (h *Hub) Send(connID, event string, data any) {
	frame := EncodeEvent(event, data)
	if frame == nil {
		return
	}
	h.mu.RLock()
	c := h.conns[connID]
	h.mu.RUnlock()
	if c != nil {
		c.Enqueue(frame)
	}
}

// SendAll delivers one event to every connection, skipping exclude when
// non-empty. Part of presence.Sender.
func (h *Hub) SendAll(exclude, event string, data any) {
	frame := EncodeEvent(event, data)
	if frame == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.conns {
		if id != exclude {
			c.Enqueue(frame)
		}
	}
}

// Drop force-closes a superseded connection. The close runs off the caller's
// goroutine so a coordinator handler never waits on the close handshake; the
// connection's own read loop then performs the usual disconnect teardown,
// which is a no-op because its registry binding is already gone.
func (h *Hub) Drop(connID string) {
	h.mu.RLock()
	c := h.conns[connID]
	h.mu.RUnlock()
	if c != nil {
		go func() { _ = c.Kick() }()
	}
}
