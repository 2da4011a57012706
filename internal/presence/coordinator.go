package presence

import (
	"encoding/json"
	"sync"

	"log/slog"

	"presence-server/pkg/metrics"
)

// Coordinator owns all session state: the room store, the connection
// registry, and the allocator that picks rooms for auto-assigned joins.
// Every event handler runs to completion under one mutex, so handlers never
// interleave and no finer-grained locking exists anywhere below this type.
// Outbound delivery is a non-blocking enqueue, so holding the lock across a
// fanout is cheap.
type Coordinator struct {
	log *slog.Logger

	mu    sync.Mutex
	rooms *roomStore
	reg   *registry
	alloc *allocator
	gw    *gateway
}

// New builds a coordinator with fresh state. capacity bounds auto-assigned
// rooms (explicitly requested rooms are checked against the same bound at
// join time).
func New(log *slog.Logger, sender Sender, capacity int) *Coordinator {
	rooms := newRoomStore()
	return &Coordinator{
		log:   log,
		rooms: rooms,
		reg:   newRegistry(),
		alloc: &allocator{store: rooms, capacity: capacity},
		gw:    &gateway{sender: sender, store: rooms},
	}
}

// Join places the user in the requested room if it has space, otherwise in
// the first available room for the env prefix. A prior connection for the
// same userId is evicted immediately rather than waiting for its disconnect
// event, and a prior room membership is dissolved so the user exists in
// exactly one room afterwards.
func (c *Coordinator) Join(connID string, req JoinRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	roomID := req.RoomID
	if roomID == "" || c.alloc.isFull(roomID) {
		roomID = c.alloc.availableRoom(req.RoomEnv)
	}

	if evicted := c.reg.bind(req.UserID, connID); evicted != "" {
		c.gw.drop(evicted)
		c.log.Info("registry.evicted", "userId", req.UserID, "connId", evicted)
	}

	// A join while already present moves the user; the old entry goes away
	// first so the one-room-per-user invariant holds between events.
	if prev, _ := c.rooms.findUser(req.UserID); prev != nil {
		prev.remove(req.UserID)
		if prev.size() == 0 {
			c.rooms.delete(prev.ID)
		}
	}

	rm := c.rooms.getOrCreate(roomID)
	rm.add(newParticipant(req.UserID, connID, req.DisplayName, req.AvatarURL, req.AvatarGender))
	c.syncGauges()

	roster, err := c.roster(roomID)
	if err != nil {
		// No partial state leaves the server; the joiner gets a generic
		// failure and everyone else hears nothing.
		c.log.Error("room.join.roster", "roomId", roomID, "err", err)
		c.gw.toConn(connID, EvError, ErrorEvent{Message: "Failed to join room. Please try again."})
		return
	}

	c.gw.toAll("", EvNewPlayerJoined, NewPlayerJoined{
		UserID:      connID,
		DisplayName: req.DisplayName,
		RoomID:      roomID,
	})
	c.gw.toRoom(roomID, "", EvRoomUpdate, roster)
	c.gw.toConn(connID, EvRoomAssigned, RoomAssigned{RoomID: roomID})
	c.log.Info("room.join", "userId", req.UserID, "roomId", roomID, "size", rm.size())
}

// UpdatePosition mutates the participant in place and fans the delta out to
// the rest of the room. Last write wins; there is no ordering beyond arrival.
func (c *Coordinator) UpdatePosition(connID string, req PositionUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rm, p := c.rooms.findUser(req.UserID)
	if p == nil {
		c.gw.toConn(connID, EvError, ErrorEvent{Message: "Failed to update position. User not found in any room."})
		return
	}

	p.Position = req.Position
	p.Rotation = req.Rotation
	p.AnimationState = req.AnimationState
	c.gw.toRoom(rm.ID, connID, EvPlayerMoved, PlayerMoved{
		UserID:         req.UserID,
		Position:       req.Position,
		Rotation:       req.Rotation,
		AnimationState: req.AnimationState,
	})
}

// UpdatePlayerData mutates the avatar fields and rebroadcasts the full
// roster, sender included, so every client re-renders consistently.
func (c *Coordinator) UpdatePlayerData(connID string, req PlayerDataUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rm, p := c.rooms.findUser(req.UserID)
	if p == nil {
		c.gw.toConn(connID, EvError, ErrorEvent{Message: "Failed to update player data. User not found in any room."})
		return
	}

	p.AvatarURL = req.AvatarURL
	p.Gender = req.Gender

	roster, err := c.roster(rm.ID)
	if err != nil {
		c.log.Error("room.playerdata.roster", "roomId", rm.ID, "err", err)
		c.gw.toConn(connID, EvError, ErrorEvent{Message: "Failed to update room data. Please try again."})
		return
	}
	c.gw.toRoom(rm.ID, "", EvRoomUpdate, roster)
}

// Chat relays a chat line to the whole room, sender included. No history,
// no rate limit, no content inspection.
func (c *Coordinator) Chat(connID string, req ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rm, p := c.rooms.findUser(req.UserID)
	if p == nil {
		c.gw.toConn(connID, EvError, ErrorEvent{Message: "Failed to send chat message. User not found in any room."})
		return
	}

	c.gw.toRoom(rm.ID, "", EvChatMessage, ChatEvent{ID: connID, Text: req.Message, User: req.UserName})
}

// AudioStream relays an opaque payload to every connection except the
// sender. This is deliberately not room-scoped; the deployed clients depend
// on the server-wide fanout.
func (c *Coordinator) AudioStream(connID string, payload json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gw.toAll(connID, EvAudioStream, payload)
}

// ToggleMute sets the flag and tells the whole room, sender included.
func (c *Coordinator) ToggleMute(connID string, req MuteUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rm, p := c.rooms.findUser(req.UserID)
	if p == nil {
		c.gw.toConn(connID, EvError, ErrorEvent{Message: "Failed to update mute status. User not found in any room."})
		return
	}

	p.IsMuted = req.IsMuted
	c.gw.toRoom(rm.ID, "", EvMuteChanged, MuteChanged{UserID: req.UserID, IsMuted: req.IsMuted})
}

// ScreenShare relays the texture blob to the room, sender excluded. Unlike
// the other handlers this one stays silent when the user has no room.
func (c *Coordinator) ScreenShare(connID string, req ScreenShareUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rm, _ := c.rooms.findUser(req.UserID)
	if rm == nil {
		return
	}
	c.gw.toRoom(rm.ID, connID, EvScreenShare, req)
}

// RemovePlayer deletes the participant and the room if it empties. The
// removal itself is not announced to the remaining members; leaveRoom and
// disconnect are the announced paths. The registry binding is left alone.
func (c *Coordinator) RemovePlayer(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rm, _ := c.rooms.findUser(userID)
	if rm == nil {
		return
	}
	rm.remove(userID)
	if rm.size() == 0 {
		c.rooms.delete(rm.ID)
	}
	c.syncGauges()
	c.log.Info("room.remove", "userId", userID, "roomId", rm.ID)
}

// LeaveRoom tears the user's presence down and unbinds the registry entry
// regardless of whether a room was found.
func (c *Coordinator) LeaveRoom(connID, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.teardown(userID)
	c.reg.unbind(userID)
	c.log.Info("room.leave", "userId", userID)
}

// Disconnect handles a transport-level drop. A connection that was already
// superseded by a newer one has no binding and the drop is a no-op, which is
// what makes the eviction in Join safe.
func (c *Coordinator) Disconnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	userID, ok := c.reg.userIDFor(connID)
	if !ok {
		return
	}
	c.reg.unbind(userID)
	c.teardown(userID)
	c.log.Info("conn.disconnect", "userId", userID, "connId", connID)
}

// teardown removes the user's participant; an emptied room is deleted, a
// surviving room hears the remaining roster. Callers hold c.mu.
func (c *Coordinator) teardown(userID string) {
	rm, _ := c.rooms.findUser(userID)
	if rm == nil {
		return
	}
	rm.remove(userID)
	if rm.size() == 0 {
		c.rooms.delete(rm.ID)
	} else if roster, err := c.roster(rm.ID); err == nil {
		c.gw.toRoom(rm.ID, "", EvRoomUpdate, roster)
	}
	c.syncGauges()
}

// roster snapshots the room's participants in join order.
func (c *Coordinator) roster(roomID string) ([]Participant, error) {
	rm := c.rooms.get(roomID)
	if rm == nil {
		return nil, errRoomVanished(roomID)
	}
	return rm.Roster(), nil
}

func (c *Coordinator) syncGauges() {
	metrics.Rooms.Set(float64(c.rooms.roomCount()))
	metrics.Participants.Set(float64(c.rooms.participantCount()))
}
