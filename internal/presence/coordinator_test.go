package presence

import (
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"log/slog"
)

// sent records one delivery through the fake sender. connID "*" marks a
// server-wide broadcast.
type sent struct {
	connID  string
	exclude string
	event   string
	data    any
}

type fakeSender struct {
	sent    []sent
	dropped []string
}

func (f *fakeSender) Send(connID, event string, data any) {
	f.sent = append(f.sent, sent{connID: connID, event: event, data: data})
}

func (f *fakeSender) SendAll(exclude, event string, data any) {
	f.sent = append(f.sent, sent{connID: "*", exclude: exclude, event: event, data: data})
}

func (f *fakeSender) Drop(connID string) { f.dropped = append(f.dropped, connID) }

func (f *fakeSender) byEvent(event string) []sent {
	var out []sent
	for _, s := range f.sent {
		if s.event == event {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeSender) reset() { f.sent, f.dropped = nil, nil }

func newTestCoordinator(capacity int) (*Coordinator, *fakeSender) {
	f := &fakeSender{}
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), f, capacity), f
}

func join(c *Coordinator, connID, userID string) {
	c.Join(connID, JoinRequest{
		RoomEnv:      "ex-",
		UserID:       userID,
		DisplayName:  userID + "-name",
		AvatarURL:    "https://cdn/" + userID + ".glb",
		AvatarGender: "female",
	})
}

func assignedRoom(t *testing.T, f *fakeSender) string {
	t.Helper()
	got := f.byEvent(EvRoomAssigned)
	if len(got) == 0 {
		t.Fatal("no roomAssigned reply")
	}
	return got[len(got)-1].data.(RoomAssigned).RoomID
}

func TestJoinAssignsBaseRoom(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)

	join(c, "c1", "u1")

	if got := assignedRoom(t, f); got != "ex-aaaa" {
		t.Errorf("assigned room: got %q, want ex-aaaa", got)
	}

	ann := f.byEvent(EvNewPlayerJoined)
	if len(ann) != 1 || ann[0].connID != "*" || ann[0].exclude != "" {
		t.Fatalf("newPlayerJoined: got %v, want one server-wide broadcast", ann)
	}
	if got := ann[0].data.(NewPlayerJoined); got.UserID != "c1" || got.RoomID != "ex-aaaa" {
		t.Errorf("announcement carries %+v, want conn id c1 and room ex-aaaa", got)
	}

	updates := f.byEvent(EvRoomUpdate)
	if len(updates) != 1 || updates[0].connID != "c1" {
		t.Fatalf("roomUpdate: got %v, want one delivery to c1", updates)
	}
	roster := updates[0].data.([]Participant)
	if len(roster) != 1 || roster[0].UserID != "u1" || roster[0].AnimationState != "idle" || roster[0].IsMuted {
		t.Errorf("roster: got %+v, want single idle unmuted u1", roster)
	}
}

func TestAutoAssignRollsOverAtCapacity(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)

	for i := 0; i < 20; i++ {
		f.reset()
		join(c, fmt.Sprintf("c%d", i), fmt.Sprintf("u%d", i))
		if got := assignedRoom(t, f); got != "ex-aaaa" {
			t.Fatalf("join %d: got %q, want ex-aaaa", i, got)
		}
	}

	f.reset()
	join(c, "c20", "u20")
	if got := assignedRoom(t, f); got != "ex-aaab" {
		t.Errorf("21st join: got %q, want ex-aaab", got)
	}
}

func TestRequestedRoomHonoredUnlessFull(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(1)

	c.Join("c1", JoinRequest{RoomEnv: "ex-", UserID: "u1", RoomID: "ex-custom"})
	if got := assignedRoom(t, f); got != "ex-custom" {
		t.Fatalf("requested room: got %q, want ex-custom", got)
	}

	// the requested room is full, so the allocator takes over
	f.reset()
	c.Join("c2", JoinRequest{RoomEnv: "ex-", UserID: "u2", RoomID: "ex-custom"})
	if got := assignedRoom(t, f); got != "ex-aaaa" {
		t.Errorf("full requested room: got %q, want ex-aaaa", got)
	}
}

func TestDuplicateConnectionEvicted(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)

	join(c, "c1", "u1")
	f.reset()
	join(c, "c2", "u1")

	if len(f.dropped) != 1 || f.dropped[0] != "c1" {
		t.Fatalf("dropped: got %v, want [c1]", f.dropped)
	}

	rm, p := c.rooms.findUser("u1")
	if rm == nil || p.ConnectionID != "c2" {
		t.Fatalf("presence after rejoin: got %+v, want u1 on c2", p)
	}
	if c.rooms.participantCount() != 1 {
		t.Errorf("participants: got %d, want exactly 1", c.rooms.participantCount())
	}

	// the old connection's disconnect arrives later and must not tear down
	// the new presence
	f.reset()
	c.Disconnect("c1")
	if len(f.sent) != 0 {
		t.Errorf("stale disconnect: got %v, want no deliveries", f.sent)
	}
	if rm, _ := c.rooms.findUser("u1"); rm == nil {
		t.Error("stale disconnect removed the live presence")
	}
}

func TestJoinMovesUserBetweenRooms(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)

	c.Join("c1", JoinRequest{RoomEnv: "ex-", UserID: "u1", RoomID: "ex-r1"})
	f.reset()
	c.Join("c2", JoinRequest{RoomEnv: "ex-", UserID: "u1", RoomID: "ex-r2"})

	rm, _ := c.rooms.findUser("u1")
	if rm == nil || rm.ID != "ex-r2" {
		t.Fatalf("user room: got %v, want ex-r2", rm)
	}
	if c.rooms.get("ex-r1") != nil {
		t.Error("emptied prior room ex-r1 was not deleted")
	}
	if c.rooms.participantCount() != 1 {
		t.Errorf("participants: got %d, want 1", c.rooms.participantCount())
	}
}

func TestUpdatePositionUnknownUser(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)

	c.UpdatePosition("c9", PositionUpdate{UserID: "ghost"})

	if len(f.sent) != 1 {
		t.Fatalf("deliveries: got %d, want exactly 1", len(f.sent))
	}
	s := f.sent[0]
	if s.connID != "c9" || s.event != EvError {
		t.Errorf("got %+v, want one error to c9", s)
	}
}

func TestUpdatePositionBroadcastsToOthers(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)
	join(c, "c1", "u1")
	join(c, "c2", "u2")
	f.reset()

	c.UpdatePosition("c1", PositionUpdate{
		UserID:         "u1",
		Position:       Vec3{1, 2, 3},
		Rotation:       Vec3{0, 90, 0},
		AnimationState: "walk",
	})

	moved := f.byEvent(EvPlayerMoved)
	if len(moved) != 1 || moved[0].connID != "c2" {
		t.Fatalf("playerMoved: got %v, want one delivery to c2 only", moved)
	}
	got := moved[0].data.(PlayerMoved)
	if got.Position != (Vec3{1, 2, 3}) || got.AnimationState != "walk" {
		t.Errorf("delta: got %+v", got)
	}

	_, p := c.rooms.findUser("u1")
	if p.Position != (Vec3{1, 2, 3}) || p.Rotation != (Vec3{0, 90, 0}) || p.AnimationState != "walk" {
		t.Errorf("participant not mutated in place: %+v", p)
	}
}

func TestUpdatePlayerDataRoundTrip(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)
	join(c, "c1", "u1")
	join(c, "c2", "u2")
	c.UpdatePosition("c1", PositionUpdate{UserID: "u1", Position: Vec3{5, 0, 5}, AnimationState: "walk"})
	f.reset()

	c.UpdatePlayerData("c1", PlayerDataUpdate{UserID: "u1", AvatarURL: "https://cdn/new.glb", Gender: "male"})

	updates := f.byEvent(EvRoomUpdate)
	if len(updates) != 2 {
		t.Fatalf("roomUpdate: got %d deliveries, want both members incl. sender", len(updates))
	}
	roster := updates[0].data.([]Participant)
	var entry *Participant
	for i := range roster {
		if roster[i].UserID == "u1" {
			entry = &roster[i]
		}
	}
	if entry == nil {
		t.Fatal("u1 missing from roster")
	}
	if entry.AvatarURL != "https://cdn/new.glb" || entry.Gender != "male" {
		t.Errorf("avatar fields: got %+v", entry)
	}
	// everything else untouched
	if entry.Position != (Vec3{5, 0, 5}) || entry.AnimationState != "walk" || entry.DisplayName != "u1-name" {
		t.Errorf("unrelated fields changed: %+v", entry)
	}
}

func TestChatGoesToWholeRoom(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)
	join(c, "c1", "u1")
	join(c, "c2", "u2")
	f.reset()

	c.Chat("c1", ChatMessage{UserID: "u1", UserName: "Alice", Message: "hi"})

	msgs := f.byEvent(EvChatMessage)
	if len(msgs) != 2 {
		t.Fatalf("chat deliveries: got %d, want 2 (sender included)", len(msgs))
	}
	got := msgs[0].data.(ChatEvent)
	if got.ID != "c1" || got.Text != "hi" || got.User != "Alice" {
		t.Errorf("chat event: got %+v", got)
	}
}

func TestChatUnknownUser(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)

	c.Chat("c1", ChatMessage{UserID: "ghost", Message: "hi"})
	if len(f.sent) != 1 || f.sent[0].event != EvError || f.sent[0].connID != "c1" {
		t.Errorf("got %v, want one error to sender", f.sent)
	}
}

func TestAudioStreamIsServerWide(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)
	join(c, "c1", "u1")
	f.reset()

	payload := json.RawMessage(`"AAAB"`)
	c.AudioStream("c1", payload)

	if len(f.sent) != 1 {
		t.Fatalf("deliveries: got %d, want 1", len(f.sent))
	}
	s := f.sent[0]
	if s.connID != "*" || s.exclude != "c1" || s.event != EvAudioStream {
		t.Errorf("got %+v, want server-wide broadcast excluding c1", s)
	}
}

func TestToggleMute(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)
	join(c, "c1", "u1")
	join(c, "c2", "u2")
	f.reset()

	c.ToggleMute("c1", MuteUpdate{UserID: "u1", IsMuted: true})

	changed := f.byEvent(EvMuteChanged)
	if len(changed) != 2 {
		t.Fatalf("playerMuteChanged: got %d deliveries, want 2 (sender included)", len(changed))
	}
	if got := changed[0].data.(MuteChanged); !got.IsMuted || got.UserID != "u1" {
		t.Errorf("mute event: got %+v", got)
	}
	if _, p := c.rooms.findUser("u1"); !p.IsMuted {
		t.Error("participant flag not set")
	}
}

func TestScreenShareExcludesSender(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)
	join(c, "c1", "u1")
	join(c, "c2", "u2")
	f.reset()

	c.ScreenShare("c1", ScreenShareUpdate{UserID: "u1", TextureData: json.RawMessage(`"tex"`)})

	shares := f.byEvent(EvScreenShare)
	if len(shares) != 1 || shares[0].connID != "c2" {
		t.Errorf("screenShareUpdate: got %v, want one delivery to c2", shares)
	}
}

func TestScreenShareUnknownUserIsSilent(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)

	c.ScreenShare("c1", ScreenShareUpdate{UserID: "ghost"})
	if len(f.sent) != 0 {
		t.Errorf("got %v, want silence (no error, no broadcast)", f.sent)
	}
}

func TestRemovePlayerIsUnannounced(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)
	join(c, "c1", "u1")
	join(c, "c2", "u2")
	f.reset()

	c.RemovePlayer("u1")

	if len(f.sent) != 0 {
		t.Errorf("deliveries: got %v, want none", f.sent)
	}
	if rm, _ := c.rooms.findUser("u1"); rm != nil {
		t.Error("u1 still present after removal")
	}
	if c.rooms.get("ex-aaaa") == nil {
		t.Error("room with a remaining member was deleted")
	}

	c.RemovePlayer("u2")
	if c.rooms.get("ex-aaaa") != nil {
		t.Error("emptied room was not deleted")
	}
}

func TestLeaveRoomBroadcastsRemainingRoster(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)
	join(c, "c1", "u1")
	join(c, "c2", "u2")
	f.reset()

	c.LeaveRoom("c1", "u1")

	updates := f.byEvent(EvRoomUpdate)
	if len(updates) != 1 || updates[0].connID != "c2" {
		t.Fatalf("roomUpdate: got %v, want one delivery to c2", updates)
	}
	roster := updates[0].data.([]Participant)
	if len(roster) != 1 || roster[0].UserID != "u2" {
		t.Errorf("remaining roster: got %+v, want just u2", roster)
	}
	if _, ok := c.reg.connectionID("u1"); ok {
		t.Error("registry binding survived leaveRoom")
	}
}

func TestLeaveLastParticipantDeletesRoomAndReusesToken(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)
	join(c, "c1", "u1")
	c.LeaveRoom("c1", "u1")

	if c.rooms.get("ex-aaaa") != nil {
		t.Fatal("emptied room was not deleted")
	}

	f.reset()
	join(c, "c2", "u2")
	if got := assignedRoom(t, f); got != "ex-aaaa" {
		t.Errorf("token not reused: got %q, want ex-aaaa", got)
	}
}

func TestDisconnectTearsDownPresence(t *testing.T) {
	t.Parallel()
	c, f := newTestCoordinator(20)
	join(c, "c1", "u1")
	join(c, "c2", "u2")
	f.reset()

	c.Disconnect("c1")

	if rm, _ := c.rooms.findUser("u1"); rm != nil {
		t.Error("u1 still present after disconnect")
	}
	updates := f.byEvent(EvRoomUpdate)
	if len(updates) != 1 || updates[0].connID != "c2" {
		t.Fatalf("roomUpdate: got %v, want one delivery to c2", updates)
	}

	// repeated disconnect for the same conn is a silent no-op
	f.reset()
	c.Disconnect("c1")
	if len(f.sent) != 0 {
		t.Errorf("second disconnect: got %v, want no deliveries", f.sent)
	}
}

func TestUserNeverInTwoRooms(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(2)

	// churn across several rooms and check the invariant after every event
	for i := 0; i < 10; i++ {
		join(c, fmt.Sprintf("c%d", i), fmt.Sprintf("u%d", i%4))
		for j := 0; j < 4; j++ {
			uid := fmt.Sprintf("u%d", j)
			n := 0
			for _, rm := range c.rooms.rooms {
				if rm.get(uid) != nil {
					n++
				}
			}
			if n > 1 {
				t.Fatalf("after join %d: %s is in %d rooms", i, uid, n)
			}
		}
	}
}

func TestCapacityNeverExceededOnAutoAssign(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(3)

	for i := 0; i < 25; i++ {
		join(c, fmt.Sprintf("c%d", i), fmt.Sprintf("u%d", i))
		for id, rm := range c.rooms.rooms {
			if rm.size() > 3 {
				t.Fatalf("room %s over capacity: %d", id, rm.size())
			}
		}
	}
}
