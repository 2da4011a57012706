package presence

import "encoding/json"

// Inbound event names understood by the coordinator.
const (
	EvJoinRoom         = "joinRoom"
	EvUpdatePosition   = "updatePosition"
	EvUpdatePlayerData = "updatePlayerdata"
	EvChatMessage      = "chat message"
	EvAudioStream      = "audioStream"
	EvToggleMute       = "toggleMute"
	EvScreenShare      = "screenShareUpdate"
	EvRemovePlayer     = "removePlayer"
	EvLeaveRoom        = "leaveRoom"
)

// Outbound event names.
const (
	EvRoomAssigned    = "roomAssigned"
	EvNewPlayerJoined = "newPlayerJoined"
	EvRoomUpdate      = "roomUpdate"
	EvPlayerMoved     = "playerMoved"
	EvMuteChanged     = "playerMuteChanged"
	EvError           = "error"
)

type JoinRequest struct {
	RoomEnv      string `json:"roomEnv"`
	AvatarURL    string `json:"avatarURL"`
	AvatarGender string `json:"avatarGender"`
	UserID       string `json:"userId"`
	DisplayName  string `json:"displayName"`
	RoomID       string `json:"roomId"` // optional explicit room request
}

type PositionUpdate struct {
	UserID         string `json:"userId"`
	Position       Vec3   `json:"position"`
	Rotation       Vec3   `json:"rotation"`
	AnimationState string `json:"animationState"`
}

type PlayerDataUpdate struct {
	UserID    string `json:"userId"`
	AvatarURL string `json:"avatarURL"`
	Gender    string `json:"gender"`
}

type ChatMessage struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Message  string `json:"message"`
}

type MuteUpdate struct {
	UserID  string `json:"userId"`
	IsMuted bool   `json:"isMuted"`
}

// ScreenShareUpdate carries an uninterpreted texture blob; the server relays
// it without looking inside.
type ScreenShareUpdate struct {
	UserID      string          `json:"userId"`
	TextureData json.RawMessage `json:"textureData"`
}

type RemovePlayerRequest struct {
	UserID string `json:"userId"`
}

type RoomAssigned struct {
	RoomID string `json:"roomId"`
}

// NewPlayerJoined announces a join to every connected client. UserID carries
// the joiner's connection id, not the stable user id, matching the wire
// protocol clients already speak.
type NewPlayerJoined struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	RoomID      string `json:"roomId"`
}

type PlayerMoved struct {
	UserID         string `json:"userId"`
	Position       Vec3   `json:"position"`
	Rotation       Vec3   `json:"rotation"`
	AnimationState string `json:"animationState"`
}

// ChatEvent is the room-scoped chat fanout. ID is the sender's connection id.
type ChatEvent struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	User string `json:"user"`
}

type MuteChanged struct {
	UserID  string `json:"userId"`
	IsMuted bool   `json:"isMuted"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}
