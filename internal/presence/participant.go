package presence

// Vec3 is a 3-tuple of coordinates, serialized as a JSON array. The server
// never interprets the values; rotation may be Euler angles or anything else
// the clients agree on.
type Vec3 [3]float64

// Participant is one user's live state inside a room. A userId owns at most
// one Participant across all rooms at any time.
type Participant struct {
	UserID         string `json:"userId"`
	ConnectionID   string `json:"-"`
	DisplayName    string `json:"displayName"`
	Position       Vec3   `json:"position"`
	Rotation       Vec3   `json:"rotation"`
	AnimationState string `json:"animationState"`
	AvatarURL      string `json:"avatarURL"`
	Gender         string `json:"gender"`
	IsMuted        bool   `json:"isMuted"`
}

func newParticipant(userID, connID, displayName, avatarURL, gender string) *Participant {
	return &Participant{
		UserID:         userID,
		ConnectionID:   connID,
		DisplayName:    displayName,
		Position:       Vec3{0, 0, 0},
		Rotation:       Vec3{0, 0, 0},
		AnimationState: "idle",
		AvatarURL:      avatarURL,
		Gender:         gender,
	}
}
