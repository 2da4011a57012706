package httpx

import (
	"context"
	"encoding/json"
	"net/http"
)

// AvatarStore is the slice of the profile store this API needs; the redis
// implementation lives in internal/store.
type AvatarStore interface {
	UpdateAvatar(ctx context.Context, userID, avatarURL string) error
}

type AvatarAPI struct{ Store AvatarStore }

type updateAvatarReq struct {
	UserID    string `json:"userId"`
	AvatarURL string `json:"avatarURL"`
}

// Update persists a new avatar URL for a user. Validation failures are the
// caller's problem (400); store failures surface as a 500 with detail. Room
// state is untouched either way.
func (a *AvatarAPI) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req updateAvatarReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.AvatarURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "userId and avatarURL are required in the request body",
		})
		return
	}

	if err := a.Store.UpdateAvatar(r.Context(), req.UserID, req.AvatarURL); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Failed to update avatar URL", "details": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Avatar URL updated successfully"})
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
