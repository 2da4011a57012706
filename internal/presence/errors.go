package presence

import "fmt"

// errRoomVanished covers the should-not-happen case of a room disappearing
// between an insert and its roster snapshot within one handler.
func errRoomVanished(roomID string) error {
	return fmt.Errorf("room %s not found after joining", roomID)
}
