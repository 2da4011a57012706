package presence

// BaseRoomToken is the first token the allocator probes. Tokens are lowercase
// base-26 strings that grow by one character when every digit overflows.
const BaseRoomToken = "aaaa"

// nextRoomToken increments the rightmost non-'z' digit and resets the 'z's
// after it: "aaaz" -> "aaba", "az" -> "ba", "zz" -> "aaa".
func nextRoomToken(tok string) string {
	chars := []byte(tok)
	for i := len(chars) - 1; i >= 0; i-- {
		if chars[i] != 'z' {
			chars[i]++
			return string(chars)
		}
		chars[i] = 'a'
	}
	// every digit overflowed, grow by one
	return "a" + string(chars)
}

// allocator picks rooms for auto-assigned joins. It is stateless beyond
// reading the room store: each probe restarts from BaseRoomToken, so a room
// that emptied and vanished is reused before a fresh token is minted.
type allocator struct {
	store    *roomStore
	capacity int
}

// availableRoom returns the first env-prefixed room id that is absent or
// under capacity. Never fails; the token just keeps growing.
func (a *allocator) availableRoom(env string) string {
	tok := BaseRoomToken
	for a.isFull(env + tok) {
		tok = nextRoomToken(tok)
	}
	return env + tok
}

// isFull reports whether the room exists and is at capacity.
func (a *allocator) isFull(roomID string) bool {
	rm := a.store.get(roomID)
	return rm != nil && rm.size() >= a.capacity
}
