package presence

// registry maps a stable userId to its currently active connection id. It is
// the authority for duplicate-connection reconciliation: binding a user who
// is already bound elsewhere reports the superseded connection so the caller
// can terminate it.
type registry struct {
	conns map[string]string // userId -> connection id
}

func newRegistry() *registry {
	return &registry{conns: map[string]string{}}
}

// bind records userId -> connID and returns the previous connection id when
// it differs from the new one (the reconnect / second-tab case).
func (r *registry) bind(userID, connID string) (evicted string) {
	if prev, ok := r.conns[userID]; ok && prev != connID {
		evicted = prev
	}
	r.conns[userID] = connID
	return evicted
}

func (r *registry) unbind(userID string) { delete(r.conns, userID) }

func (r *registry) connectionID(userID string) (string, bool) {
	id, ok := r.conns[userID]
	return id, ok
}

// userIDFor reverse-scans for the user bound to a connection. Only used at
// disconnect time, so the linear walk does not matter.
func (r *registry) userIDFor(connID string) (string, bool) {
	for uid, cid := range r.conns {
		if cid == connID {
			return uid, true
		}
	}
	return "", false
}
