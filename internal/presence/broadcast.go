package presence

// Sender is the transport-side delivery surface the gateway fans out
// through. Implemented by ws.Hub; faked in tests. Delivery is best-effort
// and must never block the caller.
type Sender interface {
	// Send delivers an event to one connection.
	Send(connID, event string, data any)
	// SendAll delivers an event to every connection, skipping exclude when
	// non-empty.
	SendAll(exclude, event string, data any)
	// Drop force-closes a connection (used to evict superseded sessions).
	Drop(connID string)
}

// gateway resolves room ids to member connections and hands the result to
// the Sender. It reads the room store but never mutates it; the coordinator
// lock is already held whenever a gateway method runs.
type gateway struct {
	sender Sender
	store  *roomStore
}

func (g *gateway) toConn(connID, event string, data any) {
	g.sender.Send(connID, event, data)
}

// toRoom fans out to every member of the room, skipping exclude when
// non-empty. Unknown rooms fan out to nobody.
func (g *gateway) toRoom(roomID, exclude, event string, data any) {
	rm := g.store.get(roomID)
	if rm == nil {
		return
	}
	for _, cid := range rm.connIDs(exclude) {
		g.sender.Send(cid, event, data)
	}
}

func (g *gateway) toAll(exclude, event string, data any) {
	g.sender.SendAll(exclude, event, data)
}

func (g *gateway) drop(connID string) {
	g.sender.Drop(connID)
}
