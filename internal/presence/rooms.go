package presence

// Room holds the participants of one shared session, keyed by userId but
// remembering join order so roster snapshots are stable.
type Room struct {
	ID      string
	members map[string]*Participant
	order   []string // userIds in join order
}

func newRoom(id string) *Room {
	return &Room{ID: id, members: map[string]*Participant{}}
}

func (r *Room) add(p *Participant) {
	if _, ok := r.members[p.UserID]; !ok {
		r.order = append(r.order, p.UserID)
	}
	r.members[p.UserID] = p
}

func (r *Room) remove(userID string) {
	if _, ok := r.members[userID]; !ok {
		return
	}
	delete(r.members, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Room) get(userID string) *Participant { return r.members[userID] }

func (r *Room) size() int { return len(r.members) }

// Roster returns the participants in join order. The slice holds copies so
// callers can serialize it after the coordinator lock is released.
func (r *Room) Roster() []Participant {
	out := make([]Participant, 0, len(r.order))
	for _, id := range r.order {
		if p, ok := r.members[id]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// connIDs returns the connection ids of all members, skipping exclude when
// non-empty.
func (r *Room) connIDs(exclude string) []string {
	out := make([]string, 0, len(r.members))
	for _, p := range r.members {
		if p.ConnectionID != exclude {
			out = append(out, p.ConnectionID)
		}
	}
	return out
}

// roomStore is the per-process map of live rooms. Rooms appear on first join
// and vanish the moment they empty; there is no tombstone.
type roomStore struct {
	rooms map[string]*Room
}

func newRoomStore() *roomStore {
	return &roomStore{rooms: map[string]*Room{}}
}

// getOrCreate returns the room, creating it lazily.
func (s *roomStore) getOrCreate(id string) *Room {
	rm := s.rooms[id]
	if rm == nil {
		rm = newRoom(id)
		s.rooms[id] = rm
	}
	return rm
}

func (s *roomStore) get(id string) *Room { return s.rooms[id] }

func (s *roomStore) delete(id string) { delete(s.rooms, id) }

// findUser scans every room for the user. Linear in the number of rooms,
// which is fine at the scale a single process serves.
func (s *roomStore) findUser(userID string) (*Room, *Participant) {
	for _, rm := range s.rooms {
		if p := rm.get(userID); p != nil {
			return rm, p
		}
	}
	return nil, nil
}

func (s *roomStore) roomCount() int { return len(s.rooms) }

func (s *roomStore) participantCount() int {
	n := 0
	for _, rm := range s.rooms {
		n += rm.size()
	}
	return n
}
