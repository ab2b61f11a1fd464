package relay

import (
	"github.com/google/uuid"

	"github.com/park285/checkers-relay/internal/checkers"
)

// DefaultCapacity is the number of players a relay pairs.
const DefaultCapacity = 2

// Member is one admitted connection. Outbound frames are queued on out
// and written by the connection's own writer goroutine.
type Member struct {
	ID       uuid.UUID
	Identity checkers.Player
	out      chan []byte
}

// NewMember allocates a member with an outbound queue of size queue.
func NewMember(queue int) *Member {
	if queue <= 0 {
		queue = 1
	}
	return &Member{ID: uuid.New(), out: make(chan []byte, queue)}
}

// Outbound is the member's queue of frames to write.
func (m *Member) Outbound() <-chan []byte { return m.out }

// offer queues data without blocking; a full queue drops it.
func (m *Member) offer(data []byte) bool {
	select {
	case m.out <- data:
		return true
	default:
		return false
	}
}

// Roster is the ordered set of admitted members. It is owned by the Hub
// goroutine and not safe for concurrent use.
type Roster struct {
	capacity int
	members  []*Member
}

func NewRoster(capacity int) *Roster {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Roster{capacity: capacity}
}

// Admit appends m and assigns its identity from its 1-based position.
// It reports false without adding m when the roster is full.
func (r *Roster) Admit(m *Member) (checkers.Player, bool) {
	if len(r.members) >= r.capacity {
		return checkers.NoPlayer, false
	}
	r.members = append(r.members, m)
	m.Identity = checkers.Player(len(r.members))
	return m.Identity, true
}

// Remove drops the member with id. Remaining identities are unchanged.
func (r *Roster) Remove(id uuid.UUID) bool {
	for i, m := range r.members {
		if m.ID == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

// Others returns a snapshot of every member except id.
func (r *Roster) Others(id uuid.UUID) []*Member {
	out := make([]*Member, 0, len(r.members))
	for _, m := range r.members {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

func (r *Roster) Len() int { return len(r.members) }
