package signaling

import (
	"sync"
)

// Channel identifies which kind of traffic a socket carries. A user may hold
// one socket per kind concurrently (plus duplicates from other devices).
type Channel string

const (
	ChannelChat  Channel = "chat"
	ChannelVoice Channel = "voice"
	ChannelVideo Channel = "video"
)

// Peer is one live connection belonging to an authenticated user
type Peer interface {
	UserID() int64
	Channel() Channel
	// Enqueue offers a frame to the connection without blocking and reports
	// whether it was accepted. A full or closed connection reports false.
	Enqueue(frame []byte) bool
}

// Registry maintains the live mapping of user ID to open connections.
// It is constructor-injected everywhere it is needed so tests can run
// multiple isolated instances.
type Registry struct {
	mu    sync.RWMutex
	peers map[int64][]Peer
}

// NewRegistry creates an empty connection registry
func NewRegistry() *Registry {
	return &Registry{
		peers: make(map[int64][]Peer),
	}
}

// Register adds a connection for its user and returns how many connections
// that user now holds. Multiple connections per user are allowed.
func (r *Registry) Register(p Peer) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID := p.UserID()
	r.peers[userID] = append(r.peers[userID], p)
	return len(r.peers[userID])
}

// Unregister removes a connection and returns how many connections its user
// still holds. Unknown connections are ignored.
func (r *Registry) Unregister(p Peer) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID := p.UserID()
	conns := r.peers[userID]
	for i, c := range conns {
		if c == p {
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(conns) == 0 {
		delete(r.peers, userID)
		return 0
	}
	r.peers[userID] = conns
	return len(conns)
}

// Connections returns the user's live connections in registration order.
// The returned slice is a copy and may be empty.
func (r *Registry) Connections(userID int64) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.peers[userID]
	if len(conns) == 0 {
		return nil
	}
	out := make([]Peer, len(conns))
	copy(out, conns)
	return out
}

// IsOnline reports whether the user has at least one live connection
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers[userID]) > 0
}

// Count returns the total number of live connections across all users
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, conns := range r.peers {
		total += len(conns)
	}
	return total
}
