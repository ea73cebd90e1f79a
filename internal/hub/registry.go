package hub

import (
	"sync"

	"github.com/restaurant-ops/backend/internal/model"
)

// Registry tracks live connections partitioned by role. It is the sole
// authority for broadcast membership: a client is in exactly one role-set
// while its transport is open.
type Registry struct {
	mu      sync.RWMutex
	clients map[model.StaffRole]map[*Client]bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[model.StaffRole]map[*Client]bool),
	}
}

// Add registers a client under its role.
func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.clients[c.Role()]
	if !ok {
		set = make(map[*Client]bool)
		r.clients[c.Role()] = set
	}
	set[c] = true
}

// Remove deregisters a client. It is idempotent: the transport-close path
// and the heartbeat monitor may both call it for the same client. Returns
// true only for the call that actually removed it.
func (r *Registry) Remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.clients[c.Role()]
	if !ok || !set[c] {
		return false
	}
	delete(set, c)
	return true
}

// Snapshot returns a point-in-time copy of every registered client.
// Mutations after the snapshot do not affect an in-progress iteration.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, r.countLocked())
	for _, set := range r.clients {
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}

// SnapshotRole returns a point-in-time copy of the clients admitted under
// one role.
func (r *Registry) SnapshotRole(role model.StaffRole) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.clients[role]
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Count returns the number of registered clients across all roles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countLocked()
}

func (r *Registry) countLocked() int {
	n := 0
	for _, set := range r.clients {
		n += len(set)
	}
	return n
}
