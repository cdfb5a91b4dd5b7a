package realtime

import (
	"sort"
	"sync"
)

// Registry tracks which sockets each user has open on this instance.
type Registry interface {
	Add(userID int64, socketID string)
	// Remove reports whether the user went offline with this removal.
	Remove(userID int64, socketID string) bool
	IsOnline(userID int64) bool
	SocketCount(userID int64) int
	OnlineUsers() []int64
}

type MemoryRegistry struct {
	mu      sync.RWMutex
	sockets map[int64]map[string]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sockets: make(map[int64]map[string]struct{})}
}

func (r *MemoryRegistry) Add(userID int64, socketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sockets[userID]
	if !ok {
		set = make(map[string]struct{})
		r.sockets[userID] = set
	}
	set[socketID] = struct{}{}
}

// Remove drops the socket and deletes the user's entry once it has none left.
func (r *MemoryRegistry) Remove(userID int64, socketID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sockets[userID]
	if !ok {
		return false
	}
	delete(set, socketID)
	if len(set) == 0 {
		delete(r.sockets, userID)
		return true
	}
	return false
}

func (r *MemoryRegistry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sockets[userID]
	return ok
}

func (r *MemoryRegistry) SocketCount(userID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sockets[userID])
}

func (r *MemoryRegistry) OnlineUsers() []int64 {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.sockets))
	for id := range r.sockets {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
