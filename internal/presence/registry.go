// Package presence tracks which users hold a live connection on this process.
package presence

import (
	"sort"
	"sync"
)

// Handle is a live connection that can receive pushed events.
//
//go:generate go run go.uber.org/mock/mockgen -destination=../mocks/mock_handle.go -package=mocks github.com/weiawesome/wes-io-dm/internal/presence Handle
type Handle interface {
	Push(event any) error
}

// Registry maps a user id to its single registered connection. The most
// recent registration wins.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Handle
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Handle)}
}

// Register stores h for userID, replacing any previous handle.
// It returns the replaced handle, if any.
func (r *Registry) Register(userID string, h Handle) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.entries[userID]
	r.entries[userID] = h
	return prev
}

// Remove deletes the entry for userID only if it still holds h, so a stale
// disconnect cannot evict a newer connection. It reports whether it removed.
func (r *Registry) Remove(userID string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.entries[userID]; ok && cur == h {
		delete(r.entries, userID)
		return true
	}
	return false
}

// Lookup returns the handle registered for userID.
func (r *Registry) Lookup(userID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.entries[userID]
	return h, ok
}

// OnlineUserIDs returns the registered user ids in ascending order.
func (r *Registry) OnlineUserIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
