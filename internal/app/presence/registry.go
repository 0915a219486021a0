/*
Package presence contains the core logic for tracking which users are online and announcing
presence changes to every connected client.

This file defines the Registry, the mapping from a user identity to its live connection Handle.
It is the single source of truth for "who is online".
*/
package presence

import (
	"sort"

	"github.com/samber/lo"
)

// Handle is a live transport session as seen by the presence core.
// It is able to queue outbound frames and to be closed by the server.
type Handle interface {
	// ID is the transport-level identifier of the session.
	ID() string

	// Send queues a frame for delivery without blocking. It reports false when the frame was dropped.
	Send(payload []byte) bool

	// Kick closes the session from the server side because another session replaced it.
	Kick(reason string)

	// Release tells the handle that the presence core will not send to it again.
	Release()
}

// Registry maps a user identity to the handle of its current connection.
// It is not safe for concurrent use; the Hub event loop is its only writer and reader.
type Registry struct {
	entries map[string]Handle
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Handle),
	}
}

// Register inserts or replaces the mapping for identity and returns the handle it displaced, if any.
// An empty identity is not tracked.
func (r *Registry) Register(identity string, h Handle) Handle {
	if identity == "" {
		return nil
	}

	prev := r.entries[identity]
	r.entries[identity] = h

	return prev
}

// Unregister removes identity. Unknown identities are ignored.
func (r *Registry) Unregister(identity string) {
	delete(r.entries, identity)
}

// Release removes identity only while it is still mapped to h.
// A close event from a session that was already replaced leaves the newer mapping alone.
func (r *Registry) Release(identity string, h Handle) bool {
	current, ok := r.entries[identity]
	if !ok || current != h {
		return false
	}

	delete(r.entries, identity)
	return true
}

// Lookup returns the handle currently registered for identity.
func (r *Registry) Lookup(identity string) (Handle, bool) {
	h, ok := r.entries[identity]
	return h, ok
}

// Snapshot returns the registered identities in sorted order.
func (r *Registry) Snapshot() []string {
	ids := lo.Keys(r.entries)
	sort.Strings(ids)
	return ids
}

// Size returns the number of registered identities.
func (r *Registry) Size() int {
	return len(r.entries)
}
