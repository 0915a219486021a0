package presence

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeHandle records what the hub does to a connection.
type fakeHandle struct {
	id string

	mu       sync.Mutex
	frames   [][]byte
	kicked   string
	released bool
	full     bool
}

func newFakeHandle(id string) *fakeHandle {
	return &fakeHandle{id: id}
}

func (f *fakeHandle) ID() string { return f.id }

func (f *fakeHandle) Send(payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.full || f.released {
		return false
	}
	f.frames = append(f.frames, payload)
	return true
}

func (f *fakeHandle) Kick(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.kicked = reason
}

func (f *fakeHandle) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.released = true
}

func (f *fakeHandle) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.frames)
}

func (f *fakeHandle) isReleased() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.released
}

func (f *fakeHandle) kickReason() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.kicked
}

// lastOnlineUsers decodes the most recent frame as an online-users-changed event.
func (f *fakeHandle) lastOnlineUsers(t *testing.T) []string {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.frames, "handle %s received no frames", f.id)

	var evt OnlineUsersEvent
	require.NoError(t, json.Unmarshal(f.frames[len(f.frames)-1], &evt))
	require.Equal(t, EventOnlineUsers, evt.Event)

	return evt.Users
}
