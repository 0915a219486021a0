/*
Package presence contains the core logic for tracking which users are online and announcing
presence changes to every connected client.

This file defines the Hub, which reacts to connection-open and connection-close events,
mutates the Registry, updates the connection gauges and broadcasts the online-user list.
All of this happens on a single event loop goroutine, one event at a time.
*/
package presence

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"hzpresence/internal/pkg/errs"
	"hzpresence/internal/pkg/logx"
)

// KickReasonReplaced is the close reason sent to a connection displaced by a newer one for the same identity.
func KickReasonReplaced() string {
	return errs.NewError(errs.ErrSessionKicked).Message
}

var (
	// ErrUserOffline is returned by SendTo when no connection is registered for the identity.
	ErrUserOffline = errors.New("presence: user is not online")

	// ErrSendDropped is returned by SendTo when the receiver's send queue rejected the frame.
	ErrSendDropped = errors.New("presence: send queue full or closed")

	// ErrHubStopped is returned once the Hub no longer processes events.
	ErrHubStopped = errors.New("presence: hub stopped")
)

// Recorder receives the connection signals maintained by the Hub.
type Recorder interface {
	ConnectionOpened()
	ConnectionClosed()
	SetUsersOnline(n int)
}

type lifecycleEvent struct {
	handle   Handle
	identity string
}

type directRequest struct {
	identity string
	payload  []byte
	result   chan error
}

// Hub owns the Registry and the set of live connections.
type Hub struct {
	// registry maps identities to their current connection.
	registry *Registry

	// recorder is updated after every lifecycle event.
	recorder Recorder

	// every live connection, anonymous ones included.
	conns map[Handle]struct{}

	open   chan lifecycleEvent
	close  chan lifecycleEvent
	direct chan directRequest
	online chan chan []string

	// closed by Stop to terminate the Run loop.
	stopChan chan struct{}
	stopOnce sync.Once

	// closed by Run once the loop has exited.
	done chan struct{}

	logger zerolog.Logger
}

// NewHub constructs a Hub around an existing Registry. Call Run to start processing events.
func NewHub(registry *Registry, recorder Recorder) *Hub {
	return &Hub{
		registry: registry,
		recorder: recorder,
		conns:    make(map[Handle]struct{}),
		open:     make(chan lifecycleEvent),
		close:    make(chan lifecycleEvent),
		direct:   make(chan directRequest),
		online:   make(chan chan []string),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// Run processes lifecycle events until Stop is called.
func (h *Hub) Run() {
	h.logger.Info().Msg("Presence loop started.")

	defer func() {
		for c := range h.conns {
			c.Release()
		}
		h.conns = nil
		close(h.done)

		h.logger.Info().Msg("Presence loop stopped.")
	}()

	for {
		select {
		case ev := <-h.open:
			h.handleOpen(ev)

		case ev := <-h.close:
			h.handleClose(ev)

		case req := <-h.direct:
			req.result <- h.deliver(req.identity, req.payload)

		case reply := <-h.online:
			reply <- h.registry.Snapshot()

		case <-h.stopChan:
			return
		}
	}
}

// Stop terminates the Run loop and waits for it to release every connection.
// It must only be called after Run has been started.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
	<-h.done
}

// Open queues a connection-open event. An empty identity marks an anonymous connection.
// It returns once the loop has accepted the event, before the event is processed;
// Online can be used as a barrier.
func (h *Hub) Open(handle Handle, identity string) {
	select {
	case h.open <- lifecycleEvent{handle: handle, identity: identity}:
	case <-h.stopChan:
	}
}

// Close queues a connection-close event for a handle previously passed to Open.
// Like Open, it does not wait for the event to be processed.
func (h *Hub) Close(handle Handle, identity string) {
	select {
	case h.close <- lifecycleEvent{handle: handle, identity: identity}:
	case <-h.stopChan:
	}
}

// SendTo queues payload on the connection registered for identity.
func (h *Hub) SendTo(identity string, payload []byte) error {
	req := directRequest{identity: identity, payload: payload, result: make(chan error, 1)}

	select {
	case h.direct <- req:
		return <-req.result
	case <-h.stopChan:
		return ErrHubStopped
	}
}

// Online returns the identities registered after every previously queued event was processed.
func (h *Hub) Online() []string {
	reply := make(chan []string, 1)

	select {
	case h.online <- reply:
		return <-reply
	case <-h.stopChan:
		return nil
	}
}

func (h *Hub) handleOpen(ev lifecycleEvent) {
	h.conns[ev.handle] = struct{}{}
	h.recorder.ConnectionOpened()

	if ev.identity != "" {
		if prev := h.registry.Register(ev.identity, ev.handle); prev != nil && prev != ev.handle {
			h.logger.Warn().
				Str("user_id", ev.identity).
				Str("old_conn_id", prev.ID()).
				Str("new_conn_id", ev.handle.ID()).
				Msg("Identity already online. Closing old connection for replacement.")

			prev.Kick(KickReasonReplaced())
		}
	}

	h.recorder.SetUsersOnline(h.registry.Size())

	h.logger.Info().
		Str("conn_id", ev.handle.ID()).
		Str("user_id", ev.identity).
		Int("connections", len(h.conns)).
		Int("users_online", h.registry.Size()).
		Msg("Connection opened.")

	h.broadcast()
}

func (h *Hub) handleClose(ev lifecycleEvent) {
	if _, ok := h.conns[ev.handle]; !ok {
		h.logger.Warn().
			Str("conn_id", ev.handle.ID()).
			Msg("Close for unknown or already closed connection ignored.")
		return
	}

	if ev.identity != "" && !h.registry.Release(ev.identity, ev.handle) {
		h.logger.Info().
			Str("user_id", ev.identity).
			Str("conn_id", ev.handle.ID()).
			Msg("Close for stale connection. Registry entry left untouched.")
	}

	delete(h.conns, ev.handle)
	ev.handle.Release()

	h.recorder.ConnectionClosed()
	h.recorder.SetUsersOnline(h.registry.Size())

	h.logger.Info().
		Str("conn_id", ev.handle.ID()).
		Str("user_id", ev.identity).
		Int("connections", len(h.conns)).
		Int("users_online", h.registry.Size()).
		Msg("Connection closed.")

	h.broadcast()
}

// broadcast pushes the current online list to every live connection without waiting on any of them.
func (h *Hub) broadcast() {
	payload, err := Encode(NewOnlineUsersEvent(h.registry.Snapshot()))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode online users event.")
		return
	}

	for c := range h.conns {
		if !c.Send(payload) {
			h.logger.Warn().
				Str("conn_id", c.ID()).
				Msg("Connection send queue full or closed. Presence update dropped.")
		}
	}
}

func (h *Hub) deliver(identity string, payload []byte) error {
	handle, ok := h.registry.Lookup(identity)
	if !ok {
		return ErrUserOffline
	}

	if !handle.Send(payload) {
		return ErrSendDropped
	}

	return nil
}
