// Package event is a minimal typed publish/subscribe emitter used by the
// editor client to surface Undo, Redo, Error and Synced notifications to
// whatever is embedding the library. A simple map of listeners is all
// this needs to be, not a general-purpose event framework.
package event

import (
	"errors"
	"sync"
)

// ErrUnknownEvent is returned by On when name was not in the set of
// events the Emitter was constructed with.
var ErrUnknownEvent = errors.New("event: unknown event name")

// Listener receives the arguments passed to Emit for the event it is
// registered against.
type Listener func(args ...interface{})

// Emitter is a thread-safe registry of named listeners, restricted to a
// fixed set of event names declared at construction time.
type Emitter struct {
	mu        sync.Mutex
	listeners map[string][]Listener
	allowed   map[string]struct{}
}

// New creates an Emitter that only accepts registrations for the given
// event names.
func New(names ...string) *Emitter {
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}
	return &Emitter{
		listeners: make(map[string][]Listener),
		allowed:   allowed,
	}
}

// On registers l against name. It returns ErrUnknownEvent if name is not
// one of the Emitter's declared events.
func (e *Emitter) On(name string, l Listener) error {
	if _, ok := e.allowed[name]; !ok {
		return ErrUnknownEvent
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[name] = append(e.listeners[name], l)
	return nil
}

// Off removes every listener registered against name.
func (e *Emitter) Off(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, name)
}

// Emit invokes every listener registered against name, in registration
// order, with args. Listeners are snapshotted under the lock and run
// outside it, so a listener may itself call On/Off without deadlocking.
func (e *Emitter) Emit(name string, args ...interface{}) {
	e.mu.Lock()
	ls := append([]Listener(nil), e.listeners[name]...)
	e.mu.Unlock()
	for _, l := range ls {
		l(args...)
	}
}
