package coordinator

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/quillpad/quillpad/editorclient"
	"github.com/quillpad/quillpad/ot"
	"github.com/quillpad/quillpad/pkg/otmetrics"
)

// ErrRevisionAhead is returned by ApplyEdit when the submitted revision
// is newer than any revision the document has recorded.
var ErrRevisionAhead = errors.New("coordinator: revision ahead of history")

// ErrDocumentTooLarge is returned by ApplyEdit when applying the
// operation would grow the document past MaxDocumentSize.
var ErrDocumentTooLarge = errors.New("coordinator: document too large")

type userState struct {
	info   UserInfo
	cursor *ot.Cursor
}

// Document is the authoritative state for one collaboratively edited
// document: the operation history, current text, and the presence
// (display info, cursor) of every connected participant. It is the
// central coordinator — transforming each incoming client operation
// against everything that landed first, then publishing the transformed
// result to every participant, its author included.
//
// Document is safe for concurrent use; unlike the single-threaded core
// packages, a coordinator genuinely serves many goroutines (one per
// connection).
type Document struct {
	mu      sync.RWMutex
	history []StampedOperation
	text    string
	users   map[editorclient.ClientID]*userState

	subscribers map[editorclient.ClientID]chan *ServerMessage
	notify      chan struct{}

	killed       atomic.Bool
	lastEditUnix atomic.Int64

	maxDocumentSize int
	broadcastBuffer int
}

// New creates an empty Document.
func New(maxDocumentSize, broadcastBuffer int) *Document {
	return &Document{
		users:           make(map[editorclient.ClientID]*userState),
		subscribers:     make(map[editorclient.ClientID]chan *ServerMessage),
		notify:          make(chan struct{}),
		maxDocumentSize: maxDocumentSize,
		broadcastBuffer: broadcastBuffer,
	}
}

// FromSnapshot creates a Document seeded with previously persisted text,
// recorded as a single system-authored insert at revision 0.
func FromSnapshot(text string, maxDocumentSize, broadcastBuffer int) *Document {
	d := New(maxDocumentSize, broadcastBuffer)
	if text == "" {
		return d
	}
	op := ot.NewOperation().Insert(text, nil)
	d.text = text
	d.history = []StampedOperation{{ID: systemUserID, Op: op}}
	return d
}

const systemUserID editorclient.ClientID = "\x00system"

// Revision returns the number of operations recorded so far.
func (d *Document) Revision() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.history)
}

// Text returns the current document text.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// Killed reports whether Kill has been called.
func (d *Document) Killed() bool { return d.killed.Load() }

// LastEditTime returns when ApplyEdit last succeeded, or the zero time
// if it never has.
func (d *Document) LastEditTime() time.Time {
	u := d.lastEditUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

// Kill disconnects every subscriber and marks the document dead. It is
// idempotent.
func (d *Document) Kill() {
	if !d.killed.CompareAndSwap(false, true) {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.subscribers {
		close(ch)
	}
	d.subscribers = make(map[editorclient.ClientID]chan *ServerMessage)
	close(d.notify)
}

// Subscribe registers id to receive broadcast messages and returns the
// channel to read them from.
func (d *Document) Subscribe(id editorclient.ClientID) <-chan *ServerMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := make(chan *ServerMessage, d.broadcastBuffer)
	d.subscribers[id] = ch
	return ch
}

// Unsubscribe stops delivering broadcasts to id.
func (d *Document) Unsubscribe(id editorclient.ClientID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.subscribers[id]; ok {
		close(ch)
		delete(d.subscribers, id)
	}
}

func (d *Document) broadcast(msg *ServerMessage) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, ch := range d.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// InitialState returns a copy of everything a newly joined participant
// needs: the full history, the display info of every participant that
// has reported one, and every participant's current cursor.
func (d *Document) InitialState() (history []StampedOperation, users map[editorclient.ClientID]UserInfo, cursors map[editorclient.ClientID]*ot.Cursor) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	history = append([]StampedOperation(nil), d.history...)

	users = make(map[editorclient.ClientID]UserInfo, len(d.users))
	cursors = make(map[editorclient.ClientID]*ot.Cursor, len(d.users))
	for id, u := range d.users {
		if u.info != (UserInfo{}) {
			users[id] = u.info
		}
		if u.cursor != nil {
			c := *u.cursor
			cursors[id] = &c
		}
	}
	return
}

// History returns every operation recorded since start.
func (d *Document) History(start int) []StampedOperation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if start >= len(d.history) {
		return nil
	}
	out := make([]StampedOperation, len(d.history)-start)
	copy(out, d.history[start:])
	return out
}

// ApplyEdit transforms op (authored by id against revision) through
// every operation recorded since, applies the result to the document,
// remaps every participant's cursor through it, records it in history,
// and wakes anyone waiting on NotifyChannel.
func (d *Document) ApplyEdit(id editorclient.ClientID, revision int, op *ot.Operation) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if revision > len(d.history) {
		otmetrics.OperationsRejected.WithLabelValues("revision_ahead").Inc()
		return ErrRevisionAhead
	}

	transformed := op
	for _, past := range d.history[revision:] {
		prime, _, err := transformed.Transform(past.Op)
		if err != nil {
			otmetrics.OperationsRejected.WithLabelValues("transform_failed").Inc()
			return err
		}
		transformed = prime
	}

	if transformed.TargetLength() > d.maxDocumentSize {
		otmetrics.OperationsRejected.WithLabelValues("too_large").Inc()
		return ErrDocumentTooLarge
	}

	newText, err := transformed.Apply(d.text, nil)
	if err != nil {
		otmetrics.OperationsRejected.WithLabelValues("apply_failed").Inc()
		return err
	}

	for _, u := range d.users {
		if u.cursor != nil {
			c := u.cursor.Transform(transformed)
			u.cursor = &c
		}
	}

	d.history = append(d.history, StampedOperation{ID: id, Op: transformed})
	d.text = newText
	d.lastEditUnix.Store(time.Now().Unix())
	otmetrics.OperationsApplied.Inc()

	if !d.killed.Load() {
		close(d.notify)
		d.notify = make(chan struct{})
	}
	return nil
}

// NotifyChannel returns the channel that is closed each time ApplyEdit
// succeeds (and a fresh one replaces it), so a connection loop can learn
// there is new history to fetch without polling.
func (d *Document) NotifyChannel() <-chan struct{} {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.notify
}

// Join registers a new participant, identified by a freshly minted
// UUID, and returns the ID assigned to it.
func (d *Document) Join() editorclient.ClientID {
	id := editorclient.ClientID(uuid.NewString())
	d.mu.Lock()
	d.users[id] = &userState{}
	d.mu.Unlock()
	return id
}

// SetUserInfo updates id's display attributes and broadcasts the
// change.
func (d *Document) SetUserInfo(id editorclient.ClientID, info UserInfo) {
	d.mu.Lock()
	u, ok := d.users[id]
	if !ok {
		u = &userState{}
		d.users[id] = u
	}
	u.info = info
	d.mu.Unlock()
	d.broadcast(NewUserInfoMessage(id, &info))
}

// SetCursor updates id's cursor (nil clears it) and broadcasts the
// change.
func (d *Document) SetCursor(id editorclient.ClientID, cursor *ot.Cursor) {
	d.mu.Lock()
	u, ok := d.users[id]
	if !ok {
		u = &userState{}
		d.users[id] = u
	}
	u.cursor = cursor
	info := u.info
	d.mu.Unlock()
	d.broadcast(NewUserCursorMessage(id, info, cursor))
}

// Leave removes id from the document and broadcasts its departure.
func (d *Document) Leave(id editorclient.ClientID) {
	d.mu.Lock()
	delete(d.users, id)
	d.mu.Unlock()
	d.Unsubscribe(id)
	d.broadcast(NewUserInfoMessage(id, nil))
}
