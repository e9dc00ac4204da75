package editorclient

import (
	"unicode/utf8"

	"github.com/quillpad/quillpad/client"
	"github.com/quillpad/quillpad/event"
	"github.com/quillpad/quillpad/ot"
	"github.com/quillpad/quillpad/undo"
)

// Events published by Client.On.
const (
	EventUndo   = "Undo"
	EventRedo   = "Redo"
	EventError  = "Error"
	EventSynced = "Synced"
)

// Client is the editor-facing façade over the client state machine and
// undo manager: it owns the adapter wiring and is the type applications
// embedding this library construct directly.
type Client struct {
	sm   *client.Client
	undo *undo.Manager
	ev   *event.Emitter

	editor EditorAdapter
	coord  CoordinatorAdapter

	ownID ClientID
	color string
	name  string

	cursor  *ot.Cursor
	focused bool

	remotes map[ClientID]*RemoteClient

	disposed bool
}

// New wires editor and coord together behind the client state machine
// and undo manager, and returns the resulting façade. The editor's
// current text is treated as already-synchronized content; callers that
// need to seed a fresh document should set it on the adapter before
// calling New.
func New(ownID ClientID, color, name string, editor EditorAdapter, coord CoordinatorAdapter) *Client {
	c := &Client{
		undo:    undo.New(),
		ev:      event.New(EventUndo, EventRedo, EventError, EventSynced),
		editor:  editor,
		coord:   coord,
		ownID:   ownID,
		color:   color,
		name:    name,
		remotes: make(map[ClientID]*RemoteClient),
	}
	c.sm = client.New(c)

	coord.SetUserID(ownID)
	coord.SetUserColor(color)
	coord.SetUserName(name)

	editor.RegisterCallbacks(EditorCallbacks{
		Change:         c.handleChange,
		CursorActivity: c.handleCursorActivity,
		Blur:           c.handleBlur,
		Focus:          c.handleFocus,
		Error:          c.handleEditorError,
	})
	editor.RegisterUndo(c.Undo)
	editor.RegisterRedo(c.Redo)

	coord.RegisterCallbacks(CoordinatorCallbacks{
		Ack:       c.handleAck,
		Retry:     c.handleRetry,
		Operation: c.handleServerOperation,
		Cursor:    c.handleServerCursor,
	})

	cur := editor.GetCursor()
	c.cursor = &cur

	return c
}

// --- client.Sender: Client is its own state machine's sender, so it can
// layer cursor/undo bookkeeping on top of the bare send/apply contract.

// SendOperation forwards a to the coordinator. It implements
// client.Sender.
func (c *Client) SendOperation(a *ot.Operation) {
	c.coord.SendOperation(a)
}

// ApplyOperation applies a remote operation to the editor, refreshes the
// locally tracked cursor and undo/redo stacks through it, and emits
// Synced. It implements client.Sender.
func (c *Client) ApplyOperation(op *ot.Operation) {
	c.editor.ApplyOperation(op)
	cur := c.editor.GetCursor()
	c.cursor = &cur
	if err := c.undo.Transform(op); err != nil {
		c.emitError(err, op)
		return
	}
	c.emitSynced()
}

// --- editor adapter callbacks

func (c *Client) handleChange(op, inverse *ot.Operation) {
	if c.disposed {
		return
	}
	before := c.cursor
	after := c.editor.GetCursor()
	c.cursor = &after

	// The metadata rides on the inverse, so its before/after follow the
	// inverse's direction: applying the inverse takes the document (and
	// cursor) from the post-edit state back to the pre-edit state.
	meta := &ot.Metadata{CursorBefore: &after, CursorAfter: before}
	wrapped := ot.NewWrappedOperation(inverse, meta)

	compose := false
	if last := c.undo.Last(); last != nil {
		compose = wrapped.ShouldBeComposedWithInverted(last)
	}
	c.undo.Add(wrapped, compose)

	if err := c.sm.ApplyClient(op); err != nil {
		c.emitError(err, op)
	}
}

func (c *Client) handleCursorActivity() {
	if c.disposed {
		return
	}
	cur := c.editor.GetCursor()
	c.cursor = &cur
	c.sendCursor(cur)
}

func (c *Client) handleBlur() {
	if c.disposed {
		return
	}
	c.focused = false
	c.cursor = nil
	c.coord.SendCursor(nil)
}

func (c *Client) handleFocus() {
	if c.disposed {
		return
	}
	c.focused = true
	c.handleCursorActivity()
}

func (c *Client) handleEditorError(err error) {
	if c.disposed {
		return
	}
	c.emitError(err, nil)
}

// --- coordinator adapter callbacks

func (c *Client) handleAck() {
	if c.disposed {
		return
	}
	if err := c.sm.ServerAck(); err != nil {
		c.emitError(err, nil)
		return
	}
	if c.cursor != nil {
		c.sendCursor(*c.cursor)
	}
	c.emitSynced()
}

func (c *Client) handleRetry() {
	if c.disposed {
		return
	}
	if err := c.sm.ServerRetry(); err != nil {
		c.emitError(err, nil)
	}
}

func (c *Client) handleServerOperation(op *ot.Operation) {
	if c.disposed {
		return
	}
	if err := c.sm.ApplyServer(op); err != nil {
		c.emitError(err, op)
	}
}

func (c *Client) handleServerCursor(id ClientID, cursor *ot.Cursor, color, name string) {
	if c.disposed || id == c.ownID {
		return
	}
	if _, synced := c.sm.State().(client.Synchronized); !synced {
		return
	}
	rc, ok := c.remotes[id]
	if !ok {
		rc = &RemoteClient{ID: id}
		c.remotes[id] = rc
	}
	if color != "" {
		rc.Color = color
	}
	if name != "" {
		rc.Name = name
	}
	if cursor == nil {
		rc.clearCursor()
		return
	}
	rc.setCursor(c.editor, *cursor)
}

// --- cursor send retry

// sendCursor forwards the local cursor to the coordinator, unless an
// operation is still buffered — then the cursor would describe a document
// version the coordinator hasn't seen yet, so the send is deferred until
// the ack handler re-reads and re-sends the current cursor. That keeps
// the retry on the same serialized timeline the host drives every other
// callback on; a timer goroutine here would race the host's callbacks,
// since Client carries no locks.
func (c *Client) sendCursor(cur ot.Cursor) {
	if c.disposed {
		return
	}
	if _, buffering := c.sm.State().(client.AwaitingWithBuffer); buffering {
		return
	}
	c.coord.SendCursor(&cur)
}

func (c *Client) emitSynced() {
	_, synced := c.sm.State().(client.Synchronized)
	c.ev.Emit(EventSynced, synced)
}

// emitError publishes an Error event carrying the error, the operation
// being handled when it was detected (nil if none), and the client state
// at that moment — enough context for a consumer to reproduce the
// failure.
func (c *Client) emitError(err error, op *ot.Operation) {
	c.ev.Emit(EventError, err, op, c.sm.State())
}

// --- undo / redo

// Undo pops and replays the top of the undo stack, if any.
func (c *Client) Undo() {
	if c.disposed {
		return
	}
	c.undo.PerformUndo(func(w *ot.WrappedOperation) {
		inv := c.editor.InvertOperation(w.Op)
		c.undo.Add(ot.NewWrappedOperation(inv, w.Meta.Invert()), false)
		c.applyUndoRedo(w)
		c.ev.Emit(EventUndo, w.Op.String())
	})
}

// Redo pops and replays the top of the redo stack, if any.
func (c *Client) Redo() {
	if c.disposed {
		return
	}
	c.undo.PerformRedo(func(w *ot.WrappedOperation) {
		inv := c.editor.InvertOperation(w.Op)
		c.undo.Add(ot.NewWrappedOperation(inv, w.Meta.Invert()), false)
		c.applyUndoRedo(w)
		c.ev.Emit(EventRedo, w.Op.String())
	})
}

func (c *Client) applyUndoRedo(w *ot.WrappedOperation) {
	c.editor.ApplyOperation(w.Op)
	if w.Meta != nil && w.Meta.CursorAfter != nil {
		c.editor.SetCursor(*w.Meta.CursorAfter)
		cur := *w.Meta.CursorAfter
		c.cursor = &cur
	}
	if err := c.sm.ApplyClient(w.Op); err != nil {
		c.emitError(err, w.Op)
	}
}

// --- public façade

// On registers l for name (one of EventUndo, EventRedo, EventError,
// EventSynced). It returns ErrDisposed if the client has been disposed,
// or event.ErrUnknownEvent for any other name.
func (c *Client) On(name string, l event.Listener) error {
	if c.disposed {
		return ErrDisposed
	}
	return c.ev.On(name, l)
}

// Off removes every listener registered for name.
func (c *Client) Off(name string) {
	c.ev.Off(name)
}

// GetText returns the editor's current text.
func (c *Client) GetText() string {
	return c.editor.GetText()
}

// SetText replaces the entire document with s, as a single local edit
// (delete-all followed by insert), going through the same change
// pipeline a user-driven edit would.
func (c *Client) SetText(s string) {
	if c.disposed {
		return
	}
	current := c.editor.GetText()
	op := ot.NewOperation()
	if n := utf8.RuneCountInString(current); n > 0 {
		op.Delete(uint64(n))
	}
	op.Insert(s, nil)
	inverse := op.Invert(current, nil)

	c.editor.SetText(s)
	c.handleChange(op, inverse)
}

// IsHistoryEmpty reports whether the coordinator has ever recorded an
// operation for this document.
func (c *Client) IsHistoryEmpty() bool {
	return c.coord.IsHistoryEmpty()
}

// SetUserID updates the identity this client reports to the coordinator.
func (c *Client) SetUserID(id ClientID) {
	c.ownID = id
	c.coord.SetUserID(id)
}

// SetUserColor updates the cursor color this client reports.
func (c *Client) SetUserColor(color string) {
	c.color = color
	c.coord.SetUserColor(color)
}

// SetUserName updates the display name this client reports.
func (c *Client) SetUserName(name string) {
	c.name = name
	c.coord.SetUserName(name)
}

// ClearUndoRedoStack discards all undo/redo history without affecting
// the document.
func (c *Client) ClearUndoRedoStack() {
	c.undo.Dispose()
}

// Dispose clears undo/redo and remote-cursor state and causes every
// subsequent callback to no-op. It is idempotent; calling it more than
// once has no further effect. Event listeners, editor and coordinator
// adapters are left registered — it is the host application's
// responsibility to tear those down, since this Client does not own
// them.
func (c *Client) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.undo.Dispose()
	for _, rc := range c.remotes {
		rc.clearCursor()
	}
	c.remotes = nil
}
