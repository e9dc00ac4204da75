package editorclient

import (
	"errors"
	"testing"

	"github.com/quillpad/quillpad/client"
	"github.com/quillpad/quillpad/ot"
)

// fakeEditor is an in-memory EditorAdapter. Its typeText helper plays the
// role of the user: it mutates the buffer the way a text widget would and
// then fires the Change callback with the forward and inverse operations.
type fakeEditor struct {
	text   string
	cursor ot.Cursor
	cb     EditorCallbacks
	undoCb func()
	redoCb func()

	otherCursors map[ClientID]ot.Cursor
	removed      []ClientID
}

func newFakeEditor() *fakeEditor {
	return &fakeEditor{otherCursors: make(map[ClientID]ot.Cursor)}
}

func (f *fakeEditor) GetText() string { return f.text }
func (f *fakeEditor) SetText(s string)     { f.text = s }
func (f *fakeEditor) GetCursor() ot.Cursor { return f.cursor }
func (f *fakeEditor) SetCursor(c ot.Cursor) { f.cursor = c }

type fakeDisposable struct {
	editor *fakeEditor
	id     ClientID
}

func (d *fakeDisposable) Dispose() {
	delete(d.editor.otherCursors, d.id)
	d.editor.removed = append(d.editor.removed, d.id)
}

func (f *fakeEditor) SetOtherCursor(id ClientID, cur ot.Cursor, color, name string) Disposable {
	f.otherCursors[id] = cur
	return &fakeDisposable{editor: f, id: id}
}

func (f *fakeEditor) InvertOperation(op *ot.Operation) *ot.Operation {
	return op.Invert(f.text, nil)
}

func (f *fakeEditor) ApplyOperation(op *ot.Operation) {
	newText, err := op.Apply(f.text, nil)
	if err != nil {
		if f.cb.Error != nil {
			f.cb.Error(err)
		}
		return
	}
	f.text = newText
}

func (f *fakeEditor) RegisterCallbacks(cb EditorCallbacks) { f.cb = cb }
func (f *fakeEditor) RegisterUndo(cb func())              { f.undoCb = cb }
func (f *fakeEditor) RegisterRedo(cb func())              { f.redoCb = cb }

func (f *fakeEditor) typeText(t *testing.T, pos int, s string) {
	t.Helper()
	runes := []rune(f.text)
	if pos > len(runes) {
		t.Fatalf("typeText: position %d past end of %q", pos, f.text)
	}
	op := ot.NewOperation().
		Retain(uint64(pos), nil).
		Insert(s, nil).
		Retain(uint64(len(runes)-pos), nil)
	inverse := op.Invert(f.text, nil)
	newText, err := op.Apply(f.text, nil)
	if err != nil {
		t.Fatalf("typeText: %v", err)
	}
	f.text = newText
	end := uint32(pos + len([]rune(s)))
	f.cursor = ot.Cursor{Position: end, SelectionEnd: end}
	f.cb.Change(op, inverse)
}

// fakeCoordinator records every outbound call and lets tests fire the
// coordinator-side callbacks by hand.
type fakeCoordinator struct {
	sentOps     []*ot.Operation
	sentCursors []*ot.Cursor
	cb          CoordinatorCallbacks
	userID      ClientID
	historyUsed bool
}

func (f *fakeCoordinator) SendOperation(op *ot.Operation) { f.sentOps = append(f.sentOps, op) }
func (f *fakeCoordinator) SendCursor(c *ot.Cursor)       { f.sentCursors = append(f.sentCursors, c) }
func (f *fakeCoordinator) IsCurrentUser(id ClientID) bool { return id == f.userID }
func (f *fakeCoordinator) IsHistoryEmpty() bool { return !f.historyUsed }
func (f *fakeCoordinator) SetUserID(id ClientID)         { f.userID = id }
func (f *fakeCoordinator) SetUserColor(string)           {}
func (f *fakeCoordinator) SetUserName(string)            {}

func (f *fakeCoordinator) RegisterCallbacks(cb CoordinatorCallbacks) { f.cb = cb }

func newTestClient() (*Client, *fakeEditor, *fakeCoordinator) {
	ed := newFakeEditor()
	coord := &fakeCoordinator{}
	c := New("me", "hsl(120,70%,50%)", "Me", ed, coord)
	return c, ed, coord
}

func TestLocalEditSendsOperationAndRecordsUndo(t *testing.T) {
	c, ed, coord := newTestClient()

	ed.typeText(t, 0, "hi")

	if len(coord.sentOps) != 1 {
		t.Fatalf("expected one op sent, got %d", len(coord.sentOps))
	}
	want := ot.NewOperation().Insert("hi", nil)
	if !coord.sentOps[0].Equals(want) {
		t.Errorf("sent op = %v, want %v", coord.sentOps[0].Ops(), want.Ops())
	}
	if !c.undo.CanUndo() {
		t.Error("expected an undo entry after a local edit")
	}
}

// TestCoalescedTypingUndoesAsOneEntry: three
// single characters typed at contiguous positions undo in one step, back
// to the pre-typing document and cursor.
func TestCoalescedTypingUndoesAsOneEntry(t *testing.T) {
	_, ed, _ := newTestClient()

	ed.typeText(t, 0, "a")
	ed.typeText(t, 1, "b")
	ed.typeText(t, 2, "c")
	if ed.text != "abc" {
		t.Fatalf("editor text = %q, want %q", ed.text, "abc")
	}

	ed.undoCb()
	if ed.text != "" {
		t.Errorf("expected single undo to remove all typing, got %q", ed.text)
	}
	if ed.cursor.Position != 0 {
		t.Errorf("expected cursor restored to 0 after undo, got %d", ed.cursor.Position)
	}

	ed.redoCb()
	if ed.text != "abc" {
		t.Errorf("expected redo to restore all typing, got %q", ed.text)
	}
}

// TestUndoAfterRemoteOperation: a remote edit between the
// local edit and its undo shifts the undo entry, so undo removes only
// the local contribution.
func TestUndoAfterRemoteOperation(t *testing.T) {
	_, ed, coord := newTestClient()

	ed.typeText(t, 0, "hello")

	// Concurrent remote insert against the same empty base document.
	coord.cb.Operation(ot.NewOperation().Insert("Z", nil))
	if ed.text != "helloZ" {
		// The locally outstanding op wins the same-position tie, so the
		// transformed remote insert lands after it.
		t.Fatalf("editor text after remote op = %q, want %q", ed.text, "helloZ")
	}

	ed.undoCb()
	if ed.text != "Z" {
		t.Errorf("expected undo to remove only the local insert, got %q", ed.text)
	}
}

func TestRemoteCursorRenderedAndCleared(t *testing.T) {
	_, ed, coord := newTestClient()

	cur := ot.Cursor{Position: 1, SelectionEnd: 1}
	coord.cb.Cursor("peer", &cur, "hsl(0,70%,50%)", "Ada")

	got, ok := ed.otherCursors["peer"]
	if !ok {
		t.Fatal("expected remote cursor to be rendered")
	}
	if !got.Equal(cur) {
		t.Errorf("rendered cursor = %+v, want %+v", got, cur)
	}

	coord.cb.Cursor("peer", nil, "", "")
	if _, ok := ed.otherCursors["peer"]; ok {
		t.Error("expected nil cursor update to remove the rendered cursor")
	}
	if len(ed.removed) != 1 || ed.removed[0] != "peer" {
		t.Errorf("expected one disposal for peer, got %v", ed.removed)
	}
}

func TestOwnCursorUpdateIgnored(t *testing.T) {
	_, ed, coord := newTestClient()
	cur := ot.Cursor{Position: 2, SelectionEnd: 2}
	coord.cb.Cursor("me", &cur, "", "")
	if len(ed.otherCursors) != 0 {
		t.Error("expected own cursor broadcast to be ignored")
	}
}

func TestRemoteCursorIgnoredWhileOutOfSync(t *testing.T) {
	c, ed, coord := newTestClient()

	ed.typeText(t, 0, "x")
	if _, ok := c.sm.State().(client.AwaitingConfirm); !ok {
		t.Fatalf("expected AwaitingConfirm, got %T", c.sm.State())
	}

	cur := ot.Cursor{Position: 0, SelectionEnd: 0}
	coord.cb.Cursor("peer", &cur, "", "Ada")
	if len(ed.otherCursors) != 0 {
		t.Error("expected cursor update to be dropped while not synchronized")
	}
}

func TestAckEmitsSyncedAndResendsCursor(t *testing.T) {
	c, ed, coord := newTestClient()

	var synced []bool
	if err := c.On(EventSynced, func(args ...interface{}) {
		synced = append(synced, args[0].(bool))
	}); err != nil {
		t.Fatalf("On: %v", err)
	}

	ed.typeText(t, 0, "x")
	coord.cb.Ack()

	if len(synced) == 0 || !synced[len(synced)-1] {
		t.Errorf("expected Synced(true) after ack, got %v", synced)
	}
	if len(coord.sentCursors) == 0 {
		t.Error("expected cursor re-sent after ack")
	}
}

func TestAckWithoutPendingOpEmitsError(t *testing.T) {
	c, _, coord := newTestClient()

	var got []interface{}
	_ = c.On(EventError, func(args ...interface{}) {
		got = args
	})
	coord.cb.Ack()

	if len(got) != 3 {
		t.Fatalf("expected Error event args (err, op, state), got %v", got)
	}
	if err, _ := got[0].(error); !errors.Is(err, client.ErrNoPendingOp) {
		t.Errorf("expected ErrNoPendingOp, got %v", got[0])
	}
	if got[1] != (*ot.Operation)(nil) {
		t.Errorf("expected nil op for an ack error, got %v", got[1])
	}
	if _, ok := got[2].(client.Synchronized); !ok {
		t.Errorf("expected Synchronized state in error event, got %T", got[2])
	}
}

func TestBlurSendsNilCursor(t *testing.T) {
	_, ed, coord := newTestClient()
	ed.cb.Blur()
	if len(coord.sentCursors) != 1 || coord.sentCursors[0] != nil {
		t.Errorf("expected one nil cursor sent on blur, got %v", coord.sentCursors)
	}
}

func TestCursorSendDeferredWhileBuffering(t *testing.T) {
	c, ed, coord := newTestClient()

	ed.typeText(t, 0, "a")
	ed.typeText(t, 1, "b")
	if _, ok := c.sm.State().(client.AwaitingWithBuffer); !ok {
		t.Fatalf("expected AwaitingWithBuffer, got %T", c.sm.State())
	}

	before := len(coord.sentCursors)
	ed.cb.CursorActivity()
	if len(coord.sentCursors) != before {
		t.Error("expected cursor send deferred while an op is buffered")
	}

	// The ack moves the buffer out and re-sends the current cursor, which
	// is how the deferred send gets its retry.
	coord.cb.Ack()
	if len(coord.sentCursors) != before+1 {
		t.Errorf("expected deferred cursor sent after ack, got %d sends", len(coord.sentCursors)-before)
	}
}

func TestSetTextGoesThroughChangePipeline(t *testing.T) {
	c, ed, coord := newTestClient()

	c.SetText("abc")
	if ed.text != "abc" {
		t.Fatalf("editor text = %q, want %q", ed.text, "abc")
	}
	if len(coord.sentOps) != 1 {
		t.Fatalf("expected one op sent, got %d", len(coord.sentOps))
	}
	if !coord.sentOps[0].Equals(ot.NewOperation().Insert("abc", nil)) {
		t.Errorf("sent op = %v", coord.sentOps[0].Ops())
	}

	ed.undoCb()
	if ed.text != "" {
		t.Errorf("expected undo of SetText to restore empty doc, got %q", ed.text)
	}
}

func TestClearUndoRedoStack(t *testing.T) {
	c, ed, _ := newTestClient()
	ed.typeText(t, 0, "a")
	c.ClearUndoRedoStack()
	if c.undo.CanUndo() || c.undo.CanRedo() {
		t.Error("expected both stacks cleared")
	}
}

func TestDisposeIsIdempotentAndStopsCallbacks(t *testing.T) {
	c, ed, coord := newTestClient()

	cur := ot.Cursor{Position: 0, SelectionEnd: 0}
	coord.cb.Cursor("peer", &cur, "", "Ada")
	if len(ed.otherCursors) != 1 {
		t.Fatalf("expected a rendered remote cursor, got %d", len(ed.otherCursors))
	}

	c.Dispose()
	c.Dispose()

	if len(ed.otherCursors) != 0 {
		t.Error("expected Dispose to remove rendered remote cursors")
	}
	if err := c.On(EventSynced, func(...interface{}) {}); !errors.Is(err, ErrDisposed) {
		t.Errorf("expected ErrDisposed from On after Dispose, got %v", err)
	}

	sent := len(coord.sentOps)
	ed.typeText(t, 0, "x")
	if len(coord.sentOps) != sent {
		t.Error("expected edits after Dispose to be ignored")
	}
}
