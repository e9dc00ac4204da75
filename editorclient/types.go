// Package editorclient is the editor-facing façade: it wires
// an EditorAdapter (the text widget) and a CoordinatorAdapter (the
// transport to a coordinator) to the client state machine and undo
// manager, and republishes the interesting moments as events.
//
// Everything here assumes a single-threaded cooperative caller, same as
// the packages it builds on: adapter callbacks are expected to run
// serialized on one goroutine. The package starts no timers or goroutines
// of its own.
package editorclient

import (
	"errors"

	"github.com/quillpad/quillpad/ot"
)

// ErrDisposed is returned by methods called on a Client after Dispose.
var ErrDisposed = errors.New("editorclient: client disposed")

// ClientID identifies a participant in a document session. The reference
// adapters in this repository mint these with google/uuid, but the type
// itself carries no such assumption.
type ClientID string

// Disposable is returned by EditorAdapter.SetOtherCursor so the caller
// can later remove the remote cursor decoration it installed.
type Disposable interface {
	Dispose()
}

// EditorCallbacks groups the events a Client subscribes to on an
// EditorAdapter.
type EditorCallbacks struct {
	// Change fires when the user edits the document. op is the operation
	// describing the edit as it happened; inverse undoes it against the
	// document state immediately after the edit.
	Change func(op, inverse *ot.Operation)
	// CursorActivity fires on caret/selection movement that isn't itself
	// part of an edit.
	CursorActivity func()
	// Blur fires when the editor loses focus.
	Blur func()
	// Focus fires when the editor gains focus.
	Focus func()
	// Error fires when the adapter hits a condition it can't recover
	// from on its own (e.g. a malformed remote operation it was asked to
	// apply).
	Error func(err error)
}

// EditorAdapter is the capability a text widget must expose to be driven
// by a Client. Implementations live outside this module; this repository
// ships a terminal-based reference adapter under cmd/otcli.
type EditorAdapter interface {
	GetText() string
	SetText(s string)
	GetCursor() ot.Cursor
	SetCursor(c ot.Cursor)
	// SetOtherCursor installs or updates a remote participant's cursor
	// decoration and returns a handle to remove it.
	SetOtherCursor(id ClientID, cursor ot.Cursor, color, name string) Disposable
	ApplyOperation(op *ot.Operation)
	// InvertOperation inverts op against the adapter's current document
	// content (the adapter owns the text, and any attribute state, the
	// inversion has to capture).
	InvertOperation(op *ot.Operation) *ot.Operation
	RegisterCallbacks(cb EditorCallbacks)
	RegisterUndo(cb func())
	RegisterRedo(cb func())
}

// CoordinatorCallbacks groups the events a Client subscribes to on a
// CoordinatorAdapter.
type CoordinatorCallbacks struct {
	// Ack fires when the coordinator confirms the most recently sent
	// operation.
	Ack func()
	// Retry fires when the coordinator rejects the most recently sent
	// operation and asks for it to be resent (rebased on anything newer).
	Retry func()
	// Operation fires when the coordinator delivers a remote operation.
	Operation func(op *ot.Operation)
	// Cursor fires when the coordinator delivers a remote participant's
	// cursor update. cursor is nil when that participant has no cursor
	// to report (blurred, or just disconnected).
	Cursor func(id ClientID, cursor *ot.Cursor, color, name string)
}

// CoordinatorAdapter is the capability a transport must expose to be
// driven by a Client. This repository ships a websocket-backed reference
// adapter under internal/wsconn.
type CoordinatorAdapter interface {
	SendOperation(op *ot.Operation)
	SendCursor(c *ot.Cursor)
	IsCurrentUser(id ClientID) bool
	IsHistoryEmpty() bool
	SetUserID(id ClientID)
	SetUserColor(color string)
	SetUserName(name string)
	RegisterCallbacks(cb CoordinatorCallbacks)
}

// RemoteClient tracks what a Client knows about one other participant:
// their display attributes and the decoration handle for their last
// reported cursor.
type RemoteClient struct {
	ID         ClientID
	Color      string
	Name       string
	Cursor     *ot.Cursor
	disposable Disposable
}

func (rc *RemoteClient) setCursor(editor EditorAdapter, cur ot.Cursor) {
	if rc.disposable != nil {
		rc.disposable.Dispose()
	}
	c := cur
	rc.Cursor = &c
	rc.disposable = editor.SetOtherCursor(rc.ID, cur, rc.Color, rc.Name)
}

func (rc *RemoteClient) clearCursor() {
	if rc.disposable != nil {
		rc.disposable.Dispose()
		rc.disposable = nil
	}
	rc.Cursor = nil
}
