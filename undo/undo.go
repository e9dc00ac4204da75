// Package undo implements a stack-based undo/redo history that transforms
// in place as remote operations arrive, so undo remains meaningful after
// concurrent edits land on top of local ones.
package undo

import "github.com/quillpad/quillpad/ot"

// Mode records which side of an undo/redo round-trip is currently
// executing, so Add knows which stack to push newly produced operations
// onto.
type Mode int

const (
	// Normal is the default mode: local edits push onto the undo stack
	// and clear the redo stack.
	Normal Mode = iota
	// Undoing is set for the duration of PerformUndo's callback: the
	// inverse it produces is redo material, so Add pushes to redoStack.
	Undoing
	// Redoing is set for the duration of PerformRedo's callback: the
	// inverse it produces is undo material again, so Add pushes to
	// undoStack.
	Redoing
)

// Manager holds the undo and redo stacks of wrapped operations.
//
// Manager is not safe for concurrent use; like the rest of the core it is
// meant to be driven synchronously from a single execution timeline.
type Manager struct {
	undoStack []*ot.WrappedOperation
	redoStack []*ot.WrappedOperation
	mode      Mode
}

// New creates an empty undo manager in Normal mode.
func New() *Manager {
	return &Manager{mode: Normal}
}

// Add records op on the stack appropriate to the current mode.
//
// If compose is true and the top of the target stack is a natural
// continuation of op in the "inverted" sense (see
// ot.Operation.ShouldBeComposedWithInverted), the two are merged into a
// single entry instead of pushing a second one — this is what turns a run
// of single-character undo entries into one word-level undo.
func (m *Manager) Add(op *ot.WrappedOperation, compose bool) {
	switch m.mode {
	case Undoing:
		m.push(&m.redoStack, op, compose)
	case Redoing:
		m.push(&m.undoStack, op, compose)
	default:
		m.push(&m.undoStack, op, compose)
		m.redoStack = nil
	}
}

// Stack entries are inverses: undoing applies the newest entry first, so
// a coalesced entry is op composed with the previous top, in that order.
func (m *Manager) push(stack *[]*ot.WrappedOperation, op *ot.WrappedOperation, compose bool) {
	if compose && len(*stack) > 0 {
		top := (*stack)[len(*stack)-1]
		if op.ShouldBeComposedWithInverted(top) {
			if merged, err := op.Compose(top); err == nil {
				(*stack)[len(*stack)-1] = merged
				return
			}
		}
	}
	*stack = append(*stack, op)
}

// Transform remaps every entry on both stacks through remoteOp, so
// replayed undo/redo still points at the right region of the document
// after a concurrent remote edit.
func (m *Manager) Transform(remoteOp *ot.Operation) error {
	remote := ot.NewWrappedOperation(remoteOp, nil)
	for i, e := range m.undoStack {
		prime, _, err := e.Transform(remote)
		if err != nil {
			return err
		}
		m.undoStack[i] = prime
	}
	for i, e := range m.redoStack {
		prime, _, err := e.Transform(remote)
		if err != nil {
			return err
		}
		m.redoStack[i] = prime
	}
	return nil
}

// Last returns the top of the undo stack, or nil if it is empty.
func (m *Manager) Last() *ot.WrappedOperation {
	if len(m.undoStack) == 0 {
		return nil
	}
	return m.undoStack[len(m.undoStack)-1]
}

// CanUndo reports whether the undo stack has an entry to pop.
func (m *Manager) CanUndo() bool { return len(m.undoStack) > 0 }

// CanRedo reports whether the redo stack has an entry to pop.
func (m *Manager) CanRedo() bool { return len(m.redoStack) > 0 }

// PerformUndo pops the top of the undo stack and passes it to cb, with
// mode set to Undoing for the duration of the call so that any Add call
// cb makes (expected: the inverse of the popped operation, after applying
// it) lands on the redo stack. Mode is restored on every exit path,
// including a panic inside cb. Reports false without calling cb if the
// undo stack is empty.
func (m *Manager) PerformUndo(cb func(op *ot.WrappedOperation)) bool {
	if len(m.undoStack) == 0 {
		return false
	}
	top := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]

	m.mode = Undoing
	defer func() { m.mode = Normal }()
	cb(top)
	return true
}

// PerformRedo is PerformUndo's mirror image over the redo stack.
func (m *Manager) PerformRedo(cb func(op *ot.WrappedOperation)) bool {
	if len(m.redoStack) == 0 {
		return false
	}
	top := m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]

	m.mode = Redoing
	defer func() { m.mode = Normal }()
	cb(top)
	return true
}

// IsUndoing reports whether a PerformUndo callback is currently running.
func (m *Manager) IsUndoing() bool { return m.mode == Undoing }

// IsRedoing reports whether a PerformRedo callback is currently running.
func (m *Manager) IsRedoing() bool { return m.mode == Redoing }

// Dispose clears both stacks and resets mode to Normal.
func (m *Manager) Dispose() {
	m.undoStack = nil
	m.redoStack = nil
	m.mode = Normal
}
