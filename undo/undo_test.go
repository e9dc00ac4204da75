package undo

import (
	"testing"

	"github.com/quillpad/quillpad/ot"
)

func wrap(op *ot.Operation) *ot.WrappedOperation {
	return ot.NewWrappedOperation(op, nil)
}

func TestAddPushesOntoUndoStackInNormalMode(t *testing.T) {
	m := New()
	m.Add(wrap(ot.NewOperation().Insert("a", nil)), false)
	if !m.CanUndo() {
		t.Fatal("expected undo stack to have an entry")
	}
	if m.CanRedo() {
		t.Fatal("expected redo stack to be empty")
	}
}

func TestAddClearsRedoStackInNormalMode(t *testing.T) {
	m := New()
	m.Add(wrap(ot.NewOperation().Insert("a", nil)), false)
	m.PerformUndo(func(op *ot.WrappedOperation) {
		m.Add(wrap(op.Op.Invert("", nil)), false)
	})
	if !m.CanRedo() {
		t.Fatal("expected redo entry after undo")
	}
	m.Add(wrap(ot.NewOperation().Insert("b", nil)), false)
	if m.CanRedo() {
		t.Error("expected a fresh local edit to clear the redo stack")
	}
}

// TestCoalescingAdjacentInserts: typing several single
// characters in a row should coalesce into one undo-stack entry, not one
// per keystroke.
func TestCoalescingAdjacentInserts(t *testing.T) {
	m := New()
	doc := ""
	for _, ch := range []string{"a", "b", "c"} {
		op := ot.NewOperation().Retain(uint64(len([]rune(doc))), nil).Insert(ch, nil)
		inverse := op.Invert(doc, nil)
		doc, _ = op.Apply(doc, nil)
		m.Add(wrap(inverse), true)
	}
	if len(m.undoStack) != 1 {
		t.Fatalf("expected coalesced single undo entry, got %d: %+v", len(m.undoStack), m.undoStack)
	}
	// Undoing the single coalesced entry must remove all three characters.
	var restored string
	m.PerformUndo(func(op *ot.WrappedOperation) {
		restored, _ = op.Apply(doc, nil)
	})
	if restored != "" {
		t.Errorf("expected coalesced undo to remove all three chars, got %q", restored)
	}
}

func TestNonAdjacentInsertsDoNotCoalesce(t *testing.T) {
	m := New()
	doc := "xyz"
	first := ot.NewOperation().Retain(3, nil).Insert("a", nil)
	firstInv := first.Invert(doc, nil)
	doc, _ = first.Apply(doc, nil) // "xyza"
	m.Add(wrap(firstInv), true)

	// The second insert lands at the front of the document, nowhere near
	// the first edit, so the two must stay separate undo entries.
	second := ot.NewOperation().Insert("b", nil).Retain(4, nil)
	secondInv := second.Invert(doc, nil)
	m.Add(wrap(secondInv), true)

	if len(m.undoStack) != 2 {
		t.Fatalf("expected two separate undo entries, got %d", len(m.undoStack))
	}
}

// TestUndoAfterRemoteEditTransformsStack: a remote operation
// arriving between a local edit and its undo must shift the undo stack so
// undoing still targets the right region of the document.
func TestUndoAfterRemoteEditTransformsStack(t *testing.T) {
	m := New()
	doc := "abc"
	local := ot.NewOperation().Retain(3, nil).Insert("X", nil)
	localInv := local.Invert(doc, nil)
	doc, _ = local.Apply(doc, nil) // "abcX"
	m.Add(wrap(localInv), false)

	// A remote insert at the front shifts everything right by one.
	remote := ot.NewOperation().Insert("Y", nil).Retain(4, nil)
	doc, _ = remote.Apply(doc, nil) // "YabcX"

	if err := m.Transform(remote); err != nil {
		t.Fatalf("Transform: %v", err)
	}

	var restored string
	m.PerformUndo(func(op *ot.WrappedOperation) {
		var err error
		restored, err = op.Apply(doc, nil)
		if err != nil {
			t.Fatalf("Apply transformed undo entry: %v", err)
		}
	})
	if restored != "Yabc" {
		t.Errorf("expected undo to remove only the local insert, got %q", restored)
	}
}

func TestPerformUndoRestoresModeOnPanic(t *testing.T) {
	m := New()
	m.Add(wrap(ot.NewOperation().Insert("a", nil)), false)

	func() {
		defer func() { recover() }()
		m.PerformUndo(func(op *ot.WrappedOperation) {
			panic("boom")
		})
	}()

	if m.IsUndoing() {
		t.Error("expected mode restored to Normal after panic in callback")
	}
}

func TestPerformUndoOnEmptyStackReturnsFalse(t *testing.T) {
	m := New()
	called := false
	ok := m.PerformUndo(func(op *ot.WrappedOperation) { called = true })
	if ok || called {
		t.Error("expected PerformUndo on empty stack to report false without invoking callback")
	}
}

func TestPerformRedoMovesEntryBackToUndoStack(t *testing.T) {
	m := New()
	m.Add(wrap(ot.NewOperation().Insert("a", nil)), false)
	m.PerformUndo(func(op *ot.WrappedOperation) {
		m.Add(wrap(op.Op.Invert("", nil)), false)
	})
	if !m.CanRedo() {
		t.Fatal("expected redo entry available")
	}

	m.PerformRedo(func(op *ot.WrappedOperation) {
		m.Add(wrap(op.Op.Invert("a", nil)), false)
	})
	if !m.CanUndo() {
		t.Error("expected redo to push an entry back onto the undo stack")
	}
	if m.CanRedo() {
		t.Error("expected redo stack empty after redo consumed its entry")
	}
}

func TestDisposeClearsStacksAndMode(t *testing.T) {
	m := New()
	m.Add(wrap(ot.NewOperation().Insert("a", nil)), false)
	m.Dispose()
	if m.CanUndo() || m.CanRedo() {
		t.Error("expected both stacks empty after Dispose")
	}
	if m.IsUndoing() || m.IsRedoing() {
		t.Error("expected Normal mode after Dispose")
	}
}
