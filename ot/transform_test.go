package ot

import "testing"

// TestTransformDiamond checks the OT diamond law: for
// concurrent operations a (applied to doc) and b (applied to doc), their
// transformed counterparts converge to the same document regardless of
// application order.
func TestTransformDiamond(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		a    func() *Operation
		b    func() *Operation
	}{
		{
			name: "concurrent inserts at same position",
			doc:  "abc",
			a:    func() *Operation { return NewOperation().Retain(1, nil).Insert("X", nil).Retain(2, nil) },
			b:    func() *Operation { return NewOperation().Retain(1, nil).Insert("Y", nil).Retain(2, nil) },
		},
		{
			name: "concurrent delete and insert",
			doc:  "hello world",
			a:    func() *Operation { return NewOperation().Retain(6, nil).Delete(5) },
			b:    func() *Operation { return NewOperation().Retain(11, nil).Insert("!", nil) },
		},
		{
			name: "overlapping deletes",
			doc:  "abcdef",
			a:    func() *Operation { return NewOperation().Retain(1, nil).Delete(3).Retain(2, nil) },
			b:    func() *Operation { return NewOperation().Retain(2, nil).Delete(3).Retain(1, nil) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := tt.a(), tt.b()
			aPrime, bPrime, err := a.Transform(b)
			if err != nil {
				t.Fatalf("Transform: %v", err)
			}

			ab, err := a.Compose(bPrime)
			if err != nil {
				t.Fatalf("a.Compose(b'): %v", err)
			}
			ba, err := b.Compose(aPrime)
			if err != nil {
				t.Fatalf("b.Compose(a'): %v", err)
			}

			left, err := ab.Apply(tt.doc, nil)
			if err != nil {
				t.Fatalf("apply a.b': %v", err)
			}
			right, err := ba.Apply(tt.doc, nil)
			if err != nil {
				t.Fatalf("apply b.a': %v", err)
			}
			if left != right {
				t.Errorf("diamond broke: a.compose(b')=%q b.compose(a')=%q", left, right)
			}
		})
	}
}

// TestTransformInsertTieBreakFavorsSelf: when both sides
// insert at the same position, the receiver (self) wins the tie and its
// insert ends up first in the transformed pair, per DESIGN.md's resolution
// of the tie-break Open Question.
func TestTransformInsertTieBreakFavorsSelf(t *testing.T) {
	self := NewOperation().Retain(1, nil).Insert("X", nil).Retain(1, nil)
	other := NewOperation().Retain(1, nil).Insert("Y", nil).Retain(1, nil)

	selfPrime, _, err := self.Transform(other)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	got, err := other.Compose(selfPrime)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	doc, err := got.Apply("ab", nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if doc != "aXYb" {
		t.Errorf("expected self's insert first: got %q, want %q", doc, "aXYb")
	}
}

func TestTransformWithNoopIsIdentity(t *testing.T) {
	op := NewOperation().Retain(1, nil).Insert("X", nil).Retain(1, nil)
	noop := NewOperation().Retain(uint64(op.BaseLength()), nil)

	opPrime, noopPrime, err := op.Transform(noop)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !opPrime.Equals(op) {
		t.Errorf("op' = %v, want op unchanged %v", opPrime.Ops(), op.Ops())
	}
	if !noopPrime.IsNoop() {
		t.Errorf("noop' = %v, want a no-op over op's output", noopPrime.Ops())
	}
}

func TestTransformIncompatibleBaseLengths(t *testing.T) {
	a := NewOperation().Retain(3, nil)
	b := NewOperation().Retain(5, nil)
	if _, _, err := a.Transform(b); err == nil {
		t.Fatal("expected ErrIncompatibleLengths")
	}
}

func TestTransformRetainAttributeMergeOtherWins(t *testing.T) {
	self := NewOperation().Retain(3, Attrs{"bold": StringAttr("true")})
	other := NewOperation().Retain(3, Attrs{"bold": StringAttr("false"), "italic": StringAttr("true")})

	selfPrime, _, err := self.Transform(other)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	r, ok := selfPrime.Ops()[0].(Retain)
	if !ok {
		t.Fatalf("expected Retain, got %+v", selfPrime.Ops()[0])
	}
	if r.Attrs["bold"] == nil || *r.Attrs["bold"] != "false" {
		t.Errorf("expected other's bold value to win, got %+v", r.Attrs)
	}
	if r.Attrs["italic"] == nil || *r.Attrs["italic"] != "true" {
		t.Errorf("expected italic carried through, got %+v", r.Attrs)
	}
}
