package ot

import "testing"

func TestShouldBeComposedWithAdjacentInserts(t *testing.T) {
	a := NewOperation().Retain(3, nil).Insert("a", nil).Retain(2, nil)
	b := NewOperation().Retain(4, nil).Insert("b", nil).Retain(2, nil)
	if !a.ShouldBeComposedWith(b) {
		t.Error("expected adjacent single-char inserts to coalesce")
	}
}

func TestShouldBeComposedWithNonAdjacentInserts(t *testing.T) {
	a := NewOperation().Retain(3, nil).Insert("a", nil).Retain(2, nil)
	b := NewOperation().Retain(10, nil).Insert("b", nil).Retain(2, nil)
	if a.ShouldBeComposedWith(b) {
		t.Error("expected non-adjacent inserts not to coalesce")
	}
}

func TestShouldBeComposedWithBackspaceDeletes(t *testing.T) {
	// Two successive backspaces from a cursor moving left: the second
	// delete ends where the first one started.
	a := NewOperation().Retain(5, nil).Delete(1).Retain(4, nil)
	b := NewOperation().Retain(4, nil).Delete(1).Retain(4, nil)
	if !a.ShouldBeComposedWith(b) {
		t.Error("expected successive backspace deletes to coalesce")
	}
}

func TestShouldBeComposedWithForwardDeleteAtSamePosition(t *testing.T) {
	a := NewOperation().Retain(3, nil).Delete(1).Retain(4, nil)
	b := NewOperation().Retain(3, nil).Delete(1).Retain(3, nil)
	if !a.ShouldBeComposedWith(b) {
		t.Error("expected repeated forward-delete at same position to coalesce")
	}
}

func TestShouldBeComposedWithMismatchedKinds(t *testing.T) {
	a := NewOperation().Retain(3, nil).Insert("a", nil).Retain(2, nil)
	b := NewOperation().Retain(3, nil).Delete(1).Retain(2, nil)
	if a.ShouldBeComposedWith(b) {
		t.Error("expected insert/delete mix not to coalesce")
	}
}

func TestShouldBeComposedWithNoopAlwaysTrue(t *testing.T) {
	noop := NewOperation().Retain(5, nil)
	edit := NewOperation().Retain(2, nil).Insert("x", nil).Retain(3, nil)
	if !noop.ShouldBeComposedWith(edit) {
		t.Error("expected noop to coalesce with anything")
	}
}

func TestCanMergeWithDisjointAttributeFamilies(t *testing.T) {
	a := NewOperation().Retain(3, Attrs{"bold": StringAttr("true")})
	b := NewOperation().Retain(3, Attrs{"italic": StringAttr("true")})
	if a.CanMergeWith(b) {
		t.Error("expected disjoint attribute keys not to merge")
	}
}

func TestCanMergeWithOverlappingAttributeFamilies(t *testing.T) {
	a := NewOperation().Retain(3, Attrs{"bold": StringAttr("true")})
	b := NewOperation().Retain(3, Attrs{"bold": StringAttr("false")})
	if !a.CanMergeWith(b) {
		t.Error("expected overlapping attribute keys to merge")
	}
}

func TestCanMergeWithNoAttributesIsPermissive(t *testing.T) {
	a := NewOperation().Retain(3, nil).Insert("x", nil)
	b := NewOperation().Retain(4, nil)
	if !a.CanMergeWith(b) {
		t.Error("expected attribute-free operations to always merge")
	}
}
