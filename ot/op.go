// Package ot implements Operational Transformation for real-time
// collaborative plain-text editing.
//
// The algebra extends the classic Retain/Insert/Delete component model
// with per-component attribute maps, cursors, operation metadata and
// wrapped operations — everything a collaborative editor needs on top of
// the bare component algebra.
//
// The basic components are:
//   - Retain(n, attrs): move the cursor n positions forward, optionally
//     setting attributes on those positions.
//   - Insert(s, attrs): insert string s at the current cursor position.
//   - Delete(n): delete n characters at the current cursor position.
package ot

import (
	"errors"
	"unicode/utf8"
)

var (
	// ErrIncompatibleLengths is returned when two operations have
	// lengths that make them impossible to compose or transform together.
	ErrIncompatibleLengths = errors.New("ot: incompatible lengths")

	// ErrLengthMismatch is returned when Apply is called against a
	// document whose length does not match the operation's base length.
	ErrLengthMismatch = errors.New("ot: document length does not match operation base length")

	// ErrDocumentTooShort is returned when a Retain or Delete component
	// would read past the end of the document being applied to.
	ErrDocumentTooShort = errors.New("ot: document too short for operation")

	// ErrValidation is returned by builder methods that received an
	// invalid argument (reserved for future use; current builders clamp
	// zero-length/empty operands to no-ops rather than erroring, matching
	// shiv248-operational-transformation-go's behavior).
	ErrValidation = errors.New("ot: validation error")
)

// Attrs is a patch over a document position's attribute set.
//
// An absent key means "no opinion about this attribute". A key present
// with a nil value is the sentinel for "unset this attribute". A key
// present with a non-nil value sets the attribute to that value. This
// gives attribute patches a total, comparable Go representation without
// a separate "unset" type.
type Attrs map[string]*string

// StringAttr is a convenience constructor for a set-attribute value.
func StringAttr(v string) *string { return &v }

// UnsetAttr is the sentinel value meaning "remove this attribute".
var UnsetAttr *string

// Clone returns a deep copy of the attribute map.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		if v == nil {
			out[k] = nil
			continue
		}
		cp := *v
		out[k] = &cp
	}
	return out
}

// IsEmpty reports whether the attribute patch carries no keys at all.
func (a Attrs) IsEmpty() bool {
	return len(a) == 0
}

// Equal reports whether two attribute patches are equivalent
// (order-insensitive key/value comparison, nil treated as the unset
// sentinel).
func (a Attrs) Equal(b Attrs) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		if (av == nil) != (bv == nil) {
			return false
		}
		if av != nil && *av != *bv {
			return false
		}
	}
	return true
}

// Merge overlays patch `other` on top of `a`, returning a new map. Keys in
// `other` win on conflict. Used by Retain/Retain composition and transform.
func (a Attrs) Merge(other Attrs) Attrs {
	if len(a) == 0 && len(other) == 0 {
		return nil
	}
	out := a.Clone()
	if out == nil {
		out = make(Attrs, len(other))
	}
	for k, v := range other {
		if v == nil {
			out[k] = nil
			continue
		}
		cp := *v
		out[k] = &cp
	}
	return out
}

// Op is a single component of a Operation: Retain, Insert, or Delete.
// It is modeled as an interface with an unexported marker method, the same
// tagged-union idiom shiv248-operational-transformation-go uses for its
// Operation type.
type Op interface {
	isOp()
}

// Retain advances n positions of the base document, optionally merging
// attrs into those positions.
type Retain struct {
	N     uint64
	Attrs Attrs
}

func (Retain) isOp() {}

// IsRetain reports whether op is a Retain component.
func IsRetain(op Op) bool { _, ok := op.(Retain); return ok }

// Insert adds text at the current cursor position, optionally carrying
// attrs for the inserted text.
type Insert struct {
	Text  string
	Attrs Attrs
}

func (Insert) isOp() {}

// IsInsert reports whether op is an Insert component.
func IsInsert(op Op) bool { _, ok := op.(Insert); return ok }

// Delete removes n characters at the current cursor position.
type Delete struct {
	N uint64
}

func (Delete) isOp() {}

// IsDelete reports whether op is a Delete component.
func IsDelete(op Op) bool { _, ok := op.(Delete); return ok }

// AttributesEqual reports whether two ops carry the same attribute patch.
// Ops of different kinds, or a Delete (which never carries attributes),
// are considered attribute-equal only if both sides are empty.
func AttributesEqual(a, b Op) bool {
	return attrsOf(a).Equal(attrsOf(b))
}

// HasEmptyAttributes reports whether op carries no attribute patch.
func HasEmptyAttributes(op Op) bool {
	return attrsOf(op).IsEmpty()
}

func attrsOf(op Op) Attrs {
	switch v := op.(type) {
	case Retain:
		return v.Attrs
	case Insert:
		return v.Attrs
	default:
		return nil
	}
}

// opsEqual reports whether two ops are equal: same tag, same payload,
// same attributes (order-insensitive).
func opsEqual(a, b Op) bool {
	switch av := a.(type) {
	case Retain:
		bv, ok := b.(Retain)
		return ok && av.N == bv.N && av.Attrs.Equal(bv.Attrs)
	case Insert:
		bv, ok := b.(Insert)
		return ok && av.Text == bv.Text && av.Attrs.Equal(bv.Attrs)
	case Delete:
		bv, ok := b.(Delete)
		return ok && av.N == bv.N
	default:
		return false
	}
}

// charCount returns the number of Unicode codepoints (runes) in s. All
// lengths and positions in this package count runes, not bytes or UTF-16
// units — see DESIGN.md for the unit convention.
func charCount(s string) int {
	return utf8.RuneCountInString(s)
}
