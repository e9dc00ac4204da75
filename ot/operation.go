package ot

// Operation is an ordered, normalized sequence of Ops. It tracks both the
// base length (the length of document it can be applied to) and the
// target length (the length of the document after application).
//
// Normalization invariants, maintained by the builder methods below:
//   - adjacent ops of the same kind (and, for Retain/Insert, equal
//     attributes) are merged;
//   - an Insert appended right after a Delete is placed before it
//     (Insert-then-Delete), so Compose is associative up to equality;
//   - Retain/Delete with n == 0 and Insert with empty text never appear.
type Operation struct {
	ops       []Op
	baseLen   int
	targetLen int
}

// NewOperation creates a new, empty operation (the identity no-op).
func NewOperation() *Operation {
	return &Operation{}
}

// WithCapacity creates a new empty operation with pre-allocated capacity
// for the given number of components.
func WithCapacity(capacity int) *Operation {
	return &Operation{ops: make([]Op, 0, capacity)}
}

// BaseLength returns the length of the document this operation expects.
func (o *Operation) BaseLength() int { return o.baseLen }

// TargetLength returns the length of the document this operation produces.
func (o *Operation) TargetLength() int { return o.targetLen }

// Ops returns the normalized component slice. Callers must not mutate it.
func (o *Operation) Ops() []Op { return o.ops }

// IsNoop reports whether this operation has no effect: either it has no
// components, or its only component is an attribute-free Retain.
func (o *Operation) IsNoop() bool {
	switch len(o.ops) {
	case 0:
		return true
	case 1:
		r, ok := o.ops[0].(Retain)
		return ok && r.Attrs.IsEmpty()
	default:
		return false
	}
}

// Equals reports whether two operations have identical, ordered
// components (attributes included).
func (o *Operation) Equals(other *Operation) bool {
	if other == nil {
		return len(o.ops) == 0
	}
	if len(o.ops) != len(other.ops) {
		return false
	}
	for i := range o.ops {
		if !opsEqual(o.ops[i], other.ops[i]) {
			return false
		}
	}
	return true
}

// Retain appends a Retain(n, attrs) component, merging with a trailing
// Retain of equal attributes. n == 0 is a no-op.
func (o *Operation) Retain(n uint64, attrs Attrs) *Operation {
	if n == 0 {
		return o
	}
	o.baseLen += int(n)
	o.targetLen += int(n)

	if last := len(o.ops) - 1; last >= 0 {
		if r, ok := o.ops[last].(Retain); ok && r.Attrs.Equal(attrs) {
			o.ops[last] = Retain{N: r.N + n, Attrs: r.Attrs}
			return o
		}
	}
	o.ops = append(o.ops, Retain{N: n, Attrs: attrs})
	return o
}

// Insert appends an Insert(s, attrs) component. If the trailing component
// is a Delete, the insert is placed before it (canonical ordering); if the
// new trailing component (after that reordering) is an Insert of equal
// attributes, the two merge. Empty s is a no-op.
func (o *Operation) Insert(s string, attrs Attrs) *Operation {
	if s == "" {
		return o
	}
	o.targetLen += charCount(s)

	n := len(o.ops)
	if n == 0 {
		o.ops = append(o.ops, Insert{Text: s, Attrs: attrs})
		return o
	}

	if ins, ok := o.ops[n-1].(Insert); ok && ins.Attrs.Equal(attrs) {
		o.ops[n-1] = Insert{Text: ins.Text + s, Attrs: ins.Attrs}
		return o
	}

	if n >= 2 {
		if _, ok := o.ops[n-1].(Delete); ok {
			if ins, ok := o.ops[n-2].(Insert); ok && ins.Attrs.Equal(attrs) {
				o.ops[n-2] = Insert{Text: ins.Text + s, Attrs: ins.Attrs}
				return o
			}
		}
	}

	if del, ok := o.ops[n-1].(Delete); ok {
		o.ops[n-1] = Insert{Text: s, Attrs: attrs}
		o.ops = append(o.ops, del)
		return o
	}

	o.ops = append(o.ops, Insert{Text: s, Attrs: attrs})
	return o
}

// Delete appends a Delete(n) component, merging with a trailing Delete.
// n == 0 is a no-op.
func (o *Operation) Delete(n uint64) *Operation {
	if n == 0 {
		return o
	}
	o.baseLen += int(n)

	if last := len(o.ops) - 1; last >= 0 {
		if d, ok := o.ops[last].(Delete); ok {
			o.ops[last] = Delete{N: d.N + n}
			return o
		}
	}
	o.ops = append(o.ops, Delete{N: n})
	return o
}

// add appends any Op, dispatching to the typed builder method. Used
// internally by Compose/Transform when recursing with a partially
// consumed component.
func (o *Operation) add(op Op) {
	switch v := op.(type) {
	case Retain:
		o.Retain(v.N, v.Attrs)
	case Delete:
		o.Delete(v.N)
	case Insert:
		o.Insert(v.Text, v.Attrs)
	}
}

// opIterator walks an Op slice, splitting components on demand so callers
// (Compose, Transform) can consume partial units.
type opIterator struct {
	ops []Op
	idx int
}

func newOpIterator(ops []Op) *opIterator {
	return &opIterator{ops: ops}
}

func (it *opIterator) next() Op {
	if it.idx >= len(it.ops) {
		return nil
	}
	op := it.ops[it.idx]
	it.idx++
	return op
}
