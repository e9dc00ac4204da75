package ot

// simpleOp finds the lone edit component (an Insert or a Delete) in an
// operation that otherwise consists only of Retains, and reports the
// offset (in base-document positions) at which that edit occurs. It
// returns ok == false if the operation contains zero or more than one
// edit component, since only "simple" single-edit operations participate
// in undo-coalescing heuristics.
func simpleOp(o *Operation) (edit Op, start int, ok bool) {
	foundAt := -1
	edits := 0
	for i, c := range o.ops {
		switch c.(type) {
		case Insert, Delete:
			edits++
			if foundAt == -1 {
				foundAt = i
			}
		}
	}
	if edits != 1 {
		return nil, 0, false
	}
	pos := 0
	for i := 0; i < foundAt; i++ {
		if r, isRetain := o.ops[i].(Retain); isRetain {
			pos += int(r.N)
		}
	}
	return o.ops[foundAt], pos, true
}

// ShouldBeComposedWith reports whether other is a natural continuation of
// self, suitable for coalescing into a single undo-stack entry: e.g. two
// consecutive single-character inserts at adjacent positions, or two
// consecutive deletes from the same cursor position (backspace-style).
func (self *Operation) ShouldBeComposedWith(other *Operation) bool {
	if self.IsNoop() || other.IsNoop() {
		return true
	}
	if self.targetLen != other.baseLen {
		return false
	}
	editA, startA, okA := simpleOp(self)
	editB, startB, okB := simpleOp(other)
	if !okA || !okB {
		return false
	}
	switch a := editA.(type) {
	case Insert:
		_, ok := editB.(Insert)
		return ok && startA+charCount(a.Text) == startB
	case Delete:
		b, ok := editB.(Delete)
		return ok && (startB+int(b.N) == startA || startA == startB)
	default:
		return false
	}
}

// ShouldBeComposedWithInverted is ShouldBeComposedWith as seen from the
// undo stack's perspective, where self is already the *inverse* of an
// applied edit: inverses of deletions move the cursor backwards relative
// to the forward edit, so the equal-start case moves: here Insert/Insert
// accepts either adjacency or an equal start, while Delete/Delete accepts
// only other's delete ending where self's begins.
func (self *Operation) ShouldBeComposedWithInverted(other *Operation) bool {
	if self.IsNoop() || other.IsNoop() {
		return true
	}
	if self.targetLen != other.baseLen {
		return false
	}
	editA, startA, okA := simpleOp(self)
	editB, startB, okB := simpleOp(other)
	if !okA || !okB {
		return false
	}
	switch a := editA.(type) {
	case Insert:
		_, ok := editB.(Insert)
		return ok && (startA+charCount(a.Text) == startB || startA == startB)
	case Delete:
		b, ok := editB.(Delete)
		return ok && startB+int(b.N) == startA
	default:
		return false
	}
}

// CanMergeWith is a looser compatibility check than ShouldBeComposedWith:
// it only asks whether every attribute key ("attribute family") self
// touches is also touched by other, without requiring their edits to be
// adjacent. If either side carries no attributes at all, it reports true.
// The undo manager does not call it.
func (self *Operation) CanMergeWith(other *Operation) bool {
	keysA := attrKeySet(self)
	keysB := attrKeySet(other)
	if len(keysA) == 0 || len(keysB) == 0 {
		return true
	}
	for k := range keysA {
		if _, ok := keysB[k]; !ok {
			return false
		}
	}
	return true
}

func attrKeySet(o *Operation) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, c := range o.ops {
		var a Attrs
		switch v := c.(type) {
		case Retain:
			a = v.Attrs
		case Insert:
			a = v.Attrs
		}
		for k := range a {
			keys[k] = struct{}{}
		}
	}
	return keys
}
