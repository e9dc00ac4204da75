package ot

// WrappedOperation pairs an Operation with optional Metadata (cursor
// state) that rides along for undo/redo bookkeeping. All algebraic
// methods delegate to the inner operation; metadata is carried through in
// parallel so it never needs to be recomputed by the caller.
type WrappedOperation struct {
	Op   *Operation
	Meta *Metadata
}

// NewWrappedOperation wraps op with optional metadata.
func NewWrappedOperation(op *Operation, meta *Metadata) *WrappedOperation {
	return &WrappedOperation{Op: op, Meta: meta}
}

// BaseLength delegates to the wrapped operation.
func (w *WrappedOperation) BaseLength() int { return w.Op.BaseLength() }

// TargetLength delegates to the wrapped operation.
func (w *WrappedOperation) TargetLength() int { return w.Op.TargetLength() }

// Apply delegates to the wrapped operation.
func (w *WrappedOperation) Apply(doc string, attrsOut map[int]Attrs) (string, error) {
	return w.Op.Apply(doc, attrsOut)
}

// Invert inverts both the operation and its metadata (cursorBefore and
// cursorAfter swap, matching the inverse operation's direction).
func (w *WrappedOperation) Invert(doc string, priorAttrs map[int]Attrs) *WrappedOperation {
	return &WrappedOperation{
		Op:   w.Op.Invert(doc, priorAttrs),
		Meta: w.Meta.Invert(),
	}
}

// Compose composes both the operation and the metadata of self and other.
func (w *WrappedOperation) Compose(other *WrappedOperation) (*WrappedOperation, error) {
	op, err := w.Op.Compose(other.Op)
	if err != nil {
		return nil, err
	}
	return &WrappedOperation{Op: op, Meta: w.Meta.Compose(other.Meta)}, nil
}

// Transform transforms both the operation pair and each side's metadata
// through the *other* side's operation, so a cursor carried by self ends
// up expressed in terms of the document state after other has also been
// applied.
func (w *WrappedOperation) Transform(other *WrappedOperation) (selfPrime, otherPrime *WrappedOperation, err error) {
	opA, opB, err := w.Op.Transform(other.Op)
	if err != nil {
		return nil, nil, err
	}
	selfPrime = &WrappedOperation{Op: opA, Meta: w.Meta.Transform(other.Op)}
	otherPrime = &WrappedOperation{Op: opB, Meta: other.Meta.Transform(w.Op)}
	return selfPrime, otherPrime, nil
}

// ShouldBeComposedWith delegates to the wrapped operation.
func (w *WrappedOperation) ShouldBeComposedWith(other *WrappedOperation) bool {
	return w.Op.ShouldBeComposedWith(other.Op)
}

// ShouldBeComposedWithInverted delegates to the wrapped operation.
func (w *WrappedOperation) ShouldBeComposedWithInverted(other *WrappedOperation) bool {
	return w.Op.ShouldBeComposedWithInverted(other.Op)
}
