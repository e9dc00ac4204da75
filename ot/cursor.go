package ot

// Cursor is a position/selection pair. Position is the caret location;
// SelectionEnd may be less than, equal to, or greater than Position (a
// selection dragged from either end). Both are counted in the same rune
// units as Operation's base/target lengths.
type Cursor struct {
	Position     uint32 `json:"position"`
	SelectionEnd uint32 `json:"selectionEnd"`
}

// Equal reports whether two cursors have identical position and
// selection end.
func (c Cursor) Equal(other Cursor) bool {
	return c.Position == other.Position && c.SelectionEnd == other.SelectionEnd
}

// Transform maps c through op: positions retained pass through unchanged,
// positions at or after an insertion point shift forward by the inserted
// length, and positions inside a deleted span clamp to the span's start
// before shifting back by the deleted length. Position and SelectionEnd
// are transformed independently.
func (c Cursor) Transform(op *Operation) Cursor {
	return Cursor{
		Position:     transformIndex(op, c.Position),
		SelectionEnd: transformIndex(op, c.SelectionEnd),
	}
}

// Compose returns the later of two cursors: c then other composed is
// simply other, since a cursor reading is a point-in-time snapshot and
// the later snapshot always supersedes the earlier one. Metadata.Compose
// follows the same rule for its CursorAfter.
func (c Cursor) Compose(other Cursor) Cursor {
	return other
}

// transformIndex maps a single rune offset through an operation's
// components, tracking the offset's position relative to the portion of
// the base document already walked.
func transformIndex(op *Operation, position uint32) uint32 {
	index := int64(position)
	newIndex := index

	for _, c := range op.ops {
		switch v := c.(type) {
		case Retain:
			index -= int64(v.N)
		case Insert:
			newIndex += int64(charCount(v.Text))
		case Delete:
			if index >= int64(v.N) {
				newIndex -= int64(v.N)
			} else if index > 0 {
				newIndex -= index
			}
			index -= int64(v.N)
		}

		if index < 0 {
			break
		}
	}

	if newIndex < 0 {
		return 0
	}
	return uint32(newIndex)
}
