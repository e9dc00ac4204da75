package ot

import "strings"

// Apply walks the operation's components in parallel with doc, producing
// the resulting document. If attrsOut is non-nil, the attribute patch
// carried by each Retain is merged into attrsOut at that rune's index
// (useful for an editor adapter that wants to paint attribute spans as it
// applies the operation).
//
// Apply fails with ErrLengthMismatch if doc's rune length does not equal
// BaseLength, and ErrDocumentTooShort if a Retain or Delete component
// would read past the end of doc (this should not happen for any
// operation built solely through the Operation builder methods against a
// document of the right length; it guards against hand-assembled or
// deserialized operations).
func (o *Operation) Apply(doc string, attrsOut map[int]Attrs) (string, error) {
	runes := []rune(doc)
	if len(runes) != o.baseLen {
		return "", ErrLengthMismatch
	}

	var out strings.Builder
	idx := 0

	for _, op := range o.ops {
		switch v := op.(type) {
		case Retain:
			if idx+int(v.N) > len(runes) {
				return "", ErrDocumentTooShort
			}
			for i := 0; i < int(v.N); i++ {
				if attrsOut != nil && !v.Attrs.IsEmpty() {
					attrsOut[idx] = attrsOut[idx].Merge(v.Attrs)
				}
				out.WriteRune(runes[idx])
				idx++
			}
		case Delete:
			if idx+int(v.N) > len(runes) {
				return "", ErrDocumentTooShort
			}
			idx += int(v.N)
		case Insert:
			out.WriteString(v.Text)
		}
	}

	return out.String(), nil
}

// Invert produces an operation o' such that o'.Apply(o.Apply(doc)) == doc.
// doc must be the same document o was built to apply to (length ==
// BaseLength); Invert captures the text and attributes Delete and Retain
// would otherwise discard.
//
// Invert needs the *prior* attributes of retained/deleted spans to restore
// them; priorAttrs, keyed by rune index into doc, supplies them (nil is
// treated as "no prior attributes anywhere").
func (o *Operation) Invert(doc string, priorAttrs map[int]Attrs) *Operation {
	inverse := NewOperation()
	runes := []rune(doc)
	idx := 0

	for _, op := range o.ops {
		switch v := op.(type) {
		case Retain:
			inverse.Retain(v.N, priorAttrsPatch(priorAttrs, idx, int(v.N)))
			idx += int(v.N)
		case Insert:
			inverse.Delete(uint64(charCount(v.Text)))
		case Delete:
			inverse.Insert(string(runes[idx:idx+int(v.N)]), priorAttrsPatch(priorAttrs, idx, int(v.N)))
			idx += int(v.N)
		}
	}

	return inverse
}

// priorAttrsPatch looks up the attribute patch recorded at the start of a
// retained/deleted span. Real editor adapters track per-position
// attributes; this module only needs the start-of-span value so invert
// can restore whatever attrs were in effect before the edit.
func priorAttrsPatch(priorAttrs map[int]Attrs, at, n int) Attrs {
	if priorAttrs == nil || n == 0 {
		return nil
	}
	return priorAttrs[at]
}
