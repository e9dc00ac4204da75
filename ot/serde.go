package ot

import (
	"encoding/json"
	"fmt"
)

// Wire format: an operation serializes as a JSON array whose
// elements are:
//   - a positive integer n  → Retain(n, nil)
//   - a negative integer -n → Delete(n)
//   - a string s            → Insert(s, nil)
//   - an object {"r": n, "attrs": {...}}  → Retain(n, attrs)
//   - an object {"i": s, "attrs": {...}}  → Insert(s, attrs)
//
// Round-trip law: UnmarshalJSON of op.MarshalJSON()'s output yields an
// operation that Equals op.

type attributedRetain struct {
	R     uint64 `json:"r"`
	Attrs Attrs  `json:"attrs,omitempty"`
}

type attributedInsert struct {
	I     string `json:"i"`
	Attrs Attrs  `json:"attrs,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (o *Operation) MarshalJSON() ([]byte, error) {
	if o == nil {
		return json.Marshal([]interface{}{})
	}

	elems := make([]interface{}, len(o.ops))
	for i, op := range o.ops {
		switch v := op.(type) {
		case Retain:
			if v.Attrs.IsEmpty() {
				elems[i] = v.N
			} else {
				elems[i] = attributedRetain{R: v.N, Attrs: v.Attrs}
			}
		case Insert:
			if v.Attrs.IsEmpty() {
				elems[i] = v.Text
			} else {
				elems[i] = attributedInsert{I: v.Text, Attrs: v.Attrs}
			}
		case Delete:
			elems[i] = -int64(v.N)
		}
	}
	return json.Marshal(elems)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*o = Operation{ops: make([]Op, 0, len(raw))}

	for _, item := range raw {
		var asString string
		if err := json.Unmarshal(item, &asString); err == nil {
			o.Insert(asString, nil)
			continue
		}

		var asNumber float64
		if err := json.Unmarshal(item, &asNumber); err == nil {
			if asNumber >= 0 {
				o.Retain(uint64(asNumber), nil)
			} else {
				o.Delete(uint64(-asNumber))
			}
			continue
		}

		var asObject map[string]json.RawMessage
		if err := json.Unmarshal(item, &asObject); err == nil {
			if _, ok := asObject["r"]; ok {
				var ar attributedRetain
				if err := json.Unmarshal(item, &ar); err != nil {
					return fmt.Errorf("ot: invalid attributed retain: %w", err)
				}
				o.Retain(ar.R, ar.Attrs)
				continue
			}
			if _, ok := asObject["i"]; ok {
				var ai attributedInsert
				if err := json.Unmarshal(item, &ai); err != nil {
					return fmt.Errorf("ot: invalid attributed insert: %w", err)
				}
				o.Insert(ai.I, ai.Attrs)
				continue
			}
		}

		return fmt.Errorf("ot: invalid operation component: %s", string(item))
	}

	return nil
}

// String returns the operation's JSON wire representation.
func (o *Operation) String() string {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Sprintf("ot: marshal error: %v", err)
	}
	return string(data)
}
