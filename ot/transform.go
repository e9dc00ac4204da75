package ot

// Transform takes two concurrent operations, self and other, that were
// both built against the same base document, and produces a pair
// (selfPrime, otherPrime) such that:
//
//	selfPrime.Apply(other.Apply(doc)) == otherPrime.Apply(self.Apply(doc))
//
// This is the OT diamond at the heart of the algebra.
//
// Tie-break rule: when both operations insert at the same position, self
// (the receiver) always wins — selfPrime emits the Insert, otherPrime
// emits a Retain over it. The client state machine calls Transform with
// its locally authored operation as the receiver, and the coordinator
// calls it with the incoming client operation as the receiver; see
// DESIGN.md's Open Question decisions for why that is a safe, globally
// consistent choice given the coordinator's serialization.
//
// Attribute merge on concurrent Retain/Retain: other's attrs win over
// self's on conflicting keys, on both sides of the call — see DESIGN.md.
//
// Transform fails with ErrIncompatibleLengths if self and other have
// different base lengths.
func (self *Operation) Transform(other *Operation) (selfPrime, otherPrime *Operation, err error) {
	if self.baseLen != other.baseLen {
		return nil, nil, ErrIncompatibleLengths
	}

	selfPrime = NewOperation()
	otherPrime = NewOperation()

	ops1 := newOpIterator(self.ops)
	ops2 := newOpIterator(other.ops)

	op1 := ops1.next()
	op2 := ops2.next()

	for {
		if op1 == nil && op2 == nil {
			return selfPrime, otherPrime, nil
		}

		if ins1, ok1 := op1.(Insert); ok1 {
			if ins2, ok2 := op2.(Insert); ok2 {
				// Receiver (self) always wins simultaneous-insert ties.
				selfPrime.Insert(ins1.Text, ins1.Attrs)
				selfPrime.Retain(uint64(charCount(ins2.Text)), nil)
				otherPrime.Retain(uint64(charCount(ins1.Text)), nil)
				otherPrime.Insert(ins2.Text, ins2.Attrs)
				op1 = ops1.next()
				op2 = ops2.next()
				continue
			}
		}

		if ins, ok := op1.(Insert); ok {
			selfPrime.Insert(ins.Text, ins.Attrs)
			otherPrime.Retain(uint64(charCount(ins.Text)), nil)
			op1 = ops1.next()
			continue
		}

		if ins, ok := op2.(Insert); ok {
			selfPrime.Retain(uint64(charCount(ins.Text)), nil)
			otherPrime.Insert(ins.Text, ins.Attrs)
			op2 = ops2.next()
			continue
		}

		if op1 == nil || op2 == nil {
			return nil, nil, ErrIncompatibleLengths
		}

		if ret1, ok1 := op1.(Retain); ok1 {
			if ret2, ok2 := op2.(Retain); ok2 {
				merged := ret1.Attrs.Merge(ret2.Attrs)
				switch {
				case ret1.N < ret2.N:
					selfPrime.Retain(ret1.N, merged)
					otherPrime.Retain(ret1.N, merged)
					op2 = Retain{N: ret2.N - ret1.N, Attrs: ret2.Attrs}
					op1 = ops1.next()
				case ret1.N == ret2.N:
					selfPrime.Retain(ret1.N, merged)
					otherPrime.Retain(ret1.N, merged)
					op1 = ops1.next()
					op2 = ops2.next()
				default:
					selfPrime.Retain(ret2.N, merged)
					otherPrime.Retain(ret2.N, merged)
					op1 = Retain{N: ret1.N - ret2.N, Attrs: ret1.Attrs}
					op2 = ops2.next()
				}
				continue
			}
		}

		if del1, ok1 := op1.(Delete); ok1 {
			if del2, ok2 := op2.(Delete); ok2 {
				switch {
				case del1.N < del2.N:
					op2 = Delete{N: del2.N - del1.N}
					op1 = ops1.next()
				case del1.N == del2.N:
					op1 = ops1.next()
					op2 = ops2.next()
				default:
					op1 = Delete{N: del1.N - del2.N}
					op2 = ops2.next()
				}
				continue
			}
		}

		if del, ok1 := op1.(Delete); ok1 {
			if ret, ok2 := op2.(Retain); ok2 {
				switch {
				case del.N < ret.N:
					selfPrime.Delete(del.N)
					op2 = Retain{N: ret.N - del.N, Attrs: ret.Attrs}
					op1 = ops1.next()
				case del.N == ret.N:
					selfPrime.Delete(del.N)
					op1 = ops1.next()
					op2 = ops2.next()
				default:
					selfPrime.Delete(ret.N)
					op1 = Delete{N: del.N - ret.N}
					op2 = ops2.next()
				}
				continue
			}
		}

		if ret, ok1 := op1.(Retain); ok1 {
			if del, ok2 := op2.(Delete); ok2 {
				switch {
				case ret.N < del.N:
					otherPrime.Delete(ret.N)
					op2 = Delete{N: del.N - ret.N}
					op1 = ops1.next()
				case ret.N == del.N:
					otherPrime.Delete(ret.N)
					op1 = ops1.next()
					op2 = ops2.next()
				default:
					otherPrime.Delete(del.N)
					op1 = Retain{N: ret.N - del.N, Attrs: ret.Attrs}
					op2 = ops2.next()
				}
				continue
			}
		}

		return nil, nil, ErrIncompatibleLengths
	}
}
