// Package vm provides the Cairo-style provable CPU execution engine: the
// segmented relocatable memory, the 64-bit instruction decoder and the
// register/step state machine whose trace feeds a proof pipeline.
package vm

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// Relocatable is an address in some memory segment, meant to be replaced by a
// flat absolute address once the run has finished.
type Relocatable struct {
	SegmentIndex int
	Offset       uint64
}

// NewRelocatable creates a relocatable address
func NewRelocatable(segmentIndex int, offset uint64) Relocatable {
	return Relocatable{SegmentIndex: segmentIndex, Offset: offset}
}

// String returns the conventional segment:offset rendering
func (r Relocatable) String() string {
	return fmt.Sprintf("%d:%d", r.SegmentIndex, r.Offset)
}

// AddOffset returns the address shifted by a signed offset. A negative
// resulting offset is an invalid address.
func (r Relocatable) AddOffset(off int64) (Relocatable, error) {
	res := int64(r.Offset) + off
	if res < 0 {
		return Relocatable{}, Errorf(ErrInvalidAddress,
			"address %s + %d has negative offset", r, off)
	}
	return Relocatable{SegmentIndex: r.SegmentIndex, Offset: uint64(res)}, nil
}

// AddFelt returns the address shifted by a field element. The shift is
// performed mod p, so a felt close to p acts as a small negative offset. The
// resulting offset must stay representable as an unsigned 64-bit integer.
func (r Relocatable) AddFelt(f *fp.Element) (Relocatable, error) {
	var off fp.Element
	off.SetUint64(r.Offset)
	off.Add(&off, f)
	if !off.IsUint64() {
		return Relocatable{}, Errorf(ErrInvalidAddress,
			"address %s + %s leaves the addressable range", r, f.String())
	}
	return Relocatable{SegmentIndex: r.SegmentIndex, Offset: off.Uint64()}, nil
}

// Value is the tagged union held by memory cells, registers and operands:
// either a field element or a relocatable address.
type Value struct {
	felt  fp.Element
	rel   Relocatable
	isRel bool
}

// NewFeltValue creates a Value holding a field element
func NewFeltValue(f *fp.Element) Value {
	return Value{felt: *f}
}

// NewIntValue creates a Value holding the field element for a small integer
func NewIntValue(v uint64) Value {
	var f fp.Element
	f.SetUint64(v)
	return Value{felt: f}
}

// NewRelocatableValue creates a Value holding a relocatable address
func NewRelocatableValue(r Relocatable) Value {
	return Value{rel: r, isRel: true}
}

// IsRelocatable reports whether the value is a relocatable address
func (v Value) IsRelocatable() bool {
	return v.isRel
}

// Felt returns the field element held by the value, if any
func (v Value) Felt() (fp.Element, bool) {
	if v.isRel {
		return fp.Element{}, false
	}
	return v.felt, true
}

// Relocatable returns the address held by the value, if any
func (v Value) Relocatable() (Relocatable, bool) {
	if !v.isRel {
		return Relocatable{}, false
	}
	return v.rel, true
}

// Equal reports whether two values hold the same felt or the same address
func (v Value) Equal(o Value) bool {
	if v.isRel != o.isRel {
		return false
	}
	if v.isRel {
		return v.rel == o.rel
	}
	return v.felt.Equal(&o.felt)
}

// IsZero reports whether the value is the field element zero. A relocatable
// address is never zero.
func (v Value) IsZero() bool {
	return !v.isRel && v.felt.IsZero()
}

// String returns the felt or address rendering of the value
func (v Value) String() string {
	if v.isRel {
		return v.rel.String()
	}
	return v.felt.String()
}

// AddValues computes a + b. Felt + felt is addition mod p, relocatable + felt
// shifts the address offset, relocatable + relocatable is forbidden.
func AddValues(a, b Value) (Value, error) {
	switch {
	case a.isRel && b.isRel:
		return Value{}, Errorf(ErrAddRelocatableRelocatable,
			"cannot add addresses %s and %s", a.rel, b.rel)
	case a.isRel:
		rel, err := a.rel.AddFelt(&b.felt)
		if err != nil {
			return Value{}, err
		}
		return NewRelocatableValue(rel), nil
	case b.isRel:
		rel, err := b.rel.AddFelt(&a.felt)
		if err != nil {
			return Value{}, err
		}
		return NewRelocatableValue(rel), nil
	default:
		var sum fp.Element
		sum.Add(&a.felt, &b.felt)
		return NewFeltValue(&sum), nil
	}
}

// MulValues computes a * b mod p. Multiplication is only defined for two
// field elements.
func MulValues(a, b Value) (Value, error) {
	if a.isRel || b.isRel {
		return Value{}, Errorf(ErrMulRelocatable,
			"cannot multiply %s and %s", a, b)
	}
	var prod fp.Element
	prod.Mul(&a.felt, &b.felt)
	return NewFeltValue(&prod), nil
}
