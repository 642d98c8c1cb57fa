package vm

import (
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// SegmentBases computes each segment's absolute base offset by summing the
// sizes of all prior segments in creation order. Segment 0 is based at 1,
// reserving absolute address 0 as a sentinel.
func SegmentBases(m *Memory) []uint64 {
	bases := make([]uint64, m.NumSegments())
	next := uint64(1)
	for i := range bases {
		bases[i] = next
		next += m.Size(i)
	}
	return bases
}

// RelocateValue rewrites a relocatable address to the field element
// base + offset; field elements pass through unchanged. An address in a
// segment with no assigned base cannot be relocated.
func RelocateValue(v Value, bases []uint64) (fp.Element, error) {
	if rel, ok := v.Relocatable(); ok {
		if rel.SegmentIndex < 0 || rel.SegmentIndex >= len(bases) {
			return fp.Element{}, Errorf(ErrUnrelocatableReference,
				"address %s refers to a segment with no assigned base", rel)
		}
		var el fp.Element
		el.SetUint64(bases[rel.SegmentIndex] + rel.Offset)
		return el, nil
	}
	felt, _ := v.Felt()
	return felt, nil
}

// RelocateMemory flattens the segmented memory into one absolute address
// space. The result is indexed by absolute address; index 0 is the reserved
// sentinel and unwritten cells stay nil.
func RelocateMemory(m *Memory) ([]*fp.Element, error) {
	bases := SegmentBases(m)
	total := uint64(1)
	for i := range bases {
		total += m.Size(i)
	}

	flat := make([]*fp.Element, total)
	for segment := 0; segment < m.NumSegments(); segment++ {
		for offset := uint64(0); offset < m.Size(segment); offset++ {
			v, ok := m.Get(Relocatable{SegmentIndex: segment, Offset: offset})
			if !ok {
				continue
			}
			felt, err := RelocateValue(v, bases)
			if err != nil {
				return nil, err
			}
			flat[bases[segment]+offset] = &felt
		}
	}
	return flat, nil
}

// RelocateTrace rewrites every register snapshot into the flat address
// space.
func RelocateTrace(trace []TraceEntry, bases []uint64) ([]RelocatedTraceEntry, error) {
	relocated := make([]RelocatedTraceEntry, len(trace))
	for i, entry := range trace {
		for _, reg := range []struct {
			addr Relocatable
			out  *uint64
		}{
			{entry.Pc, &relocated[i].Pc},
			{entry.Ap, &relocated[i].Ap},
			{entry.Fp, &relocated[i].Fp},
		} {
			if reg.addr.SegmentIndex < 0 || reg.addr.SegmentIndex >= len(bases) {
				return nil, Errorf(ErrUnrelocatableReference,
					"trace entry %d register %s refers to a segment with no assigned base", i, reg.addr)
			}
			*reg.out = bases[reg.addr.SegmentIndex] + reg.addr.Offset
		}
	}
	return relocated, nil
}
