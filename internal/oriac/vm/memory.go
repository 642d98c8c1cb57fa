package vm

// Memory is the segmented, relocatable, write-once address space. Segments
// are arena-style growable cell slices created on demand; a nil cell is
// unset. A cell, once written, never changes value: rewriting the same value
// is a no-op, rewriting a different value is a contract violation.
type Memory struct {
	segments [][]*Value
}

// NewMemory creates an empty memory with no segments
func NewMemory() *Memory {
	return &Memory{}
}

// AllocateSegment creates a new, empty segment and returns its index.
// Indices increase monotonically. Never fails.
func (m *Memory) AllocateSegment() int {
	m.segments = append(m.segments, nil)
	return len(m.segments) - 1
}

// NumSegments returns the number of allocated segments
func (m *Memory) NumSegments() int {
	return len(m.segments)
}

// Write stores value at addr. Writing an unset cell succeeds, rewriting the
// same value is idempotent, rewriting a different value fails with
// InconsistentWrite. The segment must have been allocated.
func (m *Memory) Write(addr Relocatable, value Value) error {
	if addr.SegmentIndex < 0 || addr.SegmentIndex >= len(m.segments) {
		return Errorf(ErrInvalidAddress,
			"write to %s references a non-existent segment", addr)
	}
	cells := m.segments[addr.SegmentIndex]
	for uint64(len(cells)) <= addr.Offset {
		cells = append(cells, nil)
	}
	if existing := cells[addr.Offset]; existing != nil {
		if !existing.Equal(value) {
			return Errorf(ErrInconsistentWrite,
				"cell %s holds %s, refusing to overwrite with %s", addr, existing, value)
		}
		return nil
	}
	cells[addr.Offset] = &value
	m.segments[addr.SegmentIndex] = cells
	return nil
}

// Read returns the value at addr, failing with UnknownCell if it was never
// written.
func (m *Memory) Read(addr Relocatable) (Value, error) {
	v, ok := m.Get(addr)
	if !ok {
		return Value{}, Errorf(ErrUnknownCell, "unknown value for memory cell at %s", addr)
	}
	return v, nil
}

// Get returns the value at addr and whether the cell is set. Unlike Read it
// does not treat an unset cell as an error; the step machine uses it for
// assert-equal destination deduction.
func (m *Memory) Get(addr Relocatable) (Value, bool) {
	if addr.SegmentIndex < 0 || addr.SegmentIndex >= len(m.segments) {
		return Value{}, false
	}
	cells := m.segments[addr.SegmentIndex]
	if addr.Offset >= uint64(len(cells)) || cells[addr.Offset] == nil {
		return Value{}, false
	}
	return *cells[addr.Offset], true
}

// Size returns the highest written offset + 1 for the segment, or 0 if the
// segment is empty or was never allocated.
func (m *Memory) Size(segmentIndex int) uint64 {
	if segmentIndex < 0 || segmentIndex >= len(m.segments) {
		return 0
	}
	return uint64(len(m.segments[segmentIndex]))
}

// LoadData writes data starting at ptr and returns the first address after
// the written range.
func (m *Memory) LoadData(ptr Relocatable, data []Value) (Relocatable, error) {
	for i, v := range data {
		addr := Relocatable{SegmentIndex: ptr.SegmentIndex, Offset: ptr.Offset + uint64(i)}
		if err := m.Write(addr, v); err != nil {
			return Relocatable{}, err
		}
	}
	return Relocatable{SegmentIndex: ptr.SegmentIndex, Offset: ptr.Offset + uint64(len(data))}, nil
}
