package runner

import (
	"fmt"

	"github.com/oriac/oriac-go/internal/oriac/vm"
)

// BuiltinRunner owns one reserved memory segment and doubles as the
// post-run validator for it. Only the output builtin is implemented here;
// hash and range-proof builtins plug in through the same interface.
type BuiltinRunner interface {
	vm.BuiltinValidator
	// InitializeSegment records the segment reserved for the builtin
	InitializeSegment(segmentIndex int)
}

func newBuiltinRunner(name string) (BuiltinRunner, error) {
	switch name {
	case "output":
		return &OutputRunner{}, nil
	default:
		return nil, fmt.Errorf("no runner for builtin %q", name)
	}
}

// OutputRunner reserves the segment the program writes its public output
// to. Its post-run invariant is that every written cell holds a field
// element; addresses leaking into the output would not survive relocation
// into the public memory.
type OutputRunner struct {
	segmentIndex int
}

// Name identifies the builtin
func (o *OutputRunner) Name() string { return "output" }

// InitializeSegment records the reserved segment
func (o *OutputRunner) InitializeSegment(segmentIndex int) {
	o.segmentIndex = segmentIndex
}

// SegmentIndex returns the reserved segment
func (o *OutputRunner) SegmentIndex() int { return o.segmentIndex }

// Validate checks the output segment holds only field elements
func (o *OutputRunner) Validate(m *vm.Memory, segmentIndex int) error {
	for offset := uint64(0); offset < m.Size(segmentIndex); offset++ {
		value, ok := m.Get(vm.NewRelocatable(segmentIndex, offset))
		if !ok {
			continue
		}
		if value.IsRelocatable() {
			return fmt.Errorf("output cell %d holds address %s", offset, value)
		}
	}
	return nil
}
