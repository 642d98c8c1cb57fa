package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestVM loads program into a fresh segment 0, allocates segment 1 as
// working memory and parks all three registers there.
func newTestVM(t *testing.T, program []Value, ap, fp uint64) *VirtualMachine {
	t.Helper()
	m := NewMemory()
	progSeg := m.AllocateSegment()
	m.AllocateSegment()
	_, err := m.LoadData(NewRelocatable(progSeg, 0), program)
	require.NoError(t, err)
	ctx := RunContext{
		Pc: NewRelocatable(0, 0),
		Ap: NewRelocatable(1, ap),
		Fp: NewRelocatable(1, fp),
	}
	return NewVirtualMachine(m, ctx, nil, nil)
}

func TestStepAssertEq(t *testing.T) {
	t.Run("ImmediateWritesDst", func(t *testing.T) {
		// [ap] = 5; ap++
		vm := newTestVM(t, []Value{NewIntValue(0x480680017fff8000), NewIntValue(5)}, 0, 0)
		require.NoError(t, vm.Step())

		got, err := vm.Memory.Read(NewRelocatable(1, 0))
		require.NoError(t, err)
		require.True(t, got.Equal(NewIntValue(5)))

		require.Equal(t, NewRelocatable(0, 2), vm.RunContext.Pc)
		require.Equal(t, NewRelocatable(1, 1), vm.RunContext.Ap)
		require.Equal(t, NewRelocatable(1, 0), vm.RunContext.Fp)
		require.Equal(t, uint64(1), vm.CurrentStep)

		// The trace holds the registers as they were before the update.
		require.Len(t, vm.Trace, 1)
		require.Equal(t, TraceEntry{
			Pc: NewRelocatable(0, 0),
			Ap: NewRelocatable(1, 0),
			Fp: NewRelocatable(1, 0),
		}, vm.Trace[0])
	})

	t.Run("SumDeducesDst", func(t *testing.T) {
		// [ap] = [ap-2] + [ap-1]; ap++
		vm := newTestVM(t, []Value{NewIntValue(0x48307fff7ffe8000)}, 2, 2)
		require.NoError(t, vm.Memory.Write(NewRelocatable(1, 0), NewIntValue(2)))
		require.NoError(t, vm.Memory.Write(NewRelocatable(1, 1), NewIntValue(3)))
		require.NoError(t, vm.Step())

		got, err := vm.Memory.Read(NewRelocatable(1, 2))
		require.NoError(t, err)
		require.True(t, got.Equal(NewIntValue(5)))
	})

	t.Run("ExistingMatchingDst", func(t *testing.T) {
		vm := newTestVM(t, []Value{NewIntValue(0x48307fff7ffe8000)}, 2, 2)
		require.NoError(t, vm.Memory.Write(NewRelocatable(1, 0), NewIntValue(2)))
		require.NoError(t, vm.Memory.Write(NewRelocatable(1, 1), NewIntValue(3)))
		require.NoError(t, vm.Memory.Write(NewRelocatable(1, 2), NewIntValue(5)))
		require.NoError(t, vm.Step())
	})

	t.Run("ExistingMismatchedDst", func(t *testing.T) {
		vm := newTestVM(t, []Value{NewIntValue(0x48307fff7ffe8000)}, 2, 2)
		require.NoError(t, vm.Memory.Write(NewRelocatable(1, 0), NewIntValue(2)))
		require.NoError(t, vm.Memory.Write(NewRelocatable(1, 1), NewIntValue(3)))
		require.NoError(t, vm.Memory.Write(NewRelocatable(1, 2), NewIntValue(9)))
		err := vm.Step()
		require.Equal(t, ErrDiffAssertValues, CodeOf(err))
	})
}

func TestStepCall(t *testing.T) {
	// call rel 4
	vm := newTestVM(t, []Value{NewIntValue(0x1104800180018000), NewIntValue(4)}, 2, 2)
	require.NoError(t, vm.Step())

	// [ap] holds the caller frame pointer, [ap+1] the return pc.
	savedFp, err := vm.Memory.Read(NewRelocatable(1, 2))
	require.NoError(t, err)
	require.True(t, savedFp.Equal(NewRelocatableValue(NewRelocatable(1, 2))))

	retPc, err := vm.Memory.Read(NewRelocatable(1, 3))
	require.NoError(t, err)
	require.True(t, retPc.Equal(NewRelocatableValue(NewRelocatable(0, 2))))

	require.Equal(t, NewRelocatable(0, 4), vm.RunContext.Pc)
	require.Equal(t, NewRelocatable(1, 4), vm.RunContext.Ap)
	require.Equal(t, NewRelocatable(1, 4), vm.RunContext.Fp)
}

func TestStepRet(t *testing.T) {
	vm := newTestVM(t, []Value{NewIntValue(0x208b7fff7fff7ffe)}, 2, 2)
	// The frame below fp holds the caller fp and the return pc.
	require.NoError(t, vm.Memory.Write(NewRelocatable(1, 0),
		NewRelocatableValue(NewRelocatable(2, 0))))
	require.NoError(t, vm.Memory.Write(NewRelocatable(1, 1),
		NewRelocatableValue(NewRelocatable(0, 7))))
	require.NoError(t, vm.Step())

	require.Equal(t, NewRelocatable(0, 7), vm.RunContext.Pc)
	require.Equal(t, NewRelocatable(2, 0), vm.RunContext.Fp)
	require.Equal(t, NewRelocatable(1, 2), vm.RunContext.Ap)
}

func TestStepJnz(t *testing.T) {
	program := []Value{NewIntValue(0x020680017fff8000), NewIntValue(3)}

	t.Run("ZeroFallsThrough", func(t *testing.T) {
		vm := newTestVM(t, program, 0, 0)
		require.NoError(t, vm.Memory.Write(NewRelocatable(1, 0), NewIntValue(0)))
		require.NoError(t, vm.Step())
		require.Equal(t, NewRelocatable(0, 2), vm.RunContext.Pc)
	})

	t.Run("NonZeroTakesBranch", func(t *testing.T) {
		vm := newTestVM(t, program, 0, 0)
		require.NoError(t, vm.Memory.Write(NewRelocatable(1, 0), NewIntValue(5)))
		require.NoError(t, vm.Step())
		require.Equal(t, NewRelocatable(0, 3), vm.RunContext.Pc)
	})

	t.Run("RelocatableDstTakesBranch", func(t *testing.T) {
		// An address is never zero.
		vm := newTestVM(t, program, 0, 0)
		require.NoError(t, vm.Memory.Write(NewRelocatable(1, 0),
			NewRelocatableValue(NewRelocatable(1, 0))))
		require.NoError(t, vm.Step())
		require.Equal(t, NewRelocatable(0, 3), vm.RunContext.Pc)
	})
}

func TestStepErrors(t *testing.T) {
	t.Run("NotAnInstruction", func(t *testing.T) {
		vm := newTestVM(t, []Value{NewRelocatableValue(NewRelocatable(1, 0))}, 0, 0)
		err := vm.Step()
		require.Equal(t, ErrNotAnInstruction, CodeOf(err))
	})

	t.Run("UnsetPc", func(t *testing.T) {
		vm := newTestVM(t, nil, 0, 0)
		err := vm.Step()
		require.Equal(t, ErrUnknownCell, CodeOf(err))
	})

	t.Run("JumpToFelt", func(t *testing.T) {
		// jmp abs imm with a plain felt target
		vm := newTestVM(t, []Value{NewIntValue(0x0084800180008000), NewIntValue(7)}, 0, 0)
		err := vm.Step()
		require.Equal(t, ErrJumpToNonRelocatable, CodeOf(err))
	})

	t.Run("RelativeJumpByAddress", func(t *testing.T) {
		// jmp rel [fp] where [fp] holds an address
		vm := newTestVM(t, []Value{NewIntValue(0x0108800080008000)}, 0, 0)
		require.NoError(t, vm.Memory.Write(NewRelocatable(1, 0),
			NewRelocatableValue(NewRelocatable(2, 0))))
		err := vm.Step()
		require.Equal(t, ErrAddRelocatableRelocatable, CodeOf(err))
	})

	t.Run("FailedStepLeavesRegisters", func(t *testing.T) {
		vm := newTestVM(t, nil, 3, 3)
		before := vm.RunContext
		require.Error(t, vm.Step())
		require.Equal(t, before, vm.RunContext)
		require.Zero(t, vm.CurrentStep)
		require.Empty(t, vm.Trace)
	})
}

// recordingHintRunner appends every hint code it sees and can mutate the
// machine like a real hint would.
type recordingHintRunner struct {
	codes []string
	apply func(vm *VirtualMachine) error
}

func (r *recordingHintRunner) RunHint(vm *VirtualMachine, hint Hint) error {
	r.codes = append(r.codes, hint.Code)
	if r.apply != nil {
		return r.apply(vm)
	}
	return nil
}

func TestStepHints(t *testing.T) {
	program := []Value{NewIntValue(0x480680017fff8000), NewIntValue(5)}

	t.Run("RunInOrderBeforeInstruction", func(t *testing.T) {
		runner := &recordingHintRunner{}
		vm := newTestVM(t, program, 0, 0)
		vm.hints = map[Relocatable][]Hint{
			NewRelocatable(0, 0): {{Code: "first"}, {Code: "second"}},
		}
		vm.hintRunner = runner

		require.NoError(t, vm.Step())
		require.Equal(t, []string{"first", "second"}, runner.codes)
		require.Equal(t, uint64(1), vm.CurrentStep)
	})

	t.Run("HintWritesMemory", func(t *testing.T) {
		runner := &recordingHintRunner{apply: func(vm *VirtualMachine) error {
			return vm.Memory.Write(NewRelocatable(1, 5), NewIntValue(77))
		}}
		vm := newTestVM(t, program, 0, 0)
		vm.hints = map[Relocatable][]Hint{NewRelocatable(0, 0): {{Code: "w"}}}
		vm.hintRunner = runner

		require.NoError(t, vm.Step())
		got, err := vm.Memory.Read(NewRelocatable(1, 5))
		require.NoError(t, err)
		require.True(t, got.Equal(NewIntValue(77)))
	})

	t.Run("SkipInstructionExecution", func(t *testing.T) {
		runner := &recordingHintRunner{apply: func(vm *VirtualMachine) error {
			vm.SkipInstructionExecution = true
			return nil
		}}
		vm := newTestVM(t, program, 0, 0)
		vm.hints = map[Relocatable][]Hint{NewRelocatable(0, 0): {{Code: "skip"}}}
		vm.hintRunner = runner

		require.NoError(t, vm.Step())
		require.Equal(t, NewRelocatable(0, 0), vm.RunContext.Pc)
		require.Zero(t, vm.CurrentStep)
		require.False(t, vm.SkipInstructionExecution)
	})

	t.Run("HintErrorAbortsStep", func(t *testing.T) {
		runner := &recordingHintRunner{apply: func(vm *VirtualMachine) error {
			return Errorf(ErrUnknown, "hint exploded")
		}}
		vm := newTestVM(t, program, 0, 0)
		vm.hints = map[Relocatable][]Hint{NewRelocatable(0, 0): {{Code: "boom"}}}
		vm.hintRunner = runner

		require.Error(t, vm.Step())
		require.Equal(t, NewRelocatable(0, 0), vm.RunContext.Pc)
	})
}
