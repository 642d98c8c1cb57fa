package vm

// TraceEntry is an immutable snapshot of the registers before an instruction
// was executed. The ordered sequence of entries is the authoritative
// execution record consumed by the proof pipeline.
type TraceEntry struct {
	Pc Relocatable
	Ap Relocatable
	Fp Relocatable
}

// RelocatedTraceEntry is a trace entry after relocation into the flat
// absolute address space.
type RelocatedTraceEntry struct {
	Pc uint64
	Ap uint64
	Fp uint64
}
