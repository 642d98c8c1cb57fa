// Package oriac provides the public API of the oriac execution engine: a
// CPU for a stack-and-frame virtual machine whose instruction set and memory
// model are designed to be provable in a zero-knowledge proof system.
//
// # What a run produces
//
// Executing a compiled program yields the final outcome (success or a
// precise failure kind) and the full register/memory trace a proof pipeline
// consumes: one (pc, ap, fp) snapshot per executed step plus the flattened,
// relocated memory.
//
// # Quick start
//
// Loading and running a compiled program artifact:
//
//	prog, err := oriac.LoadProgram("fibonacci.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := oriac.Run(prog, oriac.RunConfig{MaxSteps: 1 << 20})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("executed %d steps\n", result.Steps)
//
// The relocated trace and memory in the result are ready for serialization;
// see the runner package's writers for the binary layouts.
//
// # Determinism
//
// A run is fully deterministic given the program, entrypoint, step budget
// and injected hint outputs. The engine is single-threaded: the trace
// depends on exact step ordering, so steps never run concurrently.
package oriac
