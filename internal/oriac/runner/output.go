package runner

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/sha3"

	"github.com/oriac/oriac-go/internal/oriac/vm"
)

// OutputFormat selects the encoding of the emitted trace/memory artifacts
type OutputFormat string

const (
	// FormatBinary is the little-endian binary layout the proof pipeline
	// consumes directly
	FormatBinary OutputFormat = "binary"
	// FormatCBOR is a self-describing encoding for tooling that prefers it
	FormatCBOR OutputFormat = "cbor"
)

// WriteTrace encodes the relocated trace. The binary layout is one little-
// endian u64 triple (ap, fp, pc) per executed step.
func WriteTrace(w io.Writer, trace []vm.RelocatedTraceEntry, format OutputFormat) error {
	switch format {
	case FormatBinary:
		buf := make([]byte, 24)
		for _, entry := range trace {
			binary.LittleEndian.PutUint64(buf[0:8], entry.Ap)
			binary.LittleEndian.PutUint64(buf[8:16], entry.Fp)
			binary.LittleEndian.PutUint64(buf[16:24], entry.Pc)
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("failed to write trace entry: %w", err)
			}
		}
		return nil
	case FormatCBOR:
		type cborEntry struct {
			Ap uint64 `cbor:"ap"`
			Fp uint64 `cbor:"fp"`
			Pc uint64 `cbor:"pc"`
		}
		entries := make([]cborEntry, len(trace))
		for i, entry := range trace {
			entries[i] = cborEntry{Ap: entry.Ap, Fp: entry.Fp, Pc: entry.Pc}
		}
		return cbor.NewEncoder(w).Encode(entries)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteMemory encodes the relocated memory, skipping holes. The binary
// layout is a little-endian u64 absolute address followed by the 32-byte
// little-endian field element.
func WriteMemory(w io.Writer, memory []*fp.Element, format OutputFormat) error {
	switch format {
	case FormatBinary:
		buf := make([]byte, 8+fp.Bytes)
		for addr, value := range memory {
			if value == nil {
				continue
			}
			binary.LittleEndian.PutUint64(buf[:8], uint64(addr))
			be := value.Bytes()
			for i := 0; i < fp.Bytes; i++ {
				buf[8+i] = be[fp.Bytes-1-i]
			}
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("failed to write memory cell: %w", err)
			}
		}
		return nil
	case FormatCBOR:
		cells := make(map[uint64]string, len(memory))
		for addr, value := range memory {
			if value == nil {
				continue
			}
			cells[uint64(addr)] = "0x" + value.Text(16)
		}
		return cbor.NewEncoder(w).Encode(cells)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// ArtifactDigest returns the sha3-256 digest of an emitted artifact,
// reported on success so a proof pipeline can pin its inputs.
func ArtifactDigest(data []byte) [32]byte {
	return sha3.Sum256(data)
}
