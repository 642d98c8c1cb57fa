package vm

import (
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// Instruction word layout, low to high bits: three 16-bit offsets biased by
// 2^15, then 15 flag bits. Every bit above the flag range must be zero.
const (
	offsetBits = 16
	offsetBias = 1 << (offsetBits - 1)
	numFlags   = 15

	flagDstRegFP   = 1 << 0
	flagOp0RegFP   = 1 << 1
	flagOp1Imm     = 1 << 2
	flagOp1FP      = 1 << 3
	flagOp1AP      = 1 << 4
	flagResAdd     = 1 << 5
	flagResMul     = 1 << 6
	flagPcJumpAbs  = 1 << 7
	flagPcJumpRel  = 1 << 8
	flagPcJnz      = 1 << 9
	flagApAdd      = 1 << 10
	flagApAdd1     = 1 << 11
	flagOpcodeCall = 1 << 12
	flagOpcodeRet  = 1 << 13
	flagOpcodeAEq  = 1 << 14
)

// Register selects the base register for an operand address
type Register uint8

const (
	// RegisterAP addresses relative to the allocation pointer
	RegisterAP Register = iota
	// RegisterFP addresses relative to the frame pointer
	RegisterFP
)

// Op1Source selects where the second operand comes from
type Op1Source uint8

const (
	// Op1SrcOp0 derives op1 from the first operand value: op1 = [op0 + off2]
	Op1SrcOp0 Op1Source = iota
	// Op1SrcImm reads op1 from the cell after the instruction: op1 = [pc + 1]
	Op1SrcImm
	// Op1SrcFP reads op1 = [fp + off2]
	Op1SrcFP
	// Op1SrcAP reads op1 = [ap + off2]
	Op1SrcAP
)

// ResLogic selects how the result is composed from the operands
type ResLogic uint8

const (
	// ResOp1 passes the second operand through unchanged
	ResOp1 ResLogic = iota
	// ResAdd is op0 + op1 mod p
	ResAdd
	// ResMul is op0 * op1 mod p
	ResMul
	// ResUnconstrained leaves the result without a value (jnz only)
	ResUnconstrained
)

// PcUpdate selects the next program counter
type PcUpdate uint8

const (
	// PcUpdateRegular advances pc by the instruction size
	PcUpdateRegular PcUpdate = iota
	// PcUpdateJump sets pc to res (jmp abs)
	PcUpdateJump
	// PcUpdateJumpRel advances pc by res (jmp rel)
	PcUpdateJumpRel
	// PcUpdateJnz advances pc by op1 when dst is nonzero, by size otherwise
	PcUpdateJnz
)

// ApUpdate selects the next allocation pointer
type ApUpdate uint8

const (
	// ApUpdateRegular leaves ap unchanged
	ApUpdateRegular ApUpdate = iota
	// ApUpdateAdd advances ap by res
	ApUpdateAdd
	// ApUpdateAdd1 advances ap by one
	ApUpdateAdd1
	// ApUpdateAdd2 advances ap by two (forced by call)
	ApUpdateAdd2
)

// FpUpdate selects the next frame pointer. It is not encoded directly; the
// decoder derives it from the opcode.
type FpUpdate uint8

const (
	// FpUpdateRegular leaves fp unchanged
	FpUpdateRegular FpUpdate = iota
	// FpUpdateApPlus2 sets fp to the old ap + 2 (call)
	FpUpdateApPlus2
	// FpUpdateDst sets fp to the destination value (ret)
	FpUpdateDst
)

// Opcode is the instruction class
type Opcode uint8

const (
	// OpcodeNop constrains no destination
	OpcodeNop Opcode = iota
	// OpcodeAssertEq requires the destination to equal res
	OpcodeAssertEq
	// OpcodeCall saves the return frame and jumps
	OpcodeCall
	// OpcodeRet restores the caller frame
	OpcodeRet
)

// Instruction is the structured form of one 64-bit instruction word.
// Off0 addresses the destination, Off1 the first operand, Off2 the second.
type Instruction struct {
	Off0 int16
	Off1 int16
	Off2 int16

	DstRegister Register
	Op0Register Register
	Op1Src      Op1Source
	Res         ResLogic
	PcUpdate    PcUpdate
	ApUpdate    ApUpdate
	FpUpdate    FpUpdate
	Opcode      Opcode
}

// Size returns the number of memory cells the instruction occupies: 2 when a
// second cell holds the immediate, 1 otherwise.
func (i *Instruction) Size() uint64 {
	if i.Op1Src == Op1SrcImm {
		return 2
	}
	return 1
}

func decodeOffset(v uint64) int16 {
	return int16(int64(v) - offsetBias)
}

// DecodeInstruction interprets one field element as a 64-bit instruction
// word. Decoding is total: every word either yields an Instruction or a
// specific decode/validation error.
func DecodeInstruction(word *fp.Element) (*Instruction, error) {
	if !word.IsUint64() {
		return nil, Errorf(ErrInvalidEncoding,
			"instruction word %s exceeds 64 bits", word.String())
	}
	enc := word.Uint64()
	if enc >= 1<<(3*offsetBits+numFlags) {
		return nil, Errorf(ErrInvalidEncoding,
			"instruction word %#x has bits set beyond the defined fields", enc)
	}

	inst := &Instruction{
		Off0: decodeOffset(enc & (1<<offsetBits - 1)),
		Off1: decodeOffset(enc >> offsetBits & (1<<offsetBits - 1)),
		Off2: decodeOffset(enc >> (2 * offsetBits) & (1<<offsetBits - 1)),
	}
	flags := enc >> (3 * offsetBits)

	if flags&flagDstRegFP != 0 {
		inst.DstRegister = RegisterFP
	}
	if flags&flagOp0RegFP != 0 {
		inst.Op0Register = RegisterFP
	}

	switch flags & (flagOp1Imm | flagOp1FP | flagOp1AP) {
	case 0:
		inst.Op1Src = Op1SrcOp0
	case flagOp1Imm:
		inst.Op1Src = Op1SrcImm
	case flagOp1FP:
		inst.Op1Src = Op1SrcFP
	case flagOp1AP:
		inst.Op1Src = Op1SrcAP
	default:
		return nil, Errorf(ErrInvalidInstruction,
			"instruction %#x selects more than one op1 source", enc)
	}

	switch flags & (flagPcJumpAbs | flagPcJumpRel | flagPcJnz) {
	case 0:
		inst.PcUpdate = PcUpdateRegular
	case flagPcJumpAbs:
		inst.PcUpdate = PcUpdateJump
	case flagPcJumpRel:
		inst.PcUpdate = PcUpdateJumpRel
	case flagPcJnz:
		inst.PcUpdate = PcUpdateJnz
	default:
		return nil, Errorf(ErrInvalidInstruction,
			"instruction %#x selects more than one pc update", enc)
	}

	switch flags & (flagResAdd | flagResMul) {
	case 0:
		if inst.PcUpdate == PcUpdateJnz {
			inst.Res = ResUnconstrained
		} else {
			inst.Res = ResOp1
		}
	case flagResAdd:
		inst.Res = ResAdd
	case flagResMul:
		inst.Res = ResMul
	default:
		return nil, Errorf(ErrInvalidInstruction,
			"instruction %#x selects both sum and product results", enc)
	}

	switch flags & (flagApAdd | flagApAdd1) {
	case 0:
		inst.ApUpdate = ApUpdateRegular
	case flagApAdd:
		inst.ApUpdate = ApUpdateAdd
	case flagApAdd1:
		inst.ApUpdate = ApUpdateAdd1
	default:
		return nil, Errorf(ErrInvalidInstruction,
			"instruction %#x selects more than one ap update", enc)
	}

	switch flags & (flagOpcodeCall | flagOpcodeRet | flagOpcodeAEq) {
	case 0:
		inst.Opcode = OpcodeNop
	case flagOpcodeCall:
		inst.Opcode = OpcodeCall
	case flagOpcodeRet:
		inst.Opcode = OpcodeRet
	case flagOpcodeAEq:
		inst.Opcode = OpcodeAssertEq
	default:
		return nil, Errorf(ErrInvalidInstruction,
			"instruction %#x selects more than one opcode", enc)
	}

	switch inst.Opcode {
	case OpcodeCall:
		// call reserves the ap-update field: the encoded bits must be clear
		// and the update is forced to ap + 2.
		if inst.PcUpdate == PcUpdateJnz {
			return nil, Errorf(ErrInvalidInstruction,
				"instruction %#x combines call with a conditional jump", enc)
		}
		if inst.ApUpdate != ApUpdateRegular {
			return nil, Errorf(ErrInvalidInstruction,
				"instruction %#x encodes an ap update besides the call update", enc)
		}
		inst.ApUpdate = ApUpdateAdd2
		inst.FpUpdate = FpUpdateApPlus2
	case OpcodeRet:
		if inst.DstRegister != RegisterFP || inst.Op1Src != Op1SrcFP {
			return nil, Errorf(ErrInvalidInstruction,
				"instruction %#x is not the canonical ret shape", enc)
		}
		inst.FpUpdate = FpUpdateDst
	case OpcodeAssertEq:
		if inst.Res == ResUnconstrained {
			return nil, Errorf(ErrInvalidInstruction,
				"instruction %#x asserts equality against an unconstrained result", enc)
		}
	}

	if inst.PcUpdate == PcUpdateJnz && inst.Res != ResUnconstrained {
		return nil, Errorf(ErrInvalidInstruction,
			"instruction %#x pairs a conditional jump with a constrained result", enc)
	}
	if inst.ApUpdate == ApUpdateAdd && inst.Res == ResUnconstrained {
		return nil, Errorf(ErrInvalidInstruction,
			"instruction %#x advances ap by an unconstrained result", enc)
	}
	if inst.Op1Src == Op1SrcImm && inst.Off2 != 1 {
		return nil, Errorf(ErrInvalidInstruction,
			"instruction %#x uses an immediate with op1 offset %d, want 1", enc, inst.Off2)
	}

	return inst, nil
}
