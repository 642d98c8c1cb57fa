package vm

// RunContext holds the three machine registers. pc points into the program
// segment, ap and fp into the working-memory segment. The step machine
// threads the context through explicitly; there is no shared global state.
type RunContext struct {
	Pc Relocatable
	Ap Relocatable
	Fp Relocatable
}

func (ctx *RunContext) baseRegister(reg Register) Relocatable {
	if reg == RegisterFP {
		return ctx.Fp
	}
	return ctx.Ap
}

// DstAddr computes the destination address: dst register + off0
func (ctx *RunContext) DstAddr(inst *Instruction) (Relocatable, error) {
	return ctx.baseRegister(inst.DstRegister).AddOffset(int64(inst.Off0))
}

// Op0Addr computes the first operand address: op0 register + off1
func (ctx *RunContext) Op0Addr(inst *Instruction) (Relocatable, error) {
	return ctx.baseRegister(inst.Op0Register).AddOffset(int64(inst.Off1))
}

// Op1Addr computes the second operand address. For an immediate it is the
// cell after the instruction word; for the derived source it dereferences the
// first operand value, which must itself be an address.
func (ctx *RunContext) Op1Addr(inst *Instruction, op0 *Value) (Relocatable, error) {
	switch inst.Op1Src {
	case Op1SrcImm:
		return ctx.Pc.AddOffset(int64(inst.Off2))
	case Op1SrcFP:
		return ctx.Fp.AddOffset(int64(inst.Off2))
	case Op1SrcAP:
		return ctx.Ap.AddOffset(int64(inst.Off2))
	default:
		if op0 == nil {
			return Relocatable{}, Errorf(ErrInvalidAddress,
				"op1 derives from an unavailable op0 at pc %s", ctx.Pc)
		}
		base, ok := op0.Relocatable()
		if !ok {
			return Relocatable{}, Errorf(ErrInvalidAddress,
				"op1 derives from non-address op0 value %s", op0)
		}
		return base.AddOffset(int64(inst.Off2))
	}
}
