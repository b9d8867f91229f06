package hart

import (
	"encoding/binary"
	"math/bits"

	"github.com/ezrec/ubatch/mem"
	"github.com/ezrec/ubatch/trap"
)

// Major opcodes.
const (
	OPCODE_LOAD     = 0x03
	OPCODE_MISC_MEM = 0x0f
	OPCODE_OP_IMM   = 0x13
	OPCODE_AUIPC    = 0x17
	OPCODE_OP_IMM32 = 0x1b
	OPCODE_STORE    = 0x23
	OPCODE_OP       = 0x33
	OPCODE_LUI      = 0x37
	OPCODE_OP_32    = 0x3b
	OPCODE_BRANCH   = 0x63
	OPCODE_JALR     = 0x67
	OPCODE_JAL      = 0x6f
	OPCODE_SYSTEM   = 0x73
)

// User readable counters.
const (
	CSR_CYCLE   = 0xc00
	CSR_TIME    = 0xc01
	CSR_INSTRET = 0xc02
)

const (
	INST_ECALL  = 0x0000_0073
	INST_EBREAK = 0x0010_0073
)

// Exception is a synchronous trap raised by an instruction.
type Exception struct {
	Cause trap.Cause
	Stval uint64
}

func illegal(inst uint32) *Exception {
	return &Exception{Cause: trap.CAUSE_ILLEGAL_INSTRUCTION, Stval: uint64(inst)}
}

// Instruction fields.
func opcode(inst uint32) uint32 { return inst & 0x7f }
func rd(inst uint32) uint32     { return (inst >> 7) & 0x1f }
func funct3(inst uint32) uint32 { return (inst >> 12) & 0x7 }
func rs1(inst uint32) uint32    { return (inst >> 15) & 0x1f }
func rs2(inst uint32) uint32    { return (inst >> 20) & 0x1f }
func funct7(inst uint32) uint32 { return inst >> 25 }

// Sign extended immediates.
func immI(inst uint32) uint64 { return uint64(int64(int32(inst)) >> 20) }
func immU(inst uint32) uint64 { return uint64(int64(int32(inst & 0xffff_f000))) }

func immS(inst uint32) uint64 {
	return uint64((int64(int32(inst))>>25)<<5) | uint64((inst>>7)&0x1f)
}

func immB(inst uint32) uint64 {
	imm := (int64(int32(inst)) >> 31) << 12
	imm |= int64((inst>>7)&0x1) << 11
	imm |= int64((inst>>25)&0x3f) << 5
	imm |= int64((inst>>8)&0xf) << 1
	return uint64(imm)
}

func immJ(inst uint32) uint64 {
	imm := (int64(int32(inst)) >> 31) << 20
	imm |= int64((inst>>12)&0xff) << 12
	imm |= int64((inst>>20)&0x1) << 11
	imm |= int64((inst>>21)&0x3ff) << 1
	return uint64(imm)
}

func sext32(value uint64) uint64 {
	return uint64(int64(int32(uint32(value))))
}

// execute runs one instruction, and returns the next pc.
func (h *Hart) execute(inst uint32) (next uint64, exc *Exception) {
	pc := h.Pc
	next = pc + 4

	x := &h.X
	a := x[rs1(inst)]
	b := x[rs2(inst)]
	dst := rd(inst)

	switch opcode(inst) {
	case OPCODE_LUI:
		x[dst] = immU(inst)
	case OPCODE_AUIPC:
		x[dst] = pc + immU(inst)
	case OPCODE_JAL:
		target := pc + immJ(inst)
		if (target & 3) != 0 {
			exc = &Exception{Cause: trap.CAUSE_INSTRUCTION_MISALIGNED, Stval: target}
			return
		}
		x[dst] = next
		next = target
	case OPCODE_JALR:
		if funct3(inst) != 0 {
			exc = illegal(inst)
			return
		}
		target := (a + immI(inst)) &^ 1
		if (target & 3) != 0 {
			exc = &Exception{Cause: trap.CAUSE_INSTRUCTION_MISALIGNED, Stval: target}
			return
		}
		x[dst] = next
		next = target
	case OPCODE_BRANCH:
		var taken bool
		switch funct3(inst) {
		case 0: // beq
			taken = a == b
		case 1: // bne
			taken = a != b
		case 4: // blt
			taken = int64(a) < int64(b)
		case 5: // bge
			taken = int64(a) >= int64(b)
		case 6: // bltu
			taken = a < b
		case 7: // bgeu
			taken = a >= b
		default:
			exc = illegal(inst)
			return
		}
		if taken {
			target := pc + immB(inst)
			if (target & 3) != 0 {
				exc = &Exception{Cause: trap.CAUSE_INSTRUCTION_MISALIGNED, Stval: target}
				return
			}
			next = target
		}
	case OPCODE_LOAD:
		exc = h.load(inst, a+immI(inst))
	case OPCODE_STORE:
		exc = h.store(inst, a+immS(inst), b)
	case OPCODE_OP_IMM:
		exc = h.opImm(inst, a)
	case OPCODE_OP_IMM32:
		exc = h.opImm32(inst, a)
	case OPCODE_OP:
		exc = h.op(inst, a, b)
	case OPCODE_OP_32:
		exc = h.op32(inst, a, b)
	case OPCODE_MISC_MEM:
		switch funct3(inst) {
		case 0: // fence
		case 1: // fence.i
			h.flushIcache()
		default:
			exc = illegal(inst)
		}
	case OPCODE_SYSTEM:
		exc = h.system(inst)
	default:
		exc = illegal(inst)
	}

	return
}

// access checks a user mode data access.
func (h *Hart) access(addr uint64, size uint64, perm mem.Perm, cause trap.Cause) (data []byte, exc *Exception) {
	if !h.Memory.Check(addr, size, perm|mem.PERM_U) {
		exc = &Exception{Cause: cause, Stval: addr}
		return
	}

	data, err := h.Memory.Bytes(addr, size)
	if err != nil {
		exc = &Exception{Cause: cause, Stval: addr}
	}

	return
}

func (h *Hart) load(inst uint32, addr uint64) (exc *Exception) {
	var size uint64
	signed := true
	switch funct3(inst) {
	case 0: // lb
		size = 1
	case 1: // lh
		size = 2
	case 2: // lw
		size = 4
	case 3: // ld
		size = 8
	case 4: // lbu
		size, signed = 1, false
	case 5: // lhu
		size, signed = 2, false
	case 6: // lwu
		size, signed = 4, false
	default:
		return illegal(inst)
	}

	data, exc := h.access(addr, size, mem.PERM_R, trap.CAUSE_LOAD_FAULT)
	if exc != nil {
		return
	}

	var value uint64
	switch size {
	case 1:
		value = uint64(data[0])
		if signed {
			value = uint64(int64(int8(data[0])))
		}
	case 2:
		value = uint64(binary.LittleEndian.Uint16(data))
		if signed {
			value = uint64(int64(int16(value)))
		}
	case 4:
		value = uint64(binary.LittleEndian.Uint32(data))
		if signed {
			value = sext32(value)
		}
	case 8:
		value = binary.LittleEndian.Uint64(data)
	}

	h.X[rd(inst)] = value
	return
}

func (h *Hart) store(inst uint32, addr uint64, value uint64) (exc *Exception) {
	var size uint64
	switch funct3(inst) {
	case 0: // sb
		size = 1
	case 1: // sh
		size = 2
	case 2: // sw
		size = 4
	case 3: // sd
		size = 8
	default:
		return illegal(inst)
	}

	data, exc := h.access(addr, size, mem.PERM_W, trap.CAUSE_STORE_FAULT)
	if exc != nil {
		return
	}

	switch size {
	case 1:
		data[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(data, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(data, uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(data, value)
	}

	return
}

func (h *Hart) opImm(inst uint32, a uint64) (exc *Exception) {
	imm := immI(inst)
	shamt := (inst >> 20) & 0x3f
	funct6 := inst >> 26

	var value uint64
	switch funct3(inst) {
	case 0: // addi
		value = a + imm
	case 2: // slti
		if int64(a) < int64(imm) {
			value = 1
		}
	case 3: // sltiu
		if a < imm {
			value = 1
		}
	case 4: // xori
		value = a ^ imm
	case 6: // ori
		value = a | imm
	case 7: // andi
		value = a & imm
	case 1: // slli
		if funct6 != 0 {
			return illegal(inst)
		}
		value = a << shamt
	case 5:
		switch funct6 {
		case 0x00: // srli
			value = a >> shamt
		case 0x10: // srai
			value = uint64(int64(a) >> shamt)
		default:
			return illegal(inst)
		}
	}

	h.X[rd(inst)] = value
	return
}

func (h *Hart) opImm32(inst uint32, a uint64) (exc *Exception) {
	shamt := (inst >> 20) & 0x1f

	var value uint64
	switch funct3(inst) {
	case 0: // addiw
		value = sext32(a + immI(inst))
	case 1: // slliw
		if funct7(inst) != 0 {
			return illegal(inst)
		}
		value = sext32(uint64(uint32(a) << shamt))
	case 5:
		switch funct7(inst) {
		case 0x00: // srliw
			value = sext32(uint64(uint32(a) >> shamt))
		case 0x20: // sraiw
			value = uint64(int64(int32(a) >> shamt))
		default:
			return illegal(inst)
		}
	default:
		return illegal(inst)
	}

	h.X[rd(inst)] = value
	return
}

func (h *Hart) op(inst uint32, a uint64, b uint64) (exc *Exception) {
	var value uint64
	shamt := b & 0x3f

	switch funct7(inst)<<3 | funct3(inst) {
	case 0x00<<3 | 0: // add
		value = a + b
	case 0x20<<3 | 0: // sub
		value = a - b
	case 0x00<<3 | 1: // sll
		value = a << shamt
	case 0x00<<3 | 2: // slt
		if int64(a) < int64(b) {
			value = 1
		}
	case 0x00<<3 | 3: // sltu
		if a < b {
			value = 1
		}
	case 0x00<<3 | 4: // xor
		value = a ^ b
	case 0x00<<3 | 5: // srl
		value = a >> shamt
	case 0x20<<3 | 5: // sra
		value = uint64(int64(a) >> shamt)
	case 0x00<<3 | 6: // or
		value = a | b
	case 0x00<<3 | 7: // and
		value = a & b
	case 0x01<<3 | 0: // mul
		value = a * b
	case 0x01<<3 | 1: // mulh
		value = mulh(int64(a), int64(b))
	case 0x01<<3 | 2: // mulhsu
		value = mulhsu(int64(a), b)
	case 0x01<<3 | 3: // mulhu
		value, _ = bits.Mul64(a, b)
	case 0x01<<3 | 4: // div
		value = uint64(div(int64(a), int64(b)))
	case 0x01<<3 | 5: // divu
		value = ^uint64(0)
		if b != 0 {
			value = a / b
		}
	case 0x01<<3 | 6: // rem
		value = uint64(rem(int64(a), int64(b)))
	case 0x01<<3 | 7: // remu
		value = a
		if b != 0 {
			value = a % b
		}
	default:
		return illegal(inst)
	}

	h.X[rd(inst)] = value
	return
}

func (h *Hart) op32(inst uint32, a uint64, b uint64) (exc *Exception) {
	var value uint64
	a32 := uint32(a)
	b32 := uint32(b)
	shamt := b32 & 0x1f

	switch funct7(inst)<<3 | funct3(inst) {
	case 0x00<<3 | 0: // addw
		value = sext32(uint64(a32 + b32))
	case 0x20<<3 | 0: // subw
		value = sext32(uint64(a32 - b32))
	case 0x00<<3 | 1: // sllw
		value = sext32(uint64(a32 << shamt))
	case 0x00<<3 | 5: // srlw
		value = sext32(uint64(a32 >> shamt))
	case 0x20<<3 | 5: // sraw
		value = uint64(int64(int32(a32) >> shamt))
	case 0x01<<3 | 0: // mulw
		value = sext32(uint64(a32 * b32))
	case 0x01<<3 | 4: // divw
		value = uint64(int64(div32(int32(a32), int32(b32))))
	case 0x01<<3 | 5: // divuw
		q := ^uint32(0)
		if b32 != 0 {
			q = a32 / b32
		}
		value = sext32(uint64(q))
	case 0x01<<3 | 6: // remw
		value = uint64(int64(rem32(int32(a32), int32(b32))))
	case 0x01<<3 | 7: // remuw
		r := a32
		if b32 != 0 {
			r = a32 % b32
		}
		value = sext32(uint64(r))
	default:
		return illegal(inst)
	}

	h.X[rd(inst)] = value
	return
}

// system decodes the SYSTEM opcode. Only ecall, ebreak, and reads of
// the user counters are permitted in user mode.
func (h *Hart) system(inst uint32) (exc *Exception) {
	switch inst {
	case INST_ECALL:
		return &Exception{Cause: trap.CAUSE_USER_ENV_CALL}
	case INST_EBREAK:
		return &Exception{Cause: trap.CAUSE_BREAKPOINT, Stval: h.Pc}
	}

	// csrrs rd, csr, x0
	csr := inst >> 20
	if funct3(inst) == 2 && rs1(inst) == 0 {
		switch csr {
		case CSR_CYCLE, CSR_TIME, CSR_INSTRET:
			h.X[rd(inst)] = uint64(h.Steps)
			return
		}
	}

	return illegal(inst)
}

func mulh(a int64, b int64) uint64 {
	hi, _ := bits.Mul64(uint64(a), uint64(b))
	if a < 0 {
		hi -= uint64(b)
	}
	if b < 0 {
		hi -= uint64(a)
	}
	return hi
}

func mulhsu(a int64, b uint64) uint64 {
	hi, _ := bits.Mul64(uint64(a), b)
	if a < 0 {
		hi -= b
	}
	return hi
}

func div(a int64, b int64) int64 {
	switch {
	case b == 0:
		return -1
	case a == -1<<63 && b == -1:
		return a
	}
	return a / b
}

func rem(a int64, b int64) int64 {
	switch {
	case b == 0:
		return a
	case a == -1<<63 && b == -1:
		return 0
	}
	return a % b
}

func div32(a int32, b int32) int32 {
	switch {
	case b == 0:
		return -1
	case a == -1<<31 && b == -1:
		return a
	}
	return a / b
}

func rem32(a int32, b int32) int32 {
	switch {
	case b == 0:
		return a
	case a == -1<<31 && b == -1:
		return 0
	}
	return a % b
}
