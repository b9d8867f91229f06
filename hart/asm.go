package hart

import (
	"encoding/binary"
)

// Reg is an integer register number.
type Reg uint32

// ABI register names.
const (
	ZERO = Reg(0)
	RA   = Reg(1)
	SP   = Reg(2)
	GP   = Reg(3)
	TP   = Reg(4)
	T0   = Reg(5)
	T1   = Reg(6)
	T2   = Reg(7)
	S0   = Reg(8)
	S1   = Reg(9)
	A0   = Reg(10)
	A1   = Reg(11)
	A2   = Reg(12)
	A3   = Reg(13)
	A4   = Reg(14)
	A5   = Reg(15)
	A6   = Reg(16)
	A7   = Reg(17)
)

// Supervisor CSRs, which user mode may not touch.
const (
	CSR_SSTATUS = 0x100
	CSR_STVEC   = 0x105
	CSR_SEPC    = 0x141
	CSR_SCAUSE  = 0x142
)

func encR(op uint32, rd Reg, f3 uint32, rs1 Reg, rs2 Reg, f7 uint32) uint32 {
	return f7<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | f3<<12 | uint32(rd)<<7 | op
}

func encI(op uint32, rd Reg, f3 uint32, rs1 Reg, imm int32) uint32 {
	return uint32(imm&0xfff)<<20 | uint32(rs1)<<15 | f3<<12 | uint32(rd)<<7 | op
}

func encS(op uint32, f3 uint32, rs1 Reg, rs2 Reg, imm int32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7f)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | f3<<12 | (u&0x1f)<<7 | op
}

func encB(f3 uint32, rs1 Reg, rs2 Reg, offset int32) uint32 {
	u := uint32(offset)
	return (u>>12&1)<<31 | (u>>5&0x3f)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 |
		f3<<12 | (u>>1&0xf)<<8 | (u>>11&1)<<7 | OPCODE_BRANCH
}

func encU(op uint32, rd Reg, imm20 int32) uint32 {
	return uint32(imm20)<<12 | uint32(rd)<<7 | op
}

func LUI(rd Reg, imm20 int32) uint32   { return encU(OPCODE_LUI, rd, imm20) }
func AUIPC(rd Reg, imm20 int32) uint32 { return encU(OPCODE_AUIPC, rd, imm20) }

func ADDI(rd Reg, rs1 Reg, imm int32) uint32  { return encI(OPCODE_OP_IMM, rd, 0, rs1, imm) }
func ADDIW(rd Reg, rs1 Reg, imm int32) uint32 { return encI(OPCODE_OP_IMM32, rd, 0, rs1, imm) }
func XORI(rd Reg, rs1 Reg, imm int32) uint32  { return encI(OPCODE_OP_IMM, rd, 4, rs1, imm) }
func ANDI(rd Reg, rs1 Reg, imm int32) uint32  { return encI(OPCODE_OP_IMM, rd, 7, rs1, imm) }
func SLLI(rd Reg, rs1 Reg, shamt int32) uint32 {
	return encI(OPCODE_OP_IMM, rd, 1, rs1, shamt&0x3f)
}
func SRLI(rd Reg, rs1 Reg, shamt int32) uint32 {
	return encI(OPCODE_OP_IMM, rd, 5, rs1, shamt&0x3f)
}
func SRAI(rd Reg, rs1 Reg, shamt int32) uint32 {
	return encI(OPCODE_OP_IMM, rd, 5, rs1, 0x400|shamt&0x3f)
}

func ADD(rd Reg, rs1 Reg, rs2 Reg) uint32  { return encR(OPCODE_OP, rd, 0, rs1, rs2, 0x00) }
func SUB(rd Reg, rs1 Reg, rs2 Reg) uint32  { return encR(OPCODE_OP, rd, 0, rs1, rs2, 0x20) }
func SLTU(rd Reg, rs1 Reg, rs2 Reg) uint32 { return encR(OPCODE_OP, rd, 3, rs1, rs2, 0x00) }
func MUL(rd Reg, rs1 Reg, rs2 Reg) uint32  { return encR(OPCODE_OP, rd, 0, rs1, rs2, 0x01) }
func DIV(rd Reg, rs1 Reg, rs2 Reg) uint32  { return encR(OPCODE_OP, rd, 4, rs1, rs2, 0x01) }
func REMU(rd Reg, rs1 Reg, rs2 Reg) uint32 { return encR(OPCODE_OP, rd, 7, rs1, rs2, 0x01) }
func SUBW(rd Reg, rs1 Reg, rs2 Reg) uint32 { return encR(OPCODE_OP_32, rd, 0, rs1, rs2, 0x20) }

func LB(rd Reg, rs1 Reg, imm int32) uint32  { return encI(OPCODE_LOAD, rd, 0, rs1, imm) }
func LW(rd Reg, rs1 Reg, imm int32) uint32  { return encI(OPCODE_LOAD, rd, 2, rs1, imm) }
func LD(rd Reg, rs1 Reg, imm int32) uint32  { return encI(OPCODE_LOAD, rd, 3, rs1, imm) }
func LBU(rd Reg, rs1 Reg, imm int32) uint32 { return encI(OPCODE_LOAD, rd, 4, rs1, imm) }

func SB(rs2 Reg, rs1 Reg, imm int32) uint32 { return encS(OPCODE_STORE, 0, rs1, rs2, imm) }
func SW(rs2 Reg, rs1 Reg, imm int32) uint32 { return encS(OPCODE_STORE, 2, rs1, rs2, imm) }
func SD(rs2 Reg, rs1 Reg, imm int32) uint32 { return encS(OPCODE_STORE, 3, rs1, rs2, imm) }

func BEQ(rs1 Reg, rs2 Reg, offset int32) uint32  { return encB(0, rs1, rs2, offset) }
func BNE(rs1 Reg, rs2 Reg, offset int32) uint32  { return encB(1, rs1, rs2, offset) }
func BLT(rs1 Reg, rs2 Reg, offset int32) uint32  { return encB(4, rs1, rs2, offset) }
func BLTU(rs1 Reg, rs2 Reg, offset int32) uint32 { return encB(6, rs1, rs2, offset) }

// JAL jumps offset bytes from the instruction.
func JAL(rd Reg, offset int32) uint32 {
	u := uint32(offset)
	return (u>>20&1)<<31 | (u>>1&0x3ff)<<21 | (u>>11&1)<<20 | (u>>12&0xff)<<12 |
		uint32(rd)<<7 | OPCODE_JAL
}

func JALR(rd Reg, rs1 Reg, imm int32) uint32 { return encI(OPCODE_JALR, rd, 0, rs1, imm) }

func NOP() uint32    { return ADDI(ZERO, ZERO, 0) }
func FENCE() uint32  { return encI(OPCODE_MISC_MEM, 0, 0, 0, 0x0ff) }
func FENCEI() uint32 { return encI(OPCODE_MISC_MEM, 0, 1, 0, 0) }
func ECALL() uint32  { return INST_ECALL }
func EBREAK() uint32 { return INST_EBREAK }
func SRET() uint32   { return 0x1020_0073 }
func WFI() uint32    { return 0x1050_0073 }

func encCsr(f3 uint32, rd Reg, csr uint32, rs1 Reg) uint32 {
	return (csr&0xfff)<<20 | uint32(rs1)<<15 | f3<<12 | uint32(rd)<<7 | OPCODE_SYSTEM
}

func CSRRW(rd Reg, csr uint32, rs1 Reg) uint32 { return encCsr(1, rd, csr, rs1) }
func CSRRS(rd Reg, csr uint32, rs1 Reg) uint32 { return encCsr(2, rd, csr, rs1) }

// LI loads a 32-bit signed constant.
func LI(rd Reg, value int32) (insts []uint32) {
	if value >= -2048 && value < 2048 {
		return []uint32{ADDI(rd, ZERO, value)}
	}

	hi := (value + 0x800) >> 12
	lo := value - hi<<12
	insts = []uint32{LUI(rd, hi&0xfffff)}
	if lo != 0 {
		insts = append(insts, ADDIW(rd, rd, lo))
	}
	return
}

// LA loads the address offset bytes from the first instruction.
func LA(rd Reg, offset int32) []uint32 {
	hi := (offset + 0x800) >> 12
	lo := offset - hi<<12
	return []uint32{AUIPC(rd, hi&0xfffff), ADDI(rd, rd, lo)}
}

// Program is a list of instructions followed by data.
type Program struct {
	Text []uint32
	Data []byte
}

// Emit appends instructions, and returns the offset of the first.
func (p *Program) Emit(insts ...uint32) (offset int32) {
	offset = p.Here()
	p.Text = append(p.Text, insts...)
	return
}

// Patch replaces the instructions at offset.
func (p *Program) Patch(offset int32, insts ...uint32) {
	copy(p.Text[offset/4:], insts)
}

// Here returns the offset of the next instruction.
func (p *Program) Here() int32 {
	return int32(len(p.Text) * 4)
}

// Binary returns the flat image: text, then data.
func (p *Program) Binary() (image []byte) {
	for _, inst := range p.Text {
		image = binary.LittleEndian.AppendUint32(image, inst)
	}
	image = append(image, p.Data...)
	return
}

// DataOffset returns the image offset of byte n of the data.
func (p *Program) DataOffset(n int) int32 {
	return p.Here() + int32(n)
}
