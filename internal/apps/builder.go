package apps

import (
	"github.com/ezrec/ubatch/hart"
	"github.com/ezrec/ubatch/syscall"
)

// message is a string whose address is loaded by the instructions at
// offset once the text size is known.
type message struct {
	rd     hart.Reg
	offset int32
	data   int
}

type builder struct {
	hart.Program
	messages []message
}

// la loads the address of text into rd.
func (b *builder) la(rd hart.Reg, text string) {
	offset := b.Emit(hart.NOP(), hart.NOP())
	b.messages = append(b.messages, message{rd: rd, offset: offset, data: len(b.Data)})
	b.Data = append(b.Data, text...)
	b.Data = append(b.Data, 0)
}

// print writes text to standard output.
func (b *builder) print(text string) {
	b.la(hart.A1, text)
	b.Emit(hart.LI(hart.A0, syscall.FD_STDOUT)...)
	b.Emit(hart.LI(hart.A2, int32(len(text)))...)
	b.Emit(hart.LI(hart.A7, syscall.SYSCALL_WRITE)...)
	b.Emit(hart.ECALL())
}

// exit ends the application with code.
func (b *builder) exit(code int32) {
	b.Emit(hart.LI(hart.A0, code)...)
	b.Emit(hart.LI(hart.A7, syscall.SYSCALL_EXIT)...)
	b.Emit(hart.ECALL())
}

// binary resolves the message addresses and returns the image.
func (b *builder) binary() []byte {
	for _, msg := range b.messages {
		b.Patch(msg.offset, hart.LA(msg.rd, b.DataOffset(msg.data)-msg.offset)...)
	}
	return b.Binary()
}
