package ipc

import "fmt"

// Opcode identifies the purpose of a frame.
type Opcode uint32

// Known opcodes.
const (
	OpHandshake Opcode = 0x0000
	OpFrame     Opcode = 0x0001
	OpClose     Opcode = 0x0002
	OpPing      Opcode = 0x0003
	OpPong      Opcode = 0x0004
)

// ProtocolVersion is the handshake version this client speaks.
const ProtocolVersion uint8 = 1

func (o Opcode) String() string {
	switch o {
	case OpHandshake:
		return "handshake"
	case OpFrame:
		return "frame"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	default:
		return fmt.Sprintf("opcode(%d)", uint32(o))
	}
}
