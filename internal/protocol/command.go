// Package protocol implements the framed command protocol spoken by FNIRSI
// DC power supplies (DC6006L, DC-580) over their USB-serial link.
//
// Outbound frames are ASCII: a single opcode letter, an optional fixed-width
// zero-padded decimal argument, and a CRLF terminator. Inbound data is a
// stream of fixed-width decimal fields, each terminated by 'A', grouped into
// fragments of three known kinds (telemetry, limits, target).
//
// The protocol carries no checksum. The codec therefore cannot tell a
// corrupted frame that still parses from a valid one; integrity, where it
// matters, is obtained by the caller reading values back (double-check mode),
// never by the codec.
package protocol

// Op identifies a protocol operation.
type Op int

const (
	OpOutputOn Op = iota
	OpOutputOff
	OpLoggingOn
	OpLoggingOff
	OpProtectOff
	OpOHPEnable
	OpOHPDisable
	OpMemoryM1
	OpMemoryM2
	OpSetVoltage
	OpSetCurrent
	OpSetOVP
	OpSetOCP
	OpSetOPP
	OpSetOHP
	OpRaw
)

// Single-letter opcodes for the argument-less operations.
const (
	opcodeOutputOn   = 'N'
	opcodeOutputOff  = 'F'
	opcodeLoggingOn  = 'Q'
	opcodeLoggingOff = 'W'
	opcodeProtectOff = 'Z'
	opcodeOHPEnable  = 'X'
	opcodeOHPDisable = 'Y'
	opcodeMemoryM1   = 'O'
	opcodeMemoryM2   = 'P'
)

// OHP hour/minute/second opcodes; a single set-OHP command is carried by
// three frames on the wire.
const (
	opcodeOHPHours   = 'H'
	opcodeOHPMinutes = 'M'
	opcodeOHPSeconds = 'S'
)

// Command is one symbolic operation plus its argument. Immutable once
// constructed; the processor builds exactly one per CLI token.
type Command struct {
	Op  Op
	Arg float64
	// Text carries the payload of an OpRaw passthrough command.
	Text string
}

func (o Op) String() string {
	switch o {
	case OpOutputOn:
		return "output-on"
	case OpOutputOff:
		return "output-off"
	case OpLoggingOn:
		return "logging-on"
	case OpLoggingOff:
		return "logging-off"
	case OpProtectOff:
		return "protect-off"
	case OpOHPEnable:
		return "ohp-enable"
	case OpOHPDisable:
		return "ohp-disable"
	case OpMemoryM1:
		return "memory-m1"
	case OpMemoryM2:
		return "memory-m2"
	case OpSetVoltage:
		return "set-voltage"
	case OpSetCurrent:
		return "set-current"
	case OpSetOVP:
		return "set-ovp"
	case OpSetOCP:
		return "set-ocp"
	case OpSetOPP:
		return "set-opp"
	case OpSetOHP:
		return "set-ohp"
	case OpRaw:
		return "raw"
	}
	return "unknown"
}
