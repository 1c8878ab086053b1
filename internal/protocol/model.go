package protocol

import "strings"

// Field names a settable quantity with a fixed-point wire encoding.
type Field int

const (
	FieldVoltage Field = iota
	FieldCurrent
	FieldOVP
	FieldOCP
	FieldOPP
	FieldOHP
)

func (f Field) String() string {
	switch f {
	case FieldVoltage:
		return "voltage"
	case FieldCurrent:
		return "current"
	case FieldOVP:
		return "ovp"
	case FieldOCP:
		return "ocp"
	case FieldOPP:
		return "opp"
	case FieldOHP:
		return "ohp"
	}
	return "unknown"
}

// FieldSpec describes how one field is carried on the wire: its opcode
// letter, the fixed-point multiplier, the digit width, and the range the
// device accepts.
type FieldSpec struct {
	Opcode byte
	Scale  float64
	Digits int
	Min    float64
	Max    float64
}

// Model carries the per-variant protocol parameters. The DC6006L and DC-580
// speak the same frame format but differ in stream prefix and accepted
// ranges.
type Model struct {
	Name   string
	Prefix string // emitted once by the device on first connection
	Fields map[Field]FieldSpec
}

// Tolerance is the rounding slack of a field: one least-significant count.
func (m *Model) Tolerance(f Field) float64 {
	return 1 / m.Fields[f].Scale
}

func dc6006l() *Model {
	return &Model{
		Name:   "DC6006L",
		Prefix: "KB",
		Fields: map[Field]FieldSpec{
			FieldVoltage: {Opcode: 'V', Scale: 100, Digits: 4, Min: 0, Max: 60},
			FieldCurrent: {Opcode: 'I', Scale: 1000, Digits: 4, Min: 0, Max: 6},
			FieldOVP:     {Opcode: 'B', Scale: 100, Digits: 4, Min: 0, Max: 61},
			FieldOCP:     {Opcode: 'D', Scale: 1000, Digits: 4, Min: 0, Max: 6.1},
			FieldOPP:     {Opcode: 'E', Scale: 10, Digits: 4, Min: 0, Max: 366},
			// Composite field: encoded as H/M/S frames, 99:59:59 ceiling.
			FieldOHP: {Scale: 1, Digits: 2, Min: 0, Max: 359999},
		},
	}
}

func dc580() *Model {
	m := dc6006l()
	m.Name = "DC580"
	m.Prefix = "MB"
	m.Fields[FieldVoltage] = FieldSpec{Opcode: 'V', Scale: 100, Digits: 4, Min: 0, Max: 58}
	m.Fields[FieldCurrent] = FieldSpec{Opcode: 'I', Scale: 1000, Digits: 4, Min: 0, Max: 5.8}
	m.Fields[FieldOVP] = FieldSpec{Opcode: 'B', Scale: 100, Digits: 4, Min: 0, Max: 59}
	m.Fields[FieldOCP] = FieldSpec{Opcode: 'D', Scale: 1000, Digits: 4, Min: 0, Max: 5.9}
	m.Fields[FieldOPP] = FieldSpec{Opcode: 'E', Scale: 10, Digits: 4, Min: 0, Max: 340}
	return m
}

// ModelFor selects the protocol parameters for a device model string.
// Unrecognized names fall back to the DC6006L parameters.
func ModelFor(name string) *Model {
	s := strings.ToUpper(strings.TrimSpace(name))

	switch {
	case strings.HasPrefix(s, "DC580"), strings.HasPrefix(s, "DC-580"):
		return dc580()
	case strings.HasPrefix(s, "DC6006"), strings.HasPrefix(s, "DC-6006"):
		return dc6006l()
	}
	return dc6006l()
}
