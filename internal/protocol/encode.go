package protocol

import (
	"fmt"
	"math"
)

// Frame is one complete outbound message, terminator included.
type Frame []byte

const frameTerminator = "\r\n"

// Encode renders a command into its wire frames for the given model.
// Arguments are range-checked first; on failure nothing is produced.
//
// Most commands map to a single frame. OpSetOHP is the exception: the device
// takes the over-hour limit as separate hour/minute/second frames, so one
// command yields three.
func Encode(m *Model, c Command) ([]Frame, error) {
	switch c.Op {
	case OpOutputOn:
		return bare(opcodeOutputOn), nil
	case OpOutputOff:
		return bare(opcodeOutputOff), nil
	case OpLoggingOn:
		return bare(opcodeLoggingOn), nil
	case OpLoggingOff:
		return bare(opcodeLoggingOff), nil
	case OpProtectOff:
		return bare(opcodeProtectOff), nil
	case OpOHPEnable:
		return bare(opcodeOHPEnable), nil
	case OpOHPDisable:
		return bare(opcodeOHPDisable), nil
	case OpMemoryM1:
		return bare(opcodeMemoryM1), nil
	case OpMemoryM2:
		return bare(opcodeMemoryM2), nil
	case OpSetVoltage:
		return scaled(m, FieldVoltage, c.Arg)
	case OpSetCurrent:
		return scaled(m, FieldCurrent, c.Arg)
	case OpSetOVP:
		return scaled(m, FieldOVP, c.Arg)
	case OpSetOCP:
		return scaled(m, FieldOCP, c.Arg)
	case OpSetOPP:
		return scaled(m, FieldOPP, c.Arg)
	case OpSetOHP:
		return overHour(m, c.Arg)
	case OpRaw:
		return []Frame{Frame(c.Text + frameTerminator)}, nil
	}
	return nil, fmt.Errorf("unsupported operation %v", c.Op)
}

func bare(opcode byte) []Frame {
	return []Frame{Frame(string(opcode) + frameTerminator)}
}

// scaled renders one fixed-point setting frame: opcode letter plus the value
// multiplied by the field scale, zero-padded to the field width.
func scaled(m *Model, f Field, value float64) ([]Frame, error) {
	spec, err := checkRange(m, f, value)
	if err != nil {
		return nil, err
	}
	n := int(math.Round(value * spec.Scale))
	frame := fmt.Sprintf("%c%0*d%s", spec.Opcode, spec.Digits, n, frameTerminator)
	return []Frame{Frame(frame)}, nil
}

// overHour splits a second count into the H/M/S frame triple.
func overHour(m *Model, seconds float64) ([]Frame, error) {
	if _, err := checkRange(m, FieldOHP, seconds); err != nil {
		return nil, err
	}
	s := int(math.Round(seconds))
	return []Frame{
		Frame(fmt.Sprintf("%c%02d%s", opcodeOHPHours, s/3600, frameTerminator)),
		Frame(fmt.Sprintf("%c%02d%s", opcodeOHPMinutes, (s%3600)/60, frameTerminator)),
		Frame(fmt.Sprintf("%c%02d%s", opcodeOHPSeconds, s%60, frameTerminator)),
	}, nil
}

func checkRange(m *Model, f Field, value float64) (FieldSpec, error) {
	spec := m.Fields[f]
	if value < spec.Min || value > spec.Max {
		return FieldSpec{}, &ValidationError{Field: f.String(), Value: value, Min: spec.Min, Max: spec.Max}
	}
	return spec, nil
}
