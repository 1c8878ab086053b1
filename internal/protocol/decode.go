package protocol

import (
	"fmt"

	"fnirsi_ps"
)

// Kind identifies the layout of an inbound fragment.
type Kind int

const (
	// KindTelemetry carries live output readings:
	// voltage(4) current(4) power(4) reserved(1) temperature(3) mode(1) cause(1) output(1).
	KindTelemetry Kind = iota
	// KindLimits carries the protection settings:
	// ovp(4) ocp(4) opp(4-5) ohpEnable(1) hours(2) minutes(2) seconds(2).
	KindLimits
	// KindTarget carries the programmed set-points:
	// targetVoltage(4) targetCurrent(4).
	KindTarget
)

func (k Kind) String() string {
	switch k {
	case KindTelemetry:
		return "telemetry"
	case KindLimits:
		return "limits"
	case KindTarget:
		return "target"
	}
	return "unknown"
}

// Field digit widths per fragment kind. Every field is terminated by 'A'.
// The DC6006L emits these fragments interleaved on one stream instead of a
// single fixed status message, so extraction has to pattern-match.
var (
	telemetryWidths = []int{4, 4, 4, 1, 3, 1, 1, 1}
	limitsWidths    = [][]int{
		{4, 4, 4, 1, 2, 2, 2},
		{4, 4, 5, 1, 2, 2, 2}, // opp overflows to five digits above 999.9 W
	}
	targetWidths = []int{4, 4}
)

var causeNames = []string{
	fnirsi_ps.CauseNone, fnirsi_ps.CauseOVP, fnirsi_ps.CauseOCP,
	fnirsi_ps.CauseOPP, fnirsi_ps.CauseOTP, fnirsi_ps.CauseOHP,
}

// Update is the decoded content of one fragment. Only the fields of its Kind
// are meaningful.
type Update struct {
	Kind Kind

	// telemetry
	Voltage      float64
	Current      float64
	Power        float64
	TemperatureC int
	Mode         string
	Cause        string
	Output       bool

	// limits
	OVP        float64
	OCP        float64
	OPP        float64
	OHPEnabled bool
	OHPSeconds int

	// target
	TargetVoltage float64
	TargetCurrent float64
}

// Apply merges the fragment's fields into a record, leaving the rest alone.
func (u Update) Apply(r *fnirsi_ps.StatusRecord) {
	switch u.Kind {
	case KindTelemetry:
		r.Voltage = u.Voltage
		r.Current = u.Current
		r.Power = u.Power
		r.TemperatureC = u.TemperatureC
		r.Mode = u.Mode
		r.Cause = u.Cause
		r.Output = u.Output
	case KindLimits:
		r.OVP = u.OVP
		r.OCP = u.OCP
		r.OPP = u.OPP
		r.OHPEnabled = u.OHPEnabled
		r.OHPSeconds = u.OHPSeconds
	case KindTarget:
		r.TargetVoltage = u.TargetVoltage
		r.TargetCurrent = u.TargetCurrent
	}
}

// FieldValue reports the value this fragment carries for a settable field,
// if any. Voltage and current set-points are read back from the target
// fragment; the protection limits from the limits fragment.
func (u Update) FieldValue(f Field) (float64, bool) {
	switch {
	case u.Kind == KindTarget && f == FieldVoltage:
		return u.TargetVoltage, true
	case u.Kind == KindTarget && f == FieldCurrent:
		return u.TargetCurrent, true
	case u.Kind == KindLimits && f == FieldOVP:
		return u.OVP, true
	case u.Kind == KindLimits && f == FieldOCP:
		return u.OCP, true
	case u.Kind == KindLimits && f == FieldOPP:
		return u.OPP, true
	case u.Kind == KindLimits && f == FieldOHP:
		return float64(u.OHPSeconds), true
	}
	return 0, false
}

// Extract scans a receive buffer for the first complete fragment and returns
// its bytes, kind, and the unconsumed remainder. Telemetry fragments may be
// preceded by garbage (the KB/MB connection prefix, or the tail of a frame
// that was cut when logging started); that garbage is skipped, but only for
// telemetry, matching the device's observed behavior.
//
// ok is false when the buffer holds no complete fragment yet; the caller
// should read more bytes and retry.
func Extract(buf []byte) (frag []byte, kind Kind, rest []byte, ok bool) {
	if n, matched := matchAt(buf, telemetryWidths); matched {
		return buf[:n], KindTelemetry, buf[n:], true
	}
	for _, widths := range limitsWidths {
		if n, matched := matchAt(buf, widths); matched {
			return buf[:n], KindLimits, buf[n:], true
		}
	}
	if n, matched := matchAt(buf, targetWidths); matched {
		return buf[:n], KindTarget, buf[n:], true
	}
	for i := 1; i < len(buf); i++ {
		if n, matched := matchAt(buf[i:], telemetryWidths); matched {
			return buf[i : i+n], KindTelemetry, buf[i+n:], true
		}
	}
	return nil, 0, buf, false
}

// Decode parses one extracted fragment into an Update. A fragment whose
// length or field layout does not match its kind fails with a
// MalformedFrameError; with no checksum on the wire there is no
// retransmission to fall back on, so the error is surfaced, never ignored.
func Decode(kind Kind, frag []byte) (Update, error) {
	switch kind {
	case KindTelemetry:
		f, err := parseFields(kind, frag, telemetryWidths)
		if err != nil {
			return Update{}, err
		}
		if f[6] >= len(causeNames) {
			return Update{}, &MalformedFrameError{
				Kind:   kind.String(),
				Length: len(frag),
				Reason: fmt.Sprintf("protection cause %d out of range", f[6]),
			}
		}
		mode := fnirsi_ps.ModeCC
		if f[5] == 0 {
			mode = fnirsi_ps.ModeCV
		}
		return Update{
			Kind:         kind,
			Voltage:      float64(f[0]) / 100,
			Current:      float64(f[1]) / 1000,
			Power:        float64(f[2]) / 100,
			TemperatureC: f[4],
			Mode:         mode,
			Cause:        causeNames[f[6]],
			Output:       f[7] != 0,
		}, nil

	case KindLimits:
		var f []int
		var err error
		for _, widths := range limitsWidths {
			if f, err = parseFields(kind, frag, widths); err == nil {
				break
			}
		}
		if err != nil {
			return Update{}, err
		}
		return Update{
			Kind:       kind,
			OVP:        float64(f[0]) / 100,
			OCP:        float64(f[1]) / 1000,
			OPP:        float64(f[2]) / 10,
			OHPEnabled: f[3] != 0,
			OHPSeconds: f[4]*3600 + f[5]*60 + f[6],
		}, nil

	case KindTarget:
		f, err := parseFields(kind, frag, targetWidths)
		if err != nil {
			return Update{}, err
		}
		return Update{
			Kind:          kind,
			TargetVoltage: float64(f[0]) / 100,
			TargetCurrent: float64(f[1]) / 1000,
		}, nil
	}
	return Update{}, &MalformedFrameError{Kind: kind.String(), Length: len(frag), Reason: "unknown fragment kind"}
}

// matchAt reports whether buf begins with a complete fragment of the given
// field widths, and how many bytes it spans.
func matchAt(buf []byte, widths []int) (n int, ok bool) {
	pos := 0
	for _, w := range widths {
		if pos+w+1 > len(buf) {
			return 0, false
		}
		for i := 0; i < w; i++ {
			if buf[pos+i] < '0' || buf[pos+i] > '9' {
				return 0, false
			}
		}
		if buf[pos+w] != 'A' {
			return 0, false
		}
		pos += w + 1
	}
	return pos, true
}

// parseFields validates the exact shape of a fragment and returns its
// decimal fields.
func parseFields(kind Kind, frag []byte, widths []int) ([]int, error) {
	n, ok := matchAt(frag, widths)
	if !ok {
		return nil, &MalformedFrameError{
			Kind:   kind.String(),
			Length: len(frag),
			Reason: fmt.Sprintf("expected %d fixed-width fields", len(widths)),
		}
	}
	if n != len(frag) {
		return nil, &MalformedFrameError{
			Kind:   kind.String(),
			Length: len(frag),
			Reason: fmt.Sprintf("expected %d bytes", n),
		}
	}

	fields := make([]int, 0, len(widths))
	pos := 0
	for _, w := range widths {
		v := 0
		for i := 0; i < w; i++ {
			v = v*10 + int(frag[pos+i]-'0')
		}
		fields = append(fields, v)
		pos += w + 1
	}
	return fields, nil
}
