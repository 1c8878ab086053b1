// Package report formats decoded status records for human or programmatic
// consumption. Formatting is a pure function of the record; the only side
// effect is writing to the injected writer.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"fnirsi_ps"
)

// Reporter writes one line per status record.
type Reporter struct {
	w    io.Writer
	json bool
}

// New builds a reporter targeting w. With asJSON set, records are emitted
// as one JSON object per line instead of the human layout.
func New(w io.Writer, asJSON bool) *Reporter {
	return &Reporter{w: w, json: asJSON}
}

// Report emits a single record.
func (r *Reporter) Report(rec fnirsi_ps.StatusRecord) error {
	if r.json {
		return json.NewEncoder(r.w).Encode(rec)
	}
	_, err := fmt.Fprintln(r.w, FormatLine(rec))
	return err
}

// FormatLine renders the fixed human-readable layout: output state,
// readings, regulation mode, tripped protection, temperature, limits, and
// the over-hour clock.
func FormatLine(rec fnirsi_ps.StatusRecord) string {
	state := "OFF"
	if rec.Output {
		state = "ON"
	}
	mode := rec.Mode
	if mode == "" {
		mode = "--"
	}
	cause := rec.Cause
	if cause == "" {
		cause = fnirsi_ps.CauseNone
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-3s %6.2fV %6.3fA %7.2fW %s cause=%s temp=%dC",
		state, rec.Voltage, rec.Current, rec.Power, mode, cause, rec.TemperatureC)
	fmt.Fprintf(&b, " ovp=%.2f ocp=%.3f opp=%.1f", rec.OVP, rec.OCP, rec.OPP)
	fmt.Fprintf(&b, " ohp=%s", rec.OHPClock())
	if rec.OHPEnabled {
		b.WriteString("*")
	}
	if rec.TargetVoltage != 0 || rec.TargetCurrent != 0 {
		fmt.Fprintf(&b, " set=%.2fV/%.3fA", rec.TargetVoltage, rec.TargetCurrent)
	}
	return b.String()
}
