package fnirsi_ps

import (
	"fmt"
	"time"
)

// Output modes reported by the supply.
const (
	ModeCV = "CV"
	ModeCC = "CC"
)

// Protection causes reported in the telemetry stream.
const (
	CauseNone = "none"
	CauseOVP  = "OVP"
	CauseOCP  = "OCP"
	CauseOPP  = "OPP"
	CauseOTP  = "OTP"
	CauseOHP  = "OHP"
)

// StatusRecord is a decoded snapshot of the supply. Fields are filled in as
// the device's log fragments arrive; a single fragment never carries all of
// them. Records are ephemeral and never persisted.
type StatusRecord struct {
	Output       bool    `json:"output"`
	Mode         string  `json:"mode,omitempty"`  // CV | CC
	Cause        string  `json:"cause,omitempty"` // none | OVP | OCP | OPP | OTP | OHP
	Voltage      float64 `json:"voltage_v"`
	Current      float64 `json:"current_a"`
	Power        float64 `json:"power_w"`
	TemperatureC int     `json:"temperature_c"`

	OVP        float64 `json:"ovp_v,omitempty"`
	OCP        float64 `json:"ocp_a,omitempty"`
	OPP        float64 `json:"opp_w,omitempty"`
	OHPEnabled bool    `json:"ohp_enabled,omitempty"`
	OHPSeconds int     `json:"ohp_seconds,omitempty"`

	TargetVoltage float64 `json:"target_voltage_v,omitempty"`
	TargetCurrent float64 `json:"target_current_a,omitempty"`

	SampledAt time.Time `json:"sampled_at"`
}

// Tripped reports whether any protection has fired.
func (r StatusRecord) Tripped() bool {
	return r.Cause != "" && r.Cause != CauseNone
}

// OHPClock renders the over-hour timer as h:mm:ss.
func (r StatusRecord) OHPClock() string {
	s := r.OHPSeconds
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
