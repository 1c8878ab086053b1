package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fnirsi_ps"
)

func sampleRecord() fnirsi_ps.StatusRecord {
	return fnirsi_ps.StatusRecord{
		Output:        true,
		Mode:          fnirsi_ps.ModeCV,
		Cause:         fnirsi_ps.CauseNone,
		Voltage:       1.5,
		Current:       0.5,
		Power:         0.75,
		TemperatureC:  31,
		OVP:           61,
		OCP:           6.1,
		OPP:           360,
		OHPEnabled:    true,
		OHPSeconds:    1800,
		TargetVoltage: 1.5,
		TargetCurrent: 0.5,
	}
}

func TestFormatLine(t *testing.T) {
	line := FormatLine(sampleRecord())

	assert.Contains(t, line, "ON ")
	assert.Contains(t, line, "1.50V")
	assert.Contains(t, line, "0.500A")
	assert.Contains(t, line, "0.75W")
	assert.Contains(t, line, "CV")
	assert.Contains(t, line, "cause=none")
	assert.Contains(t, line, "temp=31C")
	assert.Contains(t, line, "ovp=61.00")
	assert.Contains(t, line, "ocp=6.100")
	assert.Contains(t, line, "opp=360.0")
	assert.Contains(t, line, "ohp=00:30:00*")
	assert.Contains(t, line, "set=1.50V/0.500A")
}

func TestFormatLineTripped(t *testing.T) {
	rec := sampleRecord()
	rec.Output = false
	rec.Mode = fnirsi_ps.ModeCC
	rec.Cause = fnirsi_ps.CauseOCP

	line := FormatLine(rec)
	assert.Contains(t, line, "OFF")
	assert.Contains(t, line, "CC")
	assert.Contains(t, line, "cause=OCP")
	assert.True(t, rec.Tripped())
}

func TestFormatLineEmptyRecord(t *testing.T) {
	line := FormatLine(fnirsi_ps.StatusRecord{})
	assert.Contains(t, line, "OFF")
	assert.Contains(t, line, "cause=none")
	assert.NotContains(t, line, "set=", "zero set-points are omitted")
}

func TestReportJSON(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, true)

	require.NoError(t, r.Report(sampleRecord()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, true, got["output"])
	assert.InDelta(t, 1.5, got["voltage_v"].(float64), 1e-9)
	assert.InDelta(t, 1800, got["ohp_seconds"].(float64), 1e-9)
}

func TestReportHuman(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	require.NoError(t, r.Report(sampleRecord()))
	assert.Equal(t, FormatLine(sampleRecord())+"\n", buf.String())
}
