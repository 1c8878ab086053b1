package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fnirsi_ps"
)

const (
	telemetryFrag = "0150A0500A0075A0A031A0A0A1A"  // 1.5V 0.5A 0.75W 31°C CV none on
	limitsFrag    = "6100A6100A3600A1A00A30A00A"   // ovp=61 ocp=6.1 opp=360 ohp 30m enabled
	limitsFragOPP = "6100A6100A10000A1A00A30A00A"  // five-digit opp field
	targetFrag    = "0150A0500A"                   // 1.50V / 0.500A set-points
)

func TestDecodeTelemetry(t *testing.T) {
	u, err := Decode(KindTelemetry, []byte(telemetryFrag))
	require.NoError(t, err)

	assert.Equal(t, KindTelemetry, u.Kind)
	assert.InDelta(t, 1.5, u.Voltage, 1e-9)
	assert.InDelta(t, 0.5, u.Current, 1e-9)
	assert.InDelta(t, 0.75, u.Power, 1e-9)
	assert.Equal(t, 31, u.TemperatureC)
	assert.Equal(t, fnirsi_ps.ModeCV, u.Mode)
	assert.Equal(t, fnirsi_ps.CauseNone, u.Cause)
	assert.True(t, u.Output)
}

func TestDecodeTelemetryTrippedCC(t *testing.T) {
	// mode=1 (CC), cause=2 (OCP), output off
	u, err := Decode(KindTelemetry, []byte("1200A6000A7200A0A045A1A2A0A"))
	require.NoError(t, err)

	assert.Equal(t, fnirsi_ps.ModeCC, u.Mode)
	assert.Equal(t, fnirsi_ps.CauseOCP, u.Cause)
	assert.False(t, u.Output)
}

func TestDecodeLimits(t *testing.T) {
	u, err := Decode(KindLimits, []byte(limitsFrag))
	require.NoError(t, err)

	assert.InDelta(t, 61.0, u.OVP, 1e-9)
	assert.InDelta(t, 6.1, u.OCP, 1e-9)
	assert.InDelta(t, 360.0, u.OPP, 1e-9)
	assert.True(t, u.OHPEnabled)
	assert.Equal(t, 1800, u.OHPSeconds)
}

func TestDecodeLimitsFiveDigitOPP(t *testing.T) {
	u, err := Decode(KindLimits, []byte(limitsFragOPP))
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, u.OPP, 1e-9)
}

func TestDecodeTarget(t *testing.T) {
	u, err := Decode(KindTarget, []byte(targetFrag))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, u.TargetVoltage, 1e-9)
	assert.InDelta(t, 0.5, u.TargetCurrent, 1e-9)
}

func TestDecodeMalformed(t *testing.T) {
	cases := []struct {
		name string
		kind Kind
		frag string
	}{
		{"truncated telemetry", KindTelemetry, "0150A0500A"},
		{"trailing bytes on target", KindTarget, telemetryFrag},
		{"non-digit in field", KindTelemetry, "01x0A0500A0075A0A031A0A0A1A"},
		{"missing terminator", KindTarget, "0150A05000"},
		{"cause out of range", KindTelemetry, "0150A0500A0075A0A031A0A7A1A"},
		{"empty", KindLimits, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.kind, []byte(tc.frag))
			var me *MalformedFrameError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, tc.kind.String(), me.Kind)
			assert.Equal(t, len(tc.frag), me.Length)
			assert.True(t, IsMalformedFrameError(err))
		})
	}
}

func TestExtractKinds(t *testing.T) {
	cases := []struct {
		name string
		buf  string
		kind Kind
	}{
		{"telemetry", telemetryFrag, KindTelemetry},
		{"limits", limitsFrag, KindLimits},
		{"limits wide opp", limitsFragOPP, KindLimits},
		{"target", targetFrag, KindTarget},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frag, kind, rest, ok := Extract([]byte(tc.buf))
			require.True(t, ok)
			assert.Equal(t, tc.kind, kind)
			assert.Equal(t, tc.buf, string(frag))
			assert.Empty(t, rest)
		})
	}
}

func TestExtractSkipsConnectionPrefix(t *testing.T) {
	frag, kind, rest, ok := Extract([]byte("KB" + telemetryFrag + limitsFrag))
	require.True(t, ok)
	assert.Equal(t, KindTelemetry, kind)
	assert.Equal(t, telemetryFrag, string(frag))
	assert.Equal(t, limitsFrag, string(rest))
}

func TestExtractSequence(t *testing.T) {
	buf := []byte(telemetryFrag + limitsFrag + targetFrag)
	var kinds []Kind
	for {
		frag, kind, rest, ok := Extract(buf)
		if !ok {
			break
		}
		_, err := Decode(kind, frag)
		require.NoError(t, err)
		kinds = append(kinds, kind)
		buf = rest
	}
	assert.Equal(t, []Kind{KindTelemetry, KindLimits, KindTarget}, kinds)
	assert.Empty(t, buf)
}

func TestExtractIncomplete(t *testing.T) {
	for _, buf := range []string{"", "0150A05", "KB", "0150"} {
		_, _, rest, ok := Extract([]byte(buf))
		assert.False(t, ok, "%q", buf)
		assert.Equal(t, buf, string(rest))
	}
}

func TestUpdateApplyMerges(t *testing.T) {
	var rec fnirsi_ps.StatusRecord

	u, err := Decode(KindTelemetry, []byte(telemetryFrag))
	require.NoError(t, err)
	u.Apply(&rec)

	u, err = Decode(KindLimits, []byte(limitsFrag))
	require.NoError(t, err)
	u.Apply(&rec)

	u, err = Decode(KindTarget, []byte(targetFrag))
	require.NoError(t, err)
	u.Apply(&rec)

	assert.InDelta(t, 1.5, rec.Voltage, 1e-9)
	assert.InDelta(t, 61.0, rec.OVP, 1e-9)
	assert.InDelta(t, 1.5, rec.TargetVoltage, 1e-9)
	assert.True(t, rec.Output)
	assert.Equal(t, 1800, rec.OHPSeconds)
}

func TestFieldValue(t *testing.T) {
	target, err := Decode(KindTarget, []byte(targetFrag))
	require.NoError(t, err)
	limits, err := Decode(KindLimits, []byte(limitsFrag))
	require.NoError(t, err)
	telemetry, err := Decode(KindTelemetry, []byte(telemetryFrag))
	require.NoError(t, err)

	v, ok := target.FieldValue(FieldVoltage)
	require.True(t, ok)
	assert.InDelta(t, 1.5, v, 1e-9)

	v, ok = limits.FieldValue(FieldOHP)
	require.True(t, ok)
	assert.InDelta(t, 1800, v, 1e-9)

	_, ok = telemetry.FieldValue(FieldVoltage)
	assert.False(t, ok, "live telemetry must not satisfy a set-point read-back")
}
