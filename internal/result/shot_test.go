package result

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampedRespectsBounds(t *testing.T) {
	r := ShotResult{BackSpinRPM: 50000, SideSpinRPM: -9000}
	c := r.Clamped(DefaultClamp)
	assert.Equal(t, DefaultClamp.MaxBackSpinRPM, c.BackSpinRPM)
	assert.Equal(t, DefaultClamp.MinSideSpinRPM, c.SideSpinRPM)
}

func TestClampedLeavesInRangeValuesUntouched(t *testing.T) {
	r := ShotResult{BackSpinRPM: 2500, SideSpinRPM: -300}
	c := r.Clamped(DefaultClamp)
	assert.Equal(t, 2500.0, c.BackSpinRPM)
	assert.Equal(t, -300.0, c.SideSpinRPM)
}

func TestAppendCSVLineUsesNAForUnknownFields(t *testing.T) {
	var buf bytes.Buffer
	err := AppendCSVLine(&buf, CSVLogEntry{
		Counter: 1,
		Result:  ShotResult{BallSpeedMPS: 44.7, BackSpinRPM: 2500, SideSpinRPM: 300, HLADeg: 1.2, VLADeg: 14.5},
	})
	assert.NoError(t, err)
	line := buf.String()
	assert.True(t, strings.Contains(line, "NA"))
	assert.True(t, strings.HasPrefix(line, "1,"))
}

func TestWriteCSVHeaderMatchesFieldCount(t *testing.T) {
	var buf bytes.Buffer
	require := assert.New(t)
	require.NoError(WriteCSVHeader(&buf))
	header := strings.TrimSpace(buf.String())
	require.Equal(len(csvFields), len(strings.Split(header, ",")))
}
