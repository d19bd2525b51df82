package result

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSummaryHTMLProducesNonEmptyOutput(t *testing.T) {
	var buf bytes.Buffer
	shots := []ShotResult{
		{BallSpeedMPS: 40, BackSpinRPM: 2500},
		{BallSpeedMPS: 42, BackSpinRPM: 2700},
	}
	require.NoError(t, RenderSummaryHTML(&buf, shots))
	assert.Greater(t, buf.Len(), 0)
}

func TestRenderSummaryHTMLHandlesEmptyInput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderSummaryHTML(&buf, nil))
}
