package pulse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockWriterRecordsSends(t *testing.T) {
	w := NewMockWriter()
	tr := Train{OffDurationsMs: []float64{3, 4.5}, OnWidthBits: 3, BaudRate: 1_000_000}
	buf, err := tr.Build()
	require.NoError(t, err)

	require.NoError(t, w.Send(buf, tr.BaudRate))
	require.Len(t, w.Sent, 1)
	assert.Equal(t, buf, w.Sent[0])
	assert.Equal(t, 1_000_000, w.BaudRates[0])
	assert.False(t, w.Closed())

	require.NoError(t, w.Close())
	assert.True(t, w.Closed())
}

func TestMockWriterForcedFailure(t *testing.T) {
	w := NewMockWriter()
	w.FailOn = 1

	require.NoError(t, w.Send([]byte{0x00}, 1_000_000))
	require.Error(t, w.Send([]byte{0x01}, 1_000_000))
}
