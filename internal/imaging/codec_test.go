package imaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestEncodeDecodeMatPNGRoundTrips(t *testing.T) {
	src := gocv.NewMatWithSize(32, 48, gocv.MatTypeCV8UC3)
	defer src.Close()

	data, err := EncodeMatPNG(src)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	decoded, err := DecodeMatPNG(data)
	require.NoError(t, err)
	defer decoded.Close()

	assert.Equal(t, src.Rows(), decoded.Rows())
	assert.Equal(t, src.Cols(), decoded.Cols())
}

func TestDecodeMatPNGRejectsGarbage(t *testing.T) {
	_, err := DecodeMatPNG([]byte("not a png"))
	assert.Error(t, err)
}
