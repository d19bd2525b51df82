package spin

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/pitrac/lm/internal/config"
)

func checkerboard(size, squarePx int) gocv.Mat {
	m := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8U)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if ((x/squarePx)+(y/squarePx))%2 == 0 {
				m.SetUCharAt(y, x, 255)
			}
		}
	}
	return m
}

func TestGaborBankProducesSameSizeResponse(t *testing.T) {
	cfg := config.Default().Spin
	img := checkerboard(64, 8)
	defer img.Close()

	resp := GaborBank(img, cfg)
	defer resp.Close()

	assert.Equal(t, img.Rows(), resp.Rows())
	assert.Equal(t, img.Cols(), resp.Cols())
}

func TestAdaptiveBinaryThresholdReturnsValidWhiteFraction(t *testing.T) {
	cfg := config.Default().Spin
	img := checkerboard(64, 8)
	defer img.Close()

	resp := GaborBank(img, cfg)
	defer resp.Close()

	binary, _ := AdaptiveBinaryThreshold(resp, cfg.WhitePctMin, cfg.WhitePctMax)
	defer binary.Close()

	whitePct := float64(gocv.CountNonZero(binary)) / float64(binary.Rows()*binary.Cols())
	assert.GreaterOrEqual(t, whitePct, 0.0)
	assert.LessOrEqual(t, whitePct, 1.0)
}

func TestRemoveReflectionsMarksBrightSpotIgnored(t *testing.T) {
	gray := gocv.NewMatWithSize(64, 64, gocv.MatTypeCV8U)
	defer gray.Close()
	gocv.Circle(&gray, image.Pt(32, 32), 4, color(255), -1)

	gabor := gocv.NewMat()
	defer gabor.Close()
	gray.ConvertTo(&gabor, gocv.MatTypeCV32F)

	RemoveReflections(gabor, gray, 32, 32, 30, 0.05, 0.9)

	require.Equal(t, float32(ignoreValue), gabor.GetFloatAt(32, 32))
}

func color(v int) gocv.Scalar {
	return gocv.NewScalar(float64(v), float64(v), float64(v), 0)
}
