package imaging

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestColourMaskWideningIsAdditive(t *testing.T) {
	base := HSVRange{LowH: 10, HighH: 20, LowS: 50, HighS: 200, LowV: 50, HighV: 200}
	widened := base.Widen(5, 10, 15)

	assert.Equal(t, 5.0, widened.LowH)
	assert.Equal(t, 25.0, widened.HighH)
	assert.Equal(t, 40.0, widened.LowS)
	assert.Equal(t, 210.0, widened.HighS)
	assert.Equal(t, 35.0, widened.LowV)
	assert.Equal(t, 215.0, widened.HighV)
}

func TestColourMaskWrapAroundEqualsUnionOfTwoRanges(t *testing.T) {
	img := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	defer img.Close()
	for y := 0; y < img.Rows(); y++ {
		for x := 0; x < img.Cols(); x++ {
			img.SetUCharAt3(y, x, 0, 200)
			img.SetUCharAt3(y, x, 1, 10)
			img.SetUCharAt3(y, x, 2, 10)
		}
	}

	wrapping := HSVRange{LowH: -10, HighH: 10, LowS: 0, HighS: 255, LowV: 0, HighV: 255}
	mask := ColourMask(img, wrapping)
	defer mask.Close()
	require.False(t, mask.Empty())

	lower1 := HSVRange{LowH: 0, HighH: 10, LowS: 0, HighS: 255, LowV: 0, HighV: 255}
	lower2 := HSVRange{LowH: 170, HighH: 180, LowS: 0, HighS: 255, LowV: 0, HighV: 255}
	mask1 := ColourMask(img, lower1)
	defer mask1.Close()
	mask2 := ColourMask(img, lower2)
	defer mask2.Close()

	union := gocv.NewMat()
	defer union.Close()
	gocv.BitwiseOr(mask1, mask2, &union)

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.BitwiseXor(mask, union, &diff)
	assert.Equal(t, 0, gocv.CountNonZero(diff))
}

func TestCropTranslatesOffset(t *testing.T) {
	img := gocv.NewMatWithSize(20, 20, gocv.MatTypeCV8UC1)
	defer img.Close()

	cropped, offset := Crop(img, image.Rect(5, 5, 15, 15))
	defer cropped.Close()

	assert.Equal(t, CropOffset{X: 5, Y: 5}, offset)
	assert.Equal(t, 10, cropped.Rows())
	assert.Equal(t, 10, cropped.Cols())
}

func TestOddifyRoundsUpEvenSizes(t *testing.T) {
	assert.Equal(t, 1, oddify(0))
	assert.Equal(t, 3, oddify(2))
	assert.Equal(t, 5, oddify(5))
}
