package imaging

import (
	"gocv.io/x/gocv"

	"github.com/pitrac/lm/internal/pitracerr"
)

// EncodeMatPNG encodes img as PNG bytes, for carrying a frame over IPC's
// ImagePayload (spec.md §6 "optional image... raw bytes").
func EncodeMatPNG(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		return nil, pitracerr.Wrap(pitracerr.KindHardware, "encode frame as PNG", err)
	}
	defer buf.Close()
	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// DecodeMatPNG is the inverse of EncodeMatPNG; the caller owns the
// returned Mat and must Close it.
func DecodeMatPNG(data []byte) (gocv.Mat, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, pitracerr.Wrap(pitracerr.KindHardware, "decode PNG frame", err)
	}
	if img.Empty() {
		return gocv.Mat{}, pitracerr.New(pitracerr.KindHardware, "decoded frame is empty")
	}
	return img, nil
}
