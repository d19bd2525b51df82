package imaging

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/pitrac/lm/internal/pitracerr"
)

// FrameSource yields successive camera frames. Implementations own the
// underlying device handle and must be closed exactly once.
type FrameSource interface {
	Read() (gocv.Mat, error)
	Close() error
}

// VideoCaptureSource is a FrameSource backed by a gocv.VideoCapture
// (libcamera/V4L2 device in production, or a file/stream in tests).
type VideoCaptureSource struct {
	cap *gocv.VideoCapture
}

// OpenCameraDevice opens a numbered V4L2 device (e.g. 0 for /dev/video0).
func OpenCameraDevice(deviceID int) (*VideoCaptureSource, error) {
	cap, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, pitracerr.Wrap(pitracerr.KindHardware, fmt.Sprintf("open camera device %d", deviceID), err)
	}
	return &VideoCaptureSource{cap: cap}, nil
}

// Read blocks for the next frame.
func (v *VideoCaptureSource) Read() (gocv.Mat, error) {
	img := gocv.NewMat()
	if !v.cap.Read(&img) {
		img.Close()
		return gocv.Mat{}, pitracerr.New(pitracerr.KindHardware, "camera read failed or device closed")
	}
	return img, nil
}

func (v *VideoCaptureSource) Close() error {
	return v.cap.Close()
}
