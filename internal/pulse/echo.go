package pulse

import (
	"go.bug.st/serial"

	"github.com/pitrac/lm/internal/pitracerr"
)

// SerialEchoWriter mirrors a pulse train onto a plain serial port so a
// logic analyzer or USB-UART breakout can observe the bitstream directly,
// independent of the SPI bus (grounded on the teacher's radar/serial.go
// NewRadarPort, which opens go.bug.st/serial the same way for its own
// diagnostic device probing). It never touches a shutter line; it exists
// purely to echo bytes for bench debugging, so it satisfies Writer by
// ignoring baudRate on Send (the port's mode is fixed at Open time) rather
// than reconfiguring the port per call.
type SerialEchoWriter struct {
	port serial.Port
}

// OpenSerialEchoWriter opens portName at baudRate 8N1, matching the framing
// the teacher's NewRadarPort used for its own serial device.
func OpenSerialEchoWriter(portName string, baudRate int) (*SerialEchoWriter, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: 1,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, pitracerr.Wrap(pitracerr.KindHardware, "failed to open serial echo port", err)
	}
	return &SerialEchoWriter{port: port}, nil
}

// Send writes buf to the serial port for external observation.
func (w *SerialEchoWriter) Send(buf []byte, _ int) error {
	if _, err := w.port.Write(buf); err != nil {
		return pitracerr.Wrap(pitracerr.KindHardware, "serial echo write failed", err)
	}
	return nil
}

// Close closes the underlying serial port.
func (w *SerialEchoWriter) Close() error {
	return w.port.Close()
}
