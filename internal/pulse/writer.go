package pulse

import (
	"fmt"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"

	"github.com/pitrac/lm/internal/pitracerr"
)

// Writer streams a built bitstream to a digital output while holding a
// shutter-enable line high, per spec.md §4.1's "write pulse train to
// hardware" step. Real hardware uses an SPI MOSI line as the pulse output
// and a GPIO pin as the shutter line; Send is also exercised against a
// mock in tests, since no SPI bus is present in CI.
type Writer interface {
	// Send streams buf, then lowers the shutter line. It holds the shutter
	// line high for the whole transfer.
	Send(buf []byte, baudRate int) error
	Close() error
}

// SPIWriter is the periph.io-backed Writer used on real Raspberry Pi
// hardware (grounded on the google-periph example repo, which is the
// periph.io/x/periph library itself).
type SPIWriter struct {
	port    spi.PortCloser
	conn    spi.Conn
	shutter gpio.PinIO
}

// OpenSPIWriter initializes the periph.io host drivers, opens the named SPI
// port (empty string picks the first available port), and resolves the
// named GPIO pin as the shutter-enable line.
func OpenSPIWriter(spiPortName, shutterPinName string) (*SPIWriter, error) {
	if _, err := host.Init(); err != nil {
		return nil, pitracerr.Wrap(pitracerr.KindHardware, "periph host init failed", err)
	}

	port, err := spireg.Open(spiPortName)
	if err != nil {
		return nil, pitracerr.Wrap(pitracerr.KindHardware, "failed to open SPI port", err)
	}

	shutter := gpioreg.ByName(shutterPinName)
	if shutter == nil {
		port.Close()
		return nil, pitracerr.New(pitracerr.KindHardware, fmt.Sprintf("shutter pin %q not found", shutterPinName))
	}

	return &SPIWriter{port: port, shutter: shutter}, nil
}

// Send configures the SPI connection for baudRate, raises the shutter pin,
// transfers buf MSB-first, then lowers it again.
func (w *SPIWriter) Send(buf []byte, baudRate int) error {
	conn, err := w.port.Connect(physic.Frequency(baudRate)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		return pitracerr.Wrap(pitracerr.KindHardware, "failed to configure SPI connection", err)
	}
	w.conn = conn

	if err := w.shutter.Out(gpio.High); err != nil {
		return pitracerr.Wrap(pitracerr.KindHardware, "failed to raise shutter line", err)
	}
	defer w.shutter.Out(gpio.Low)

	read := make([]byte, len(buf))
	if err := w.conn.Tx(buf, read); err != nil {
		return pitracerr.Wrap(pitracerr.KindHardware, "SPI transfer failed", err)
	}
	return nil
}

// Close releases the underlying SPI port.
func (w *SPIWriter) Close() error {
	if w.port == nil {
		return nil
	}
	return w.port.Close()
}

// MockWriter records every Send call without touching real hardware, for
// unit tests and the simulator build (spec.md §10 "simulator mode").
type MockWriter struct {
	Sent   [][]byte
	BaudRates []int
	closed bool
	FailOn int // if >=0, Send on this call index returns an error
}

func NewMockWriter() *MockWriter {
	return &MockWriter{FailOn: -1}
}

func (w *MockWriter) Send(buf []byte, baudRate int) error {
	if w.FailOn == len(w.Sent) {
		w.Sent = append(w.Sent, buf)
		w.BaudRates = append(w.BaudRates, baudRate)
		return pitracerr.New(pitracerr.KindHardware, "mock writer forced failure")
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	w.Sent = append(w.Sent, cp)
	w.BaudRates = append(w.BaudRates, baudRate)
	return nil
}

func (w *MockWriter) Close() error {
	w.closed = true
	return nil
}

func (w *MockWriter) Closed() bool { return w.closed }
