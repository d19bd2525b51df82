// Package ipc is the cross-process message broker between Cam1 and Cam2
// (spec.md §6 "Cross-process IPC messages"). It generalises the teacher's
// serialmux.SerialMux[T] — a generic multiplexer parameterised over its
// transport, fanning received messages out to subscriber channels — from
// a single serial port's line-oriented text protocol to a tagged,
// gob-encoded Message over any Transport.
package ipc

import "github.com/google/uuid"

// MessageType tags the payload carried by a Message (spec.md §6).
type MessageType int

const (
	RequestForCamera2Image MessageType = iota
	Camera2PreImage
	Camera2Image
	Results
	ControlMessage
	Status
	Error
)

func (t MessageType) String() string {
	switch t {
	case RequestForCamera2Image:
		return "RequestForCamera2Image"
	case Camera2PreImage:
		return "Camera2PreImage"
	case Camera2Image:
		return "Camera2Image"
	case Results:
		return "Results"
	case ControlMessage:
		return "ControlMessage"
	case Status:
		return "Status"
	case Error:
		return "Error"
	default:
		return "UnknownMessageType"
	}
}

// ImagePayload is a raw frame carried by a Message (spec.md §6 "optional
// image (width, height, stride, pixel format, raw bytes)").
type ImagePayload struct {
	Width       int
	Height      int
	Stride      int
	PixelFormat string
	Data        []byte
}

// Message is the tagged envelope exchanged between Cam1 and Cam2. ID
// makes delivery idempotent: a Broker drops a Message whose ID it has
// already fanned out (spec.md §6 "delivery is at-most-once; duplicate
// messages are idempotent").
type Message struct {
	ID     uuid.UUID
	Type   MessageType
	Image  *ImagePayload
	Scalar map[string]float64

	// Text and Recent are populated on Error (and optionally Status)
	// messages: Text is the error text itself, Recent is the obslog
	// buffer's tail at the time of the error (spec.md §7 "The log's
	// 'recent messages' buffer is embedded in any error result sent
	// upstream").
	Text   string
	Recent []string
}

// NewMessage builds a Message with a fresh ID.
func NewMessage(t MessageType) Message {
	return Message{ID: uuid.New(), Type: t, Scalar: make(map[string]float64)}
}
