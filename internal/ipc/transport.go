package ipc

import (
	"encoding/gob"
	"fmt"
	"net"
)

// Transport is the abstraction a Broker multiplexes over, mirroring the
// teacher's SerialPorter constraint on SerialMux[T] but carrying typed
// Messages instead of raw bytes.
type Transport interface {
	Send(Message) error
	Recv() (Message, error)
	Close() error
}

// ChanTransport is an in-process Transport backed by a pair of channels;
// used to connect Cam1 and Cam2 state machines within a single test
// process or a single-binary deployment.
type ChanTransport struct {
	out chan<- Message
	in  <-chan Message
}

// NewChanPair returns two ChanTransports wired to each other: sends on a
// arrive as receives on b, and vice versa.
func NewChanPair(buffer int) (a, b *ChanTransport) {
	ab := make(chan Message, buffer)
	ba := make(chan Message, buffer)
	return &ChanTransport{out: ab, in: ba}, &ChanTransport{out: ba, in: ab}
}

func (c *ChanTransport) Send(m Message) error {
	c.out <- m
	return nil
}

func (c *ChanTransport) Recv() (Message, error) {
	m, ok := <-c.in
	if !ok {
		return Message{}, fmt.Errorf("ipc: channel transport closed")
	}
	return m, nil
}

func (c *ChanTransport) Close() error {
	return nil
}

// TCPTransport gob-encodes Messages over a loopback TCP connection, for
// Cam1 and Cam2 running as separate OS processes (spec.md §4.6, §6).
type TCPTransport struct {
	conn net.Conn
	enc  *gob.Encoder
	dec  *gob.Decoder
}

// DialTCP connects to a listening peer's address.
func DialTCP(addr string) (*TCPTransport, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ipc: dial %s: %w", addr, err)
	}
	return newTCPTransport(conn), nil
}

// ListenTCP listens on addr and accepts exactly one peer connection,
// returning its Transport once connected.
func ListenTCP(addr string) (*TCPTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen %s: %w", addr, err)
	}
	defer ln.Close()
	conn, err := ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("ipc: accept on %s: %w", addr, err)
	}
	return newTCPTransport(conn), nil
}

func newTCPTransport(conn net.Conn) *TCPTransport {
	return &TCPTransport{
		conn: conn,
		enc:  gob.NewEncoder(conn),
		dec:  gob.NewDecoder(conn),
	}
}

func (t *TCPTransport) Send(m Message) error {
	if err := t.enc.Encode(m); err != nil {
		return fmt.Errorf("ipc: encode message: %w", err)
	}
	return nil
}

func (t *TCPTransport) Recv() (Message, error) {
	var m Message
	if err := t.dec.Decode(&m); err != nil {
		return Message{}, fmt.Errorf("ipc: decode message: %w", err)
	}
	return m, nil
}

func (t *TCPTransport) Close() error {
	return t.conn.Close()
}
