// Package serialbridge drives the servos and reads the home switch through the
// microcontroller running the bridge firmware
package serialbridge

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	trashseparator "github.com/weedkat/trash-separator"
)

var (
	// ErrTimeout is returned when the bridge does not answer within the read timeout
	ErrTimeout = errors.New("serial bridge timed out")
	// ErrUnexpectedReply is returned when the bridge answers with something that is not part of the protocol
	ErrUnexpectedReply = errors.New("unexpected reply from serial bridge")
)

// RemoteError is a failure reported by the firmware
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "bridge: " + e.Message
}

// Bridge is a connection to the bridge firmware. Each command waits for its reply
// before the next one is written, so it is safe for concurrent use
type Bridge struct {
	mtx    sync.Mutex
	port   io.ReadWriteCloser
	reader *bufio.Reader
}

// Open connects to the bridge on the named port and checks that it answers
func Open(name string, baud int, timeout time.Duration) (*Bridge, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("error opening serial port %q: %w", name, err)
	}

	err = port.SetReadTimeout(timeout)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("error setting read timeout: %w", err)
	}

	err = port.ResetInputBuffer()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("error resetting input buffer: %w", err)
	}

	b := New(port)
	err = b.Ping()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("bridge on %q did not answer: %w", name, err)
	}

	return b, nil
}

// New uses an already open connection to the bridge
func New(port io.ReadWriteCloser) *Bridge {
	return &Bridge{
		port:   port,
		reader: bufio.NewReader(timeoutReader{port}),
	}
}

// Ping checks that the firmware is answering
func (b *Bridge) Ping() error {
	reply, err := b.transact([]byte{trashseparator.CommandPing})
	if err != nil {
		return err
	}
	return expect(reply, trashseparator.ReplyOK)
}

// SetPulse starts emitting pulses of us microseconds on the axis ('T' or 'B')
func (b *Bridge) SetPulse(axis byte, us int16) error {
	if us <= 0 || us > trashseparator.MaxPulse {
		return fmt.Errorf("pulse width %d out of range", us)
	}

	enc := trashseparator.EncodePulse(us)
	reply, err := b.transact([]byte{trashseparator.CommandSetPulse, axis, enc[0], enc[1]})
	if err != nil {
		return err
	}
	return expect(reply, trashseparator.ReplyOK)
}

// Release stops the pulses on the axis
func (b *Bridge) Release(axis byte) error {
	reply, err := b.transact([]byte{trashseparator.CommandRelease, axis})
	if err != nil {
		return err
	}
	return expect(reply, trashseparator.ReplyOK)
}

// IsHome reads the home switch on the bridge
func (b *Bridge) IsHome() (bool, error) {
	reply, err := b.transact([]byte{trashseparator.CommandHome})
	if err != nil {
		return false, err
	}

	switch reply {
	case trashseparator.ReplyHome:
		return true, nil
	case trashseparator.ReplyNotHome:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnexpectedReply, reply)
	}
}

// Axis returns a servo driver for one of the bridge's outputs
func (b *Bridge) Axis(axis byte) *Axis {
	return &Axis{bridge: b, axis: axis}
}

func (b *Bridge) Close() error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	return b.port.Close()
}

func (b *Bridge) transact(cmd []byte) (string, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	_, err := b.port.Write(cmd)
	if err != nil {
		return "", fmt.Errorf("error writing command %q: %w", cmd[0], err)
	}

	line, err := b.reader.ReadString(trashseparator.TerminationChar)
	if err != nil {
		// a late reply would be read as the answer to the next command
		b.reader.Reset(timeoutReader{b.port})
		return "", fmt.Errorf("error reading reply to %q: %w", cmd[0], err)
	}

	reply := strings.TrimRight(line, "\r\n")
	if msg, ok := strings.CutPrefix(reply, trashseparator.ReplyError); ok {
		return "", &RemoteError{Message: msg}
	}

	return reply, nil
}

func expect(reply, want string) error {
	if reply != want {
		return fmt.Errorf("%w: %q", ErrUnexpectedReply, reply)
	}
	return nil
}

// Axis drives one servo through the bridge
type Axis struct {
	bridge *Bridge
	axis   byte
}

func (a *Axis) SetPulse(us int16) error {
	return a.bridge.SetPulse(a.axis, us)
}

func (a *Axis) Release() error {
	return a.bridge.Release(a.axis)
}

// timeoutReader turns the empty read that go.bug.st/serial returns on timeout into an error
type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n == 0 && err == nil {
		return 0, ErrTimeout
	}
	return n, err
}
