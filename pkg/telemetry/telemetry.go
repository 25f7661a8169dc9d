// Package telemetry writes one line of text per event to a serial console so
// the robot can be followed from a laptop while it runs.
package telemetry

import (
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/tigerbot-team/bumperbot/pkg/collision"
)

const DefaultBaudRate = 115200

type Writer struct {
	lock   sync.Mutex
	w      io.Writer
	closer io.Closer
}

// OpenSerial opens the UART at dev, 8N1.
func OpenSerial(dev string, baud int) (*Writer, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
	}
	p, err := serial.Open(dev, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", dev)
	}
	t := New(p)
	t.closer = p
	return t, nil
}

func New(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Printf writes a single CRLF-terminated line.
func (t *Writer) Printf(format string, args ...interface{}) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	_, err := fmt.Fprintf(t.w, format+"\r\n", args...)
	return err
}

func (t *Writer) Collision(e collision.Event) error {
	return t.Printf("collision n=%d dir=%v dx=%d dy=%d dz=%d",
		e.Count, e.State, e.Deviation.X, e.Deviation.Y, e.Deviation.Z)
}

func (t *Writer) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}
