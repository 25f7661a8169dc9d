// Package regbus frames register-oriented transactions for devices on a shared
// two-wire bus.  Every peripheral driver in the robot is built on it.
package regbus

import "fmt"

// AutoIncrementMSB is the usual way of asking a device to auto-increment the
// register pointer during a burst: set the top bit of the start register.
const AutoIncrementMSB = 0x80

// Bus is the transport.  A nil r is a plain write; otherwise w is written and r
// is filled after a repeated start.  periph's i2c.Bus satisfies it as-is.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// Device is one addressed peripheral.
type Device struct {
	Bus  Bus
	Addr uint16
	// AutoIncrement is OR'd into the start register of a burst read.
	AutoIncrement byte
}

// WriteRegister writes reg followed by values in a single transaction.
func (d *Device) WriteRegister(reg byte, values ...byte) error {
	w := make([]byte, 0, 1+len(values))
	w = append(w, reg)
	w = append(w, values...)
	if err := d.Bus.Tx(d.Addr, w, nil); err != nil {
		return &BusError{Op: "write", Addr: d.Addr, Reg: reg, Err: err}
	}
	return nil
}

// ReadRegisters fills buf from consecutive registers starting at start.
func (d *Device) ReadRegisters(start byte, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	reg := start | d.AutoIncrement
	if err := d.Bus.Tx(d.Addr, []byte{reg}, buf); err != nil {
		return &BusError{Op: "read", Addr: d.Addr, Reg: reg, Err: err}
	}
	return nil
}

func (d *Device) ReadRegister(reg byte) (byte, error) {
	var buf [1]byte
	if err := d.Bus.Tx(d.Addr, []byte{reg}, buf[:]); err != nil {
		return 0, &BusError{Op: "read", Addr: d.Addr, Reg: reg, Err: err}
	}
	return buf[0], nil
}

func (d *Device) String() string {
	return fmt.Sprintf("i2c device 0x%02x", d.Addr)
}

// BusError is returned for any transport failure.  The transport's own error
// is kept unchanged as the cause.
type BusError struct {
	Op   string
	Addr uint16
	Reg  byte
	Err  error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus %s addr=0x%02x reg=0x%02x: %v", e.Op, e.Addr, e.Reg, e.Err)
}

func (e *BusError) Cause() error  { return e.Err }
func (e *BusError) Unwrap() error { return e.Err }

// IsBusError reports whether err, or anything it wraps, is a *BusError.
func IsBusError(err error) bool {
	_, ok := AsBusError(err)
	return ok
}

// AsBusError digs the *BusError out of err.  Both pkg/errors causes and
// standard wrapping are followed.
func AsBusError(err error) (*BusError, bool) {
	for err != nil {
		if be, ok := err.(*BusError); ok {
			return be, true
		}
		switch e := err.(type) {
		case interface{ Cause() error }:
			err = e.Cause()
		case interface{ Unwrap() error }:
			err = e.Unwrap()
		default:
			return nil, false
		}
	}
	return nil, false
}
