// Package fakebus is an in-memory regbus.Bus for tests and dry runs.  It
// records every transaction and serves reads from a per-device register map.
package fakebus

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

var ErrNoAck = errors.New("no acknowledge")

type Tx struct {
	Addr  uint16
	Write []byte
	Read  []byte
}

func (t Tx) String() string {
	return fmt.Sprintf("0x%02x w=% x r=% x", t.Addr, t.Write, t.Read)
}

type Bus struct {
	lock sync.Mutex

	regs map[uint16]map[byte]byte
	// Mask is cleared from the start register before register memory is
	// read, so auto-increment flags do not change which registers are served.
	mask map[uint16]byte
	log  []Tx

	failAfter int
	failErr   error
	failAddr  map[uint16]error
}

func New() *Bus {
	return &Bus{
		regs:      map[uint16]map[byte]byte{},
		mask:      map[uint16]byte{},
		failAddr:  map[uint16]error{},
		failAfter: -1,
	}
}

// SetRegisters loads consecutive register values starting at start.
func (b *Bus) SetRegisters(addr uint16, start byte, values ...byte) {
	b.lock.Lock()
	defer b.lock.Unlock()
	regs := b.regs[addr]
	if regs == nil {
		regs = map[byte]byte{}
		b.regs[addr] = regs
	}
	for i, v := range values {
		regs[start+byte(i)] = v
	}
}

func (b *Bus) Register(addr uint16, reg byte) byte {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.regs[addr][reg]
}

// IgnoreBits makes reads from addr ignore the given bits of the start register.
func (b *Bus) IgnoreBits(addr uint16, mask byte) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.mask[addr] = mask
}

// FailAfter lets the next n transactions through, then fails every one after
// that with err.
func (b *Bus) FailAfter(n int, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.failAfter = n
	b.failErr = err
}

// FailAddr makes every transaction to addr fail with err.
func (b *Bus) FailAddr(addr uint16, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.failAddr[addr] = err
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if err := b.failAddr[addr]; err != nil {
		return err
	}
	if b.failAfter == 0 {
		return b.failErr
	}
	if b.failAfter > 0 {
		b.failAfter--
	}

	tx := Tx{Addr: addr, Write: append([]byte(nil), w...)}
	regs := b.regs[addr]
	if regs == nil {
		regs = map[byte]byte{}
		b.regs[addr] = regs
	}
	if r == nil {
		// Plain write: first byte selects the register, the rest are stored
		// at consecutive registers.
		if len(w) > 1 {
			for i, v := range w[1:] {
				regs[w[0]+byte(i)] = v
			}
		}
	} else {
		var start byte
		if len(w) > 0 {
			start = w[0] &^ b.mask[addr]
		}
		for i := range r {
			r[i] = regs[start+byte(i)]
		}
		tx.Read = append([]byte(nil), r...)
	}
	b.log = append(b.log, tx)
	return nil
}

// Log returns a copy of the successful transactions so far.
func (b *Bus) Log() []Tx {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]Tx(nil), b.log...)
}

// Writes returns only the write payloads sent to addr.
func (b *Bus) Writes(addr uint16) [][]byte {
	b.lock.Lock()
	defer b.lock.Unlock()
	var out [][]byte
	for _, tx := range b.log {
		if tx.Addr == addr && tx.Read == nil {
			out = append(out, tx.Write)
		}
	}
	return out
}

func (b *Bus) Reset() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.log = nil
}
