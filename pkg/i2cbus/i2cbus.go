// Package i2cbus opens the robot's I2C bus and presents it as a regbus.Bus.
package i2cbus

import (
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"

	"github.com/tigerbot-team/bumperbot/pkg/regbus"
)

type Bus interface {
	regbus.Bus
	Close() error
}

// Open returns the bus for the given backend.  "periph" goes through periph's
// bus registry, so dev may be a name like "1" as well as a device path;
// "devfs" talks to /dev/i2c-N directly.
func Open(backend, dev string) (Bus, error) {
	switch backend {
	case "periph":
		return OpenPeriph(dev)
	case "devfs":
		return OpenDevfs(dev), nil
	}
	return nil, errors.Errorf("unknown I2C backend %q", backend)
}

func OpenPeriph(dev string) (Bus, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph host init")
	}
	b, err := i2creg.Open(dev)
	if err != nil {
		return nil, errors.Wrapf(err, "opening I2C bus %q", dev)
	}
	glog.Infof("Opened I2C bus %v", b)
	return b, nil
}

// port is the part of an x/exp I2C device we use.
type port interface {
	Read(buf []byte) error
	ReadReg(reg byte, buf []byte) error
	Write(buf []byte) error
	Close() error
}

type opener func(addr int) (port, error)

// DevfsBus opens one x/exp device per address on first use.
type DevfsBus struct {
	lock  sync.Mutex
	open  opener
	ports map[uint16]port
}

var _ Bus = (*DevfsBus)(nil)

func OpenDevfs(deviceFile string) *DevfsBus {
	return newDevfsBus(func(addr int) (port, error) {
		dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
		if err != nil {
			return nil, err
		}
		return dev, nil
	})
}

func newDevfsBus(open opener) *DevfsBus {
	return &DevfsBus{
		open:  open,
		ports: map[uint16]port{},
	}
}

func (b *DevfsBus) port(addr uint16) (port, error) {
	if p := b.ports[addr]; p != nil {
		return p, nil
	}
	p, err := b.open(int(addr))
	if err != nil {
		return nil, errors.Wrapf(err, "opening device 0x%02x", addr)
	}
	b.ports[addr] = p
	return p, nil
}

// Tx maps the transaction onto the device file's operations.  A write then
// read must be a single register-select byte followed by the read, which is
// all the register devices need.
func (b *DevfsBus) Tx(addr uint16, w, r []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	p, err := b.port(addr)
	if err != nil {
		return err
	}
	switch {
	case len(r) == 0:
		return p.Write(w)
	case len(w) == 0:
		return p.Read(r)
	case len(w) == 1:
		return p.ReadReg(w[0], r)
	}
	return errors.Errorf("unsupported transaction: %d byte write then read", len(w))
}

func (b *DevfsBus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	var firstErr error
	for addr, p := range b.ports {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(b.ports, addr)
	}
	return firstErr
}

func (b *DevfsBus) String() string {
	return "devfs I2C"
}
