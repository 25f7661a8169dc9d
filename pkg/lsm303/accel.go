// Package lsm303 drives the accelerometer and magnetometer halves of an
// LSM303DLHC.  The two halves sit at different bus addresses.
package lsm303

import (
	"encoding/binary"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/bumperbot/pkg/regbus"
	"github.com/tigerbot-team/bumperbot/pkg/sample"
)

const (
	AccelAddr = 0x19

	RegCtrl1A  = 0x20
	RegCtrl2A  = 0x21
	RegCtrl3A  = 0x22
	RegCtrl4A  = 0x23
	RegCtrl5A  = 0x24
	RegCtrl6A  = 0x25
	RegStatusA = 0x27

	// Six output registers, X/Y/Z, low byte first.
	RegOutXLA = 0x28

	// The accelerometer burst read is requested with bit 0 of the start
	// register byte, so the register pointer sent on the wire is 0x29.
	AccelAutoIncrement = 0x01

	// Low-power off, Z, Y and X enabled.
	accelAxesEnable = 0b0111
)

// AccelRate is the output data rate, already shifted into the top four bits
// of CTRL_REG1_A.
type AccelRate byte

const (
	AccelPowerDown AccelRate = 0b0000 << 4
	AccelRate1Hz   AccelRate = 0b0001 << 4
	AccelRate10Hz  AccelRate = 0b0010 << 4
	AccelRate25Hz  AccelRate = 0b0011 << 4
	AccelRate50Hz  AccelRate = 0b0100 << 4
	AccelRate100Hz AccelRate = 0b0101 << 4
	AccelRate200Hz AccelRate = 0b0110 << 4
	AccelRate400Hz AccelRate = 0b0111 << 4
)

var accelRatesByHz = map[int]AccelRate{
	0:   AccelPowerDown,
	1:   AccelRate1Hz,
	10:  AccelRate10Hz,
	25:  AccelRate25Hz,
	50:  AccelRate50Hz,
	100: AccelRate100Hz,
	200: AccelRate200Hz,
	400: AccelRate400Hz,
}

// AccelRateForHz maps a rate in Hz to its register encoding.
func AccelRateForHz(hz int) (AccelRate, error) {
	r, ok := accelRatesByHz[hz]
	if !ok {
		return 0, errors.Errorf("unsupported accelerometer rate %dHz", hz)
	}
	return r, nil
}

type Accel struct {
	dev regbus.Device
}

// NewAccel sets the output data rate and enables all three axes.
func NewAccel(bus regbus.Bus, rate AccelRate) (*Accel, error) {
	a := &Accel{
		dev: regbus.Device{Bus: bus, Addr: AccelAddr, AutoIncrement: AccelAutoIncrement},
	}
	if err := a.dev.WriteRegister(RegCtrl1A, byte(rate)|accelAxesEnable); err != nil {
		return nil, errors.Wrap(err, "accelerometer init")
	}
	glog.Infof("Accelerometer configured, CTRL_REG1_A=0x%02x", byte(rate)|accelAxesEnable)
	return a, nil
}

// ReadSample reads all three axes in one burst.
func (a *Accel) ReadSample() (sample.Sample, error) {
	var buf [6]byte
	if err := a.dev.ReadRegisters(RegOutXLA, buf[:]); err != nil {
		return sample.Sample{}, err
	}
	return sample.Sample{
		X: int16(binary.LittleEndian.Uint16(buf[0:2])),
		Y: int16(binary.LittleEndian.Uint16(buf[2:4])),
		Z: int16(binary.LittleEndian.Uint16(buf[4:6])),
	}, nil
}
