package lsm303

import (
	"encoding/binary"
	"math"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/bumperbot/pkg/regbus"
	"github.com/tigerbot-team/bumperbot/pkg/sample"
)

const (
	MagAddr = 0x1e

	RegCRAM = 0x00
	RegCRBM = 0x01
	RegMRM  = 0x02

	// Output registers are X, Z, Y (not X, Y, Z), high byte first.
	RegOutXHM = 0x03

	RegSRM       = 0x09
	RegIRAM      = 0x0a
	RegTempOutHM = 0x31

	magContinuous = 0x00
	// Bit 7 of CRA_REG_M enables the temperature sensor.
	magTempEnable = 0x80
)

var ErrNotSupported = errors.New("not supported")

// MagRate is the output data rate, already shifted into bits 2-4 of CRA_REG_M.
type MagRate byte

const (
	MagRate0_75Hz MagRate = 0b000 << 2
	MagRate1_5Hz  MagRate = 0b001 << 2
	MagRate3Hz    MagRate = 0b010 << 2
	MagRate7_5Hz  MagRate = 0b011 << 2
	MagRate15Hz   MagRate = 0b100 << 2
	MagRate30Hz   MagRate = 0b101 << 2
	MagRate75Hz   MagRate = 0b110 << 2
	MagRate220Hz  MagRate = 0b111 << 2
)

var magRatesByHz = map[float64]MagRate{
	0.75: MagRate0_75Hz,
	1.5:  MagRate1_5Hz,
	3:    MagRate3Hz,
	7.5:  MagRate7_5Hz,
	15:   MagRate15Hz,
	30:   MagRate30Hz,
	75:   MagRate75Hz,
	220:  MagRate220Hz,
}

func MagRateForHz(hz float64) (MagRate, error) {
	r, ok := magRatesByHz[hz]
	if !ok {
		return 0, errors.Errorf("unsupported magnetometer rate %vHz", hz)
	}
	return r, nil
}

type Mag struct {
	dev regbus.Device
}

// NewMag switches the magnetometer to continuous conversion and sets its rate.
func NewMag(bus regbus.Bus, rate MagRate) (*Mag, error) {
	m := &Mag{
		dev: regbus.Device{Bus: bus, Addr: MagAddr},
	}
	if err := m.dev.WriteRegister(RegMRM, magContinuous); err != nil {
		return nil, errors.Wrap(err, "magnetometer mode")
	}
	if err := m.dev.WriteRegister(RegCRAM, byte(rate)|magTempEnable); err != nil {
		return nil, errors.Wrap(err, "magnetometer rate")
	}
	glog.Infof("Magnetometer configured, CRA_REG_M=0x%02x", byte(rate)|magTempEnable)
	return m, nil
}

func (m *Mag) ReadSample() (sample.Sample, error) {
	var buf [6]byte
	if err := m.dev.ReadRegisters(RegOutXHM, buf[:]); err != nil {
		return sample.Sample{}, err
	}
	return sample.Sample{
		X: int16(binary.BigEndian.Uint16(buf[0:2])),
		Z: int16(binary.BigEndian.Uint16(buf[2:4])),
		Y: int16(binary.BigEndian.Uint16(buf[4:6])),
	}, nil
}

// ReadTemp is not implemented yet; the temperature registers need a
// calibration we have not done.
func (m *Mag) ReadTemp() (int16, error) {
	return 0, ErrNotSupported
}

// HeadingSector maps a magnetometer reading to one of eight compass sectors,
// 1 = north then clockwise to 8 = north-west.  A zero horizontal field gives 0.
func HeadingSector(s sample.Sample) int {
	if s.X == 0 && s.Y == 0 {
		return 0
	}
	deg := math.Atan2(float64(s.Y), float64(s.X)) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	sector := int(math.Floor((deg+22.5)/45)) % 8
	return sector + 1
}
