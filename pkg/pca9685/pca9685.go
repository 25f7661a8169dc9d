package pca9685

import (
	"fmt"
	"math"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"periph.io/x/periph/conn/physic"

	"github.com/tigerbot-team/bumperbot/pkg/clock"
	"github.com/tigerbot-team/bumperbot/pkg/regbus"
)

const (
	DefaultAddr = 0x40

	RegMode1 = 0x00
	RegMode2 = 0x01

	// Each PWM output has two 16-bit (low byte first) registers.
	// First register is the on time, second is the off time.
	RegLEDBase = 0x06
	// Writing here programs every channel at once.
	RegAllLED = 0xfa

	RegPreScale = 0xfe // Pre-scaler for PWM frequency.
	RegTestMode = 0xff

	// Auto-increment on, respond to the all-call address.
	Mode1AutoIncrement = 0b00100001
	mode1Sleep         = 0x10
	mode1Restart       = 0x80

	PWMMax = 0xfff

	NumChannels = 16

	oscillator = 25 * physic.MegaHertz
)

// DebugAssertions makes out-of-range PWM values panic instead of being
// truncated to 12 bits.  Tests turn it on.
var DebugAssertions = false

// Channel is an output, 0-15, or All.
type Channel int

const All Channel = -1

func (c Channel) baseRegister() (byte, error) {
	if c == All {
		return RegAllLED, nil
	}
	if c < 0 || c >= NumChannels {
		return 0, errors.Errorf("PWM channel out of range: %d", int(c))
	}
	return byte(RegLEDBase + 4*int(c)), nil
}

func (c Channel) String() string {
	if c == All {
		return "all"
	}
	return fmt.Sprintf("%d", int(c))
}

type Interface interface {
	Init() error
	SetPWM(ch Channel, on, off uint16) error
	SetMultiplePWM(chs []Channel, on, off uint16) error
}

type PCA9685 struct {
	dev regbus.Device
}

var _ Interface = (*PCA9685)(nil)

func New(bus regbus.Bus) *PCA9685 {
	return &PCA9685{
		dev: regbus.Device{Bus: bus, Addr: DefaultAddr},
	}
}

// Init turns on register auto-increment so a channel can be written in one go.
func (p *PCA9685) Init() error {
	if err := p.dev.WriteRegister(RegMode1, Mode1AutoIncrement); err != nil {
		return errors.Wrap(err, "pca9685 init")
	}
	glog.Info("PCA9685 initialised")
	return nil
}

// SetPWM programs the 12-bit on and off counts of one channel.
func (p *PCA9685) SetPWM(ch Channel, on, off uint16) error {
	reg, err := ch.baseRegister()
	if err != nil {
		return err
	}
	on = Check12Bit("on", on)
	off = Check12Bit("off", off)
	return p.dev.WriteRegister(reg, byte(on), byte(on>>8), byte(off), byte(off>>8))
}

// SetMultiplePWM applies the same counts to each channel in order, stopping at
// the first failure.
func (p *PCA9685) SetMultiplePWM(chs []Channel, on, off uint16) error {
	for _, ch := range chs {
		if err := p.SetPWM(ch, on, off); err != nil {
			return errors.Wrapf(err, "pca9685 channel %v", ch)
		}
	}
	return nil
}

// Check12Bit masks v to the chip's 12-bit range, or panics if DebugAssertions
// is set and v is out of range.
func Check12Bit(name string, v uint16) uint16 {
	if v > PWMMax {
		if DebugAssertions {
			panic(fmt.Sprintf("pca9685: %s value 0x%x exceeds 12 bits", name, v))
		}
		return v & PWMMax
	}
	return v
}

// Prescale returns the pre-scaler value for the requested output frequency.
func Prescale(f physic.Frequency) (byte, error) {
	v := math.Round(float64(oscillator)/(4096*float64(f))) - 1
	if v < 3 || v > 255 {
		return 0, errors.Errorf("PWM frequency %s out of range", f)
	}
	return byte(v), nil
}

// SetFrequency puts the chip to sleep, updates the pre-scaler and restarts it.
// The oscillator needs 500us to settle after waking; we wait on the clock.
func (p *PCA9685) SetFrequency(f physic.Frequency, src clock.TimeSource) (err error) {
	prescale, err := Prescale(f)
	if err != nil {
		return err
	}
	// Put device to sleep.
	err = p.dev.WriteRegister(RegMode1, Mode1AutoIncrement|mode1Sleep)
	if err != nil {
		return
	}
	err = p.dev.WriteRegister(RegPreScale, prescale)
	if err != nil {
		return
	}
	err = p.dev.WriteRegister(RegMode1, Mode1AutoIncrement)
	if err != nil {
		return
	}
	// Two ticks guarantees at least one full tick has elapsed.
	clock.Wait(clock.NewDelay(2, src), src)
	err = p.dev.WriteRegister(RegMode1, Mode1AutoIncrement|mode1Restart)
	if err == nil {
		glog.Infof("PCA9685 frequency %s, prescale 0x%02x", f, prescale)
	}
	return
}

func Dummy() Interface {
	return &dummyPWM{}
}

type dummyPWM struct {
}

func (*dummyPWM) Init() error {
	return nil
}

func (*dummyPWM) SetPWM(ch Channel, on, off uint16) error {
	glog.V(2).Infof("Dummy PWM channel=%v on=%d off=%d", ch, on, off)
	return nil
}

func (*dummyPWM) SetMultiplePWM(chs []Channel, on, off uint16) error {
	return nil
}
