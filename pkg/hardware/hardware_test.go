package hardware

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/bumperbot/pkg/collision"
	"github.com/tigerbot-team/bumperbot/pkg/config"
	"github.com/tigerbot-team/bumperbot/pkg/lsm303"
	"github.com/tigerbot-team/bumperbot/pkg/motor"
	"github.com/tigerbot-team/bumperbot/pkg/pca9685"
	"github.com/tigerbot-team/bumperbot/pkg/regbus/fakebus"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Control.SettleTicks = 2
	cfg.Indicator.GPIOPins = nil
	cfg.Sound.Bump = ""
	return cfg
}

func TestDummyInitSequence(t *testing.T) {
	h, bus, err := NewDummy(testConfig())
	require.NoError(t, err)
	defer h.Shutdown()

	require.Equal(t, [][]byte{{0x20, 0x77}}, bus.Writes(lsm303.AccelAddr))
	require.Equal(t, [][]byte{{0x02, 0x00}, {0x00, 0x98}}, bus.Writes(lsm303.MagAddr))

	pwm := bus.Writes(pca9685.DefaultAddr)
	require.Len(t, pwm, 5+8)
	require.Equal(t, []byte{0x00, 0x21}, pwm[0])
	require.Equal(t, []byte{0xfe, 0x05}, pwm[2])
	require.Equal(t, []byte{0x00, 0xa1}, pwm[4])
	for _, w := range pwm[5:] {
		require.Equal(t, []byte{0x00, 0x00, 0xff, 0x0f}, w[1:], "motors start off")
	}
	require.NotNil(t, h.Compass())
}

func TestMagnetometerIsOptional(t *testing.T) {
	cfg := testConfig()
	cfg.Mag.Enabled = false
	h, bus, err := NewDummy(cfg)
	require.NoError(t, err)
	defer h.Shutdown()
	require.Nil(t, h.Compass())
	require.Empty(t, bus.Writes(lsm303.MagAddr))
}

func TestAccelFailureIsFatal(t *testing.T) {
	bus := fakebus.New()
	bus.FailAddr(lsm303.AccelAddr, fakebus.ErrNoAck)
	_, err := NewWithBus(testConfig(), bus)
	require.Error(t, err)
}

func TestMagFailureIsNotFatal(t *testing.T) {
	bus := fakebus.New()
	bus.FailAddr(lsm303.MagAddr, fakebus.ErrNoAck)
	h, err := NewWithBus(testConfig(), bus)
	require.NoError(t, err)
	defer h.Shutdown()
	require.Nil(t, h.Compass())
}

func TestControllerReversesOnBump(t *testing.T) {
	h, bus, err := NewDummy(testConfig())
	require.NoError(t, err)
	defer h.Shutdown()

	c, err := h.Controller()
	require.NoError(t, err)
	require.NoError(t, c.Start())
	require.NoError(t, c.Step())
	require.Equal(t, collision.Forward, c.State())

	// Y = 10001, little-endian.
	bus.SetRegisters(lsm303.AccelAddr, lsm303.RegOutXLA, 0x00, 0x00, 0x11, 0x27, 0x00, 0x00)
	require.NoError(t, c.Step())
	require.Equal(t, collision.Backward, c.State())
	require.Equal(t, 1, c.Collisions())
}

func TestShutdownStopsMotors(t *testing.T) {
	h, bus, err := NewDummy(testConfig())
	require.NoError(t, err)
	var hw Interface = h
	require.NoError(t, hw.Motors().DriveAll(motor.Forward, 0x800))
	bus.Reset()
	hw.Shutdown()

	writes := bus.Writes(pca9685.DefaultAddr)
	require.Len(t, writes, 8)
	for _, w := range writes {
		require.Equal(t, []byte{0x00, 0x00, 0xff, 0x0f}, w[1:])
	}
}
