package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/physic"

	"github.com/tigerbot-team/bumperbot/pkg/collision"
	"github.com/tigerbot-team/bumperbot/pkg/lsm303"
	"github.com/tigerbot-team/bumperbot/pkg/motor"
	"github.com/tigerbot-team/bumperbot/pkg/sample"
)

func writeFile(t *testing.T, contents string) string {
	dir, err := ioutil.TempDir("", "bumperbot")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "bumperbot.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	cc, err := c.Collision()
	require.NoError(t, err)
	require.Equal(t, collision.DefaultConfig(), cc)
	require.Equal(t, physic.KiloHertz, c.TickRate())

	r, err := c.AccelRate()
	require.NoError(t, err)
	require.Equal(t, lsm303.AccelRate400Hz, r)
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(os.TempDir(), "does-not-exist", "x.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), c)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeFile(t, `
bus:
  backend: devfs
motors:
  wiring: alternate
control:
  threshold: 8000
  mean_mode: full
  symmetric: true
  cycle_ticks: 5
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "devfs", c.Bus.Backend)
	require.Equal(t, "/dev/i2c-1", c.Bus.Device, "unset fields keep their defaults")

	w, err := c.Wiring()
	require.NoError(t, err)
	require.Equal(t, motor.AlternateWiring, w)

	cc, err := c.Collision()
	require.NoError(t, err)
	require.Equal(t, int32(8000), cc.Threshold)
	require.Equal(t, sample.MeanFull, cc.MeanMode)
	require.True(t, cc.Symmetric)
	require.EqualValues(t, 5, cc.CycleTicks)
	require.EqualValues(t, collision.DefaultSettleTicks, cc.SettleTicks)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeFile(t, "control:\n  threshhold: 5\n"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	for _, contents := range []string{
		"bus:\n  backend: spi\n",
		"accel:\n  rate_hz: 123\n",
		"mag:\n  enabled: true\n  rate_hz: 100\n",
		"pwm:\n  frequency_hz: 5\n",
		"motors:\n  wiring: tank\n",
		"control:\n  threshold: 0\n",
		"control:\n  drive_speed: 5000\n",
		"control:\n  mean_mode: median\n",
		"indicator:\n  gpio_pins: [GPIO5]\n",
		"clock:\n  tick_hz: 0\n",
		"telemetry:\n  baud_rate: -1\n",
	} {
		_, err := Load(writeFile(t, contents))
		require.Error(t, err, contents)
	}
}

func TestDisabledMagSkipsRateCheck(t *testing.T) {
	_, err := Load(writeFile(t, "mag:\n  enabled: false\n  rate_hz: 100\n"))
	require.NoError(t, err)
}

func TestWriteInUseRoundTrips(t *testing.T) {
	c := Default()
	c.Control.Symmetric = true
	path := writeFile(t, "")
	require.NoError(t, c.WriteInUse(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, c, loaded)
}
