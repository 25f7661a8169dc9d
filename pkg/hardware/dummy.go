package hardware

import (
	"github.com/golang/glog"

	"github.com/tigerbot-team/bumperbot/pkg/config"
	"github.com/tigerbot-team/bumperbot/pkg/lsm303"
	"github.com/tigerbot-team/bumperbot/pkg/regbus/fakebus"
)

// NewDummy builds the hardware on an in-memory bus so the control loop can be
// exercised off the robot.  GPIO and sound are left out; the bus is returned
// so the caller can feed in accelerometer readings.
func NewDummy(cfg *config.Config) (*Hardware, *fakebus.Bus, error) {
	dryCfg := *cfg
	dryCfg.Indicator.GPIOPins = nil
	dryCfg.Sound.Bump = ""

	bus := fakebus.New()
	bus.IgnoreBits(lsm303.AccelAddr, lsm303.AccelAutoIncrement)
	h, err := NewWithBus(&dryCfg, bus)
	if err != nil {
		return nil, nil, err
	}
	glog.Info("DHW: running on a fake bus")
	return h, bus, nil
}
