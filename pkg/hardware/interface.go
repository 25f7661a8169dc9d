package hardware

import (
	"context"

	"github.com/tigerbot-team/bumperbot/pkg/clock"
	"github.com/tigerbot-team/bumperbot/pkg/collision"
	"github.com/tigerbot-team/bumperbot/pkg/dial"
	"github.com/tigerbot-team/bumperbot/pkg/motor"
	"github.com/tigerbot-team/bumperbot/pkg/sample"
)

type Interface interface {
	// Start runs the background display.  Everything else is owned by the
	// caller's goroutine.
	Start(ctx context.Context)

	Clock() clock.TimeSource
	Motors() motor.Interface
	Indicator() dial.Interface
	Accel() Sensor
	// Compass is nil if the magnetometer is disabled or missing.
	Compass() Sensor

	// Controller builds the collision controller on top of the hardware.
	Controller() (*collision.Controller, error)

	PlaySound(path string)

	// Shutdown stops the motors and releases the bus.
	Shutdown()
}

type Sensor interface {
	ReadSample() (sample.Sample, error)
}
