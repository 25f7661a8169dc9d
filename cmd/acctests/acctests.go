package main

import (
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/alecthomas/kong"
	"github.com/golang/glog"

	"github.com/tigerbot-team/bumperbot/pkg/i2cbus"
	"github.com/tigerbot-team/bumperbot/pkg/lsm303"
	"github.com/tigerbot-team/bumperbot/pkg/sample"
)

var CLI struct {
	Backend string        `help:"I2C backend, periph or devfs." default:"periph" enum:"periph,devfs"`
	Device  string        `help:"I2C bus." default:"/dev/i2c-1"`
	Rate    int           `help:"Accelerometer rate in Hz." default:"400"`
	Period  time.Duration `help:"Time between prints." default:"200ms"`
	Mag     bool          `help:"Also read the magnetometer." default:"true" negatable:""`
	Verbose int           `short:"v" help:"Log verbosity."`
}

func main() {
	kong.Parse(&CLI)
	_ = flag.Set("logtostderr", "true")
	_ = flag.Set("v", strconv.Itoa(CLI.Verbose))
	_ = flag.CommandLine.Parse(nil)
	defer glog.Flush()

	bus, err := i2cbus.Open(CLI.Backend, CLI.Device)
	if err != nil {
		glog.Errorf("Failed to open bus: %v", err)
		return
	}
	defer bus.Close()

	rate, err := lsm303.AccelRateForHz(CLI.Rate)
	if err != nil {
		glog.Error(err)
		return
	}
	accel, err := lsm303.NewAccel(bus, rate)
	if err != nil {
		glog.Errorf("Failed to configure accelerometer: %v", err)
		return
	}
	var mag *lsm303.Mag
	if CLI.Mag {
		mag, err = lsm303.NewMag(bus, lsm303.MagRate75Hz)
		if err != nil {
			glog.Warningf("Failed to configure magnetometer, skipping it: %v", err)
			mag = nil
		}
	}

	var window sample.Window
	for {
		s, err := accel.ReadSample()
		if err != nil {
			glog.Errorf("Failed to read accelerometer: %v", err)
			return
		}
		full := window.Mean(sample.MeanFull)
		skip := window.Mean(sample.MeanSkipNewest)
		fmt.Printf("accel %v  mean %v  skip-newest %v  diff %v\n",
			s, full, skip, sample.Sub(s, skip))
		window.Push(s)

		if mag != nil {
			m, err := mag.ReadSample()
			if err != nil {
				glog.Warningf("Failed to read magnetometer: %v", err)
			} else {
				fmt.Printf("mag   %v  sector %d (%s)\n", m, lsm303.HeadingSector(m), sectorName(lsm303.HeadingSector(m)))
			}
		}
		time.Sleep(CLI.Period)
	}
}

func sectorName(s int) string {
	names := []string{"-", "N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	if s < 0 || s >= len(names) {
		return "?"
	}
	return names[s]
}
