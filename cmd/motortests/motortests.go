package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/golang/glog"
	"periph.io/x/periph/conn/physic"

	"github.com/tigerbot-team/bumperbot/pkg/clock"
	"github.com/tigerbot-team/bumperbot/pkg/i2cbus"
	"github.com/tigerbot-team/bumperbot/pkg/motor"
	"github.com/tigerbot-team/bumperbot/pkg/pca9685"
)

var CLI struct {
	Backend string `help:"I2C backend, periph or devfs." default:"periph" enum:"periph,devfs"`
	Device  string `help:"I2C bus." default:"/dev/i2c-1"`
	Wiring  string `help:"Motor wiring table." default:"default" enum:"default,alternate"`
	Speed   uint16 `help:"Duty cycle for the sweep, 0-4095." default:"2048"`
	Verbose int    `short:"v" help:"Log verbosity."`
}

func main() {
	kong.Parse(&CLI)
	_ = flag.Set("logtostderr", "true")
	_ = flag.Set("v", strconv.Itoa(CLI.Verbose))
	_ = flag.CommandLine.Parse(nil)

	bus, err := i2cbus.Open(CLI.Backend, CLI.Device)
	if err != nil {
		fmt.Println("Failed to open bus", err)
		return
	}
	defer bus.Close()

	timer := clock.NewTickerTimer()
	clk, err := clock.New(timer, clock.Config{})
	if err != nil {
		fmt.Println("Failed to start clock", err)
		return
	}
	defer clk.Stop()

	pwmController := pca9685.New(bus)
	if err := pwmController.Init(); err != nil {
		fmt.Println("Failed to configure PCA9685", err)
		return
	}
	if err := pwmController.SetFrequency(physic.KiloHertz, clk); err != nil {
		fmt.Println("Failed to set PWM frequency", err)
		return
	}
	wiring, err := motor.WiringByName(CLI.Wiring)
	if err != nil {
		fmt.Println(err)
		return
	}
	motors, err := motor.New(pwmController, wiring)
	if err != nil {
		fmt.Println("Failed to initialise motors", err)
		return
	}
	defer motors.AllOff()

	fmt.Println(
		`Commands:
    m <motor> <f|b> <speed>  # Drive one motor
    a <f|b> <speed>          # Drive all motors
    sweep                    # Each motor and direction in turn for a second
    off                      # All motors off
    q                        # Quit

<motor>  fl, fr, rl or rr
<speed>  Duty cycle 0-4095`)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "m":
			if len(parts) < 4 {
				fmt.Println("Not enough parameters")
				continue
			}
			m, ok := motorsByName[parts[1]]
			if !ok {
				fmt.Println("Unknown motor", parts[1])
				continue
			}
			dir, speed, ok := parseDirAndSpeed(parts[2], parts[3])
			if !ok {
				continue
			}
			err = motors.SetMotorSpeed(motor.MotorDirection{Motor: m, Direction: dir}, speed)
		case "a":
			if len(parts) < 3 {
				fmt.Println("Not enough parameters")
				continue
			}
			dir, speed, ok := parseDirAndSpeed(parts[1], parts[2])
			if !ok {
				continue
			}
			err = motors.DriveAll(dir, speed)
		case "sweep":
			err = sweep(motors, clk)
		case "off":
			err = motors.AllOff()
		case "q":
			return
		default:
			fmt.Println("Unknown command", parts[0])
			continue
		}
		if err != nil {
			fmt.Println("Failed to write to PCA9685: ", err)
			return
		}
	}
}

var motorsByName = map[string]motor.Motor{
	"fl": motor.FrontLeft,
	"fr": motor.FrontRight,
	"rl": motor.RearLeft,
	"rr": motor.RearRight,
}

func parseDirAndSpeed(d, s string) (motor.Direction, uint16, bool) {
	var dir motor.Direction
	switch d {
	case "f":
		dir = motor.Forward
	case "b":
		dir = motor.Backward
	default:
		fmt.Println("Expected f or b, not ", d)
		return 0, 0, false
	}
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil || v > pca9685.PWMMax {
		fmt.Println("Expected speed 0-4095, not ", s)
		return 0, 0, false
	}
	return dir, uint16(v), true
}

func sweep(motors *motor.Motors, clk *clock.Clock) error {
	for _, m := range motor.AllMotors {
		for _, d := range []motor.Direction{motor.Forward, motor.Backward} {
			md := motor.MotorDirection{Motor: m, Direction: d}
			fmt.Println("Driving", md)
			if err := motors.SetMotorSpeed(md, CLI.Speed); err != nil {
				return err
			}
			clock.Wait(clock.NewDelay(clk.Ticks(time.Second), clk), clk)
			if err := motors.AllOff(); err != nil {
				return err
			}
		}
	}
	glog.Info("Sweep done")
	return nil
}
