// Command pulsegen builds a named strobe pulse train and either prints its
// timing/bitstream statistics or streams it to real SPI hardware, for
// bench-testing the strobe circuit independent of the full Cam1 state
// machine (spec.md §4.1 "StrobePulseTrain").
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/pitrac/lm/internal/config"
	"github.com/pitrac/lm/internal/pulse"
)

var (
	configFile = flag.String("config", config.DefaultConfigPath, "Path to JSON tuning configuration file")
	regimeFlag = flag.String("regime", "driver", "Pulse train to build: driver or putter")
	send       = flag.Bool("send", false, "Stream the built train to real SPI hardware instead of just printing stats")
	spiPort    = flag.String("spi-port", "", "SPI port name (empty picks the first available)")
	shutterPin = flag.String("shutter-pin", "GPIO17", "GPIO pin name for the shutter-enable line")
	echoPort   = flag.String("serial-echo-port", "", "If set, also mirror the bitstream to this serial port for scope/logic-analyzer probing")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Printf("using default configuration: %v", err)
		cfg = config.Default()
	}

	var regime pulse.Regime
	switch *regimeFlag {
	case "putter":
		regime = pulse.RegimePutter
	case "driver":
		regime = pulse.RegimeDriver
	default:
		log.Fatalf("unknown -regime %q (want driver or putter)", *regimeFlag)
	}

	train := pulse.NewTrain(cfg, regime)
	buf, err := train.Build()
	if err != nil {
		log.Fatalf("build pulse train: %v", err)
	}

	fmt.Printf("regime:         %s\n", *regimeFlag)
	fmt.Printf("pulses:         %d\n", len(train.OffDurationsMs))
	fmt.Printf("baud:           %d\n", train.BaudRate)
	fmt.Printf("on-pulse bits:  %d\n", train.OnWidthBits)
	fmt.Printf("bitstream size: %d bytes\n", len(buf))
	fmt.Printf("total on-time:  %.4f s\n", train.TotalOnTimeSeconds())

	if *echoPort != "" {
		echo, err := pulse.OpenSerialEchoWriter(*echoPort, train.BaudRate)
		if err != nil {
			log.Fatalf("open serial echo port: %v", err)
		}
		defer echo.Close()
		if err := echo.Send(buf, train.BaudRate); err != nil {
			log.Fatalf("echo pulse train: %v", err)
		}
		fmt.Println("echoed to", *echoPort)
	}

	if !*send {
		return
	}

	writer, err := pulse.OpenSPIWriter(*spiPort, *shutterPin)
	if err != nil {
		log.Fatalf("open SPI writer: %v", err)
	}
	defer writer.Close()

	if err := writer.Send(buf, train.BaudRate); err != nil {
		log.Fatalf("send pulse train: %v", err)
	}
	fmt.Println("sent.")
}
