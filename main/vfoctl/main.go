/*
 * Copyright 2025 Ted Dunning
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

//go:build linux

// vfoctl brings up a Si5351A on a Linux I2C adapter and then runs commands
// against it, from the command line or from script files ("-" is stdin).
//
//	vfoctl -c vfo.yaml -e 'freq 0 14.097M' -e 'apply 0' -e status
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/pflag"
	"tinygo.org/x/drivers"

	"quadvfo/src/config"
	"quadvfo/src/i2cdev"
	"quadvfo/src/script"
	"quadvfo/src/vfo"
)

const Version = "v0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
}

// run does everything main does but returns errors so that deferred
// cleanup happens.
func run(args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("vfoctl", pflag.ContinueOnError)
	var (
		configFile = flags.StringP("config", "c", "", "YAML configuration file (default: built-in settings)")
		busPath    = flags.StringP("bus", "b", "", "i2c-dev adapter, overrides the config file")
		address    = flags.Uint16("address", vfo.Address, "7 bit I2C address of the chip")
		crystal    = flags.Uint32("crystal", vfo.DefaultCrystal, "Reference crystal frequency in Hz")
		dryRun     = flags.Bool("dry-run", false, "Use an in-memory chip instead of the bus")
		probe      = flags.Bool("probe", false, "Check that the chip answers before writing to it")
		commands   = flags.StringArrayP("exec", "e", nil, "Command to run, may be repeated")
		verbose    = flags.BoolP("verbose", "v", false, "Log plans and every bus transaction")
		version    = flags.Bool("version", false, "Print version and exit")
	)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if *version {
		fmt.Fprintf(stdout, "vfoctl %s\n", Version)
		return nil
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadConfig(*configFile); err != nil {
			return err
		}
	}
	if flags.Changed("bus") {
		cfg.Bus = *busPath
	}
	if flags.Changed("address") {
		cfg.Address = *address
	}
	if flags.Changed("crystal") {
		cfg.Crystal = *crystal
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = *dryRun
	}
	if flags.Changed("probe") {
		cfg.Probe = *probe
	}
	if *verbose {
		cfg.Trace = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	bus, closer, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	var logger *log.Logger
	if *verbose {
		logger = log.Default()
	}
	dc, err := cfg.Device(logger)
	if err != nil {
		return err
	}
	dev, err := vfo.New(bus, dc)
	if err != nil {
		return err
	}
	if err := dev.Configure(); err != nil {
		return fmt.Errorf("failed to configure Si5351 at %#02x: %w", cfg.Address, err)
	}
	if err := cfg.Setup(dev); err != nil {
		return err
	}

	in := &script.Interpreter{Dev: dev, Out: stdout}
	for _, cmd := range *commands {
		if err := in.Exec(cmd); err != nil {
			return fmt.Errorf("%q: %w", cmd, err)
		}
	}
	for _, name := range flags.Args() {
		if err := runFile(in, name); err != nil {
			return err
		}
	}
	return nil
}

func openBus(cfg *config.Config) (drivers.I2C, io.Closer, error) {
	var bus drivers.I2C
	var closer io.Closer = nopCloser{}
	if cfg.DryRun {
		log.Printf("Dry run: using an in-memory Si5351 at %#02x", cfg.Address)
		bus = i2cdev.NewDryRun(cfg.Address)
	} else {
		b, err := i2cdev.Open(cfg.Bus)
		if err != nil {
			return nil, nil, err
		}
		bus, closer = b, b
	}
	if cfg.Trace {
		bus = i2cdev.Trace{Bus: bus, Log: log.Default()}
	}
	return bus, closer, nil
}

func runFile(in *script.Interpreter, name string) error {
	if name == "-" {
		return in.Run("stdin", os.Stdin)
	}
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return in.Run(name, f)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
