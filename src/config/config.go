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

// Package config reads the YAML file that describes how vfoctl finds and
// sets up the clock chip.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"quadvfo/src/support"
	"quadvfo/src/vfo"
)

var ErrInvalid = errors.New("config: invalid")

// Config is the whole file. Anything left out keeps its default.
type Config struct {
	// Bus is the i2c-dev adapter, ignored for a dry run.
	Bus     string `yaml:"bus"`
	Address uint16 `yaml:"address"`
	Crystal uint32 `yaml:"crystal_hz"`
	// LoadPF is the crystal load capacitance, 0 leaves the chip's setting.
	LoadPF int `yaml:"crystal_load_pf"`
	// Policy is reject or refit.
	Policy string `yaml:"policy"`
	Probe  bool   `yaml:"probe"`
	DryRun bool   `yaml:"dry_run"`
	Trace  bool   `yaml:"trace"`
	VFO0   VFO    `yaml:"vfo0"`
	VFO1   VFO    `yaml:"vfo1"`
}

// VFO is the start-up state of one output. Phase is in degrees and only
// VFO0 can have one.
type VFO struct {
	Frequency uint32 `yaml:"frequency_hz"`
	Phase     int    `yaml:"phase"`
	Enabled   bool   `yaml:"enabled"`
}

// Default matches what the chip is left in after vfo.Device.Configure.
func Default() *Config {
	return &Config{
		Bus:     "/dev/i2c-1",
		Address: vfo.Address,
		Crystal: vfo.DefaultCrystal,
		Policy:  "reject",
		VFO0: VFO{
			Frequency: vfo.DefaultFrequency0,
			Phase:     vfo.DefaultPhase0.Degrees(),
			Enabled:   true,
		},
		VFO1: VFO{
			Frequency: vfo.DefaultFrequency1,
		},
	}
}

// LoadConfig reads and checks a configuration file.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a configuration on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks everything that can be checked without a chip.
func (c *Config) Validate() error {
	if c.Address == 0 || c.Address > 0x7F {
		return fmt.Errorf("%w: address %#x", ErrInvalid, c.Address)
	}
	p, err := c.policy()
	if err != nil {
		return err
	}
	if _, err := vfo.CrystalLoadOf(c.LoadPF); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := vfo.PhaseOf(c.VFO0.Phase); err != nil {
		return fmt.Errorf("%w: vfo0: %w", ErrInvalid, err)
	}
	if c.VFO1.Phase != 0 {
		return fmt.Errorf("%w: vfo1 has no phase control", ErrInvalid)
	}
	for i, v := range []VFO{c.VFO0, c.VFO1} {
		if _, err := support.NewPlan(c.Crystal, v.Frequency, p); err != nil {
			return fmt.Errorf("%w: vfo%d: %w", ErrInvalid, i, err)
		}
	}
	return nil
}

func (c *Config) policy() (support.Policy, error) {
	switch c.Policy {
	case "", "reject":
		return support.Reject, nil
	case "refit":
		return support.RefitR, nil
	}
	return 0, fmt.Errorf("%w: policy %q, want reject or refit", ErrInvalid, c.Policy)
}

// Device turns the file into the settings for vfo.New.
func (c *Config) Device(logger *log.Logger) (vfo.Config, error) {
	p, err := c.policy()
	if err != nil {
		return vfo.Config{}, err
	}
	load, err := vfo.CrystalLoadOf(c.LoadPF)
	if err != nil {
		return vfo.Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return vfo.Config{
		Address: c.Address,
		Crystal: c.Crystal,
		Policy:  p,
		Load:    load,
		Probe:   c.Probe,
		Logger:  logger,
	}, nil
}

// Setup puts a configured device into the start-up state from the file.
// Both VFOs are planned before anything is written.
func (c *Config) Setup(d *vfo.Device) error {
	phase, err := vfo.PhaseOf(c.VFO0.Phase)
	if err != nil {
		return fmt.Errorf("config: vfo0: %w", err)
	}
	if err := d.SetFrequency(vfo.VFO0, c.VFO0.Frequency); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := d.SetPhase(vfo.VFO0, phase); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := d.SetFrequency(vfo.VFO1, c.VFO1.Frequency); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for i, v := range []VFO{c.VFO0, c.VFO1} {
		n := vfo.VFO(i)
		if err := d.Apply(n); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if err := d.SetEnabled(n, v.Enabled); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}
