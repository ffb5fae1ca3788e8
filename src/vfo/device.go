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

/*
Package vfo drives a Si5351A as two virtual frequency outputs.

VFO0 drives CLK0 and CLK1 from PLLA. CLK1 can be put 0, 90, 180 or 270
degrees behind CLK0 which gives the quadrature pair needed by a
Tayloe detector or a phasing exciter. VFO1 drives CLK2 from PLLB and has no
phase control.

Setting a frequency or a phase only changes the state held in memory. The
chip is touched when Apply is called and every Apply finishes by resetting
both PLLs. That reset glitches the other VFO as well, so batch frequency and
phase changes and apply once.
*/
package vfo

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"tinygo.org/x/drivers"

	"quadvfo/src/support"
)

// VFO selects one of the two virtual outputs.
type VFO uint8

const (
	VFO0 VFO = iota // CLK0 and CLK1 from PLLA
	VFO1            // CLK2 from PLLB
)

// Phase of CLK1 relative to CLK0.
type Phase uint8

const (
	Phase0 Phase = iota
	Phase90
	Phase180
	Phase270
)

// Degrees returns the phase in degrees.
func (p Phase) Degrees() int {
	return int(p) * 90
}

func (p Phase) String() string {
	return fmt.Sprintf("%d°", p.Degrees())
}

// PhaseOf converts 0, 90, 180 or 270 degrees to a Phase.
func PhaseOf(degrees int) (Phase, error) {
	if degrees < 0 || degrees > 270 || degrees%90 != 0 {
		return 0, fmt.Errorf("%w: %d degrees", ErrInvalidPhase, degrees)
	}
	return Phase(degrees / 90), nil
}

var (
	ErrInvalidVFO   = errors.New("vfo: invalid VFO")
	ErrInvalidPhase = errors.New("vfo: phase must be 0, 90, 180 or 270 degrees")
	ErrNotConnected = errors.New("vfo: no Si5351 on the bus")
)

// Power-on defaults for the two VFOs.
const (
	DefaultCrystal    = 25_000_000
	DefaultFrequency0 = 7_074_000
	DefaultPhase0     = Phase270
	DefaultFrequency1 = 10_000_000
)

// Config holds the construction time settings of a Device.
type Config struct {
	// Address defaults to 0x60.
	Address uint16
	// Crystal is the reference frequency in Hz, 25MHz if zero.
	Crystal uint32
	// Policy decides what happens to frequencies the band table can't reach.
	Policy support.Policy
	// Load is written to the crystal load register during Configure unless
	// it is LoadUnchanged.
	Load CrystalLoad
	// Probe makes Configure check for the chip before writing anything.
	Probe bool
	// Logger receives plan and apply messages. Nil is silent.
	Logger *log.Logger
}

// State is what the driver knows about one VFO.
type State struct {
	support.Plan
	Phase Phase
}

// Device is a Si5351A split into two VFOs. The methods on a Device are
// serialized by an internal lock but nothing stops another Device or another
// process from talking to the same chip.
type Device struct {
	mu      sync.Mutex
	bus     drivers.I2C
	addr    uint16
	crystal uint32
	policy  support.Policy
	load    CrystalLoad
	probe   bool
	log     *log.Logger
	vfo     [2]State
}

// New returns a Device on the given bus. Nothing is written to the chip
// until Configure.
func New(bus drivers.I2C, cfg Config) (*Device, error) {
	d := &Device{
		bus:     bus,
		addr:    cfg.Address,
		crystal: cfg.Crystal,
		policy:  cfg.Policy,
		load:    cfg.Load,
		probe:   cfg.Probe,
		log:     cfg.Logger,
	}
	if d.addr == 0 {
		d.addr = Address
	}
	if d.crystal == 0 {
		d.crystal = DefaultCrystal
	}
	if err := d.defaults(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) defaults() error {
	p0, err := support.NewPlan(d.crystal, DefaultFrequency0, d.policy)
	if err != nil {
		return fmt.Errorf("vfo: default VFO0: %w", err)
	}
	p1, err := support.NewPlan(d.crystal, DefaultFrequency1, d.policy)
	if err != nil {
		return fmt.Errorf("vfo: default VFO1: %w", err)
	}
	d.vfo[VFO0] = State{Plan: p0, Phase: DefaultPhase0}
	d.vfo[VFO1] = State{Plan: p1, Phase: Phase0}
	return nil
}

// Configure brings the chip up: spread spectrum off, outputs on MultiSynth
// at 4mA, both VFOs back to their defaults and applied, VFO0 enabled and
// VFO1 disabled.
func (d *Device) Configure() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.probe {
		if err := Probe(d.bus); err != nil {
			return err
		}
	}
	if err := d.writeByte(RegSpreadSpec, 0); err != nil {
		return err
	}
	if err := d.writeByte(RegCLK0Control, ClkSourceMS|ClkDrive4mA); err != nil {
		return err
	}
	if err := d.writeByte(RegCLK1Control, ClkSourceMS|ClkDrive4mA); err != nil {
		return err
	}
	if err := d.writeByte(RegCLK2Control, ClkSourceMS|ClkPLLB|ClkDrive4mA); err != nil {
		return err
	}
	if d.load != LoadUnchanged {
		if err := d.writeByte(RegCrystalLoad, byte(d.load)); err != nil {
			return err
		}
	}

	if err := d.defaults(); err != nil {
		return err
	}
	if err := d.apply(VFO0); err != nil {
		return err
	}
	if err := d.apply(VFO1); err != nil {
		return err
	}
	if err := d.setEnabled(VFO0, true); err != nil {
		return err
	}
	return d.setEnabled(VFO1, false)
}

// ResetPLLs resets PLLA and PLLB together. This is needed after the dividers
// change and causes a short glitch on every output.
func (d *Device) ResetPLLs() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resetPLLs()
}

func (d *Device) resetPLLs() error {
	return d.writeByte(RegPLLReset, resetPLLA|resetPLLB)
}

// SetEnabled turns the clocks owned by a VFO on or off. The output enable
// register is read, modified and written back.
func (d *Device) SetEnabled(v VFO, on bool) error {
	if err := v.check(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setEnabled(v, on)
}

func (d *Device) setEnabled(v VFO, on bool) error {
	oe, err := d.readByte(RegOutputEnable)
	if err != nil {
		return err
	}
	mask := v.outputs()
	if on {
		oe &^= mask
	} else {
		oe |= mask
	}
	return d.writeByte(RegOutputEnable, oe)
}

// Enabled reports whether all of the clocks owned by a VFO are enabled.
func (d *Device) Enabled(v VFO) (bool, error) {
	if err := v.check(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	oe, err := d.readByte(RegOutputEnable)
	if err != nil {
		return false, err
	}
	return oe&v.outputs() == 0, nil
}

// SetPhase sets the phase of CLK1 relative to CLK0. Only VFO0 has phase
// control. The new phase takes effect on the next Apply.
func (d *Device) SetPhase(v VFO, p Phase) error {
	if v != VFO0 {
		return fmt.Errorf("%w: VFO%d has no phase control", ErrInvalidVFO, v)
	}
	if p > Phase270 {
		return fmt.Errorf("%w: %d", ErrInvalidPhase, p)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vfo[v].Phase = p
	return nil
}

// SetFrequency plans the dividers for a new frequency. Asking for the
// frequency already held does nothing. If the frequency can't be planned the
// old state is kept. The new frequency takes effect on the next Apply.
func (d *Device) SetFrequency(v VFO, hz uint32) error {
	if err := v.check(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.vfo[v].Frequency == hz {
		return nil
	}
	p, err := support.NewPlan(d.crystal, hz, d.policy)
	if err != nil {
		return fmt.Errorf("vfo: VFO%d: %w", v, err)
	}
	d.vfo[v].Plan = p
	d.logf("VFO%d planned %s", v, p)
	return nil
}

// Apply writes the registers for a VFO and then resets both PLLs.
func (d *Device) Apply(v VFO) error {
	if err := v.check(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.apply(v)
}

func (d *Device) apply(v VFO) error {
	s := d.vfo[v]
	pll, err := support.EncodePLL(s.PLL)
	if err != nil {
		return err
	}
	ms, err := support.EncodeMultisynth(s.MS, s.R)
	if err != nil {
		return err
	}
	ctl := byte(ClkInteger | ClkSourceMS | ClkDrive4mA)

	switch v {
	case VFO0:
		if err := d.writeBytes(RegPLLA, pll[:]); err != nil {
			return err
		}
		if err := d.writeBytes(RegMS0, ms[:]); err != nil {
			return err
		}
		if err := d.writeBytes(RegMS1, ms[:]); err != nil {
			return err
		}

		// The offset counts quarter VCO periods so MS of them is a quarter of
		// the output period when R is 1. Inverting CLK1 adds 180 degrees.
		offset := byte(0)
		if s.Phase == Phase90 || s.Phase == Phase270 {
			offset = byte(s.MS) & phaseMask
		}
		if err := d.writeByte(RegCLK0Phase, 0); err != nil {
			return err
		}
		if err := d.writeByte(RegCLK1Phase, offset); err != nil {
			return err
		}
		ctl1 := ctl
		if s.Phase == Phase180 || s.Phase == Phase270 {
			ctl1 |= ClkInvert
		}
		if err := d.writeByte(RegCLK0Control, ctl); err != nil {
			return err
		}
		if err := d.writeByte(RegCLK1Control, ctl1); err != nil {
			return err
		}
	case VFO1:
		if err := d.writeBytes(RegPLLB, pll[:]); err != nil {
			return err
		}
		if err := d.writeBytes(RegMS2, ms[:]); err != nil {
			return err
		}
		if err := d.writeByte(RegCLK2Control, ctl|ClkPLLB); err != nil {
			return err
		}
	}
	d.logf("VFO%d applied %s phase %s", v, s.Plan, s.Phase)

	return d.resetPLLs()
}

// State returns the planned state of a VFO.
func (d *Device) State(v VFO) (State, error) {
	if err := v.check(); err != nil {
		return State{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vfo[v], nil
}

// Plan works out the dividers this Device would use for a frequency without
// changing any state.
func (d *Device) Plan(hz uint32) (support.Plan, error) {
	return support.NewPlan(d.crystal, hz, d.policy)
}

// Crystal returns the reference frequency the Device plans with.
func (d *Device) Crystal() uint32 {
	return d.crystal
}

func (v VFO) check() error {
	if v > VFO1 {
		return fmt.Errorf("%w: %d", ErrInvalidVFO, v)
	}
	return nil
}

func (v VFO) outputs() byte {
	if v == VFO0 {
		return oeVFO0
	}
	return oeVFO1
}

func (d *Device) logf(format string, args ...interface{}) {
	if d.log != nil {
		d.log.Printf(format, args...)
	}
}

func (d *Device) writeByte(reg, value byte) error {
	return d.writeBytes(reg, []byte{value})
}

func (d *Device) writeBytes(reg byte, data []byte) error {
	buf := make([]byte, len(data)+1)
	buf[0] = reg
	copy(buf[1:], data)
	if err := d.bus.Tx(d.addr, buf, nil); err != nil {
		return fmt.Errorf("vfo: write reg %d: %w", reg, err)
	}
	return nil
}

func (d *Device) readBytes(reg byte, data []byte) error {
	if err := d.bus.Tx(d.addr, []byte{reg}, data); err != nil {
		return fmt.Errorf("vfo: read reg %d: %w", reg, err)
	}
	return nil
}

func (d *Device) readByte(reg byte) (byte, error) {
	buf := []byte{0}
	err := d.readBytes(reg, buf)
	return buf[0], err
}
