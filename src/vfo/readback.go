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

package vfo

import (
	"fmt"
	"math/big"

	"quadvfo/src/support"
)

// Readback is a VFO's divider chain as read from the chip.
type Readback struct {
	PLL      support.Fraction
	MS, R    uint32
	Offset   byte // CLK1 phase offset, VFO0 only
	Inverted bool // CLK1 inverted, VFO0 only
	Enabled  bool
}

// Readback reads and decodes the registers behind a VFO.
func (d *Device) Readback(v VFO) (Readback, error) {
	if err := v.check(); err != nil {
		return Readback{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	pllReg, msReg := byte(RegPLLA), byte(RegMS0)
	if v == VFO1 {
		pllReg, msReg = RegPLLB, RegMS2
	}
	var rb Readback
	var img support.Image
	if err := d.readBytes(pllReg, img[:]); err != nil {
		return rb, err
	}
	pll, err := support.DecodePLL(img)
	if err != nil {
		return rb, fmt.Errorf("vfo: VFO%d PLL: %w", v, err)
	}
	rb.PLL = pll
	if err := d.readBytes(msReg, img[:]); err != nil {
		return rb, err
	}
	rb.MS, rb.R, err = support.DecodeMultisynth(img)
	if err != nil {
		return rb, fmt.Errorf("vfo: VFO%d MultiSynth: %w", v, err)
	}

	if v == VFO0 {
		if rb.Offset, err = d.readByte(RegCLK1Phase); err != nil {
			return rb, err
		}
		rb.Offset &= phaseMask
		ctl, err := d.readByte(RegCLK1Control)
		if err != nil {
			return rb, err
		}
		rb.Inverted = ctl&ClkInvert != 0
	}

	oe, err := d.readByte(RegOutputEnable)
	if err != nil {
		return rb, err
	}
	rb.Enabled = oe&v.outputs() == 0
	return rb, nil
}

// Output is the frequency these dividers produce from the given crystal.
func (rb Readback) Output(crystal uint32) *big.Rat {
	out := rb.PLL.Rat()
	out.Mul(out, new(big.Rat).SetInt64(int64(crystal)))
	return out.Quo(out, new(big.Rat).SetInt64(int64(rb.MS)*int64(rb.R)))
}

// Phase works out the CLK1 phase from the offset and inversion. It fails if
// the offset is neither zero nor the MultiSynth divider, or if R is not 1
// since the offset is then a fraction of 90 degrees.
func (rb Readback) Phase() (Phase, bool) {
	if rb.R != 1 {
		return 0, false
	}
	var p Phase
	switch uint32(rb.Offset) {
	case 0:
		p = Phase0
	case rb.MS:
		p = Phase90
	default:
		return 0, false
	}
	if rb.Inverted {
		p += 2
	}
	return p, true
}
