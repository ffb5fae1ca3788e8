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

package support

import (
	"errors"
	"fmt"
	"math/big"
)

const (
	VCOMin     = 400_000_000 // relaxed from the 600MHz datasheet floor
	VCOMax     = 900_000_000
	VCONominal = 700_000_000

	// Denominator is the fixed c in every PLL multiplier a + b/c.
	Denominator = 1_000_000

	MSMin = 4
	MSMax = 126

	// RMax is the largest output R divider.
	RMax = 128

	crystalMin = 10_000_000
	crystalMax = 40_000_000
	pllMin     = 15
	pllMax     = 90
)

var (
	ErrCrystal    = errors.New("plan: invalid crystal frequency")
	ErrFrequency  = errors.New("plan: invalid output frequency")
	ErrVCORange   = errors.New("plan: VCO frequency out of range")
	ErrMultiplier = errors.New("plan: PLL multiplier out of range")
)

// Policy says what NewPlan does when the band table puts the VCO out of range.
type Policy uint8

const (
	// Reject returns ErrVCORange.
	Reject Policy = iota
	// RefitR keeps the MultiSynth divider and looks for the smallest R
	// divider that brings the VCO back into range.
	RefitR
)

func (p Policy) String() string {
	switch p {
	case Reject:
		return "reject"
	case RefitR:
		return "refit"
	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

// Fraction is a PLL feedback ratio A + B/C.
type Fraction struct {
	A, B, C uint32
}

// Rat returns the exact value of the fraction.
func (f Fraction) Rat() *big.Rat {
	r := new(big.Rat).SetFrac64(int64(f.B), int64(f.C))
	return r.Add(r, new(big.Rat).SetInt64(int64(f.A)))
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d + %d/%d", f.A, f.B, f.C)
}

// Plan holds the divider chain for one output frequency.
type Plan struct {
	Crystal   uint32   // reference frequency (Hz)
	Frequency uint32   // requested output frequency (Hz)
	R         uint32   // output R divider, a power of two
	MS        uint32   // integer MultiSynth divider, always even
	PLL       Fraction // PLL multiplier
	VCO       uint64   // Frequency * MS * R
}

/*
NewPlan chooses the dividers for output frequency `f` given a reference
crystal of `crystal` Hz.

The MultiSynth divider is kept even and integer so that the outputs can be
put into integer mode and so that a phase offset equal to the divider gives
exactly a quarter cycle. All of the fine tuning is done in the PLL multiplier
which has a fixed denominator of 1,000,000.

The band table from Dividers doesn't always land the VCO in the 400-900MHz
window. With a 25MHz crystal anything under 3,174,604Hz ends up above 900MHz
and anything over 225MHz ends up above it as well. The policy decides whether
that is an error or whether a different R divider is tried.
*/
func NewPlan(crystal, f uint32, policy Policy) (Plan, error) {
	if crystal < crystalMin || crystal > crystalMax {
		return Plan{}, fmt.Errorf("%w: %d Hz", ErrCrystal, crystal)
	}
	if f == 0 {
		return Plan{}, fmt.Errorf("%w: 0 Hz", ErrFrequency)
	}
	r, ms := Dividers(f)
	vco := uint64(f) * uint64(ms) * uint64(r)
	if !vcoInRange(vco) {
		if policy != RefitR {
			return Plan{}, fmt.Errorf("%w: %d Hz * %d * %d = %d Hz", ErrVCORange, f, ms, r, vco)
		}
		var ok bool
		r, ok = refitR(f, ms)
		if !ok {
			return Plan{}, fmt.Errorf("%w: no R divider fits %d Hz with MultiSynth %d", ErrVCORange, f, ms)
		}
		vco = uint64(f) * uint64(ms) * uint64(r)
	}

	p := Plan{
		Crystal:   crystal,
		Frequency: f,
		R:         r,
		MS:        ms,
		PLL:       multiplier(vco, crystal),
		VCO:       vco,
	}
	if p.PLL.A < pllMin || p.PLL.A > pllMax || p.PLL.A == pllMax && p.PLL.B > 0 {
		return Plan{}, fmt.Errorf("%w: %s", ErrMultiplier, p.PLL)
	}
	return p, nil
}

// Dividers picks the R divider by band and the MultiSynth divider aiming
// for a 700MHz VCO. The result is not checked against the VCO range.
func Dividers(f uint32) (r, ms uint32) {
	switch {
	case f < 1_000_000:
		r = 128
	case f < 3_000_000:
		r = 32
	default:
		r = 1
	}

	if f < 6_000_000 {
		return r, MSMax
	}
	tentative := uint64(VCONominal) / (uint64(f) * uint64(r))
	if tentative < MSMin {
		tentative = MSMin
	}
	if tentative > MSMax {
		tentative = MSMax
	}
	if tentative&1 != 0 {
		tentative++
	}
	if tentative > MSMax {
		tentative = MSMax
	}
	return r, uint32(tentative)
}

func refitR(f, ms uint32) (uint32, bool) {
	for r := uint32(1); r <= RMax; r *= 2 {
		if vcoInRange(uint64(f) * uint64(ms) * uint64(r)) {
			return r, true
		}
	}
	return 0, false
}

func vcoInRange(vco uint64) bool {
	return vco >= VCOMin && vco <= VCOMax
}

// multiplier computes vco/crystal as A + B/Denominator. B is truncated so the
// error is always less than one part in Denominator of the crystal.
func multiplier(vco uint64, crystal uint32) Fraction {
	x := uint64(crystal)
	return Fraction{
		A: uint32(vco / x),
		B: uint32(vco % x * Denominator / x),
		C: Denominator,
	}
}

// Output is the exact frequency that the quantized PLL multiplier produces.
func (p Plan) Output() *big.Rat {
	out := p.PLL.Rat()
	out.Mul(out, new(big.Rat).SetInt64(int64(p.Crystal)))
	return out.Quo(out, new(big.Rat).SetInt64(int64(p.MS)*int64(p.R)))
}

// Eps is the requested frequency minus the actual one, in Hz.
func (p Plan) Eps() float64 {
	eps := new(big.Rat).SetInt64(int64(p.Frequency))
	eps.Sub(eps, p.Output())
	v, _ := eps.Float64()
	return v
}

func (p Plan) String() string {
	return fmt.Sprintf("f=%d Hz R=%d MS=%d PLL=%s VCO=%d Hz", p.Frequency, p.R, p.MS, p.PLL, p.VCO)
}
