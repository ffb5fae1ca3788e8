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
	"math/big"
	"testing"
)

func Test_nearest(t *testing.T) {
	tests := []struct {
		name     string
		num, den uint64
		maxC     uint32
		want     Fraction
	}{
		{"base case", 10, 1, 100, Fraction{10, 0, 1}},
		{"null case", 0, 1, 100, Fraction{0, 0, 1}},
		{"exact division", 63, 9, 10, Fraction{7, 0, 1}},
		{"exact answer", 23, 5, 10, Fraction{4, 3, 5}},
		{"limited depth", 2300, 500, 7, Fraction{4, 3, 5}},
		{"less limited depth", 2301, 500, 97, Fraction{4, 3, 5}},
		{"almost unlimited depth", 451, 98, 99, Fraction{4, 59, 98}},
		{"zero limit", 22, 7, 0, Fraction{3, 0, 1}},
		{"zero denominator", 22, 0, 100, Fraction{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Nearest(tt.num, tt.den, tt.maxC); got != tt.want {
				t.Errorf("Nearest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_limit(t *testing.T) {
	// successive convergents of 3.14159265358
	maxC := [][]uint64{
		{5, 3, 1},
		{7, 22, 7},
		{10, 22, 7},
		{105, 22, 7},
		{106, 333, 106},
		{110, 333, 106},
		{113, 355, 113},
		{1000, 355, 113},
		{10000, 355, 113},
		{33000, 355, 113},
		{33102, 103993, 33102},
		{33200, 103993, 33102},
		{33215, 104348, 33215},
		{50000, 104348, 33215},
		{100_000, 312689, 99532},
		{100_000_000, 219684069, 69927611},
	}
	x := big.NewRat(314159265358, 100_000_000_000)
	last := big.NewRat(10, 1)
	for _, m := range maxC {
		f := Nearest(314159265358, 100_000_000_000, uint32(m[0]))
		num := uint64(f.A)*uint64(f.C) + uint64(f.B)
		if num != m[1] || uint64(f.C) != m[2] {
			t.Errorf("%d => %s, but wanted %d/%d", m[0], f, m[1], m[2])
		}
		// residual never grows as the limit is relaxed
		eps := new(big.Rat).Sub(f.Rat(), x)
		eps.Abs(eps)
		if eps.Cmp(last) > 0 {
			t.Errorf("at %d, error increased from %s to %s", m[0], last.FloatString(12), eps.FloatString(12))
		}
		last = eps
	}
}

func Test_refined(t *testing.T) {
	tests := []struct {
		f    uint32
		want Fraction
	}{
		{7_074_000, Fraction{27, 4563, 6250}},
		{10_000_000, Fraction{28, 0, 1}},
		{14_097_000, Fraction{28, 97, 500}},
		{28_126_000, Fraction{27, 3, 3125}},
	}
	for _, tt := range tests {
		p, err := NewPlan(xtal, tt.f, Reject)
		if err != nil {
			t.Fatalf("%d: %v", tt.f, err)
		}
		r := p.Refined()
		if r.PLL != tt.want {
			t.Errorf("%d: refined PLL %s, want %s", tt.f, r.PLL, tt.want)
		}
		if r.Eps() != 0 {
			t.Errorf("%d: refined plan is off by %g Hz", tt.f, r.Eps())
		}
		if r.R != p.R || r.MS != p.MS || r.VCO != p.VCO {
			t.Errorf("%d: refining changed the dividers: %s vs %s", tt.f, r, p)
		}
		if _, err := EncodePLL(r.PLL); err != nil {
			t.Errorf("%d: %v", tt.f, err)
		}
	}

	// an awkward crystal can't be hit exactly but stays within one part in
	// MaxDenominator of the crystal
	for i := 0; i < 1000; i++ {
		f := 3_300_000 + uint32(rand()*220_000_000)
		p, err := NewPlan(26_999_989, f, Reject)
		if err != nil {
			t.Fatalf("%d: %v", f, err)
		}
		r := p.Refined()
		if r.PLL.C > MaxDenominator {
			t.Fatalf("%d: denominator %d too big", f, r.PLL.C)
		}
		limit := float64(r.Crystal) / MaxDenominator / float64(r.MS*r.R)
		if abs(r.Eps()) > limit {
			t.Errorf("%d: refined error %g is more than %g", f, r.Eps(), limit)
		}
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
