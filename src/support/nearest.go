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

// MaxDenominator is the largest C that fits the 20 bit P3 field.
const MaxDenominator = 1<<20 - 1

/*
Nearest finds the best approximation A + B/C ≈ num/den with C no larger than
maxC.

The approximation is the last convergent of the continued fraction of
num/den whose denominator still fits. Writing

	num/den = floor(num/den) + rem/den = floor(num/den) + 1 / (den/rem)

gives the next term each time round and the convergents h/k follow from

	h[n] = term*h[n-1] + h[n-2]
	k[n] = term*k[n-1] + k[n-2]

Stopping just before k passes maxC leaves an error below 1/(C·maxC).

With a 25MHz crystal, a VCO frequency that is a whole number of Hz can
usually be hit exactly, which the fixed C = 1000000 used for planning
cannot do.

A zero den has no approximation and gives the zero Fraction.
*/
func Nearest(num, den uint64, maxC uint32) Fraction {
	if den == 0 {
		return Fraction{}
	}
	if maxC == 0 {
		maxC = 1
	}
	// h/k is the current convergent, h1/k1 and h2/k2 the two before it
	h, k := num/den, uint64(1)
	h1, h2 := uint64(1), uint64(0)
	k1, k2 := uint64(0), uint64(1)
	for den != 0 {
		term := num / den
		hn, kn := term*h1+h2, term*k1+k2
		if kn > uint64(maxC) {
			break
		}
		h, k = hn, kn
		h1, h2 = hn, h1
		k1, k2 = kn, k1
		num, den = den, num-term*den
	}
	return Fraction{A: uint32(h / k), B: uint32(h % k), C: uint32(k)}
}

// Refined is the same plan with the PLL multiplier replaced by the nearest
// fraction that still fits the registers. Every divider other than the PLL
// is unchanged, as is the VCO frequency it aims for.
func (p Plan) Refined() Plan {
	p.PLL = Nearest(p.VCO, uint64(p.Crystal), MaxDenominator)
	return p
}
