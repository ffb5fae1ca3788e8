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
)

/*
The PLL feedback dividers and the output MultiSynth dividers share one
8 register layout (AN619 section 3.2). With P1 (18 bits), P2 (20 bits) and
P3 (20 bits) it is

	offset 0: P3[15:8]
	offset 1: P3[7:0]
	offset 2: R_DIV[2:0] in bits 6:4 (MultiSynth only), P1[17:16] in bits 1:0
	offset 3: P1[15:8]
	offset 4: P1[7:0]
	offset 5: P3[19:16] in bits 7:4, P2[19:16] in bits 3:0
	offset 6: P2[15:8]
	offset 7: P2[7:0]

For a divider a + b/c the parameters are

	P1 = 128a + floor(128b/c) - 512
	P2 = 128b - c floor(128b/c)
	P3 = c
*/

// ImageLen is the number of registers in a PLL or MultiSynth block.
const ImageLen = 8

// Image is the register block for one PLL or one MultiSynth.
type Image [ImageLen]byte

const (
	rDivShift = 4
	rDivMask  = 0x07
	p1Max     = 1<<18 - 1
	p2Max     = 1<<20 - 1
	p3Max     = MaxDenominator
)

var (
	ErrRDivider  = errors.New("registers: R divider must be a power of two from 1 to 128")
	ErrMSDivider = errors.New("registers: integer MultiSynth divider must be even and in 4..126")
	ErrFraction  = errors.New("registers: divider parameters out of range")
)

// Params holds the encoded P1, P2 and P3 parameters of a divider.
type Params struct {
	P1, P2, P3 uint32
}

// ParamsOf applies the AN619 transform to a + b/c.
func ParamsOf(f Fraction) (Params, error) {
	if f.C == 0 || f.C > p3Max || f.B >= f.C || f.A < 4 {
		return Params{}, fmt.Errorf("%w: %s", ErrFraction, f)
	}
	b := uint64(f.B)
	c := uint64(f.C)
	q := 128 * b / c
	p := Params{
		P1: uint32(128*uint64(f.A) + q - 512),
		P2: uint32(128*b - c*q),
		P3: f.C,
	}
	if p.P1 > p1Max {
		return Params{}, fmt.Errorf("%w: %s", ErrFraction, f)
	}
	return p, nil
}

// Fraction inverts ParamsOf. Since floor(128b/c) is less than 128 it sits
// in the low 7 bits of P1 + 512.
func (p Params) Fraction() (Fraction, error) {
	if p.P3 == 0 {
		return Fraction{}, fmt.Errorf("%w: P3 = 0", ErrFraction)
	}
	n := p.P1 + 512
	q := uint64(n % 128)
	num := uint64(p.P3)*q + uint64(p.P2)
	if num%128 != 0 {
		return Fraction{}, fmt.Errorf("%w: P1=%d P2=%d P3=%d is not a + b/c", ErrFraction, p.P1, p.P2, p.P3)
	}
	return Fraction{A: n / 128, B: uint32(num / 128), C: p.P3}, nil
}

func (p Params) pack(rcode uint8) Image {
	return Image{
		byte(p.P3 >> 8),
		byte(p.P3),
		(rcode&rDivMask)<<rDivShift | byte(p.P1>>16)&0x03,
		byte(p.P1 >> 8),
		byte(p.P1),
		byte(p.P3>>12)&0xF0 | byte(p.P2>>16)&0x0F,
		byte(p.P2 >> 8),
		byte(p.P2),
	}
}

func unpack(img Image) (p Params, rcode uint8) {
	p.P3 = uint32(img[5]>>4)<<16 | uint32(img[0])<<8 | uint32(img[1])
	p.P1 = uint32(img[2]&0x03)<<16 | uint32(img[3])<<8 | uint32(img[4])
	p.P2 = uint32(img[5]&0x0F)<<16 | uint32(img[6])<<8 | uint32(img[7])
	return p, img[2] >> rDivShift & rDivMask
}

// EncodePLL builds the feedback divider block for a PLL multiplier.
func EncodePLL(f Fraction) (Image, error) {
	p, err := ParamsOf(f)
	if err != nil {
		return Image{}, err
	}
	return p.pack(0), nil
}

// DecodePLL recovers the multiplier from a PLL block.
func DecodePLL(img Image) (Fraction, error) {
	p, _ := unpack(img)
	return p.Fraction()
}

// EncodeMultisynth builds an integer mode MultiSynth block: P1 = 128ms - 512,
// P2 = 0, P3 = 1.
func EncodeMultisynth(ms, r uint32) (Image, error) {
	if ms < MSMin || ms > MSMax || ms&1 != 0 {
		return Image{}, fmt.Errorf("%w: %d", ErrMSDivider, ms)
	}
	rcode, err := RCode(r)
	if err != nil {
		return Image{}, err
	}
	return Params{P1: 128*ms - 512, P2: 0, P3: 1}.pack(rcode), nil
}

// DecodeMultisynth recovers the integer divider and R divider from a
// MultiSynth block. Blocks that aren't integer mode are rejected.
func DecodeMultisynth(img Image) (ms, r uint32, err error) {
	p, rcode := unpack(img)
	if p.P2 != 0 || p.P3 != 1 || p.P1%128 != 0 {
		return 0, 0, fmt.Errorf("%w: not integer mode (P1=%d P2=%d P3=%d)", ErrFraction, p.P1, p.P2, p.P3)
	}
	return (p.P1 + 512) / 128, 1 << rcode, nil
}

// RCode converts an R divider to the 3 bit code stored in the MultiSynth
// block.
func RCode(r uint32) (uint8, error) {
	for code := uint8(0); code <= rDivMask; code++ {
		if r == 1<<code {
			return code, nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrRDivider, r)
}
