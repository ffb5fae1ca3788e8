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

import "fmt"

// Address is the fixed I2C address of the Si5351A.
const Address = 0x60

// Si5351A registers (AN619).
const (
	RegOutputEnable = 3
	RegCLK0Control  = 16
	RegCLK1Control  = 17
	RegCLK2Control  = 18
	RegPLLA         = 26 // 8 registers
	RegPLLB         = 34 // 8 registers
	RegMS0          = 42 // 8 registers
	RegMS1          = 50 // 8 registers
	RegMS2          = 58 // 8 registers
	RegSpreadSpec   = 149
	RegCLK0Phase    = 165
	RegCLK1Phase    = 166
	RegPLLReset     = 177
	RegCrystalLoad  = 183
)

// CLKx control register bits.
const (
	ClkInteger  = 1 << 6
	ClkPLLB     = 1 << 5 // 0 selects PLLA
	ClkInvert   = 1 << 4
	ClkSourceMS = 0b11 << 2
	ClkDrive4mA = 0b01
)

const (
	resetPLLA = 1 << 5
	resetPLLB = 1 << 7

	// output enable bits are active low
	oeVFO0 = 0b011
	oeVFO1 = 0b100

	phaseMask = 0x7F
)

// CrystalLoad is the value written to the crystal load capacitance register.
// Bits 5:0 must always read 010010b.
type CrystalLoad uint8

const (
	LoadUnchanged CrystalLoad = 0
	Load6pF       CrystalLoad = 0b01<<6 | 0b010010
	Load8pF       CrystalLoad = 0b10<<6 | 0b010010
	Load10pF      CrystalLoad = 0b11<<6 | 0b010010
)

// CrystalLoadOf maps a capacitance in pF to its register value. Zero means
// leave the power-on setting alone.
func CrystalLoadOf(pF int) (CrystalLoad, error) {
	switch pF {
	case 0:
		return LoadUnchanged, nil
	case 6:
		return Load6pF, nil
	case 8:
		return Load8pF, nil
	case 10:
		return Load10pF, nil
	}
	return 0, fmt.Errorf("vfo: crystal load must be 6, 8 or 10 pF, not %d", pF)
}
