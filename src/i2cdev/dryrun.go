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

package i2cdev

import (
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/tester"
)

// DryRun is a bus with a single in-memory chip on it. Registers keep
// whatever was last written so reads see a consistent device.
type DryRun struct {
	bus  drivers.I2C
	Addr uint16
	Chip *tester.I2CDevice8
}

// NewDryRun puts a register file at addr on an otherwise empty bus.
func NewDryRun(addr uint16) *DryRun {
	f := failer{}
	bus := tester.NewI2CBus(f)
	return &DryRun{bus: bus, Addr: addr, Chip: bus.NewDevice(uint8(addr))}
}

// Tx turns anything the mock would treat as a test failure into an error.
// A read with nothing written is a current address read and always starts
// at register 0, which is the device status on a Si5351.
func (d *DryRun) Tx(addr uint16, w, r []byte) (err error) {
	if addr != d.Addr {
		return fmt.Errorf("i2cdev: dry run: no device at %#02x", addr)
	}
	if len(w) == 0 && len(r) > 0 {
		if d.Chip.Err != nil {
			return d.Chip.Err
		}
		copy(r, d.Chip.Registers[:])
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			f, ok := p.(failure)
			if !ok {
				panic(p)
			}
			err = f
		}
	}()
	return d.bus.Tx(addr, w, r)
}

type failure string

func (f failure) Error() string {
	return "i2cdev: dry run: " + string(f)
}

type failer struct{}

func (failer) Fatalf(format string, args ...interface{}) {
	panic(failure(fmt.Sprintf(format, args...)))
}
