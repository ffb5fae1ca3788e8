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
Package i2cdev carries I2C transactions for the host tools. Bus talks to a
Linux /dev/i2c-N character device, Trace logs every transaction on another
bus and DryRun keeps an in-memory Si5351 so commands can be tried without
hardware.
*/
package i2cdev

import (
	"log"

	"tinygo.org/x/drivers"
)

// Trace logs every transaction on Bus.
type Trace struct {
	Bus drivers.I2C
	Log *log.Logger
}

func (t Trace) Tx(addr uint16, w, r []byte) error {
	err := t.Bus.Tx(addr, w, r)
	switch {
	case err != nil:
		t.Log.Printf("i2c %#02x w % x: %v", addr, w, err)
	case len(r) > 0:
		t.Log.Printf("i2c %#02x w % x r % x", addr, w, r)
	default:
		t.Log.Printf("i2c %#02x w % x", addr, w)
	}
	return err
}
