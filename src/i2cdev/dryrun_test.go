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
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"quadvfo/src/vfo"
)

func TestDryRun(t *testing.T) {
	c := qt.New(t)
	d := NewDryRun(0x60)

	c.Assert(d.Tx(0x60, []byte{26, 1, 2, 3}, nil), qt.IsNil)
	buf := make([]byte, 3)
	c.Assert(d.Tx(0x60, []byte{26}, buf), qt.IsNil)
	c.Assert(buf, qt.DeepEquals, []byte{1, 2, 3})
	c.Assert(d.Chip.Registers[27], qt.Equals, uint8(2))

	// misuse comes back as an error instead of a crash
	c.Assert(d.Tx(0x61, []byte{3}, buf), qt.ErrorMatches, ".*no device at 0x61")
	c.Assert(d.Tx(0x60, nil, nil), qt.ErrorMatches, "i2cdev: dry run: .*")
	c.Assert(d.Tx(0x60, []byte{250, 0, 0, 0, 0, 0, 0, 0}, nil), qt.ErrorMatches, "i2cdev: dry run: .*out of range")

	// and the bus is still usable afterwards
	c.Assert(d.Tx(0x60, []byte{26}, buf[:1]), qt.IsNil)
	c.Assert(buf[0], qt.Equals, byte(1))

	// reads without a register address start at 0
	d.Chip.Registers[0] = 0x11
	c.Assert(d.Tx(0x60, nil, buf[:2]), qt.IsNil)
	c.Assert(buf[:2], qt.DeepEquals, []byte{0x11, 0})
	d.Chip.Err = errors.New("nack")
	c.Assert(d.Tx(0x60, []byte{}, buf[:1]), qt.ErrorIs, d.Chip.Err)
}

func TestDryRunDevice(t *testing.T) {
	c := qt.New(t)
	d := NewDryRun(vfo.Address)
	c.Assert(vfo.Probe(d), qt.IsNil)

	dev, err := vfo.New(d, vfo.Config{Probe: true})
	c.Assert(err, qt.IsNil)
	c.Assert(dev.Configure(), qt.IsNil)
	c.Assert(d.Chip.Registers[vfo.RegPLLReset], qt.Equals, uint8(0xA0))
	c.Assert(d.Chip.Registers[vfo.RegCLK1Phase], qt.Equals, uint8(98))
}

func TestTrace(t *testing.T) {
	c := qt.New(t)
	var out bytes.Buffer
	tr := Trace{Bus: NewDryRun(0x60), Log: log.New(&out, "", 0)}

	c.Assert(tr.Tx(0x60, []byte{3, 0xfc}, nil), qt.IsNil)
	r := []byte{0}
	c.Assert(tr.Tx(0x60, []byte{3}, r), qt.IsNil)
	c.Assert(tr.Tx(0x10, []byte{3}, r), qt.Not(qt.IsNil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	c.Assert(lines, qt.HasLen, 3)
	c.Assert(lines[0], qt.Equals, "i2c 0x60 w 03 fc")
	c.Assert(lines[1], qt.Equals, "i2c 0x60 w 03 r fc")
	c.Assert(lines[2], qt.Matches, "i2c 0x10 w 03: .*no device.*")
}
