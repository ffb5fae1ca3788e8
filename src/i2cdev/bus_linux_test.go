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

//go:build linux

package i2cdev

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"golang.org/x/sys/unix"
)

func TestOpenMissing(t *testing.T) {
	c := qt.New(t)
	_, err := Open("/dev/no-such-i2c-bus")
	c.Assert(err, qt.ErrorIs, unix.ENOENT)
}

func TestBus(t *testing.T) {
	c := qt.New(t)
	// not an adapter, but good enough to get a descriptor
	b, err := Open("/dev/null")
	c.Assert(err, qt.IsNil)

	c.Assert(b.Tx(0x80, []byte{3, 0}, nil), qt.ErrorIs, ErrAddress)
	c.Assert(b.Tx(0x60, []byte{3, 0}, nil), qt.Not(qt.IsNil))

	c.Assert(b.Close(), qt.IsNil)
	c.Assert(b.Close(), qt.IsNil)
	c.Assert(b.Tx(0x60, []byte{3, 0}, nil), qt.ErrorIs, ErrClosed)
}
