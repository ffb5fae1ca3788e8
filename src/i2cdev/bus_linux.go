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
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// from linux/i2c-dev.h
const (
	ioctlSlave = 0x0703
)

var (
	ErrAddress = errors.New("i2cdev: address must be 7 bits")
	ErrClosed  = errors.New("i2cdev: bus is closed")
)

// Bus is an open i2c-dev adapter. It implements drivers.I2C. A write and
// the read that follows it are separate transfers with a stop between them.
type Bus struct {
	mu   sync.Mutex
	path string
	fd   int
	addr uint16 // last slave address set, 0xFFFF for none
}

// Open opens an adapter such as /dev/i2c-1.
func Open(path string) (*Bus, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("i2cdev: open %s: %w", path, err)
	}
	return &Bus{path: path, fd: fd, addr: 0xFFFF}, nil
}

// Tx writes w to the device at addr and then, if r is not empty, reads
// len(r) bytes back.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("%w: %#x", ErrAddress, addr)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return ErrClosed
	}
	if addr != b.addr {
		if err := unix.IoctlSetInt(b.fd, ioctlSlave, int(addr)); err != nil {
			return fmt.Errorf("i2cdev: %s: select %#x: %w", b.path, addr, err)
		}
		b.addr = addr
	}
	if len(w) > 0 {
		n, err := unix.Write(b.fd, w)
		if err != nil {
			return fmt.Errorf("i2cdev: %s: write %#x: %w", b.path, addr, err)
		}
		if n != len(w) {
			return fmt.Errorf("i2cdev: %s: short write to %#x, %d of %d", b.path, addr, n, len(w))
		}
	}
	if len(r) > 0 {
		n, err := unix.Read(b.fd, r)
		if err != nil {
			return fmt.Errorf("i2cdev: %s: read %#x: %w", b.path, addr, err)
		}
		if n != len(r) {
			return fmt.Errorf("i2cdev: %s: short read from %#x, %d of %d", b.path, addr, n, len(r))
		}
	}
	return nil
}

// Close releases the adapter. Closing twice is harmless.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	return err
}
