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

import (
	"fmt"

	"github.com/chiefMarlin/tinygo-drivers/si5351"
	"tinygo.org/x/drivers"
)

// Probe checks that a Si5351 answers at the default address.
func Probe(bus drivers.I2C) error {
	clockgen := si5351.New(bus)
	connected, err := clockgen.Connected()
	if err != nil {
		return fmt.Errorf("vfo: probe: %w", err)
	}
	if !connected {
		return ErrNotConnected
	}
	return nil
}
