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

//go:build rp2040

package main

import (
	"fmt"
	"machine"
	"time"

	"quadvfo/src/vfo"
)

func main() {
	time.Sleep(1000 * time.Millisecond)
	fmt.Printf("starting\n")

	err := machine.I2C0.Configure(machine.I2CConfig{})
	if err != nil {
		panic("Failed to configure I2C0")
	}

	clockgen, err := vfo.New(machine.I2C0, vfo.Config{Probe: true})
	if err != nil {
		panic(err.Error())
	}
	if err := clockgen.Configure(); err != nil {
		panic(fmt.Errorf("unable to configure Si5351: %v", err))
	}
	fmt.Printf("Si5351 configured\n")

	// I/Q pair on CLK0 and CLK1
	check(clockgen.SetFrequency(vfo.VFO0, 7_074_000))
	check(clockgen.SetPhase(vfo.VFO0, vfo.Phase90))
	check(clockgen.SetEnabled(vfo.VFO0, true))
	check(clockgen.Apply(vfo.VFO0))

	// plain clock on CLK2
	check(clockgen.SetFrequency(vfo.VFO1, 10_000_000))
	check(clockgen.SetEnabled(vfo.VFO1, true))
	check(clockgen.Apply(vfo.VFO1))

	for _, v := range []vfo.VFO{vfo.VFO0, vfo.VFO1} {
		rb, err := clockgen.Readback(v)
		check(err)
		s, _ := clockgen.State(v)
		fmt.Printf("VFO%d: %s Hz (PLL %s, MS %d, R %d) phase %s\n",
			v, rb.Output(clockgen.Crystal()).FloatString(3), rb.PLL, rb.MS, rb.R, s.Phase)
	}

	for {
		time.Sleep(time.Second)
	}
}

func check(err error) {
	if err != nil {
		fmt.Printf("ERROR = %s\n", err)
		machine.EnterBootloader()
	}
}
