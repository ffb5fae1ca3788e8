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
Package script runs simple line-oriented commands against a vfo.Device.

	freq <vfo> <hz>          plan a new frequency, 7074000, 7074k or 7.074M
	phase <vfo> <degrees>    0, 90, 180 or 270, VFO0 only
	enable <vfo> <on|off>
	apply <vfo>              write the registers and reset the PLLs
	reset                    reset both PLLs
	status [vfo]             show planned state and what the chip holds
	plan <hz>                show the dividers for a frequency and the best
	                         PLL fraction the registers could hold

Words are split the way a shell would and # starts a comment.
*/
package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"quadvfo/src/support"
	"quadvfo/src/vfo"
)

var (
	ErrUnknown = errors.New("script: unknown command")
	ErrUsage   = errors.New("script: usage")
)

// Interpreter executes commands on one device and writes any report to Out.
type Interpreter struct {
	Dev *vfo.Device
	Out io.Writer
}

type command struct {
	usage string
	nargs []int
	run   func(in *Interpreter, args []string) error
}

var commands = map[string]command{
	"freq":   {"freq <vfo> <hz>", []int{2}, (*Interpreter).freq},
	"phase":  {"phase <vfo> <0|90|180|270>", []int{2}, (*Interpreter).phase},
	"enable": {"enable <vfo> <on|off>", []int{2}, (*Interpreter).enable},
	"apply":  {"apply <vfo>", []int{1}, (*Interpreter).apply},
	"reset":  {"reset", []int{0}, (*Interpreter).reset},
	"status": {"status [vfo]", []int{0, 1}, (*Interpreter).status},
	"plan":   {"plan <hz>", []int{1}, (*Interpreter).plan},
}

// Exec runs a single line. Blank lines and comments do nothing.
func (in *Interpreter) Exec(line string) error {
	words, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("script: %w", err)
	}
	if len(words) == 0 {
		return nil
	}
	cmd, ok := commands[words[0]]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknown, words[0])
	}
	args := words[1:]
	for _, n := range cmd.nargs {
		if len(args) == n {
			return cmd.run(in, args)
		}
	}
	return fmt.Errorf("%w: %s", ErrUsage, cmd.usage)
}

// Run executes every line from r and stops at the first error, which is
// reported with the name and line number.
func (in *Interpreter) Run(name string, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		if err := in.Exec(scanner.Text()); err != nil {
			return fmt.Errorf("%s:%d: %w", name, n, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (in *Interpreter) freq(args []string) error {
	v, err := parseVFO(args[0])
	if err != nil {
		return err
	}
	hz, err := ParseFrequency(args[1])
	if err != nil {
		return err
	}
	return in.Dev.SetFrequency(v, hz)
}

func (in *Interpreter) phase(args []string) error {
	v, err := parseVFO(args[0])
	if err != nil {
		return err
	}
	deg, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: phase %q", ErrUsage, args[1])
	}
	p, err := vfo.PhaseOf(deg)
	if err != nil {
		return err
	}
	return in.Dev.SetPhase(v, p)
}

func (in *Interpreter) enable(args []string) error {
	v, err := parseVFO(args[0])
	if err != nil {
		return err
	}
	var on bool
	switch strings.ToLower(args[1]) {
	case "on", "true", "1":
		on = true
	case "off", "false", "0":
	default:
		return fmt.Errorf("%w: enable wants on or off, not %q", ErrUsage, args[1])
	}
	return in.Dev.SetEnabled(v, on)
}

func (in *Interpreter) apply(args []string) error {
	v, err := parseVFO(args[0])
	if err != nil {
		return err
	}
	return in.Dev.Apply(v)
}

func (in *Interpreter) reset([]string) error {
	return in.Dev.ResetPLLs()
}

func (in *Interpreter) status(args []string) error {
	vfos := []vfo.VFO{vfo.VFO0, vfo.VFO1}
	if len(args) == 1 {
		v, err := parseVFO(args[0])
		if err != nil {
			return err
		}
		vfos = vfos[v : v+1]
	}
	for _, v := range vfos {
		s, err := in.Dev.State(v)
		if err != nil {
			return err
		}
		fmt.Fprintf(in.Out, "VFO%d %s\n", v, s.Plan)
		rb, err := in.Dev.Readback(v)
		if errors.Is(err, support.ErrFraction) {
			// the chip hasn't been set up by us
			fmt.Fprintf(in.Out, "  chip: %v\n", err)
			continue
		}
		if err != nil {
			return err
		}
		if v == vfo.VFO0 {
			fmt.Fprintf(in.Out, "  phase %s", s.Phase)
			if p, ok := rb.Phase(); !ok || p != s.Phase {
				fmt.Fprintf(in.Out, " (chip offset %d inverted %t)", rb.Offset, rb.Inverted)
			}
			fmt.Fprintln(in.Out)
		}
		out := rb.Output(in.Dev.Crystal())
		onoff := "off"
		if rb.Enabled {
			onoff = "on"
		}
		fmt.Fprintf(in.Out, "  chip %s R=%d MS=%d PLL=%s output %s Hz\n", onoff, rb.R, rb.MS, rb.PLL, out.FloatString(3))
	}
	return nil
}

func (in *Interpreter) plan(args []string) error {
	hz, err := ParseFrequency(args[0])
	if err != nil {
		return err
	}
	p, err := in.Dev.Plan(hz)
	if err != nil {
		return err
	}
	fmt.Fprintf(in.Out, "%s output %s Hz error %.3g Hz\n", p, p.Output().FloatString(3), p.Eps())
	best := p.Refined()
	fmt.Fprintf(in.Out, "  best PLL=%s error %.3g Hz\n", best.PLL, best.Eps())
	return nil
}

func parseVFO(s string) (vfo.VFO, error) {
	switch strings.ToLower(s) {
	case "0", "vfo0":
		return vfo.VFO0, nil
	case "1", "vfo1":
		return vfo.VFO1, nil
	}
	return 0, fmt.Errorf("%w: %q", vfo.ErrInvalidVFO, s)
}

// ParseFrequency reads a whole number of Hz, optionally scaled by a k or M
// suffix. 7.074M and 7074k are both 7074000.
func ParseFrequency(s string) (uint32, error) {
	scale := int64(1)
	digits := s
	switch {
	case strings.HasSuffix(s, "k"):
		scale, digits = 1_000, strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "M"):
		scale, digits = 1_000_000, strings.TrimSuffix(s, "M")
	}
	f, ok := new(big.Rat).SetString(digits)
	if !ok || f.Sign() <= 0 || strings.ContainsAny(digits, "/eE") {
		return 0, fmt.Errorf("%w: frequency %q", ErrUsage, s)
	}
	f.Mul(f, new(big.Rat).SetInt64(scale))
	if !f.IsInt() || f.Num().BitLen() > 32 {
		return 0, fmt.Errorf("%w: frequency %q is not a whole number of Hz", ErrUsage, s)
	}
	return uint32(f.Num().Uint64()), nil
}
