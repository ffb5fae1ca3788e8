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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"golang.org/x/sys/unix"

	"quadvfo/src/config"
	"quadvfo/src/script"
)

func TestVersion(t *testing.T) {
	c := qt.New(t)
	var out bytes.Buffer
	c.Assert(run([]string{"--version"}, &out), qt.IsNil)
	c.Assert(out.String(), qt.Equals, "vfoctl "+Version+"\n")
}

func TestDryRunCommands(t *testing.T) {
	c := qt.New(t)
	var out bytes.Buffer
	err := run([]string{"--dry-run", "-e", "freq 0 14.097M", "-e", "apply 0", "-e", "status 0"}, &out)
	c.Assert(err, qt.IsNil)
	c.Assert(out.String(), qt.Equals, ""+
		"VFO0 f=14097000 Hz R=1 MS=50 PLL=28 + 194000/1000000 VCO=704850000 Hz\n"+
		"  phase 270°\n"+
		"  chip on R=1 MS=50 PLL=28 + 194000/1000000 output 14097000.000 Hz\n")
}

func TestConfigAndFlags(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	cfgFile := filepath.Join(dir, "vfo.yaml")
	c.Assert(os.WriteFile(cfgFile, []byte("dry_run: true\nprobe: true\ncrystal_hz: 27000000\n"), 0o644), qt.IsNil)

	// the file alone
	var out bytes.Buffer
	c.Assert(run([]string{"-c", cfgFile, "-e", "plan 10M"}, &out), qt.IsNil)
	c.Assert(strings.HasPrefix(out.String(), "f=10000000 Hz R=1 MS=70 PLL=25 + 925925/1000000 "), qt.IsTrue, qt.Commentf("%s", out.String()))

	// flags win over the file
	out.Reset()
	c.Assert(run([]string{"-c", cfgFile, "--crystal", "25000000", "-e", "plan 10M"}, &out), qt.IsNil)
	c.Assert(strings.HasPrefix(out.String(), "f=10000000 Hz R=1 MS=70 PLL=28 + 0/1000000 "), qt.IsTrue, qt.Commentf("%s", out.String()))

	// script files run after the commands and report their line numbers
	scriptFile := filepath.Join(dir, "bad.vfo")
	c.Assert(os.WriteFile(scriptFile, []byte("reset\nphase 1 90\n"), 0o644), qt.IsNil)
	err := run([]string{"-c", cfgFile, scriptFile}, &out)
	c.Assert(err, qt.ErrorMatches, ".*bad.vfo:2: .*")
}

func TestRunErrors(t *testing.T) {
	c := qt.New(t)
	var out bytes.Buffer
	c.Assert(run([]string{"--no-such-flag"}, &out), qt.Not(qt.IsNil))
	c.Assert(run([]string{"--dry-run", "--address", "0x80"}, &out), qt.ErrorIs, config.ErrInvalid)
	c.Assert(run([]string{"--bus", "/dev/no-such-i2c-bus"}, &out), qt.ErrorIs, unix.ENOENT)
	c.Assert(run([]string{"--dry-run", "-e", "tune 0 7M"}, &out), qt.ErrorIs, script.ErrUnknown)
	c.Assert(run([]string{"-c", "/no/such/vfo.yaml"}, &out), qt.ErrorIs, os.ErrNotExist)
}
