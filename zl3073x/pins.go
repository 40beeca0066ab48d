// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zl3073x

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-lpc/zldpll/internal/regs"
)

// Direction is the direction of a pin.
type Direction uint8

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// Kind describes what a pin is wired to.
type Kind uint8

const (
	KindGNSS Kind = iota
	KindSyncEPort
	KindExt
	KindIntOscillator
)

func (k Kind) String() string {
	switch k {
	case KindGNSS:
		return "gnss"
	case KindSyncEPort:
		return "synce-eth-port"
	case KindExt:
		return "ext"
	case KindIntOscillator:
		return "int-oscillator"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// SignalType is the electrical configuration of an output pair.
type SignalType uint8

const (
	SingleEndedInPhase SignalType = iota
	SingleEndedDivided
	Differential
)

func (st SignalType) String() string {
	switch st {
	case SingleEndedInPhase:
		return "se-in-phase"
	case SingleEndedDivided:
		return "se-divided"
	case Differential:
		return "diff"
	}
	return fmt.Sprintf("SignalType(%d)", uint8(st))
}

type freqType uint8

const (
	freqPTP freqType = iota
	freqSyncE
	freq25MHz
)

const (
	freqSyncEHz = 156250000
	freq25MHzHz = 25000000
)

var (
	outputSignals = [regs.NumPairs]SignalType{
		SingleEndedInPhase, SingleEndedInPhase,
		Differential, Differential, Differential, Differential,
		SingleEndedInPhase,
		SingleEndedDivided, SingleEndedDivided,
		Differential,
	}

	outputFreqTypes = [regs.NumPairs]freqType{
		freqPTP, freqPTP, freqPTP,
		freqSyncE, freqSyncE, freqSyncE,
		freqPTP, freqPTP, freqPTP,
		freq25MHz,
	}

	inputKinds = [regs.NumRefs]Kind{
		KindGNSS, KindGNSS,
		KindSyncEPort, KindSyncEPort,
		KindExt, KindGNSS, KindExt, KindExt, KindGNSS,
		KindIntOscillator,
	}

	outputKinds = [regs.NumOutputs]Kind{
		KindGNSS, KindGNSS, KindGNSS, KindGNSS, KindGNSS, KindGNSS,
		KindSyncEPort, KindSyncEPort, KindSyncEPort,
		KindSyncEPort, KindSyncEPort, KindSyncEPort,
		KindGNSS, KindIntOscillator,
		KindGNSS, KindGNSS, KindGNSS, KindGNSS, KindGNSS, KindGNSS,
	}

	ptpFrequencies = []uint64{1, 25, 100, 1000, 10000000, 25000000}
	esyncFreqs     = []uint64{0, 1}
)

// Labels holds the names of the input and output pins.
type Labels struct {
	Inputs  [regs.NumRefs]string
	Outputs [regs.NumOutputs]string
}

var (
	// BoardLabels are the names of the pins on the reference board.
	BoardLabels = Labels{
		Inputs: [regs.NumRefs]string{
			"1PPS_IN1", "1PPS_IN0", "RCLKA_IN", "RCLKB_IN", "REF2P",
			"GNSS_10M_IN", "SMA1_IN", "SMA3_IN", "GNSS_1PPS_IN", "REF4N",
		},
		Outputs: [regs.NumOutputs]string{
			"SMA0_OUT", "1PPS_OUT4", "OUT1P", "AIC_SCLK",
			"AIC_DCLK_P", "AIC_DCLK_N", "SYNC_CLK1_P", "SYNC_CLK1_N",
			"SYNC_CLK0_P", "SYNC_CLK0_N", "SYNC_CLK2_P", "SYNC_CLK2_N",
			"SMA2_OUT", "SYNC_CLK_GD", "1PPS_OUT3", "1PPS_OUT2",
			"1PPS_OUT1", "1PPS_OUT0", "SYNC_25M_P", "SYNC_25M_N",
		},
	}

	// GenericLabels are the names of the pins of the chip.
	GenericLabels = genericLabels()
)

func genericLabels() Labels {
	var labels Labels
	for i := range labels.Inputs {
		labels.Inputs[i] = fmt.Sprintf("REF%d%s", i/2, pn(i))
	}
	for i := range labels.Outputs {
		labels.Outputs[i] = fmt.Sprintf("OUT%d%s", i/2, pn(i))
	}
	return labels
}

func pn(i int) string {
	if i%2 == 0 {
		return "P"
	}
	return "N"
}

// LabelsByName returns the named set of labels: "board" or "generic".
func LabelsByName(name string) (Labels, error) {
	switch strings.ToLower(name) {
	case "", "board":
		return BoardLabels, nil
	case "generic":
		return GenericLabels, nil
	}
	return Labels{}, fmt.Errorf("zl3073x: unknown pin labels %q: %w", name, ErrInvalidArgument)
}

// Pin is an input reference or an output of the chip.
type Pin struct {
	dev  *Device
	id   int // reference index for inputs, output index for outputs
	dir  Direction
	name string
}

func (p *Pin) String() string {
	return fmt.Sprintf("%s[%s-%d]", p.name, p.dir, p.id)
}

// Name returns the board name of the pin.
func (p *Pin) Name() string { return p.name }

// Index returns the index of the pin among pins of the same direction.
func (p *Pin) Index() int { return p.id }

// Direction returns the direction of the pin.
func (p *Pin) Direction() Direction { return p.dir }

// Kind returns what the pin is wired to.
func (p *Pin) Kind() Kind {
	if p.dir == Input {
		return inputKinds[p.id]
	}
	return outputKinds[p.id]
}

// SignalType returns the signal type of an output pin.
// Input pins are reported as differential.
func (p *Pin) SignalType() SignalType {
	if p.dir == Input {
		return Differential
	}
	return outputSignals[p.pair()]
}

// Frequencies returns the frequencies the pin supports, in Hz.
func (p *Pin) Frequencies() []uint64 {
	if p.dir == Input {
		out := make([]uint64, len(refFreqs))
		for i, rf := range refFreqs {
			out[i] = rf.freq
		}
		return out
	}
	switch outputFreqTypes[p.pair()] {
	case freqSyncE:
		return []uint64{freqSyncEHz}
	case freq25MHz:
		return []uint64{freq25MHzHz}
	}
	return append([]uint64(nil), ptpFrequencies...)
}

// EsyncFrequencies returns the supported embedded-sync frequencies, in Hz.
func (p *Pin) EsyncFrequencies() []uint64 {
	return append([]uint64(nil), esyncFreqs...)
}

// PhaseRange returns the range of phase adjustments, in ps.
func (p *Pin) PhaseRange() (min, max int64) {
	return math.MinInt32, math.MaxInt32
}

func (p *Pin) pair() int { return p.id / 2 }

// isP reports whether the pin is the P half of its output pair.
func (p *Pin) isP() bool { return p.id%2 == 0 }

func (p *Pin) isFixed() bool {
	return p.dir == Output && outputFreqTypes[p.pair()] != freqPTP
}

func (p *Pin) input() error {
	if p.dir != Input {
		return fmt.Errorf("%w: pin %s is not an input", ErrUnsupported, p.name)
	}
	return nil
}

func (p *Pin) output() error {
	if p.dir != Output {
		return fmt.Errorf("%w: pin %s is not an output", ErrUnsupported, p.name)
	}
	return nil
}
