// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package racetree

import (
	"github.com/db47h/racesim"
	"github.com/db47h/racesim/racelib"
	"github.com/pkg/errors"
)

// FixedNode returns a reverse tree node whose input labels are known a priori.
//
//	Inputs: right, left (labels), attr
//	Function: MIN(INHIBIT(ADD-CONSTANT(attr, c), right), left)
//
// The right label is discarded if attr + c arrives strictly before it, that is
// if attr < right - c. With right < left, the output is the right label if
// attr >= right - c, the left label otherwise.
//
func FixedNode(b *racesim.Builder, right, left, attr racesim.Wire, c int) racesim.Wire {
	ctl := racelib.AddConst(b, attr, c)
	inh := racelib.Inhibit(b, ctl, right)
	return racelib.Min(b, inh, left)
}

// VariableNode returns a reverse tree node whose input labels are the outputs
// of other nodes.
//
//	Inputs: right, left (sub-tree outputs), minLabel, attr
//	Function: MIN(MAX(INHIBIT(ADD-CONSTANT(attr, c), minLabel), right), left)
//
// minLabel must be the smallest label that right can take. The inhibited
// reference arrives no later than right, so MAX yields right unless the
// reference was inhibited (attr < minLabel - c), in which case the output is
// left.
//
func VariableNode(b *racesim.Builder, right, left, minLabel, attr racesim.Wire, c int) racesim.Wire {
	ctl := racelib.AddConst(b, attr, c)
	inh := racelib.Inhibit(b, ctl, minLabel)
	return racelib.Min(b, racelib.Max(b, inh, right), left)
}

// Constants returns the ADD-CONSTANT value of each node of a reverse tree: the
// smallest label of its right sub-tree minus its threshold.
//
func Constants(cfg *ReverseConfig) []int {
	cs := make([]int, len(cfg.Nodes))
	for n, spec := range cfg.Nodes {
		cs[n] = int(cfg.Labels[lastLeaf(cfg.Depth, n)]) - spec.Threshold
	}
	return cs
}

// BuildReverse wires a reverse race tree into b and returns its output. attrs
// are the attribute wires, in the same order as cfg.Attributes, and labels the
// label wires, in the same order as cfg.Labels. Labels must be driven with the
// values given in cfg.
//
// Nodes of the last level are fixed input nodes; all others are variable input
// nodes whose minLabel is the rightmost label of their right sub-tree.
//
func BuildReverse(b *racesim.Builder, attrs, labels []racesim.Wire, cfg *ReverseConfig) racesim.Wire {
	if err := cfg.Validate(); err != nil {
		b.Fail(err)
		return racesim.False
	}
	if len(attrs) != len(cfg.Attributes) || len(labels) != len(cfg.Labels) {
		b.Errorf("reverse tree has %d attributes and %d labels, got %d and %d wires",
			len(cfg.Attributes), len(cfg.Labels), len(attrs), len(labels))
		return racesim.False
	}
	cs := Constants(cfg)
	var node func(n, level int) racesim.Wire
	node = func(n, level int) racesim.Wire {
		spec := cfg.Nodes[n]
		attr := attrs[spec.Attribute]
		last := lastLeaf(cfg.Depth, n)
		if level == cfg.Depth-1 {
			return FixedNode(b, labels[last], labels[last-1], attr, cs[n])
		}
		left := node(2*n+1, level+1)
		right := node(2*n+2, level+1)
		return VariableNode(b, right, left, labels[last], attr, cs[n])
	}
	return node(0, 0)
}

// ReverseTree is a runnable reverse race tree: a label routing network that
// forwards the label of the leaf selected by the attribute values.
//
type ReverseTree struct {
	cfg ReverseConfig
	cs  []int
	c   *racesim.Circuit
}

// NewReverse builds a reverse race tree.
//
// The circuit inputs are named after the attributes, plus the label bus
// "label[0..2^depth-1]". Its single output is "out".
//
func NewReverse(cfg ReverseConfig, opts ...Option) (*ReverseTree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	cfg.Attributes = append([]string(nil), cfg.Attributes...)
	cfg.Nodes = append([]NodeSpec(nil), cfg.Nodes...)
	cfg.Labels = append([]racesim.Time(nil), cfg.Labels...)

	b := racesim.NewBuilder()
	attrs := make([]racesim.Wire, len(cfg.Attributes))
	for i, n := range cfg.Attributes {
		attrs[i] = b.Input(n)
	}
	labels := make([]racesim.Wire, len(cfg.Labels))
	for j := range labels {
		labels[j] = b.Input(racesim.BusName(InLabel, j))
	}
	b.Output(OutLabel, BuildReverse(b, attrs, labels, &cfg))
	c, err := b.Circuit(o.workers)
	if err != nil {
		return nil, err
	}
	return &ReverseTree{cfg: cfg, cs: Constants(&cfg), c: c}, nil
}

// Config returns the tree configuration.
//
func (t *ReverseTree) Config() ReverseConfig { return t.cfg }

// Constants returns the ADD-CONSTANT value of each node.
//
func (t *ReverseTree) Constants() []int { return append([]int(nil), t.cs...) }

// Circuit returns the underlying circuit.
//
func (t *ReverseTree) Circuit() *racesim.Circuit { return t.c }

// Horizon returns the number of cycles after which the output is final: one
// past the largest label.
//
func (t *ReverseTree) Horizon() int { return int(t.cfg.MaxLabel()) + 1 }

// Dispose releases the resources of the underlying circuit.
//
func (t *ReverseTree) Dispose() { t.c.Dispose() }

// Stimuli returns the stimuli driving the labels with their configured values
// and the attributes with the given values.
//
func (t *ReverseTree) Stimuli(values []racesim.Time) racesim.Stimuli {
	s := make(racesim.Stimuli, len(values)+len(t.cfg.Labels))
	for i, n := range t.cfg.Attributes {
		s[n] = values[i]
	}
	for j, l := range t.cfg.Labels {
		s[racesim.BusName(InLabel, j)] = l
	}
	return s
}

// Classify runs the tree with attributes encoding the given values and returns
// the leaf whose label won the race, along with the arrival time of the output.
//
func (t *ReverseTree) Classify(values []racesim.Time) (leaf int, at racesim.Time, err error) {
	if len(values) != len(t.cfg.Attributes) {
		return -1, racesim.Never, racesim.ConfigError("reverse tree has %d attributes, got %d values", len(t.cfg.Attributes), len(values))
	}
	tr := racesim.Run(t.c, t.Stimuli(values), t.Horizon())
	at = tr.Arrival(OutLabel)
	for j, l := range t.cfg.Labels {
		if l == at {
			return j, at, nil
		}
	}
	return -1, at, errors.Errorf("output arrival %v matches no label", at)
}
