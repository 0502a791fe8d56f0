// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package racetree

import (
	"github.com/db47h/racesim"
	"github.com/db47h/racesim/racelib"
)

// Output names of tree circuits.
//
const (
	OutIndex  = "index"
	OutValid  = "valid"
	OutOneHot = "onehot"
	OutLabel  = "out"
	InLabel   = "label"
)

// An Option configures the circuit of a tree.
//
type Option func(*options)

type options struct {
	workers int
}

// Workers sets the number of goroutines used for register updates. See
// racesim.Builder.Circuit.
//
func Workers(n int) Option {
	return func(o *options) { o.workers = n }
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, f := range opts {
		f(o)
	}
	return o
}

// BuildFlat wires a flat race tree into b and returns its decoded leaf index,
// its valid signal and the one-hot leaf activation vector. attrs are the
// attribute wires, in the same order as cfg.Attributes.
//
// The attributes are first buffered into registers. Each node inhibits its
// buffered attribute with the tap of a shared threshold ladder matching its
// threshold: the node output rises iff the attribute is smaller than the
// threshold. Node outputs are then decoded into a leaf index. valid is the
// last ladder tap: it rises at cycle 2^R - 1, once all nodes have settled.
//
func BuildFlat(b *racesim.Builder, attrs []racesim.Wire, cfg *FlatConfig) (index []racesim.Wire, valid racesim.Wire, onehot []racesim.Wire) {
	if err := cfg.Validate(); err != nil {
		b.Fail(err)
		return nil, racesim.False, nil
	}
	if len(attrs) != len(cfg.Attributes) {
		b.Errorf("flat tree has %d attributes, got %d wires", len(cfg.Attributes), len(attrs))
		return nil, racesim.False, nil
	}
	a := racelib.Buffer(b, attrs...)
	taps := racelib.Ladder(b, cfg.MaxValue())
	nodes := make([]racesim.Wire, len(cfg.Nodes))
	for i, n := range cfg.Nodes {
		nodes[i] = racelib.Inhibit(b, taps[n.Threshold], a[n.Attribute])
	}
	index, _, onehot = Decoder(b, nodes, cfg.Depth)
	return index, taps[len(taps)-1], onehot
}

// A Decision is the sampled output of a flat race tree.
//
type Decision struct {
	// Index is the decoded leaf index.
	Index int
	// Valid is set once the decision is final.
	Valid bool
	// OneHot is the leaf activation vector.
	OneHot []bool
}

// Check returns an error with cause racesim.ErrAmbiguousDecode if more than one
// leaf is active.
//
func (d *Decision) Check() error {
	_, err := CheckOneHot(d.OneHot)
	return err
}

// FlatTree is a runnable flat race tree: a decision tree whose node outputs are
// decoded into a binary leaf index.
//
type FlatTree struct {
	cfg FlatConfig
	c   *racesim.Circuit
}

// NewFlat builds a flat race tree.
//
// The circuit inputs are named after the attributes. Its outputs are the leaf
// index bus "index[0..depth-1]", "valid" and the one-hot bus
// "onehot[0..2^depth-1]".
//
func NewFlat(cfg FlatConfig, opts ...Option) (*FlatTree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	cfg.Attributes = append([]string(nil), cfg.Attributes...)
	cfg.Nodes = append([]NodeSpec(nil), cfg.Nodes...)

	b := racesim.NewBuilder()
	attrs := make([]racesim.Wire, len(cfg.Attributes))
	for i, n := range cfg.Attributes {
		attrs[i] = b.Input(n)
	}
	index, valid, onehot := BuildFlat(b, attrs, &cfg)
	for k, w := range index {
		b.Output(racesim.BusName(OutIndex, k), w)
	}
	b.Output(OutValid, valid)
	for j, w := range onehot {
		b.Output(racesim.BusName(OutOneHot, j), w)
	}
	c, err := b.Circuit(o.workers)
	if err != nil {
		return nil, err
	}
	return &FlatTree{cfg: cfg, c: c}, nil
}

// Config returns the tree configuration.
//
func (t *FlatTree) Config() FlatConfig { return t.cfg }

// Circuit returns the underlying circuit.
//
func (t *FlatTree) Circuit() *racesim.Circuit { return t.c }

// Horizon returns the cycle at which the decision becomes final: 2^R - 1.
//
func (t *FlatTree) Horizon() racesim.Time { return racesim.Time(t.cfg.MaxValue()) }

// Dispose releases the resources of the underlying circuit.
//
func (t *FlatTree) Dispose() { t.c.Dispose() }

// Reset rewinds the tree to its initial state.
//
func (t *FlatTree) Reset() { t.c.Reset() }

// Step simulates one cycle with the given attribute states, in the same order
// as the configured attributes, and returns the decision sampled during that
// cycle. Step panics if len(attrs) does not match the attribute count.
//
func (t *FlatTree) Step(attrs []bool) Decision {
	if len(attrs) != len(t.cfg.Attributes) {
		panic("wrong attribute count")
	}
	in := make(map[string]bool, len(attrs))
	for i, n := range t.cfg.Attributes {
		in[n] = attrs[i]
	}
	return t.decision(t.c.Step(in))
}

func (t *FlatTree) decision(out map[string]bool) Decision {
	idx := make([]bool, t.cfg.Depth)
	for k := range idx {
		idx[k] = out[racesim.BusName(OutIndex, k)]
	}
	d := Decision{
		Index:  Uint(idx),
		Valid:  out[OutValid],
		OneHot: make([]bool, t.cfg.Leaves()),
	}
	for j := range d.OneHot {
		d.OneHot[j] = out[racesim.BusName(OutOneHot, j)]
	}
	return d
}

// Stimuli returns the stimuli driving the tree inputs with the given
// attribute values.
//
func (t *FlatTree) Stimuli(values []racesim.Time) racesim.Stimuli {
	s := make(racesim.Stimuli, len(values))
	for i, n := range t.cfg.Attributes {
		s[n] = values[i]
	}
	return s
}

// Classify resets the tree, runs it with attributes encoding the given values
// until the decision is valid and returns that decision.
//
// It returns an error with cause racesim.ErrInvalidConfiguration if the value
// count does not match the attribute count, or with cause
// racesim.ErrAmbiguousDecode if the decoder output is not one-hot.
//
func (t *FlatTree) Classify(values []racesim.Time) (Decision, error) {
	if len(values) != len(t.cfg.Attributes) {
		return Decision{}, racesim.ConfigError("flat tree has %d attributes, got %d values", len(t.cfg.Attributes), len(values))
	}
	stim := t.Stimuli(values)
	t.c.Reset()
	var d Decision
	for c := racesim.Time(0); c <= t.Horizon(); c++ {
		d = t.decision(t.c.Step(stim.At(c)))
		if d.Valid {
			break
		}
	}
	return d, d.Check()
}
