// Package config loads race tree simulation files.
//
// A simulation file describes either a flat or a reverse tree and the values
// of its attributes:
//
//	flat:
//	  depth: 2
//	  resolution: 4
//	  attributes: [x, y]
//	  nodes: [[2, 0], [1, 0], [1, 1]] # [threshold, attribute index]
//	inputs:
//	  x: 2
//	  y: never
//
// Reverse trees take an additional labels list, from the leftmost leaf to the
// rightmost one.
//
package config

import (
	"io"
	"os"
	"sort"

	"github.com/db47h/racesim"
	"github.com/db47h/racesim/racetree"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Never is the input value for attributes that never arrive.
//
const Never = "never"

// Delay is a delay coded value that can be decoded from either a non-negative
// integer or "never".
//
type Delay racesim.Time

// UnmarshalYAML implements yaml.Unmarshaler.
//
func (d *Delay) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: expected integer or %q", n.Line, Never)
	}
	if n.Value == Never {
		*d = Delay(racesim.Never)
		return nil
	}
	var v int
	if err := n.Decode(&v); err != nil {
		return errors.Wrapf(err, "line %d", n.Line)
	}
	if v < 0 {
		return errors.Errorf("line %d: negative value %d", n.Line, v)
	}
	*d = Delay(v)
	return nil
}

// Tree is the description of a race tree.
//
type Tree struct {
	Depth      int      `yaml:"depth"`
	Resolution int      `yaml:"resolution"`
	Attributes []string `yaml:"attributes"`
	Nodes      [][2]int `yaml:"nodes"`
	Labels     []int    `yaml:"labels,omitempty"`
}

// FlatConfig returns the flat tree configuration for t.
//
func (t *Tree) FlatConfig() racetree.FlatConfig {
	nodes := make([]racetree.NodeSpec, len(t.Nodes))
	for i, n := range t.Nodes {
		nodes[i] = racetree.NodeSpec{Threshold: n[0], Attribute: n[1]}
	}
	return racetree.FlatConfig{
		Depth:      t.Depth,
		Resolution: t.Resolution,
		Attributes: t.Attributes,
		Nodes:      nodes,
	}
}

// ReverseConfig returns the reverse tree configuration for t.
//
func (t *Tree) ReverseConfig() racetree.ReverseConfig {
	labels := make([]racesim.Time, len(t.Labels))
	for i, l := range t.Labels {
		labels[i] = racesim.Time(l)
	}
	return racetree.ReverseConfig{FlatConfig: t.FlatConfig(), Labels: labels}
}

// File is a simulation file. Exactly one of Flat and Reverse is set.
//
type File struct {
	Flat    *Tree            `yaml:"flat,omitempty"`
	Reverse *Tree            `yaml:"reverse,omitempty"`
	Inputs  map[string]Delay `yaml:"inputs"`
}

// Tree returns the tree described in f.
//
func (f *File) Tree() *Tree {
	if f.Flat != nil {
		return f.Flat
	}
	return f.Reverse
}

// Values returns the attribute values in the order of the tree attributes.
//
func (f *File) Values() ([]racesim.Time, error) {
	t := f.Tree()
	known := make(map[string]bool, len(t.Attributes))
	vs := make([]racesim.Time, len(t.Attributes))
	for i, a := range t.Attributes {
		d, ok := f.Inputs[a]
		if !ok {
			return nil, racesim.ConfigError("no input value for attribute %q", a)
		}
		vs[i] = racesim.Time(d)
		known[a] = true
	}
	var unknown []string
	for n := range f.Inputs {
		if !known[n] {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, racesim.ConfigError("input %q is not a tree attribute", unknown[0])
	}
	return vs, nil
}

func (f *File) validate() error {
	switch {
	case f.Flat == nil && f.Reverse == nil:
		return racesim.ConfigError("no tree defined")
	case f.Flat != nil && f.Reverse != nil:
		return racesim.ConfigError("both flat and reverse trees defined")
	case f.Flat != nil:
		cfg := f.Flat.FlatConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}
	default:
		cfg := f.Reverse.ReverseConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	_, err := f.Values()
	return err
}

// Parse reads a simulation file from r and validates it.
//
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decode simulation file")
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads and validates the simulation file at path.
//
func Load(path string) (*File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()
	f, err := Parse(r)
	return f, errors.Wrap(err, path)
}

// FlatExample returns the reference flat tree: depth 2, 4 bits inputs,
// nodes [[2, 0], [1, 0], [1, 1]] with x = 2 and y = 3.
//
func FlatExample() *File {
	return &File{
		Flat: &Tree{
			Depth:      2,
			Resolution: 4,
			Attributes: []string{"x", "y"},
			Nodes:      [][2]int{{2, 0}, {1, 0}, {1, 1}},
		},
		Inputs: map[string]Delay{"x": 2, "y": 3},
	}
}

// ReverseExample returns the reference reverse tree: the root tests x >= 3,
// its left child x >= 2 and its right child y >= 2. Leaf labels are 6, 5, 4
// and 3. Inputs are x = 2 and y = 3.
//
func ReverseExample() *File {
	return &File{
		Reverse: &Tree{
			Depth:      2,
			Resolution: 2,
			Attributes: []string{"x", "y"},
			Nodes:      [][2]int{{3, 0}, {2, 0}, {2, 1}},
			Labels:     []int{6, 5, 4, 3},
		},
		Inputs: map[string]Delay{"x": 2, "y": 3},
	}
}
