package racetree

import (
	"github.com/db47h/racesim"
)

// Bounds on tree configurations.
//
const (
	MaxDepth      = 16
	MaxResolution = 16
)

// A NodeSpec describes an internal decision node of a tree: the right branch
// is taken if the attribute with the given index is greater than or equal to
// the threshold, the left branch otherwise.
//
type NodeSpec struct {
	Threshold int
	Attribute int
}

// FlatConfig is the configuration of a flat race tree.
//
type FlatConfig struct {
	// Depth is the number of decision levels.
	Depth int
	// Resolution is the input resolution in bits. Thresholds and attribute
	// values range from 0 to 2^Resolution - 1.
	Resolution int
	// Attributes are the names of the attribute inputs.
	Attributes []string
	// Nodes lists the 2^Depth - 1 decision nodes in breadth-first order.
	Nodes []NodeSpec
}

// Leaves returns the leaf count of the tree.
//
func (c *FlatConfig) Leaves() int { return 1 << uint(c.Depth) }

// MaxValue returns the largest value that the tree can discriminate: 2^R - 1.
//
func (c *FlatConfig) MaxValue() int { return 1<<uint(c.Resolution) - 1 }

// Validate checks the configuration. The returned error has cause
// racesim.ErrInvalidConfiguration.
//
func (c *FlatConfig) Validate() error {
	if c.Depth < 1 || c.Depth > MaxDepth {
		return racesim.ConfigError("depth %d out of range [1, %d]", c.Depth, MaxDepth)
	}
	if c.Resolution < 1 || c.Resolution > MaxResolution {
		return racesim.ConfigError("resolution %d out of range [1, %d]", c.Resolution, MaxResolution)
	}
	if len(c.Attributes) == 0 {
		return racesim.ConfigError("no attributes")
	}
	seen := make(map[string]bool, len(c.Attributes))
	for _, a := range c.Attributes {
		if a == "" {
			return racesim.ConfigError("empty attribute name")
		}
		if seen[a] {
			return racesim.ConfigError("duplicate attribute name %q", a)
		}
		seen[a] = true
	}
	if n := c.Leaves() - 1; len(c.Nodes) != n {
		return racesim.ConfigError("depth %d tree needs %d nodes, got %d", c.Depth, n, len(c.Nodes))
	}
	for i, n := range c.Nodes {
		if n.Threshold < 1 || n.Threshold > c.MaxValue() {
			return racesim.ConfigError("node %d: threshold %d out of range [1, %d]", i, n.Threshold, c.MaxValue())
		}
		if n.Attribute < 0 || n.Attribute >= len(c.Attributes) {
			return racesim.ConfigError("node %d: attribute index %d out of range [0, %d)", i, n.Attribute, len(c.Attributes))
		}
	}
	return nil
}

// ReverseConfig is the configuration of a reverse race tree.
//
type ReverseConfig struct {
	FlatConfig
	// Labels are the delay coded leaf labels, from the leftmost leaf (all
	// branches taken left) to the rightmost leaf (all branches taken right).
	// Labels must be strictly decreasing from left to right and every label
	// must be greater than or equal to the threshold of every node on its path
	// to the root.
	Labels []racesim.Time
}

// Validate checks the configuration, including the label policy. The returned
// error has cause racesim.ErrInvalidConfiguration.
//
func (c *ReverseConfig) Validate() error {
	if err := c.FlatConfig.Validate(); err != nil {
		return err
	}
	if len(c.Labels) != c.Leaves() {
		return racesim.ConfigError("depth %d tree needs %d labels, got %d", c.Depth, c.Leaves(), len(c.Labels))
	}
	for j, l := range c.Labels {
		if l.IsNever() {
			return racesim.ConfigError("label %d never arrives", j)
		}
		if j > 0 && l >= c.Labels[j-1] {
			return racesim.ConfigError("label %d (%v) not smaller than label %d (%v)", j, l, j-1, c.Labels[j-1])
		}
		for _, n := range Path(c.Depth, j) {
			if th := c.Nodes[n].Threshold; int(l) < th {
				return racesim.ConfigError("label %d (%v) smaller than threshold %d of node %d", j, l, th, n)
			}
		}
	}
	return nil
}

// MaxLabel returns the largest label, which is also the latest cycle at which
// the tree output can rise.
//
func (c *ReverseConfig) MaxLabel() racesim.Time {
	return c.Labels[0]
}

// Path returns the indices of the nodes on the path from the root to the given
// leaf, in a tree of the given depth.
//
func Path(depth, leaf int) []int {
	p := make([]int, depth)
	for l := range p {
		p[l] = 1<<uint(l) - 1 + leaf>>uint(depth-l)
	}
	return p
}

// lastLeaf returns the index of the rightmost leaf below node n.
//
func lastLeaf(depth, n int) int {
	l := 0
	for 1<<uint(l+1)-1 <= n {
		l++
	}
	span := 1 << uint(depth-l)
	return (n-(1<<uint(l)-1)+1)*span - 1
}

// Eval evaluates a tree by direct threshold comparison and returns the index
// of the leaf reached for the given attribute values. Bit depth-1-l of the
// index is set if the right branch was taken at level l. Attributes that never
// arrive are greater than any threshold.
//
func Eval(nodes []NodeSpec, depth int, values []racesim.Time) int {
	n, leaf := 0, 0
	for l := 0; l < depth; l++ {
		spec := nodes[n]
		leaf <<= 1
		if x := values[spec.Attribute]; x.IsNever() || int(x) >= spec.Threshold {
			leaf |= 1
			n = 2*n + 2
		} else {
			n = 2*n + 1
		}
	}
	return leaf
}
