// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package racetree

import (
	"math/bits"

	"github.com/db47h/racesim"
	"github.com/pkg/errors"
)

// OneHot returns the leaf activation vector of a tree of the given depth
// whose node outputs are nodes, in breadth-first order. A node output that is
// high selects the left branch, a low one the right branch.
//
// The vector is built level by level: at level l, leaves are split into groups
// of 2^(depth-l) leaves sharing the same node; leaves in the first half of
// their group use the node output, the others its negation. All depth terms of
// a leaf are then ANDed together.
//
func OneHot(b *racesim.Builder, nodes []racesim.Wire, depth int) []racesim.Wire {
	n := 1 << uint(depth)
	if depth < 1 || len(nodes) != n-1 {
		b.Errorf("decoder: %d nodes for a tree of depth %d", len(nodes), depth)
		return make([]racesim.Wire, n)
	}
	neg := make([]racesim.Wire, len(nodes))
	for i, w := range nodes {
		neg[i] = b.Not(w)
	}

	terms := make([][]racesim.Wire, n)
	for j := range terms {
		terms[j] = make([]racesim.Wire, depth)
	}
	for l, size := 0, n; l < depth; l, size = l+1, size/2 {
		for j := 0; j < n; j++ {
			k := 1<<uint(l) - 1 + j/size
			if j%size < size/2 {
				terms[j][l] = nodes[k]
			} else {
				terms[j][l] = neg[k]
			}
		}
	}

	onehot := make([]racesim.Wire, n)
	for j, ts := range terms {
		onehot[j] = b.And(ts...)
	}
	return onehot
}

// OneHotToBin folds a one-hot vector into a binary index. Bit k of the index is
// the OR of all positions i of the one-hot vector that have bit k set. valid is
// high if any position is active.
//
// If no position is active, the index is 0 and valid is low. If more than one
// position is active, the index is meaningless; see CheckOneHot.
//
func OneHotToBin(b *racesim.Builder, onehot []racesim.Wire) (index []racesim.Wire, valid racesim.Wire) {
	if len(onehot) == 0 {
		b.Errorf("decoder: empty one-hot vector")
		return nil, racesim.False
	}
	width := bits.Len(uint(len(onehot) - 1))
	if width == 0 {
		width = 1
	}
	index = make([]racesim.Wire, width)
	for k := range index {
		var terms []racesim.Wire
		for i, w := range onehot {
			if i&(1<<uint(k)) != 0 {
				terms = append(terms, w)
			}
		}
		if len(terms) == 0 {
			index[k] = racesim.False
			continue
		}
		index[k] = b.Or(terms...)
	}
	return index, b.Or(onehot...)
}

// Decoder converts the node outputs of a tree into a binary leaf index. See
// OneHot and OneHotToBin.
//
func Decoder(b *racesim.Builder, nodes []racesim.Wire, depth int) (index []racesim.Wire, valid racesim.Wire, onehot []racesim.Wire) {
	onehot = OneHot(b, nodes, depth)
	index, valid = OneHotToBin(b, onehot)
	return index, valid, onehot
}

// CheckOneHot returns the active position in a sampled one-hot vector, or -1
// if none is active. It returns an error with cause racesim.ErrAmbiguousDecode
// if several positions are active.
//
func CheckOneHot(vs []bool) (int, error) {
	pos := -1
	for i, v := range vs {
		if !v {
			continue
		}
		if pos >= 0 {
			return -1, errors.Wrapf(racesim.ErrAmbiguousDecode, "positions %d and %d both active", pos, i)
		}
		pos = i
	}
	return pos, nil
}

// Uint returns the value of a sampled bus. Bit 0 is the lsb.
//
func Uint(vs []bool) int {
	var out int
	for bit, v := range vs {
		if v {
			out |= 1 << uint(bit)
		}
	}
	return out
}
