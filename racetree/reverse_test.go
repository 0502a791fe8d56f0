package racetree_test

import (
	"context"
	"testing"

	rs "github.com/db47h/racesim"
	"github.com/db47h/racesim/racetest"
	"github.com/db47h/racesim/racetree"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// reference reverse tree: the root tests x >= 3, its left child x >= 2 and its
// right child y >= 2.
func refReverse() racetree.ReverseConfig {
	return racetree.ReverseConfig{
		FlatConfig: racetree.FlatConfig{
			Depth:      2,
			Resolution: 2,
			Attributes: []string{"x", "y"},
			Nodes:      []racetree.NodeSpec{{Threshold: 3, Attribute: 0}, {Threshold: 2, Attribute: 0}, {Threshold: 2, Attribute: 1}},
		},
		Labels: []rs.Time{6, 5, 4, 3},
	}
}

func TestReverseTree_reference(t *testing.T) {
	tree, err := racetree.NewReverse(refReverse())
	require.NoError(t, err)
	defer tree.Dispose()

	assert.Equal(t, []int{0, 3, 1}, tree.Constants())
	assert.Equal(t, 7, tree.Horizon())

	leaf, at, err := tree.Classify([]rs.Time{2, 3})
	require.NoError(t, err)
	assert.Equal(t, 1, leaf)
	assert.Equal(t, rs.Time(5), at)

	tr := rs.Run(tree.Circuit(), tree.Stimuli([]rs.Time{2, 3}), 12)
	assert.Equal(t, rs.Time(5), tr.Arrival(racetree.OutLabel))
	assert.True(t, tr.Monotonic(racetree.OutLabel))
}

func TestReverseTree_Classify_count(t *testing.T) {
	tree, err := racetree.NewReverse(refReverse())
	require.NoError(t, err)
	defer tree.Dispose()

	_, _, err = tree.Classify([]rs.Time{1, 2, 3})
	assert.True(t, rs.IsConfigError(err))
}

func TestReverseConfig_Validate(t *testing.T) {
	td := []struct {
		name string
		mod  func(c *racetree.ReverseConfig)
		err  string
	}{
		{"ok", func(c *racetree.ReverseConfig) {}, ""},
		{"flat", func(c *racetree.ReverseConfig) { c.Depth = 0 }, "depth 0 out of range"},
		{"label_count", func(c *racetree.ReverseConfig) { c.Labels = c.Labels[:3] }, "needs 4 labels, got 3"},
		{"label_never", func(c *racetree.ReverseConfig) { c.Labels[0] = rs.Never }, "label 0 never arrives"},
		{"not_decreasing", func(c *racetree.ReverseConfig) { c.Labels[2] = 5 }, "label 2 (5) not smaller than label 1 (5)"},
		{"below_threshold", func(c *racetree.ReverseConfig) { c.Labels = []rs.Time{6, 5, 4, 2} }, "label 3 (2) smaller than threshold 3 of node 0"},
		{"below_child_threshold", func(c *racetree.ReverseConfig) {
			c.Nodes[0].Threshold = 1
			c.Nodes[1].Threshold = 3
			c.Labels = []rs.Time{5, 2, 1, 0}
		}, "label 1 (2) smaller than threshold 3 of node 1"},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			cfg := refReverse()
			d.mod(&cfg)
			err := cfg.Validate()
			if d.err == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, rs.ErrInvalidConfiguration, errors.Cause(err))
			assert.Contains(t, err.Error(), d.err)

			_, err = racetree.NewReverse(cfg)
			assert.True(t, rs.IsConfigError(err))
		})
	}
}

// labelSets returns all strictly decreasing sequences of 4 labels in [1, 5].
func labelSets() [][]rs.Time {
	var out [][]rs.Time
	for skip := rs.Time(1); skip <= 5; skip++ {
		var ls []rs.Time
		for l := rs.Time(5); l >= 1; l-- {
			if l != skip {
				ls = append(ls, l)
			}
		}
		out = append(out, ls)
	}
	return out
}

// For every valid depth 2 configuration and every attribute assignment, the
// output must rise exactly once, at the label of the leaf reached by threshold
// evaluation.
func TestReverseTree_exhaustive(t *testing.T) {
	var cfgs []racetree.ReverseConfig
	for _, fc := range flatConfigs() {
		for _, ls := range labelSets() {
			cfg := racetree.ReverseConfig{FlatConfig: fc, Labels: ls}
			if cfg.Validate() == nil {
				cfgs = append(cfgs, cfg)
			}
		}
	}
	require.NotEmpty(t, cfgs)

	values := racetest.Assignments(2, 4)
	err := racetest.Sweep(context.Background(), len(cfgs), func(ctx context.Context, i int) error {
		cfg := cfgs[i]
		tree, err := racetree.NewReverse(cfg)
		if err != nil {
			return err
		}
		defer tree.Dispose()
		for _, vs := range values {
			if err = ctx.Err(); err != nil {
				return err
			}
			exp := racetree.Eval(cfg.Nodes, cfg.Depth, vs)
			tr := rs.Run(tree.Circuit(), tree.Stimuli(vs), tree.Horizon()+4)
			if at := tr.Arrival(racetree.OutLabel); at != cfg.Labels[exp] {
				return errors.Errorf("nodes %v, labels %v, values %v: output at %v, expected %v",
					cfg.Nodes, cfg.Labels, vs, at, cfg.Labels[exp])
			}
			if !tr.Monotonic(racetree.OutLabel) {
				return errors.Errorf("nodes %v, labels %v, values %v: output not monotonic", cfg.Nodes, cfg.Labels, vs)
			}
			leaf, _, err := tree.Classify(vs)
			if err != nil {
				return err
			}
			if leaf != exp {
				return errors.Errorf("nodes %v, labels %v, values %v: leaf %d, expected %d", cfg.Nodes, cfg.Labels, vs, leaf, exp)
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestReverseTree_depth3(t *testing.T) {
	cfg := racetree.ReverseConfig{
		FlatConfig: racetree.FlatConfig{
			Depth:      3,
			Resolution: 3,
			Attributes: []string{"a", "b"},
			Nodes: []racetree.NodeSpec{
				{Threshold: 4, Attribute: 0},
				{Threshold: 2, Attribute: 1}, {Threshold: 3, Attribute: 1},
				{Threshold: 1, Attribute: 0}, {Threshold: 6, Attribute: 0}, {Threshold: 5, Attribute: 0}, {Threshold: 2, Attribute: 0},
			},
		},
		Labels: []rs.Time{14, 13, 12, 11, 10, 9, 8, 7},
	}
	tree, err := racetree.NewReverse(cfg)
	require.NoError(t, err)
	defer tree.Dispose()

	for _, vs := range racetest.Assignments(2, 7) {
		leaf, at, err := tree.Classify(vs)
		require.NoError(t, err, "values %v", vs)
		exp := racetree.Eval(cfg.Nodes, cfg.Depth, vs)
		require.Equal(t, exp, leaf, "values %v", vs)
		require.Equal(t, cfg.Labels[exp], at)
	}
}

// nodeCircuit wraps a single reverse tree node fed by inputs "right", "left",
// "min" and "attr".
func nodeCircuit(t *testing.T, variable bool, c int) *rs.Circuit {
	t.Helper()
	b := rs.NewBuilder()
	right, left, attr := b.Input("right"), b.Input("left"), b.Input("attr")
	var out rs.Wire
	if variable {
		out = racetree.VariableNode(b, right, left, b.Input("min"), attr, c)
	} else {
		out = racetree.FixedNode(b, right, left, attr, c)
	}
	b.Output("out", out)
	cc, err := b.Circuit(0)
	require.NoError(t, err)
	return cc
}

func TestFixedNode(t *testing.T) {
	// labels right = 3, left = 4, threshold 2.
	c := nodeCircuit(t, false, 1)
	td := []struct {
		attr, out rs.Time
	}{
		{0, 4},
		{1, 4},
		{2, 3},
		{3, 3},
		{rs.Never, 3},
	}
	for _, d := range td {
		got := racetest.Arrival(c, "out", rs.Stimuli{"right": 3, "left": 4, "attr": d.attr}, 10)
		assert.Equal(t, d.out, got, "attr %v", d.attr)
	}
}

func TestVariableNode(t *testing.T) {
	// right sub-tree output 4, smallest right label 3, left 6, threshold 3.
	c := nodeCircuit(t, true, 0)
	td := []struct {
		attr, out rs.Time
	}{
		{0, 6},
		{2, 6},
		{3, 4},
		{5, 4},
		{rs.Never, 4},
	}
	for _, d := range td {
		got := racetest.Arrival(c, "out", rs.Stimuli{"right": 4, "left": 6, "min": 3, "attr": d.attr}, 10)
		assert.Equal(t, d.out, got, "attr %v", d.attr)
	}
}

func TestReverseTree_workers(t *testing.T) {
	defer goleak.VerifyNone(t)

	tree, err := racetree.NewReverse(refReverse())
	require.NoError(t, err)
	stim := tree.Stimuli([]rs.Time{2, 3})
	tree.Dispose()

	build := func(workers int) (*rs.Circuit, error) {
		tree, err := racetree.NewReverse(refReverse(), racetree.Workers(workers))
		if err != nil {
			return nil, err
		}
		return tree.Circuit(), nil
	}
	racetest.CompareRuns(t, build, 2, stim, 10)
}
