// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package racetest provides utility functions for testing race logic circuits.
//
package racetest

import (
	"context"
	"runtime"
	"testing"

	"github.com/db47h/racesim"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
)

// Arrival runs c for the given number of cycles with the given stimuli and
// returns the arrival time of output out.
//
func Arrival(c *racesim.Circuit, out string, stim racesim.Stimuli, cycles int) racesim.Time {
	return racesim.Run(c, stim, cycles).Arrival(out)
}

// BuildFn builds a new circuit.
//
type BuildFn func(workers int) (*racesim.Circuit, error)

// CompareRuns builds two circuits with build, runs both with the same stimuli
// and fails the test if their traces differ. The first circuit is sequential,
// the second one uses workers goroutines for register updates.
//
// With workers <= 1, this checks that a freshly built circuit always
// yields the same trace.
//
func CompareRuns(t testing.TB, build BuildFn, workers int, stim racesim.Stimuli, cycles int) {
	t.Helper()
	c1, err := build(0)
	if err != nil {
		t.Fatal(err)
	}
	defer c1.Dispose()
	c2, err := build(workers)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Dispose()

	tr1 := racesim.Run(c1, stim, cycles)
	tr2 := racesim.Run(c2, stim, cycles)
	if diff := cmp.Diff(tr1, tr2); diff != "" {
		t.Fatalf("trace mismatch (-first +second):\n%s", diff)
	}
	// replaying a circuit after Reset must not change anything either.
	if diff := cmp.Diff(tr1, racesim.Run(c1, stim, cycles)); diff != "" {
		t.Fatalf("replay mismatch (-first +replay):\n%s", diff)
	}
}

// Assignments returns all assignments of n values taken in [0, max] plus
// racesim.Never.
//
func Assignments(n int, max racesim.Time) [][]racesim.Time {
	domain := []racesim.Time{racesim.Never}
	for v := racesim.Time(0); v <= max; v++ {
		domain = append(domain, v)
	}
	out := [][]racesim.Time{{}}
	for i := 0; i < n; i++ {
		next := make([][]racesim.Time, 0, len(out)*len(domain))
		for _, a := range out {
			for _, v := range domain {
				next = append(next, append(append([]racesim.Time(nil), a...), v))
			}
		}
		out = next
	}
	return out
}

// Sweep calls fn for every i in [0, n), spreading calls over GOMAXPROCS
// goroutines. It returns the first error returned by fn, after which no new
// calls are started.
//
// Each call must work on its own circuits.
//
func Sweep(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error { return fn(ctx, i) })
	}
	return g.Wait()
}
