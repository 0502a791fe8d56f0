// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package racesim

import (
	"sort"
	"sync"
)

// A Wire identifies a 1 bit signal in a circuit.
//
type Wire int

// Constant wires.
//
const (
	False Wire = iota
	True
	cstCount
)

// A Component is a part of a circuit that reads and updates wire states. See
// Builder.Add.
//
type Component func(c *Circuit)

type port struct {
	name string
	w    Wire
}

// Circuit is a runnable circuit simulation.
//
type Circuit struct {
	s0    []bool      // wire states for the current cycle
	s1    []bool      // register states for the next cycle
	cs    []Component // combinational components, in dependency order
	ns    []Component // register next state functions
	regs  []Wire
	ins   []port
	outs  []port
	inm   map[string]Wire
	cycle Time

	wc []chan struct{}
	wg sync.WaitGroup
}

func newCircuit(workers int, count int, cs, ns []Component, regs []Wire, ins, outs []port) *Circuit {
	c := &Circuit{
		s0:   make([]bool, count),
		s1:   make([]bool, count),
		cs:   cs,
		ns:   ns,
		regs: regs,
		ins:  ins,
		outs: outs,
		inm:  make(map[string]Wire, len(ins)),
	}
	for _, p := range ins {
		c.inm[p.name] = p.w
	}
	c.Reset()

	// register updates are the only part of a cycle that can be split between
	// workers: each next state function writes its own slot in s1 and only
	// reads s0.
	if workers <= 1 {
		return c
	}
	ups := ns
	for len(ups) > 0 {
		size := len(ups) / workers
		if size*workers < len(ups) {
			size++
		}
		wc := make(chan struct{}, 1)
		c.wc = append(c.wc, wc)
		go worker(c, ups[:size], wc)
		ups = ups[size:]
	}
	return c
}

func worker(c *Circuit, cs []Component, wc <-chan struct{}) {
	for {
		_, ok := <-wc
		if !ok {
			c.wg.Done()
			return
		}
		for _, f := range cs {
			f(c)
		}
		c.wg.Done()
	}
}

// Dispose releases all resources allocated for a circuit and stops
// worker goroutines. A disposed circuit can still be stepped, register updates
// are then done sequentially.
//
func (c *Circuit) Dispose() {
	c.wg.Add(len(c.wc))
	for _, wc := range c.wc {
		close(wc)
	}
	c.wg.Wait()
	c.wc = nil
}

// Reset clears all wire and register states and rewinds the cycle counter.
//
func (c *Circuit) Reset() {
	for i := range c.s0 {
		c.s0[i] = false
		c.s1[i] = false
	}
	c.s0[True] = true
	c.s1[True] = true
	c.cycle = 0
}

// Get returns the state of wire w in the current cycle.
//
func (c *Circuit) Get(w Wire) bool {
	return c.s0[w]
}

// Set sets the state of wire w for the current cycle. Only combinational
// components may call Set, and only on the wires they drive.
//
func (c *Circuit) Set(w Wire, s bool) {
	c.s0[w] = s
}

// Latch sets the next state of register q. It is meant to be called from
// register next state functions only.
//
func (c *Circuit) Latch(q Wire, s bool) {
	c.s1[q] = s
}

// Cycle returns the index of the next cycle to be simulated, which is also the
// number of cycles simulated since the last Reset.
//
func (c *Circuit) Cycle() Time {
	return c.cycle
}

// Size returns the component count in the circuit.
//
func (c *Circuit) Size() int { return len(c.cs) + len(c.ns) }

// Registers returns the register count in the circuit.
//
func (c *Circuit) Registers() int { return len(c.regs) }

// Inputs returns the sorted names of the circuit inputs.
//
func (c *Circuit) Inputs() []string { return portNames(c.ins) }

// Outputs returns the sorted names of the circuit outputs.
//
func (c *Circuit) Outputs() []string { return portNames(c.outs) }

func portNames(ps []port) []string {
	ns := make([]string, len(ps))
	for i, p := range ps {
		ns[i] = p.name
	}
	sort.Strings(ns)
	return ns
}

// Step advances the simulation by one clock cycle.
//
// Inputs missing from in are driven low. Step panics if in contains a name
// that is not a circuit input.
//
// The returned map holds the state of every output during the simulated cycle,
// that is after combinational evaluation and before registers are updated.
//
func (c *Circuit) Step(in map[string]bool) map[string]bool {
	for name := range in {
		if _, ok := c.inm[name]; !ok {
			panic("input " + name + " does not exist")
		}
	}
	for _, p := range c.ins {
		c.s0[p.w] = in[p.name]
	}
	for _, f := range c.cs {
		f(c)
	}
	if c.s0[False] || !c.s0[True] {
		panic("true or false constants have been overwritten")
	}

	out := make(map[string]bool, len(c.outs))
	for _, p := range c.outs {
		out[p.name] = c.s0[p.w]
	}

	c.tick()
	return out
}

// tick computes the next state of all registers from the current wire states
// then commits them.
//
func (c *Circuit) tick() {
	if len(c.wc) == 0 {
		for _, f := range c.ns {
			f(c)
		}
	} else {
		c.wg.Add(len(c.wc))
		for _, wc := range c.wc {
			wc <- struct{}{}
		}
		c.wg.Wait()
	}
	for _, q := range c.regs {
		c.s0[q] = c.s1[q]
	}
	c.cycle++
}
