// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package racesim

import (
	"strconv"

	"github.com/pkg/errors"
)

// A Builder allocates the wires of a circuit and collects its components.
//
// Combinational components are evaluated in the order they are added. Since a
// wire must be allocated before it can be used as an input, building a
// circuit bottom-up naturally yields a valid evaluation order. Feedback loops
// must go through a register.
//
// Configuration errors are sticky: once an error has been recorded, further
// calls are still accepted but Circuit will return the first error.
//
type Builder struct {
	count int
	cs    []Component
	ns    []Component
	regs  []Wire
	next  map[Wire]bool // registers, true if their next state is set
	ins   []port
	outs  []port
	names map[string]bool
	err   error
}

// NewBuilder returns a new, empty Builder.
//
func NewBuilder() *Builder {
	return &Builder{
		count: int(cstCount),
		next:  make(map[Wire]bool),
		names: make(map[string]bool),
	}
}

// Fail records err as the builder's error if no error has been recorded yet.
//
func (b *Builder) Fail(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

// Errorf records a configuration error. See ConfigError.
//
func (b *Builder) Errorf(format string, args ...interface{}) {
	b.Fail(ConfigError(format, args...))
}

// Err returns the first error recorded by the builder, if any.
//
func (b *Builder) Err() error {
	return b.err
}

// Alloc allocates a new wire and returns its number.
//
func (b *Builder) Alloc() Wire {
	w := Wire(b.count)
	b.count++
	return w
}

// Add appends combinational components to the circuit.
//
func (b *Builder) Add(cs ...Component) {
	b.cs = append(b.cs, cs...)
}

// Check returns true if all of ws have been allocated by b. Otherwise, it
// records an error and returns false. Custom parts should Check their inputs.
//
func (b *Builder) Check(ws ...Wire) bool {
	for _, w := range ws {
		if w < 0 || int(w) >= b.count {
			b.Errorf("wire %d does not belong to this circuit", w)
			return false
		}
	}
	return true
}

func (b *Builder) port(name string) bool {
	if name == "" {
		b.Errorf("empty port name")
		return false
	}
	if b.names[name] {
		b.Errorf("duplicate port name %q", name)
		return false
	}
	b.names[name] = true
	return true
}

// Input returns a new wire driven by the circuit input with the given name.
//
func (b *Builder) Input(name string) Wire {
	w := b.Alloc()
	if b.port(name) {
		b.ins = append(b.ins, port{name, w})
	}
	return w
}

// Output exposes wire w as a circuit output with the given name.
//
func (b *Builder) Output(name string, w Wire) {
	if b.Check(w) && b.port(name) {
		b.outs = append(b.outs, port{name, w})
	}
}

// BusName returns the name of the i-th wire of a bus: name[i].
//
func BusName(name string, i int) string {
	return name + "[" + strconv.Itoa(i) + "]"
}

// Not returns a wire driven by !in.
//
func (b *Builder) Not(in Wire) Wire {
	if !b.Check(in) {
		return False
	}
	out := b.Alloc()
	b.Add(func(c *Circuit) { c.Set(out, !c.Get(in)) })
	return out
}

// And returns a wire driven by in[0] && in[1] && ... && in[n-1]. With a single
// input, that input is returned unchanged.
//
func (b *Builder) And(in ...Wire) Wire {
	return b.fold("AND", in, false)
}

// Or returns a wire driven by in[0] || in[1] || ... || in[n-1]. With a single
// input, that input is returned unchanged.
//
func (b *Builder) Or(in ...Wire) Wire {
	return b.fold("OR", in, true)
}

// fold builds an N-way gate that outputs short whenever one of its inputs is
// equal to short.
//
func (b *Builder) fold(name string, in []Wire, short bool) Wire {
	switch {
	case len(in) == 0:
		b.Errorf("%s gate with no input", name)
		return False
	case !b.Check(in...):
		return False
	case len(in) == 1:
		return in[0]
	}
	in = append([]Wire(nil), in...)
	out := b.Alloc()
	b.Add(func(c *Circuit) {
		for _, i := range in {
			if c.Get(i) == short {
				c.Set(out, short)
				return
			}
		}
		c.Set(out, !short)
	})
	return out
}

// Register returns the output wire of a new 1 bit register. Its initial state
// is false and its next state must be set with Next.
//
func (b *Builder) Register() Wire {
	q := b.Alloc()
	b.regs = append(b.regs, q)
	b.next[q] = false
	return q
}

// Next sets the next state of register q to the state of wire d.
//
func (b *Builder) Next(q, d Wire) {
	if !b.Check(q, d) {
		return
	}
	set, ok := b.next[q]
	switch {
	case !ok:
		b.Errorf("wire %d is not a register", q)
		return
	case set:
		b.Errorf("next state of register %d already set", q)
		return
	}
	b.next[q] = true
	b.ns = append(b.ns, func(c *Circuit) { c.Latch(q, c.Get(d)) })
}

// Circuit returns a runnable circuit or the first error encountered while
// building it.
//
// If workers is greater than 1, register updates are distributed among that
// many goroutines and Circuit.Dispose must be called once the circuit is no
// longer needed. Results are identical to the sequential simulation.
//
func (b *Builder) Circuit(workers int) (*Circuit, error) {
	if b.err != nil {
		return nil, errors.WithStack(b.err)
	}
	for _, q := range b.regs {
		if !b.next[q] {
			return nil, ConfigError("next state of register %d not set", q)
		}
	}
	if len(b.outs) == 0 {
		return nil, ConfigError("circuit has no outputs")
	}
	return newCircuit(workers, b.count,
		append([]Component(nil), b.cs...),
		append([]Component(nil), b.ns...),
		append([]Wire(nil), b.regs...),
		append([]port(nil), b.ins...),
		append([]port(nil), b.outs...)), nil
}
