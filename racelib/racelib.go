// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package racelib provides the primitive race logic operators.
//
// A race logic value is encoded as the cycle at which a wire rises. Since the
// operators below preserve monotonicity (a signal never falls once it has
// risen), plain logic gates compute numeric functions of their inputs:
//
//	MAX: AND gate, rises once all inputs have arrived.
//	MIN: OR gate, rises as soon as any input arrives.
//	INHIBIT: stateful gate, blocks its data input forever if the inhibiting
//	         input arrives strictly first.
//	ADD-CONSTANT: shift register, delays its input by a fixed number of cycles.
//
// Operators report configuration errors to the builder. See racesim.Builder.
//
package racelib

import "github.com/db47h/racesim"

// Max returns the latest of its inputs.
//
//	Inputs: in[n]
//	Outputs: out
//	Function: out = in[0] && in[1] && ... && in[n-1]
//	Arrival: max(arrival(in[i]))
//
func Max(b *racesim.Builder, in ...racesim.Wire) racesim.Wire {
	if len(in) == 0 {
		b.Errorf("MAX with no input")
		return racesim.False
	}
	return b.And(in...)
}

// Min returns the earliest of its inputs.
//
//	Inputs: in[n]
//	Outputs: out
//	Function: out = in[0] || in[1] || ... || in[n-1]
//	Arrival: min(arrival(in[i]))
//
func Min(b *racesim.Builder, in ...racesim.Wire) racesim.Wire {
	if len(in) == 0 {
		b.Errorf("MIN with no input")
		return racesim.False
	}
	return b.Or(in...)
}

// Inhibit returns j unless i arrives strictly before j, in which case the
// output never rises.
//
//	Inputs: i (inhibiting), j (data)
//	Outputs: out
//	State: iBeforeJ, set for good once i is high while j is still low.
//	Function: out = j && !iBeforeJ
//	Arrival: arrival(j) if arrival(j) <= arrival(i), never otherwise.
//
func Inhibit(b *racesim.Builder, i, j racesim.Wire) racesim.Wire {
	if !b.Check(i, j) {
		return racesim.False
	}
	iBeforeJ := b.Register()
	set, out := b.Alloc(), b.Alloc()
	b.Add(func(c *racesim.Circuit) {
		latched := c.Get(iBeforeJ)
		c.Set(set, latched || c.Get(i) && !c.Get(j))
		c.Set(out, c.Get(j) && !latched)
	})
	b.Next(iBeforeJ, set)
	return out
}

// AddConst delays din by k cycles.
//
//	Inputs: din
//	Outputs: out
//	Function: out(t) = din(t-k)
//	Arrival: arrival(din) + k
//
// With k = 0, din is returned unchanged. A negative k is a configuration
// error.
//
func AddConst(b *racesim.Builder, din racesim.Wire, k int) racesim.Wire {
	switch {
	case k < 0:
		b.Errorf("ADD-CONSTANT with negative constant %d", k)
		return racesim.False
	case k == 0:
		return din
	case k == 1:
		if !b.Check(din) {
			return racesim.False
		}
		q := b.Register()
		b.Next(q, din)
		return q
	}
	taps := ShiftReg(b, din, k)
	return taps[len(taps)-1]
}

// ShiftReg returns the n stages of a shift register fed with din.
//
//	Inputs: din
//	Outputs: out[n]
//	Function: out[i](t) = din(t-i-1)
//
func ShiftReg(b *racesim.Builder, din racesim.Wire, n int) []racesim.Wire {
	if n < 1 {
		b.Errorf("shift register with %d stages", n)
		return []racesim.Wire{racesim.False}
	}
	if !b.Check(din) {
		return make([]racesim.Wire, n)
	}
	out := make([]racesim.Wire, n)
	for i := range out {
		out[i] = b.Register()
	}
	b.Next(out[0], din)
	for i := 1; i < n; i++ {
		b.Next(out[i], out[i-1])
	}
	return out
}

// Ladder returns the taps of a threshold ladder: a shift register of n stages
// continuously fed with a constant true. Tap p rises at cycle p and represents
// the magnitude p. Tap 0 is the constant true.
//
//	Outputs: tap[n+1]
//	Arrival: arrival(tap[p]) = p
//
func Ladder(b *racesim.Builder, n int) []racesim.Wire {
	return append([]racesim.Wire{racesim.True}, ShiftReg(b, racesim.True, n)...)
}

// Buffer returns a registered copy of in.
//
//	Inputs: in[n]
//	Outputs: out[n]
//	Function: out[i](t) = in[i](t-1)
//
func Buffer(b *racesim.Builder, in ...racesim.Wire) []racesim.Wire {
	out := make([]racesim.Wire, len(in))
	for i, w := range in {
		if !b.Check(w) {
			out[i] = racesim.False
			continue
		}
		out[i] = b.Register()
		b.Next(out[i], w)
	}
	return out
}
