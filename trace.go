// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package racesim

// A Trace records the state of every output of a circuit during a run.
//
type Trace struct {
	// Output names, sorted.
	Outputs []string
	// Values maps output names to their state at each cycle.
	Values map[string][]bool
}

// Run resets c and simulates it for the given number of cycles, driving its
// inputs with stim.
//
func Run(c *Circuit, stim Stimuli, cycles int) *Trace {
	tr := &Trace{
		Outputs: c.Outputs(),
		Values:  make(map[string][]bool),
	}
	for _, n := range tr.Outputs {
		tr.Values[n] = make([]bool, 0, cycles)
	}
	c.Reset()
	for t := Time(0); t < Time(cycles); t++ {
		for n, v := range c.Step(stim.At(t)) {
			tr.Values[n] = append(tr.Values[n], v)
		}
	}
	return tr
}

// Len returns the number of cycles in the trace.
//
func (t *Trace) Len() int {
	if len(t.Outputs) == 0 {
		return 0
	}
	return len(t.Values[t.Outputs[0]])
}

// Arrival returns the first cycle at which the named output is high, or
// Never.
//
func (t *Trace) Arrival(name string) Time {
	for i, v := range t.Values[name] {
		if v {
			return Time(i)
		}
	}
	return Never
}

// At returns the state of the named output at cycle c.
//
func (t *Trace) At(name string, c Time) bool {
	vs := t.Values[name]
	if c < 0 || int(c) >= len(vs) {
		return false
	}
	return vs[c]
}

// Monotonic returns true if the named output never falls once it has risen.
//
func (t *Trace) Monotonic(name string) bool {
	high := false
	for _, v := range t.Values[name] {
		if high && !v {
			return false
		}
		high = v
	}
	return true
}
