// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package racesim

import "strconv"

// Time is a cycle index. In race logic, it is also the value encoded by a
// signal: the cycle at which it goes high.
//
type Time int

// Never is the arrival time of a signal that never goes high. It encodes an
// infinite value.
//
const Never Time = -1

// IsNever returns true if t encodes an infinite value. Any negative Time is
// treated as Never.
//
func (t Time) IsNever() bool { return t < 0 }

func (t Time) String() string {
	if t.IsNever() {
		return "never"
	}
	return strconv.Itoa(int(t))
}

// Stimulus returns the state at cycle t of a signal encoding the value x:
// false for t < x, true afterwards. If x is Never, the signal stays low.
//
// Stimulus is stateless: the same signal can be sampled again from cycle 0 to
// replay a simulation.
//
func Stimulus(x, t Time) bool {
	return !x.IsNever() && t >= x
}

// Earliest returns the smallest of the given times, Never being the largest
// possible value. It returns Never if ts is empty.
//
func Earliest(ts ...Time) Time {
	r := Never
	for _, t := range ts {
		if !t.IsNever() && (r.IsNever() || t < r) {
			r = t
		}
	}
	return r
}

// Latest returns the largest of the given times, or Never if any of them is
// Never. It returns Never if ts is empty.
//
func Latest(ts ...Time) Time {
	if len(ts) == 0 {
		return Never
	}
	r := ts[0]
	for _, t := range ts {
		if t.IsNever() {
			return Never
		}
		if t > r {
			r = t
		}
	}
	return r
}

// Stimuli maps circuit input names to the values they encode.
//
type Stimuli map[string]Time

// At returns the state of all inputs at cycle t, suitable for Circuit.Step.
//
func (s Stimuli) At(t Time) map[string]bool {
	in := make(map[string]bool, len(s))
	for name, x := range s {
		in[name] = Stimulus(x, t)
	}
	return in
}
