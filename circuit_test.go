package racesim_test

import (
	"math/rand"
	"strings"
	"testing"
	"testing/quick"

	rs "github.com/db47h/racesim"
	"github.com/db47h/racesim/racetest"
	"github.com/pkg/errors"
	"go.uber.org/goleak"
)

func trace(t *testing.T, err error) {
	t.Helper()
	if err, ok := err.(interface {
		StackTrace() errors.StackTrace
	}); ok {
		for _, f := range err.StackTrace() {
			t.Logf("%+v ", f)
		}
	}
}

func randBool() bool {
	return rand.Int63()&(1<<62) != 0
}

func TestBuilder_errors(t *testing.T) {
	data := []struct {
		name  string
		build func(b *rs.Builder)
		err   string
	}{
		{"and_no_input", func(b *rs.Builder) {
			b.Output("out", b.And())
		}, "AND gate with no input"},
		{"or_no_input", func(b *rs.Builder) {
			b.Output("out", b.Or())
		}, "OR gate with no input"},
		{"next_not_register", func(b *rs.Builder) {
			a := b.Input("a")
			n := b.Not(a)
			b.Next(n, a)
			b.Output("out", n)
		}, "is not a register"},
		{"next_twice", func(b *rs.Builder) {
			a := b.Input("a")
			q := b.Register()
			b.Next(q, a)
			b.Next(q, a)
			b.Output("out", q)
		}, "already set"},
		{"no_next", func(b *rs.Builder) {
			b.Output("out", b.Register())
		}, "not set"},
		{"duplicate_port", func(b *rs.Builder) {
			a := b.Input("a")
			b.Output("a", a)
		}, "duplicate port name \"a\""},
		{"empty_port", func(b *rs.Builder) {
			b.Output("", rs.True)
		}, "empty port name"},
		{"foreign_wire", func(b *rs.Builder) {
			b.Output("out", b.Not(rs.Wire(42)))
		}, "wire 42 does not belong to this circuit"},
		{"no_output", func(b *rs.Builder) {
			b.Input("a")
		}, "circuit has no outputs"},
		{"ok", func(b *rs.Builder) {
			a := b.Input("a")
			q := b.Register()
			b.Next(q, b.Or(a, q))
			b.Output("out", q)
		}, ""},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			b := rs.NewBuilder()
			d.build(b)
			c, err := b.Circuit(0)
			if d.err == "" {
				if err != nil {
					trace(t, err)
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %q, got circuit with %d components", d.err, c.Size())
			}
			if !rs.IsConfigError(err) {
				t.Errorf("error %q does not have ErrInvalidConfiguration as cause", err)
			}
			if !strings.Contains(err.Error(), d.err) {
				t.Errorf("got error %q, expected %q", err, d.err)
			}
		})
	}
}

func Test_gates(t *testing.T) {
	b := rs.NewBuilder()
	a, x := b.Input("a"), b.Input("b")
	b.Output("not", b.Not(a))
	b.Output("and", b.And(a, x))
	b.Output("or", b.Or(a, x))
	b.Output("and1", b.And(a))
	b.Output("true", b.And(rs.True, b.Not(rs.False)))
	c, err := b.Circuit(0)
	if err != nil {
		t.Fatal(err)
	}
	f := func(va, vb bool) bool {
		out := c.Step(map[string]bool{"a": va, "b": vb})
		return out["not"] == !va &&
			out["and"] == (va && vb) &&
			out["or"] == (va || vb) &&
			out["and1"] == va &&
			out["true"]
	}
	if err = quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

// Registers must see the pre-tick state of their inputs: a chain of registers
// delays its input by one cycle per stage, never less.
//
func TestCircuit_two_phase(t *testing.T) {
	b := rs.NewBuilder()
	in := b.Input("in")
	q0, q1 := b.Register(), b.Register()
	// declare next states in reverse order to make sure ordering does not matter.
	b.Next(q1, q0)
	b.Next(q0, in)
	b.Output("q0", q0)
	b.Output("q1", q1)
	toggle := b.Register()
	b.Next(toggle, b.Not(toggle))
	b.Output("toggle", toggle)
	c, err := b.Circuit(0)
	if err != nil {
		t.Fatal(err)
	}

	tr := rs.Run(c, rs.Stimuli{"in": 1}, 6)
	if a := tr.Arrival("q0"); a != 2 {
		t.Errorf("q0 arrival = %v, expected 2", a)
	}
	if a := tr.Arrival("q1"); a != 3 {
		t.Errorf("q1 arrival = %v, expected 3", a)
	}
	for i, v := range tr.Values["toggle"] {
		if v != (i%2 == 1) {
			t.Fatalf("toggle at cycle %d = %v", i, v)
		}
	}
	if c.Cycle() != 6 {
		t.Errorf("cycle = %v, expected 6", c.Cycle())
	}
}

func Test_bit_register(t *testing.T) {
	b := rs.NewBuilder()
	in, load := b.Input("in"), b.Input("load")
	q := b.Register()
	// q.next = load ? in : q
	b.Next(q, b.Or(b.And(load, in), b.And(b.Not(load), q)))
	b.Output("out", q)
	c, err := b.Circuit(0)
	if err != nil {
		t.Fatal(err)
	}

	var p bool
	for i := 0; i < 1000; i++ {
		vin, vload := randBool(), randBool()
		out := c.Step(map[string]bool{"in": vin, "load": vload})
		if out["out"] != p {
			t.Fatalf("cycle %d: out = %v, expected %v", i, out["out"], p)
		}
		if vload {
			p = vin
		}
	}
}

func TestCircuit_Step_unknown_input(t *testing.T) {
	b := rs.NewBuilder()
	b.Output("out", b.Input("a"))
	c, err := b.Circuit(0)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Step with unknown input did not panic")
		}
	}()
	c.Step(map[string]bool{"typo": true})
}

// build a circuit with a lot of registers: a bank of shift registers fed with
// inputs and combined with and/or gates.
func bank(workers int) (*rs.Circuit, error) {
	b := rs.NewBuilder()
	var outs []rs.Wire
	for i := 0; i < 8; i++ {
		w := b.Input(rs.BusName("in", i))
		for j := 0; j <= i; j++ {
			q := b.Register()
			b.Next(q, w)
			w = q
		}
		outs = append(outs, w)
	}
	for i := 1; i < len(outs); i++ {
		b.Output(rs.BusName("and", i), b.And(outs[i-1], outs[i]))
		b.Output(rs.BusName("or", i), b.Or(outs[i-1], outs[i]))
	}
	return b.Circuit(workers)
}

func TestCircuit_workers(t *testing.T) {
	defer goleak.VerifyNone(t)

	stim := rs.Stimuli{}
	for i := 0; i < 8; i++ {
		stim[rs.BusName("in", i)] = rs.Time(7 - i)
	}
	racetest.CompareRuns(t, bank, 4, stim, 20)
	racetest.CompareRuns(t, bank, 0, stim, 20)
}

func TestCircuit_Inputs_Outputs(t *testing.T) {
	c, err := bank(0)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(c.Inputs()); n != 8 {
		t.Errorf("got %d inputs, expected 8", n)
	}
	if n := len(c.Outputs()); n != 14 {
		t.Errorf("got %d outputs, expected 14", n)
	}
	if n := c.Registers(); n != 36 {
		t.Errorf("got %d registers, expected 36", n)
	}
}
