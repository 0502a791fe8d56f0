/*
Package racesim provides a cycle-stepped simulator for race logic circuits.

In race logic, a magnitude is encoded as the arrival cycle of a single rising
edge on a 1 bit wire: smaller values arrive earlier. Circuits are built with a
Builder out of combinational components and 1 bit registers, then run one
clock cycle at a time with Circuit.Step.

Each step follows the same two-phase discipline as synchronous hardware: all
combinational outputs are evaluated from the pre-tick register and input state,
every register computes its next state from that same state, then all
registers are committed at once.

The racelib sub-package provides the race logic operators (MAX, MIN, INHIBIT
and ADD-CONSTANT) and the racetree package composes them into tree
classifiers.

*/
package racesim
