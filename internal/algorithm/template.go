// Package algorithm wraps caller-supplied oracle circuits in the Deutsch and
// Deutsch-Jozsa templates.
//
// For an oracle over k input qubits plus one ancilla (qubit k) the composed
// circuit is:
//
//	X on the ancilla
//	H on all k+1 qubits
//	barrier
//	the oracle, unchanged
//	barrier
//	H on the k input qubits
//	measure input qubit i into classical bit i
package algorithm

import (
	"errors"
	"fmt"
	"slices"

	"qdeutsch/internal/circuit"
)

var ErrOracleWidth = errors.New("oracle width does not match the template")

// Deutsch composes a two-qubit oracle (input q[0], ancilla q[1]) into
// Deutsch's algorithm.
func Deutsch(oracle *circuit.Circuit) (*circuit.Circuit, error) {
	return DeutschJozsa(oracle, 1)
}

// DeutschJozsa composes an oracle over n input qubits plus one ancilla into
// the Deutsch-Jozsa algorithm. The result has n+1 qubits and n classical bits.
func DeutschJozsa(oracle *circuit.Circuit, n int) (*circuit.Circuit, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: need at least one input qubit, got %d", ErrOracleWidth, n)
	}
	if oracle == nil {
		return nil, fmt.Errorf("%w: nil oracle", ErrOracleWidth)
	}
	if oracle.NumQubits != n+1 {
		return nil, fmt.Errorf("%w: oracle has %d qubits, want %d", ErrOracleWidth, oracle.NumQubits, n+1)
	}

	ancilla := n
	c := circuit.New(n+1, n)
	c.X(ancilla)
	for q := range n + 1 {
		c.H(q)
	}
	c.Barrier()
	c.Compose(oracle)
	c.Barrier()
	for q := range n {
		c.H(q)
	}
	c.MeasureRange(n)

	if err := c.Err(); err != nil {
		return nil, fmt.Errorf("compose oracle: %w", err)
	}
	return c, nil
}

// Oracle returns the oracle gates of a composed circuit. They are located by
// the fixed template prefix and suffix, so barriers inside the oracle are
// returned with it. ok is false when composed does not have the template's
// shape.
func Oracle(composed *circuit.Circuit) ([]circuit.Gate, bool) {
	if composed == nil || composed.NumClbits < 1 {
		return nil, false
	}
	n := composed.NumClbits
	// X, n+1 H and a barrier before; a barrier, n H and n measures after.
	start := n + 3
	end := len(composed.Gates) - 2*n - 1
	if end < start ||
		composed.Gates[start-1].Type != circuit.TypeBarrier ||
		composed.Gates[end].Type != circuit.TypeBarrier {
		return nil, false
	}
	return slices.Clone(composed.Gates[start:end]), true
}
