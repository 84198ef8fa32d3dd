// Package oracle provides the example oracles fed to the Deutsch and
// Deutsch-Jozsa templates, plus generators for textbook constant and
// balanced functions.
//
// An oracle over n inputs is a circuit on n+1 qubits: q[0..n-1] are the
// inputs and q[n] is the ancilla.
package oracle

import (
	"errors"
	"fmt"

	"qdeutsch/internal/circuit"
)

var ErrMask = errors.New("balanced mask must select at least one input")

// Example is a named oracle together with its input width.
type Example struct {
	Name        string
	Oracle      *circuit.Circuit
	Inputs      int
	Description string
}

// Identity leaves every qubit alone. f(x) = 0.
func Identity() *circuit.Circuit {
	return circuit.New(2, 0)
}

// CNOT copies the input onto the ancilla. f(x) = x.
func CNOT() *circuit.Circuit {
	return circuit.New(2, 0).CX(0, 1)
}

// ResetInput resets the input qubit. It is not a valid black box, so the
// template reads either outcome with equal probability.
func ResetInput() *circuit.Circuit {
	return circuit.New(2, 0).Reset(0)
}

// ResetThenFlip resets the input and flips it.
func ResetThenFlip() *circuit.Circuit {
	return circuit.New(2, 0).Reset(0).X(0)
}

// FlipInput applies X to the input. |+> is an eigenstate of X so the ancilla
// never sees a difference.
func FlipInput() *circuit.Circuit {
	return circuit.New(2, 0).X(0)
}

// JozsaMixed is the three-input example: H, CX(1,0), Z on q[2], H.
func JozsaMixed() *circuit.Circuit {
	return circuit.New(4, 0).H(0).CX(1, 0).Z(2).H(0)
}

// Constant returns the oracle for f(x) = bit over n inputs.
func Constant(n int, bit int) (*circuit.Circuit, error) {
	if n < 1 {
		return nil, fmt.Errorf("constant oracle: need at least one input, got %d", n)
	}
	c := circuit.New(n+1, 0)
	if bit&1 == 1 {
		c.X(n)
	}
	return c, c.Err()
}

// Balanced returns the oracle for f(x) = parity(x & mask). Every non-zero
// mask gives a balanced function.
func Balanced(n int, mask uint64) (*circuit.Circuit, error) {
	if n < 1 || n > 63 {
		return nil, fmt.Errorf("balanced oracle: input count %d out of range", n)
	}
	if mask == 0 || mask>>n != 0 {
		return nil, fmt.Errorf("%w: mask %b over %d inputs", ErrMask, mask, n)
	}
	c := circuit.New(n+1, 0)
	for q := range n {
		if mask&(1<<q) != 0 {
			c.CX(q, n)
		}
	}
	return c, c.Err()
}

// DeutschExamples returns the two-qubit oracles in their canonical order.
func DeutschExamples() []Example {
	return []Example{
		{Name: "example_one", Oracle: Identity(), Inputs: 1, Description: "identity, f(x) = 0"},
		{Name: "example_two", Oracle: CNOT(), Inputs: 1, Description: "cx(0,1), f(x) = x"},
		{Name: "example_three", Oracle: ResetInput(), Inputs: 1, Description: "reset(0)"},
		{Name: "example_four", Oracle: ResetThenFlip(), Inputs: 1, Description: "reset(0), x(0)"},
		{Name: "example_five", Oracle: FlipInput(), Inputs: 1, Description: "x(0)"},
	}
}

// JozsaExamples returns the n-input oracles.
func JozsaExamples() []Example {
	return []Example{
		{Name: "jozsa_example_one", Oracle: JozsaMixed(), Inputs: 3, Description: "h(0), cx(1,0), z(2), h(0)"},
	}
}

// TextbookExamples returns generated oracles over n inputs: both constant
// functions, the parity of the first input and the parity of all inputs.
func TextbookExamples(n int) ([]Example, error) {
	zero, err := Constant(n, 0)
	if err != nil {
		return nil, err
	}
	one, err := Constant(n, 1)
	if err != nil {
		return nil, err
	}
	first, err := Balanced(n, 1)
	if err != nil {
		return nil, err
	}
	parity, err := Balanced(n, 1<<n-1)
	if err != nil {
		return nil, err
	}
	return []Example{
		{Name: "constant_zero", Oracle: zero, Inputs: n, Description: "f(x) = 0"},
		{Name: "constant_one", Oracle: one, Inputs: n, Description: "f(x) = 1"},
		{Name: "balanced_first", Oracle: first, Inputs: n, Description: "f(x) = x0"},
		{Name: "balanced_parity", Oracle: parity, Inputs: n, Description: fmt.Sprintf("f(x) = x0 ^ ... ^ x%d", n-1)},
	}, nil
}

// Lookup finds an example by name.
func Lookup(examples []Example, name string) (Example, bool) {
	for _, ex := range examples {
		if ex.Name == name {
			return ex, true
		}
	}
	return Example{}, false
}

// Select picks examples by zero-based index. No indices selects all of them.
func Select(examples []Example, indices ...int) ([]Example, error) {
	if len(indices) == 0 {
		return examples, nil
	}
	out := make([]Example, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(examples) {
			return nil, fmt.Errorf("example index %d out of range [0, %d)", i, len(examples))
		}
		out = append(out, examples[i])
	}
	return out, nil
}

// Hello is the two-qubit smoke test: H on q[1], both qubits measured.
func Hello() *circuit.Circuit {
	return circuit.New(2, 2).H(1).MeasureRange(2)
}
