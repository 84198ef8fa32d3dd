// Package circuit holds the quantum circuit value shared by the algorithm
// templates, the simulator, the remote backends and the renderers.
package circuit

import (
	"errors"
	"fmt"
	"slices"
)

// Gate type names. They double as the upper-cased QASM mnemonics.
const (
	TypeH       = "H"
	TypeX       = "X"
	TypeY       = "Y"
	TypeZ       = "Z"
	TypeS       = "S"
	TypeT       = "T"
	TypeRX      = "RX"
	TypeRY      = "RY"
	TypeRZ      = "RZ"
	TypeCX      = "CX"
	TypeCZ      = "CZ"
	TypeReset   = "RESET"
	TypeBarrier = "BARRIER"
	TypeMeasure = "MEASURE"
)

var (
	ErrQubitRange    = errors.New("qubit index out of range")
	ErrClbitRange    = errors.New("classical bit index out of range")
	ErrWidthMismatch = errors.New("circuit width mismatch")
	ErrUnknownGate   = errors.New("unknown gate")
)

// Gate is a single operation placed on the circuit.
type Gate struct {
	Type    string
	Target  int       // -1 for barriers, which span all qubits
	Control int       // -1 if not a controlled gate
	Cbit    int       // classical bit written by a measurement, -1 otherwise
	Step    int       // diagram column
	Params  []float64 // rotation angles
}

// references reports whether the gate acts on the given qubit.
func (g Gate) references(qubit int) bool {
	return g.Target == qubit || g.Control == qubit
}

// Circuit is an ordered gate sequence over NumQubits qubits and NumClbits
// classical bits. Gates is kept in program order; Step only drives layout.
type Circuit struct {
	NumQubits int
	NumClbits int
	Gates     []Gate
	MaxSteps  int

	err error
}

// New returns an empty circuit with the given register sizes.
func New(qubits, clbits int) *Circuit {
	return &Circuit{NumQubits: max(qubits, 0), NumClbits: max(clbits, 0)}
}

// Err returns the first error recorded by a builder method.
func (c *Circuit) Err() error {
	return c.err
}

func (c *Circuit) fail(err error) *Circuit {
	if c.err == nil {
		c.err = err
	}
	return c
}

func (c *Circuit) checkQubit(q int) error {
	if q < 0 || q >= c.NumQubits {
		return fmt.Errorf("%w: q[%d] on a %d-qubit circuit", ErrQubitRange, q, c.NumQubits)
	}
	return nil
}

// span returns the contiguous range of wires the gate occupies in the
// diagram. A measurement also covers the wires below it, which its classical
// line crosses.
func (c *Circuit) span(g Gate) (lo, hi int) {
	lo, hi = g.Target, g.Target
	if g.Control >= 0 {
		lo, hi = min(g.Control, g.Target), max(g.Control, g.Target)
	}
	if g.Type == TypeMeasure {
		hi = c.NumQubits - 1
	}
	return lo, hi
}

// nextStep returns the first column after every gate whose span overlaps g.
// Barriers close their column for all qubits.
func (c *Circuit) nextStep(g Gate) int {
	lo, hi := c.span(g)
	step := 0
	for _, prev := range c.Gates {
		if prev.Type == TypeBarrier {
			step = max(step, prev.Step+1)
			continue
		}
		plo, phi := c.span(prev)
		if plo <= hi && lo <= phi {
			step = max(step, prev.Step+1)
		}
	}
	return step
}

func (c *Circuit) place(g Gate) {
	if g.Type == TypeBarrier {
		g.Step = 0
		if len(c.Gates) > 0 {
			g.Step = c.MaxSteps
		}
	} else {
		g.Step = c.nextStep(g)
	}
	c.Gates = append(c.Gates, g)
	if g.Step >= c.MaxSteps {
		c.MaxSteps = g.Step + 1
	}
}

// AddGate appends a single- or two-qubit gate. The optional control makes it a
// controlled gate.
func (c *Circuit) AddGate(gateType string, target int, control ...int) *Circuit {
	return c.AddParameterizedGate(gateType, target, nil, control...)
}

// AddParameterizedGate appends a gate carrying rotation parameters.
func (c *Circuit) AddParameterizedGate(gateType string, target int, params []float64, control ...int) *Circuit {
	if err := c.checkQubit(target); err != nil {
		return c.fail(fmt.Errorf("%s: %w", gateType, err))
	}
	ctrl := -1
	if len(control) > 0 {
		ctrl = control[0]
		if err := c.checkQubit(ctrl); err != nil {
			return c.fail(fmt.Errorf("%s: %w", gateType, err))
		}
		if ctrl == target {
			return c.fail(fmt.Errorf("%s: control and target are both q[%d]", gateType, target))
		}
	}
	c.place(Gate{
		Type:    gateType,
		Target:  target,
		Control: ctrl,
		Cbit:    -1,
		Params:  slices.Clone(params),
	})
	return c
}

func (c *Circuit) H(q int) *Circuit { return c.AddGate(TypeH, q) }
func (c *Circuit) X(q int) *Circuit { return c.AddGate(TypeX, q) }
func (c *Circuit) Y(q int) *Circuit { return c.AddGate(TypeY, q) }
func (c *Circuit) Z(q int) *Circuit { return c.AddGate(TypeZ, q) }
func (c *Circuit) S(q int) *Circuit { return c.AddGate(TypeS, q) }
func (c *Circuit) T(q int) *Circuit { return c.AddGate(TypeT, q) }

func (c *Circuit) RX(theta float64, q int) *Circuit {
	return c.AddParameterizedGate(TypeRX, q, []float64{theta})
}

func (c *Circuit) RY(theta float64, q int) *Circuit {
	return c.AddParameterizedGate(TypeRY, q, []float64{theta})
}

func (c *Circuit) RZ(theta float64, q int) *Circuit {
	return c.AddParameterizedGate(TypeRZ, q, []float64{theta})
}

// CX appends a controlled-NOT with the given control and target.
func (c *Circuit) CX(control, target int) *Circuit { return c.AddGate(TypeCX, target, control) }

// CZ appends a controlled-Z with the given control and target.
func (c *Circuit) CZ(control, target int) *Circuit { return c.AddGate(TypeCZ, target, control) }

// Reset returns the qubit to |0⟩.
func (c *Circuit) Reset(q int) *Circuit { return c.AddGate(TypeReset, q) }

// HRange applies H to each listed qubit.
func (c *Circuit) HRange(qubits ...int) *Circuit {
	for _, q := range qubits {
		c.H(q)
	}
	return c
}

// Barrier appends a barrier spanning all qubits.
func (c *Circuit) Barrier() *Circuit {
	c.place(Gate{Type: TypeBarrier, Target: -1, Control: -1, Cbit: -1})
	return c
}

// Measure records qubit q into classical bit cbit.
func (c *Circuit) Measure(q, cbit int) *Circuit {
	if err := c.checkQubit(q); err != nil {
		return c.fail(fmt.Errorf("measure: %w", err))
	}
	if cbit < 0 || cbit >= c.NumClbits {
		return c.fail(fmt.Errorf("measure: %w: c[%d] on %d classical bits", ErrClbitRange, cbit, c.NumClbits))
	}
	c.place(Gate{Type: TypeMeasure, Target: q, Control: -1, Cbit: cbit})
	return c
}

// MeasureRange measures qubit i into classical bit i for i in [0, n).
func (c *Circuit) MeasureRange(n int) *Circuit {
	for i := range n {
		c.Measure(i, i)
	}
	return c
}

// Compose appends other's gates in order. With no mapping other's qubit i
// lands on qubit i; otherwise on qubits[i]. Classical bits are kept as is.
func (c *Circuit) Compose(other *Circuit, qubits ...int) *Circuit {
	if other == nil {
		return c
	}
	if err := other.Err(); err != nil {
		return c.fail(fmt.Errorf("compose: %w", err))
	}
	mapping := qubits
	if len(mapping) == 0 {
		if other.NumQubits > c.NumQubits {
			return c.fail(fmt.Errorf("compose: %w: %d qubits into %d", ErrWidthMismatch, other.NumQubits, c.NumQubits))
		}
		mapping = make([]int, other.NumQubits)
		for i := range mapping {
			mapping[i] = i
		}
	}
	if len(mapping) != other.NumQubits {
		return c.fail(fmt.Errorf("compose: %w: %d qubits mapped onto %d", ErrWidthMismatch, other.NumQubits, len(mapping)))
	}
	for _, q := range mapping {
		if err := c.checkQubit(q); err != nil {
			return c.fail(fmt.Errorf("compose: %w", err))
		}
	}
	if other.NumClbits > c.NumClbits {
		return c.fail(fmt.Errorf("compose: %w: %d classical bits into %d", ErrWidthMismatch, other.NumClbits, c.NumClbits))
	}

	for _, g := range other.Gates {
		g.Params = slices.Clone(g.Params)
		if g.Target >= 0 {
			g.Target = mapping[g.Target]
		}
		if g.Control >= 0 {
			g.Control = mapping[g.Control]
		}
		c.place(g)
	}
	return c
}

// Clone returns a deep copy.
func (c *Circuit) Clone() *Circuit {
	out := &Circuit{
		NumQubits: c.NumQubits,
		NumClbits: c.NumClbits,
		Gates:     make([]Gate, len(c.Gates)),
		MaxSteps:  c.MaxSteps,
		err:       c.err,
	}
	for i, g := range c.Gates {
		g.Params = slices.Clone(g.Params)
		out.Gates[i] = g
	}
	return out
}

// Depth is the number of diagram columns in use.
func (c *Circuit) Depth() int {
	return c.MaxSteps
}

// CountOps returns how many gates of each type the circuit holds.
func (c *Circuit) CountOps() map[string]int {
	ops := make(map[string]int)
	for _, g := range c.Gates {
		ops[g.Type]++
	}
	return ops
}

// HasMidCircuitCollapse reports whether the circuit needs shot-by-shot
// evolution: a reset anywhere, or any non-measurement after a measurement.
func (c *Circuit) HasMidCircuitCollapse() bool {
	measured := false
	for _, g := range c.Gates {
		switch g.Type {
		case TypeReset:
			return true
		case TypeMeasure:
			measured = true
		case TypeBarrier:
		default:
			if measured {
				return true
			}
		}
	}
	return false
}

// GetMeasureAtStep returns the classical bit written at the step, or -1.
func (c *Circuit) GetMeasureAtStep(step int) int {
	for _, g := range c.Gates {
		if g.Step == step && g.Type == TypeMeasure {
			return g.Cbit
		}
	}
	return -1
}
