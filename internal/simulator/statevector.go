// Package simulator evolves circuits as dense state vectors and samples
// measurement counts from them.
package simulator

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"

	"qdeutsch/internal/circuit"
)

// MaxQubits bounds the dense state vector to 2^24 amplitudes.
const MaxQubits = 24

type Complex = complex128

// StateVector holds 2^NumQubits amplitudes. Bit q of the basis index is
// qubit q.
type StateVector struct {
	Amplitudes []Complex
	NumQubits  int
}

// NewStateVector returns |0...0⟩.
func NewStateVector(numQubits int) *StateVector {
	amps := make([]Complex, 1<<numQubits)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}
}

func (s *StateVector) Clone() *StateVector {
	amps := make([]Complex, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &StateVector{Amplitudes: amps, NumQubits: s.NumQubits}
}

// ApplyGate applies a unitary gate. Measurement, reset and barriers are
// handled by the caller.
func (s *StateVector) ApplyGate(g circuit.Gate) error {
	theta := 0.0
	if len(g.Params) > 0 {
		theta = g.Params[0]
	}
	switch g.Type {
	case circuit.TypeH:
		s.applyH(g.Target)
	case circuit.TypeX:
		s.applyX(g.Target)
	case circuit.TypeY:
		s.applyY(g.Target)
	case circuit.TypeZ:
		s.applyPhase(g.Target, -1)
	case circuit.TypeS:
		s.applyPhase(g.Target, 1i)
	case circuit.TypeT:
		s.applyPhase(g.Target, cmplx.Exp(complex(0, math.Pi/4)))
	case circuit.TypeRX:
		s.applyRX(g.Target, theta)
	case circuit.TypeRY:
		s.applyRY(g.Target, theta)
	case circuit.TypeRZ:
		s.applyRZ(g.Target, theta)
	case circuit.TypeCX:
		s.applyCX(g.Control, g.Target)
	case circuit.TypeCZ:
		s.applyCZ(g.Control, g.Target)
	default:
		return fmt.Errorf("%w: %s", circuit.ErrUnknownGate, g.Type)
	}
	return nil
}

func (s *StateVector) applyH(q int) {
	hFactor := complex(1.0/math.Sqrt2, 0)
	bit := 1 << q
	for i := range s.Amplitudes {
		if i&bit == 0 {
			j := i | bit
			a, b := s.Amplitudes[i], s.Amplitudes[j]
			s.Amplitudes[i] = hFactor * (a + b)
			s.Amplitudes[j] = hFactor * (a - b)
		}
	}
}

func (s *StateVector) applyX(q int) {
	bit := 1 << q
	for i := range s.Amplitudes {
		if i&bit == 0 {
			j := i | bit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

func (s *StateVector) applyY(q int) {
	bit := 1 << q
	for i := range s.Amplitudes {
		if i&bit == 0 {
			j := i | bit
			s.Amplitudes[i], s.Amplitudes[j] = -1i*s.Amplitudes[j], 1i*s.Amplitudes[i]
		}
	}
}

// applyPhase multiplies the |1⟩ component of qubit q by factor.
func (s *StateVector) applyPhase(q int, factor Complex) {
	bit := 1 << q
	for i := range s.Amplitudes {
		if i&bit != 0 {
			s.Amplitudes[i] *= factor
		}
	}
}

func (s *StateVector) applyRX(q int, theta float64) {
	bit := 1 << q
	c := complex(math.Cos(theta/2), 0)
	js := complex(0, -math.Sin(theta/2))
	for i := range s.Amplitudes {
		if i&bit == 0 {
			j := i | bit
			a, b := s.Amplitudes[i], s.Amplitudes[j]
			s.Amplitudes[i] = c*a + js*b
			s.Amplitudes[j] = js*a + c*b
		}
	}
}

func (s *StateVector) applyRY(q int, theta float64) {
	bit := 1 << q
	c := complex(math.Cos(theta/2), 0)
	sn := complex(math.Sin(theta/2), 0)
	for i := range s.Amplitudes {
		if i&bit == 0 {
			j := i | bit
			a, b := s.Amplitudes[i], s.Amplitudes[j]
			s.Amplitudes[i] = c*a - sn*b
			s.Amplitudes[j] = sn*a + c*b
		}
	}
}

func (s *StateVector) applyRZ(q int, theta float64) {
	bit := 1 << q
	phase := cmplx.Exp(complex(0, theta/2))
	for i := range s.Amplitudes {
		if i&bit != 0 {
			s.Amplitudes[i] *= phase
		} else {
			s.Amplitudes[i] *= cmplx.Conj(phase)
		}
	}
}

func (s *StateVector) applyCX(control, target int) {
	cBit := 1 << control
	tBit := 1 << target
	for i := range s.Amplitudes {
		if i&cBit != 0 && i&tBit == 0 {
			j := i | tBit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

func (s *StateVector) applyCZ(control, target int) {
	cBit := 1 << control
	tBit := 1 << target
	for i := range s.Amplitudes {
		if i&cBit != 0 && i&tBit != 0 {
			s.Amplitudes[i] *= -1
		}
	}
}

// Prob1 returns the probability of reading 1 on qubit q.
func (s *StateVector) Prob1(q int) float64 {
	bit := 1 << q
	p := 0.0
	for i, amp := range s.Amplitudes {
		if i&bit != 0 {
			p += real(amp * cmplx.Conj(amp))
		}
	}
	return p
}

// Measure collapses qubit q according to the Born rule and returns the
// outcome.
func (s *StateVector) Measure(q int, rng *rand.Rand) int {
	p1 := s.Prob1(q)
	outcome := 0
	if rng.Float64() < p1 {
		outcome = 1
	}
	s.project(q, outcome, p1)
	return outcome
}

// Reset measures qubit q and flips it back to |0⟩ when it read 1.
func (s *StateVector) Reset(q int, rng *rand.Rand) {
	if s.Measure(q, rng) == 1 {
		s.applyX(q)
	}
}

func (s *StateVector) project(q, outcome int, p1 float64) {
	bit := 1 << q
	p := p1
	if outcome == 0 {
		p = 1 - p1
	}
	norm := complex(1/math.Sqrt(max(p, 1e-300)), 0)
	for i := range s.Amplitudes {
		if (i&bit != 0) == (outcome == 1) {
			s.Amplitudes[i] *= norm
		} else {
			s.Amplitudes[i] = 0
		}
	}
}

// Probabilities returns |amplitude|^2 per basis state.
func (s *StateVector) Probabilities() []float64 {
	probs := make([]float64, len(s.Amplitudes))
	for i, amp := range s.Amplitudes {
		probs[i] = real(amp * cmplx.Conj(amp))
	}
	return probs
}
