package simulator

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"time"

	"go.uber.org/zap"

	"qdeutsch/internal/circuit"
	"qdeutsch/internal/logging"
)

var (
	ErrTooManyQubits = errors.New("too many qubits for state-vector simulation")
	ErrNoShots       = errors.New("shots must be positive")
	ErrMidCircuit    = errors.New("circuit has mid-circuit resets or measurements")
)

// Simulator runs circuits locally. A zero Seed draws a fresh seed per run.
type Simulator struct {
	Seed   uint64
	Logger *zap.Logger
}

// New returns a simulator with the given seed.
func New(seed uint64, logger *zap.Logger) *Simulator {
	return &Simulator{Seed: seed, Logger: logging.OrNop(logger)}
}

func (s *Simulator) rng() *rand.Rand {
	seed := s.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (s *Simulator) logger() *zap.Logger {
	return logging.OrNop(s.Logger)
}

func validate(c *circuit.Circuit, shots int) error {
	if err := c.Err(); err != nil {
		return fmt.Errorf("invalid circuit: %w", err)
	}
	if shots <= 0 {
		return fmt.Errorf("%w: %d", ErrNoShots, shots)
	}
	if c.NumQubits > MaxQubits {
		return fmt.Errorf("%w: %d > %d", ErrTooManyQubits, c.NumQubits, MaxQubits)
	}
	return nil
}

// Run executes the circuit shots times and returns the measurement counts.
//
// Circuits whose measurements are all terminal are evolved once and sampled;
// circuits with resets or gates after a measurement are evolved per shot.
func (s *Simulator) Run(ctx context.Context, c *circuit.Circuit, shots int) (Counts, error) {
	if err := validate(c, shots); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rng := s.rng()
	start := time.Now()

	var (
		counts Counts
		err    error
	)
	if c.HasMidCircuitCollapse() {
		counts, err = s.runPerShot(ctx, c, shots, rng)
	} else {
		counts, err = s.runSampled(c, shots, rng)
	}
	if err != nil {
		return nil, err
	}

	s.logger().Debug("simulated circuit",
		zap.Int("qubits", c.NumQubits),
		zap.Int("clbits", c.NumClbits),
		zap.Int("gates", len(c.Gates)),
		zap.Int("shots", shots),
		zap.Bool("per_shot", c.HasMidCircuitCollapse()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return counts, nil
}

// finalState applies every unitary gate, ignoring barriers and measurements.
func finalState(c *circuit.Circuit) (*StateVector, error) {
	state := NewStateVector(max(c.NumQubits, 1))
	for _, g := range c.Gates {
		switch g.Type {
		case circuit.TypeBarrier, circuit.TypeMeasure:
			continue
		}
		if err := state.ApplyGate(g); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// clbitSources maps each classical bit to the qubit last measured into it,
// or -1 when the bit is never written.
func clbitSources(c *circuit.Circuit) []int {
	src := make([]int, c.NumClbits)
	for i := range src {
		src[i] = -1
	}
	for _, g := range c.Gates {
		if g.Type == circuit.TypeMeasure {
			src[g.Cbit] = g.Target
		}
	}
	return src
}

func (s *Simulator) runSampled(c *circuit.Circuit, shots int, rng *rand.Rand) (Counts, error) {
	dist, err := Probabilities(c)
	if err != nil {
		return nil, err
	}
	outcomes := make([]string, 0, len(dist))
	cumulative := make([]float64, 0, len(dist))
	acc := 0.0
	for _, outcome := range slices.Sorted(maps.Keys(dist)) {
		acc += dist[outcome]
		outcomes = append(outcomes, outcome)
		cumulative = append(cumulative, acc)
	}

	counts := make(Counts)
	for range shots {
		r := rng.Float64() * acc
		idx := len(outcomes) - 1
		for i, edge := range cumulative {
			if r < edge {
				idx = i
				break
			}
		}
		counts[outcomes[idx]]++
	}
	return counts, nil
}

func (s *Simulator) runPerShot(ctx context.Context, c *circuit.Circuit, shots int, rng *rand.Rand) (Counts, error) {
	counts := make(Counts)
	initial := NewStateVector(max(c.NumQubits, 1))
	clbits := make([]int, c.NumClbits)

	for shot := range shots {
		if shot%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		state := initial.Clone()
		clear(clbits)
		for _, g := range c.Gates {
			switch g.Type {
			case circuit.TypeBarrier:
			case circuit.TypeMeasure:
				clbits[g.Cbit] = state.Measure(g.Target, rng)
			case circuit.TypeReset:
				state.Reset(g.Target, rng)
			default:
				if err := state.ApplyGate(g); err != nil {
					return nil, err
				}
			}
		}
		counts[bitString(clbits)]++
	}
	return counts, nil
}

// Probabilities returns the exact outcome distribution of a circuit whose
// measurements are all terminal. Outcomes with probability below 1e-12 are
// dropped.
func Probabilities(c *circuit.Circuit) (map[string]float64, error) {
	if err := c.Err(); err != nil {
		return nil, fmt.Errorf("invalid circuit: %w", err)
	}
	if c.HasMidCircuitCollapse() {
		return nil, ErrMidCircuit
	}
	if c.NumQubits > MaxQubits {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyQubits, c.NumQubits, MaxQubits)
	}
	state, err := finalState(c)
	if err != nil {
		return nil, err
	}

	src := clbitSources(c)
	clbits := make([]int, c.NumClbits)
	dist := make(map[string]float64)
	for basis, p := range state.Probabilities() {
		if p < 1e-12 {
			continue
		}
		for cb, q := range src {
			clbits[cb] = 0
			if q >= 0 && basis&(1<<q) != 0 {
				clbits[cb] = 1
			}
		}
		dist[bitString(clbits)] += p
	}
	return dist, nil
}
