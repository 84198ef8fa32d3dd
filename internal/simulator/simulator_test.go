package simulator

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qdeutsch/internal/circuit"
)

func TestProbabilitiesBellState(t *testing.T) {
	c := circuit.New(2, 2).H(0).CX(0, 1).MeasureRange(2)
	dist, err := Probabilities(c)
	require.NoError(t, err)

	assert.Len(t, dist, 2)
	assert.InDelta(t, 0.5, dist["00"], 1e-9)
	assert.InDelta(t, 0.5, dist["11"], 1e-9)
}

func TestClassicalBitOrder(t *testing.T) {
	// X on q[0] measured into c[0] must show up as the rightmost character.
	c := circuit.New(3, 3).X(0).MeasureRange(3)
	counts, err := New(1, nil).Run(context.Background(), c, 16)
	require.NoError(t, err)
	assert.Equal(t, Counts{"001": 16}, counts)
}

func TestUnmeasuredClbitsReadZero(t *testing.T) {
	c := circuit.New(2, 2).X(0).X(1).Measure(1, 1)
	dist, err := Probabilities(c)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"10": 1}, dist)
}

func TestRunSamplesHadamard(t *testing.T) {
	c := circuit.New(1, 1).H(0).Measure(0, 0)
	counts, err := New(42, nil).Run(context.Background(), c, 4000)
	require.NoError(t, err)

	assert.Equal(t, 4000, counts.Total())
	p := counts.Probabilities()
	assert.InDelta(t, 0.5, p["0"], 0.05)
	assert.InDelta(t, 0.5, p["1"], 0.05)
}

func TestRunIsDeterministicForSeed(t *testing.T) {
	c := circuit.New(2, 2).H(0).H(1).MeasureRange(2)
	a, err := New(7, nil).Run(context.Background(), c, 500)
	require.NoError(t, err)
	b, err := New(7, nil).Run(context.Background(), c, 500)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResetCollapsesToZero(t *testing.T) {
	c := circuit.New(1, 1).H(0).Reset(0).Measure(0, 0)
	counts, err := New(3, nil).Run(context.Background(), c, 200)
	require.NoError(t, err)
	assert.Equal(t, Counts{"0": 200}, counts)
}

func TestResetKeepsEntangledPartnerRandom(t *testing.T) {
	// Resetting half of a Bell pair leaves the other half maximally mixed.
	c := circuit.New(2, 2).H(0).CX(0, 1).Reset(0).MeasureRange(2)
	counts, err := New(11, nil).Run(context.Background(), c, 2000)
	require.NoError(t, err)

	p := counts.Probabilities()
	assert.InDelta(t, 0.5, p["00"], 0.05)
	assert.InDelta(t, 0.5, p["10"], 0.05)
	assert.Zero(t, counts["01"]+counts["11"])
}

func TestMidCircuitMeasurementFeedsLaterGates(t *testing.T) {
	c := circuit.New(1, 2).X(0).Measure(0, 0).X(0).Measure(0, 1)
	counts, err := New(5, nil).Run(context.Background(), c, 10)
	require.NoError(t, err)
	assert.Equal(t, Counts{"01": 10}, counts)

	_, err = Probabilities(c)
	assert.ErrorIs(t, err, ErrMidCircuit)
}

func TestRunValidation(t *testing.T) {
	sim := New(1, nil)
	ctx := context.Background()

	_, err := sim.Run(ctx, circuit.New(1, 1), 0)
	assert.ErrorIs(t, err, ErrNoShots)

	_, err = sim.Run(ctx, circuit.New(MaxQubits+1, 0), 1)
	assert.ErrorIs(t, err, ErrTooManyQubits)

	_, err = sim.Run(ctx, circuit.New(1, 0).H(3), 1)
	assert.ErrorIs(t, err, circuit.ErrQubitRange)
}

func TestRunHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := circuit.New(1, 1).Reset(0).Measure(0, 0)
	_, err := New(1, nil).Run(ctx, c, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGateMatrices(t *testing.T) {
	tests := []struct {
		name  string
		build func(c *circuit.Circuit)
		p1    float64
	}{
		{"X flips", func(c *circuit.Circuit) { c.X(0) }, 1},
		{"Y flips", func(c *circuit.Circuit) { c.Y(0) }, 1},
		{"HZH is X", func(c *circuit.Circuit) { c.H(0).Z(0).H(0) }, 1},
		{"HSSH is X", func(c *circuit.Circuit) { c.H(0).S(0).S(0).H(0) }, 1},
		{"T^4 is Z", func(c *circuit.Circuit) { c.H(0).T(0).T(0).T(0).T(0).H(0) }, 1},
		{"RX(pi) flips", func(c *circuit.Circuit) { c.RX(math.Pi, 0) }, 1},
		{"RY(pi/2) halves", func(c *circuit.Circuit) { c.RY(math.Pi/2, 0) }, 0.5},
		{"RZ keeps basis", func(c *circuit.Circuit) { c.RZ(1.3, 0) }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := circuit.New(1, 0)
			tt.build(c)
			require.NoError(t, c.Err())
			state, err := finalState(c)
			require.NoError(t, err)
			assert.InDelta(t, tt.p1, state.Prob1(0), 1e-9)
		})
	}
}

func TestCZPhaseKickback(t *testing.T) {
	c := circuit.New(2, 0).X(1).H(0).CZ(0, 1).H(0)
	state, err := finalState(c)
	require.NoError(t, err)
	assert.InDelta(t, 1, state.Prob1(0), 1e-9)
	assert.InDelta(t, 1, state.Prob1(1), 1e-9)
}

func TestMeasureCollapses(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	s := NewStateVector(2)
	s.applyH(0)
	s.applyCX(0, 1)
	first := s.Measure(0, rng)
	assert.InDelta(t, float64(first), s.Prob1(1), 1e-9)
}

func TestCountsHelpers(t *testing.T) {
	c := Counts{"10": 3, "01": 3, "00": 1}
	assert.Equal(t, 7, c.Total())
	assert.Equal(t, []string{"00", "01", "10"}, c.Keys())

	best, n := c.MostFrequent()
	assert.Equal(t, "01", best)
	assert.Equal(t, 3, n)

	assert.Empty(t, Counts{}.Probabilities())
	assert.Equal(t, "000", Zero(3))
}

func TestZeroValueSimulatorLogsToNop(t *testing.T) {
	assert.NotNil(t, New(1, nil).Logger)

	var sim Simulator
	counts, err := sim.Run(context.Background(), circuit.New(1, 1).X(0).Measure(0, 0), 8)
	require.NoError(t, err)
	assert.Equal(t, Counts{"1": 8}, counts)
}
