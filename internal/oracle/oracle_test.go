package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qdeutsch/internal/algorithm"
	"qdeutsch/internal/simulator"
)

func runExample(t *testing.T, ex Example, shots int) simulator.Counts {
	t.Helper()
	c, err := algorithm.DeutschJozsa(ex.Oracle, ex.Inputs)
	require.NoError(t, err)
	counts, err := simulator.New(2024, nil).Run(context.Background(), c, shots)
	require.NoError(t, err)
	require.Equal(t, shots, counts.Total())
	return counts
}

func TestDeutschExamples(t *testing.T) {
	examples := DeutschExamples()
	require.Len(t, examples, 5)

	tests := []struct {
		name    string
		exact   simulator.Counts
		mixed   bool
		verdict algorithm.Verdict
	}{
		{name: "example_one", exact: simulator.Counts{"0": 2000}, verdict: algorithm.Constant},
		{name: "example_two", exact: simulator.Counts{"1": 2000}, verdict: algorithm.Balanced},
		{name: "example_three", mixed: true, verdict: algorithm.Undetermined},
		{name: "example_four", mixed: true, verdict: algorithm.Undetermined},
		{name: "example_five", exact: simulator.Counts{"0": 2000}, verdict: algorithm.Constant},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := examples[i]
			assert.Equal(t, tt.name, ex.Name)
			assert.Equal(t, 2, ex.Oracle.NumQubits)

			counts := runExample(t, ex, 2000)
			if tt.mixed {
				p := counts.Probabilities()
				assert.InDelta(t, 0.5, p["0"], 0.05)
				assert.InDelta(t, 0.5, p["1"], 0.05)
			} else {
				assert.Equal(t, tt.exact, counts)
			}
			assert.Equal(t, tt.verdict, algorithm.Classify(counts, 1))
		})
	}
}

func TestJozsaExample(t *testing.T) {
	examples := JozsaExamples()
	require.Len(t, examples, 1)
	ex := examples[0]
	assert.Equal(t, 3, ex.Inputs)
	assert.Equal(t, 4, ex.Oracle.NumQubits)

	counts := runExample(t, ex, 4000)
	// q[2] always reads 1; q[0] and q[1] are uniform.
	assert.ElementsMatch(t, []string{"100", "101", "110", "111"}, counts.Keys())
	for _, outcome := range counts.Keys() {
		assert.InDelta(t, 0.25, counts.Probabilities()[outcome], 0.04, outcome)
	}
	assert.Equal(t, algorithm.Balanced, algorithm.Classify(counts, 3))
}

func TestGeneratedOracles(t *testing.T) {
	for n := 1; n <= 4; n++ {
		for _, bit := range []int{0, 1} {
			c, err := Constant(n, bit)
			require.NoError(t, err)
			counts := runExample(t, Example{Oracle: c, Inputs: n}, 256)
			assert.Equal(t, algorithm.Constant, algorithm.Classify(counts, n))
		}
		for mask := uint64(1); mask < 1<<n; mask++ {
			c, err := Balanced(n, mask)
			require.NoError(t, err)
			counts := runExample(t, Example{Oracle: c, Inputs: n}, 256)
			assert.Equal(t, algorithm.Balanced, algorithm.Classify(counts, n), "n=%d mask=%b", n, mask)
		}
	}
}

func TestTextbookExamples(t *testing.T) {
	examples, err := TextbookExamples(3)
	require.NoError(t, err)

	want := map[string]algorithm.Verdict{
		"constant_zero":   algorithm.Constant,
		"constant_one":    algorithm.Constant,
		"balanced_first":  algorithm.Balanced,
		"balanced_parity": algorithm.Balanced,
	}
	require.Len(t, examples, len(want))
	for _, ex := range examples {
		assert.Equal(t, 3, ex.Inputs, ex.Name)
		counts := runExample(t, ex, 256)
		assert.Equal(t, want[ex.Name], algorithm.Classify(counts, 3), ex.Name)
	}

	parity, ok := Lookup(examples, "balanced_parity")
	require.True(t, ok)
	assert.Equal(t, simulator.Counts{"111": 256}, runExample(t, parity, 256))

	_, err = TextbookExamples(0)
	assert.Error(t, err)
}

func TestGeneratorValidation(t *testing.T) {
	_, err := Constant(0, 1)
	assert.Error(t, err)

	_, err = Balanced(3, 0)
	assert.ErrorIs(t, err, ErrMask)
	_, err = Balanced(2, 0b100)
	assert.ErrorIs(t, err, ErrMask)
	_, err = Balanced(0, 1)
	assert.Error(t, err)
}

func TestLookupAndSelect(t *testing.T) {
	ex, ok := Lookup(JozsaExamples(), "jozsa_example_one")
	require.True(t, ok)
	assert.Equal(t, 3, ex.Inputs)

	_, ok = Lookup(DeutschExamples(), "jozsa_example_one")
	assert.False(t, ok)
	_, ok = Lookup(DeutschExamples(), "nope")
	assert.False(t, ok)

	all, err := Select(DeutschExamples())
	require.NoError(t, err)
	assert.Len(t, all, 5)

	picked, err := Select(DeutschExamples(), 4, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"example_five", "example_two"}, []string{picked[0].Name, picked[1].Name})

	_, err = Select(DeutschExamples(), 5)
	assert.Error(t, err)
}

func TestHello(t *testing.T) {
	counts, err := simulator.New(9, nil).Run(context.Background(), Hello(), 2000)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"00", "10"}, counts.Keys())
	assert.InDelta(t, 0.5, counts.Probabilities()["10"], 0.05)
}
