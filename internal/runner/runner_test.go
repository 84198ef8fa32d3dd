package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qdeutsch/internal/algorithm"
	"qdeutsch/internal/backend"
	"qdeutsch/internal/circuit"
	"qdeutsch/internal/config"
	"qdeutsch/internal/oracle"
	"qdeutsch/internal/simulator"
)

// slowBackend answers with fixed counts after a per-width delay so later
// examples can finish first.
type slowBackend struct {
	delay    func(c *circuit.Circuit) time.Duration
	counts   simulator.Counts
	fail     error
	inflight atomic.Int32
	peak     atomic.Int32
}

func (b *slowBackend) Name() string      { return "slow" }
func (b *slowBackend) IsSimulator() bool { return true }

func (b *slowBackend) Run(ctx context.Context, c *circuit.Circuit, shots int) (*backend.Result, error) {
	n := b.inflight.Add(1)
	defer b.inflight.Add(-1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if b.fail != nil {
		return nil, b.fail
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(b.delay(c)):
	}
	return &backend.Result{JobID: "j", Backend: "slow", Shots: shots, Counts: b.counts}, nil
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.OutDir = filepath.Join(t.TempDir(), "out")
	cfg.Shots = 1000
	return cfg
}

func TestRunAllOriginalExamples(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	r := New(backend.NewLocal(5, nil), cfg, &out, nil)

	outcomes, err := r.RunAll(context.Background(), oracle.DeutschExamples())
	require.NoError(t, err)
	require.Len(t, outcomes, 5)

	verdicts := make([]algorithm.Verdict, len(outcomes))
	for i, o := range outcomes {
		verdicts[i] = o.Verdict
		assert.FileExists(t, o.Files.Circuit)
		assert.FileExists(t, o.Files.Histogram)
	}
	assert.Equal(t, []algorithm.Verdict{
		algorithm.Constant, algorithm.Balanced, algorithm.Undetermined, algorithm.Undetermined, algorithm.Constant,
	}, verdicts)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "example_one: {'0': 1000}", lines[0])
	assert.Equal(t, "  verdict: constant", lines[1])
	assert.Equal(t, "example_two: {'1': 1000}", lines[2])
	assert.Equal(t, "  verdict: balanced", lines[3])
	assert.True(t, strings.HasPrefix(lines[4], "example_three: {'0': "))
}

func TestRunAllKeepsOrderUnderConcurrency(t *testing.T) {
	cfg := testConfig(t)
	cfg.Concurrency = 3
	cfg.OutDir = ""

	b := &slowBackend{
		// Wider oracles answer sooner.
		delay:  func(c *circuit.Circuit) time.Duration { return time.Duration(8-c.NumQubits) * 10 * time.Millisecond },
		counts: simulator.Counts{"0": 1},
	}
	var examples []oracle.Example
	for _, n := range []int{1, 2, 3, 4, 5} {
		o, err := oracle.Constant(n, 0)
		require.NoError(t, err)
		examples = append(examples, oracle.Example{Name: strings.Repeat("n", n), Oracle: o, Inputs: n})
	}

	var out bytes.Buffer
	r := New(b, cfg, &out, nil)
	outcomes, err := r.RunAll(context.Background(), examples)
	require.NoError(t, err)

	var names []string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if name, _, ok := strings.Cut(line, ":"); ok && !strings.HasPrefix(line, " ") {
			names = append(names, name)
		}
	}
	assert.Equal(t, []string{"n", "nn", "nnn", "nnnn", "nnnnn"}, names)
	assert.Len(t, outcomes, 5)
	assert.LessOrEqual(t, b.peak.Load(), int32(3))
	assert.Greater(t, b.peak.Load(), int32(1))
}

func TestRunAllStopsOnError(t *testing.T) {
	cfg := testConfig(t)
	boom := errors.New("device on fire")
	r := New(&slowBackend{fail: boom}, cfg, nil, nil)

	_, err := r.RunAll(context.Background(), oracle.DeutschExamples()[:2])
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "example_one")
}

func TestRunRejectsBadOracle(t *testing.T) {
	r := New(backend.NewLocal(1, nil), testConfig(t), nil, nil)
	_, err := r.Run(context.Background(), oracle.Example{Name: "bad", Oracle: circuit.New(3, 0), Inputs: 1})
	assert.ErrorIs(t, err, algorithm.ErrOracleWidth)
}

func TestRunCircuitHello(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	r := New(backend.NewLocal(8, nil), cfg, &out, nil)

	o, err := r.RunCircuit(context.Background(), "hello", oracle.Hello())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"00", "10"}, o.Result.Counts.Keys())
	assert.Contains(t, out.String(), "q[1]")
	assert.Contains(t, out.String(), "{'00': ")

	_, err = os.Stat(filepath.Join(cfg.OutDir, "hello_histogram.txt"))
	assert.NoError(t, err)
}

func TestReportDraws(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutDir = ""
	var out bytes.Buffer
	r := New(backend.NewLocal(1, nil), cfg, &out, nil)
	r.Draw = true

	_, err := r.RunAll(context.Background(), oracle.JozsaExamples())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "q[3]")
	assert.Contains(t, out.String(), "jozsa_example_one: {'100': ")
	assert.Contains(t, out.String(), "verdict: balanced")
}
