package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qdeutsch/internal/backend"
	"qdeutsch/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	base := []string{
		"--config", filepath.Join(dir, "qdeutsch.yaml"),
		"--out", filepath.Join(dir, "out"),
		"--seed", "21",
	}
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append(args, base...))
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDeutschCommand(t *testing.T) {
	out, err := execute(t, "deutsch")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "example_one: {'0': 1024}", lines[0])
	assert.Equal(t, "example_five: {'0': 1024}", lines[8])
	assert.Equal(t, "  verdict: constant", lines[9])
}

func TestDeutschCommandSelectsByIndex(t *testing.T) {
	out, err := execute(t, "deutsch", "1", "--shots", "64")
	require.NoError(t, err)
	assert.Equal(t, "example_two: {'1': 64}\n  verdict: balanced\n", out)
}

func TestDeutschCommandSelectsByName(t *testing.T) {
	out, err := execute(t, "deutsch", "example_five", "--shots", "32")
	require.NoError(t, err)
	assert.Equal(t, "example_five: {'0': 32}\n  verdict: constant\n", out)
}

func TestDeutschCommandBadIndex(t *testing.T) {
	_, err := execute(t, "deutsch", "one")
	assert.ErrorContains(t, err, `unknown example "one"`)

	_, err = execute(t, "deutsch", "7")
	assert.ErrorContains(t, err, "out of range")
}

func TestDeutschCommandNamesStayInList(t *testing.T) {
	_, err := execute(t, "deutsch", "jozsa_example_one")
	assert.ErrorContains(t, err, `unknown example "jozsa_example_one"`)

	out, err := execute(t, "jozsa", "jozsa_example_one", "--shots", "16")
	require.NoError(t, err)
	assert.Contains(t, out, "jozsa_example_one: ")
}

func TestTextbookCommand(t *testing.T) {
	out, err := execute(t, "textbook", "--inputs", "2", "--shots", "64")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"constant_zero: {'00': 64}",
		"  verdict: constant",
		"constant_one: {'00': 64}",
		"  verdict: constant",
		"balanced_first: {'01': 64}",
		"  verdict: balanced",
		"balanced_parity: {'11': 64}",
		"  verdict: balanced",
	}, "\n")+"\n", out)

	out, err = execute(t, "textbook", "balanced_parity", "--shots", "8")
	require.NoError(t, err)
	assert.Equal(t, "balanced_parity: {'111': 8}\n  verdict: balanced\n", out)

	_, err = execute(t, "textbook", "--inputs", "0")
	assert.Error(t, err)
}

func TestJozsaCommandDraws(t *testing.T) {
	out, err := execute(t, "jozsa", "--draw")
	require.NoError(t, err)
	assert.Contains(t, out, "q[3]")
	assert.Contains(t, out, "jozsa_example_one: {'100': ")
	assert.Contains(t, out, "verdict: balanced")
}

func TestHelloCommand(t *testing.T) {
	out, err := execute(t, "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "q[1]")
	assert.Contains(t, out, "'10': ")
}

func TestInvalidFlagsAreRejected(t *testing.T) {
	_, err := execute(t, "deutsch", "--backend", "aer")
	assert.ErrorContains(t, err, "invalid backend")

	_, err = execute(t, "deutsch", "--shots", "0")
	assert.ErrorContains(t, err, "shots")
}

func TestBackendsSimulator(t *testing.T) {
	out, err := execute(t, "backends")
	require.NoError(t, err)
	assert.Contains(t, out, backend.LocalName)
}

func TestBackendsIBM(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+backend.TokenEndpoint, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ttl": 3600, "access_token": "tok"})
	})
	mux.HandleFunc("GET "+backend.BackendsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]backend.Device{
			{Name: "ibm_busy", NumQubits: 127, Operational: true, PendingJobs: 90},
			{Name: "ibm_idle", NumQubits: 27, Operational: true, PendingJobs: 1},
			{Name: "ibm_down", NumQubits: 5},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("QDEUTSCH_IBM_URL", srv.URL)
	t.Setenv("QDEUTSCH_IBM_TOKEN", "secret")

	out, err := execute(t, "backends", "--backend", "ibm")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "ibm_down"))
	assert.Contains(t, lines[1], "offline")
	assert.True(t, strings.HasPrefix(lines[2], "ibm_idle"))
	assert.Contains(t, lines[3], "90 pending")
}

func TestInitWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qdeutsch.yaml")
	t.Setenv("QDEUTSCH_IBM_TOKEN", "from-env")

	run := func(args ...string) error {
		cmd := newRootCmd(io.Discard)
		cmd.SetArgs(append([]string{"init", "--config", path}, args...))
		cmd.SetErr(io.Discard)
		return cmd.ExecuteContext(context.Background())
	}

	require.NoError(t, run("--shots", "99"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "from-env")

	t.Setenv("QDEUTSCH_IBM_TOKEN", "")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.Shots)

	assert.ErrorContains(t, run(), "already exists")
	assert.NoError(t, run("--force"))
}
