// Package backend executes composed circuits, either on the local
// state-vector simulator or on remote IBM Quantum hardware.
package backend

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"qdeutsch/internal/circuit"
	"qdeutsch/internal/config"
	"qdeutsch/internal/simulator"
)

// Backend runs a circuit and reports measurement counts.
type Backend interface {
	// Name returns the name of the device or simulator.
	Name() string

	// IsSimulator returns true if this is a simulator, false for real hardware.
	IsSimulator() bool

	// Run executes the circuit shots times. It blocks until the job finishes,
	// fails, or ctx is done.
	Run(ctx context.Context, c *circuit.Circuit, shots int) (*Result, error)
}

// Result is the outcome of one job.
type Result struct {
	JobID    string
	Backend  string
	Shots    int
	Counts   simulator.Counts
	Duration time.Duration
}

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Backend, error) {
	switch cfg.Backend {
	case config.BackendSimulator, "":
		return NewLocal(cfg.Seed, logger), nil
	case config.BackendIBM:
		client, err := NewIBMClient(ctx, &IBMConfig{
			Token:        cfg.IBM.Token,
			BaseURL:      cfg.IBM.URL,
			Device:       cfg.IBM.Device,
			PollInterval: cfg.GetPollInterval(),
			JobTimeout:   cfg.GetJobTimeout(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("open ibm backend: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
