package backend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"qdeutsch/internal/circuit"
	"qdeutsch/internal/logging"
	"qdeutsch/internal/simulator"
)

// LocalName is the name reported by the local simulator backend.
const LocalName = "qasm_simulator"

// Local runs circuits in-process on the state-vector simulator.
type Local struct {
	sim    *simulator.Simulator
	logger *zap.Logger
}

// NewLocal creates a simulator backend. A zero seed draws a fresh seed per job.
func NewLocal(seed uint64, logger *zap.Logger) *Local {
	logger = logging.OrNop(logger)
	return &Local{
		sim:    simulator.New(seed, logger.Named("simulator")),
		logger: logger,
	}
}

func (l *Local) Name() string      { return LocalName }
func (l *Local) IsSimulator() bool { return true }

func (l *Local) Run(ctx context.Context, c *circuit.Circuit, shots int) (*Result, error) {
	jobID := uuid.NewString()
	start := time.Now()

	counts, err := l.sim.Run(ctx, c, shots)
	if err != nil {
		l.logger.Debug("local job failed", zap.String("job_id", jobID), zap.Error(err))
		return nil, err
	}

	res := &Result{
		JobID:    jobID,
		Backend:  LocalName,
		Shots:    shots,
		Counts:   counts,
		Duration: time.Since(start),
	}
	l.logger.Debug("local job done",
		zap.String("job_id", jobID),
		zap.Int("shots", shots),
		zap.Duration("duration", res.Duration))
	return res, nil
}
