package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"qdeutsch/internal/circuit"
	"qdeutsch/internal/logging"
	"qdeutsch/internal/simulator"
)

// IBM Quantum API endpoints
const (
	DefaultIBMURL    = "https://api.quantum-computing.ibm.com"
	TokenEndpoint    = "/api/auth/login"
	JobsEndpoint     = "/api/Network/ibm-q/Groups/open/Projects/main/Jobs"
	BackendsEndpoint = "/api/Network/ibm-q/Groups/open/Projects/main/devices"
)

// Job status constants
const (
	JobStatusQueued    = "QUEUED"
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
	JobStatusCancelled = "CANCELLED"
)

var (
	ErrNoToken   = errors.New("IBM Quantum API token is required")
	ErrNoBackend = errors.New("no operational device can run the circuit")
	ErrJobFailed = errors.New("job did not complete")
)

// IBMConfig holds IBM Quantum API configuration.
type IBMConfig struct {
	Token   string
	BaseURL string

	// Device pins the hardware. Empty selects the least busy device that
	// has enough qubits, per job.
	Device string

	PollInterval time.Duration
	JobTimeout   time.Duration

	HTTPClient *http.Client
}

// Device describes one entry of the device listing.
type Device struct {
	Name        string `json:"backend_name"`
	NumQubits   int    `json:"n_qubits"`
	Simulator   bool   `json:"simulator"`
	Operational bool   `json:"operational"`
	PendingJobs int    `json:"pending_jobs"`
}

// Job is a submitted quantum job.
type Job struct {
	ID        string    `json:"id"`
	Backend   string    `json:"backend"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created"`
}

// JobResult holds the results of a completed job.
type JobResult struct {
	Counts        map[string]int `json:"counts"`
	Success       bool           `json:"success"`
	Status        string         `json:"status"`
	JobID         string         `json:"job_id"`
	ExecutionTime float64        `json:"execution_time"`
}

// IBM runs circuits on IBM Quantum devices over the REST API.
type IBM struct {
	config *IBMConfig
	logger *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	lastDevice  string
}

// NewIBMClient creates a client and authenticates immediately.
func NewIBMClient(ctx context.Context, config *IBMConfig, logger *zap.Logger) (*IBM, error) {
	if config.Token == "" {
		return nil, ErrNoToken
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultIBMURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 10 * time.Minute
	}
	logger = logging.OrNop(logger)

	client := &IBM{config: config, logger: logger}
	if err := client.authenticate(ctx); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return client, nil
}

// Name returns the pinned device, or the device chosen for the most recent job.
func (c *IBM) Name() string {
	if c.config.Device != "" {
		return c.config.Device
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastDevice != "" {
		return c.lastDevice
	}
	return "ibm"
}

func (c *IBM) IsSimulator() bool { return false }

// authenticate obtains an access token.
func (c *IBM) authenticate(ctx context.Context) error {
	var result struct {
		ID          string    `json:"id"`
		TTL         int       `json:"ttl"`
		Created     time.Time `json:"created"`
		AccessToken string    `json:"access_token"`
	}
	err := c.do(ctx, http.MethodPost, TokenEndpoint, "", map[string]string{"apiToken": c.config.Token}, &result, http.StatusOK)
	if err != nil {
		return err
	}

	c.accessToken = result.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(result.TTL) * time.Second)
	c.logger.Debug("authenticated", zap.Int("ttl_seconds", result.TTL))
	return nil
}

// token returns a valid access token, refreshing it when it expires within
// five minutes.
func (c *IBM) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Now().After(c.tokenExpiry.Add(-5 * time.Minute)) {
		if err := c.authenticate(ctx); err != nil {
			return "", err
		}
	}
	return c.accessToken, nil
}

// do sends a JSON request and decodes the JSON response into out.
func (c *IBM) do(ctx context.Context, method, path, token string, payload, out any, okCodes ...int) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !slices.Contains(okCodes, resp.StatusCode) {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s failed: %s (status: %d)", method, path, strings.TrimSpace(string(msg)), resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// authed is do with a fresh bearer token.
func (c *IBM) authed(ctx context.Context, method, path string, payload, out any, okCodes ...int) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, token, payload, out, okCodes...)
}

// ListBackends retrieves the available devices.
func (c *IBM) ListBackends(ctx context.Context) ([]Device, error) {
	var devices []Device
	if err := c.authed(ctx, http.MethodGet, BackendsEndpoint, nil, &devices, http.StatusOK); err != nil {
		return nil, fmt.Errorf("list backends: %w", err)
	}
	return devices, nil
}

// LeastBusy picks the operational hardware device with at least minQubits
// qubits and the fewest pending jobs.
func (c *IBM) LeastBusy(ctx context.Context, minQubits int) (Device, error) {
	devices, err := c.ListBackends(ctx)
	if err != nil {
		return Device{}, err
	}
	return leastBusy(devices, minQubits)
}

func leastBusy(devices []Device, minQubits int) (Device, error) {
	var (
		best  Device
		found bool
	)
	for _, d := range devices {
		if d.Simulator || !d.Operational || d.NumQubits < minQubits {
			continue
		}
		if !found || d.PendingJobs < best.PendingJobs {
			best, found = d, true
		}
	}
	if !found {
		return Device{}, fmt.Errorf("%w: need %d qubits", ErrNoBackend, minQubits)
	}
	return best, nil
}

// SubmitJob submits the circuit's QASM for execution on device.
func (c *IBM) SubmitJob(ctx context.Context, qasm string, shots int, device string) (*Job, error) {
	payload := map[string]any{
		"qasm":    qasm,
		"shots":   shots,
		"backend": device,
	}
	var job Job
	if err := c.authed(ctx, http.MethodPost, JobsEndpoint, payload, &job, http.StatusOK, http.StatusCreated); err != nil {
		return nil, fmt.Errorf("job submission failed: %w", err)
	}
	return &job, nil
}

// GetJobStatus retrieves the status of a job.
func (c *IBM) GetJobStatus(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.authed(ctx, http.MethodGet, JobsEndpoint+"/"+jobID, nil, &job, http.StatusOK); err != nil {
		return nil, fmt.Errorf("get job status: %w", err)
	}
	return &job, nil
}

// WaitForJob polls until the job completes, fails, is cancelled, or the job
// timeout elapses.
func (c *IBM) WaitForJob(ctx context.Context, jobID string) (*Job, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.JobTimeout)
	defer cancel()

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		job, err := c.GetJobStatus(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("job %s: %w", jobID, ctx.Err())
			}
			return nil, err
		}

		switch job.Status {
		case JobStatusCompleted:
			return job, nil
		case JobStatusFailed:
			return job, fmt.Errorf("%w: job %s failed", ErrJobFailed, jobID)
		case JobStatusCancelled:
			return job, fmt.Errorf("%w: job %s was cancelled", ErrJobFailed, jobID)
		}
		c.logger.Debug("job pending", zap.String("job_id", jobID), zap.String("status", job.Status))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("job %s: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetJobResult retrieves the results of a completed job.
func (c *IBM) GetJobResult(ctx context.Context, jobID string) (*JobResult, error) {
	var result JobResult
	if err := c.authed(ctx, http.MethodGet, JobsEndpoint+"/"+jobID+"/results", nil, &result, http.StatusOK); err != nil {
		return nil, fmt.Errorf("get job result: %w", err)
	}
	return &result, nil
}

// CancelJob cancels a running or queued job.
func (c *IBM) CancelJob(ctx context.Context, jobID string) error {
	if err := c.authed(ctx, http.MethodPost, JobsEndpoint+"/"+jobID+"/cancel", nil, nil, http.StatusOK); err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	return nil
}

// Run submits the circuit, waits for it and returns its counts.
func (c *IBM) Run(ctx context.Context, circ *circuit.Circuit, shots int) (*Result, error) {
	if err := circ.Err(); err != nil {
		return nil, fmt.Errorf("invalid circuit: %w", err)
	}
	if shots <= 0 {
		return nil, fmt.Errorf("%w: %d", simulator.ErrNoShots, shots)
	}

	device := c.config.Device
	if device == "" {
		d, err := c.LeastBusy(ctx, circ.NumQubits)
		if err != nil {
			return nil, err
		}
		device = d.Name
		c.logger.Info("selected least busy device",
			zap.String("device", d.Name),
			zap.Int("pending_jobs", d.PendingJobs))
	}
	c.mu.Lock()
	c.lastDevice = device
	c.mu.Unlock()

	start := time.Now()
	job, err := c.SubmitJob(ctx, circ.ToQASM(), shots, device)
	if err != nil {
		return nil, err
	}
	c.logger.Info("job submitted", zap.String("job_id", job.ID), zap.String("device", device))

	if _, err := c.WaitForJob(ctx, job.ID); err != nil {
		if !errors.Is(err, ErrJobFailed) {
			// Best effort: don't leave the job queued on the device.
			cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			if cerr := c.CancelJob(cancelCtx, job.ID); cerr != nil {
				c.logger.Warn("cancel abandoned job", zap.String("job_id", job.ID), zap.Error(cerr))
			}
			cancel()
		}
		return nil, fmt.Errorf("job execution failed: %w", err)
	}

	result, err := c.GetJobResult(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("result retrieval failed: %w", err)
	}
	counts, err := normalizeCounts(result.Counts, circ.NumClbits)
	if err != nil {
		return nil, err
	}

	return &Result{
		JobID:    job.ID,
		Backend:  device,
		Shots:    shots,
		Counts:   counts,
		Duration: time.Since(start),
	}, nil
}

// normalizeCounts turns hex keys ("0x5") into bit-strings of width clbits and
// left-pads binary keys, so remote counts look like local ones.
func normalizeCounts(raw map[string]int, clbits int) (simulator.Counts, error) {
	counts := make(simulator.Counts, len(raw))
	for key, n := range raw {
		bits := strings.ReplaceAll(key, " ", "")
		if hex, ok := strings.CutPrefix(bits, "0x"); ok {
			v, err := strconv.ParseUint(hex, 16, 64)
			if err != nil {
				return nil, fmt.Errorf("bad count key %q: %w", key, err)
			}
			bits = strconv.FormatUint(v, 2)
		}
		if strings.Trim(bits, "01") != "" {
			return nil, fmt.Errorf("bad count key %q", key)
		}
		if len(bits) < clbits {
			bits = strings.Repeat("0", clbits-len(bits)) + bits
		}
		counts[bits] += n
	}
	return counts, nil
}
