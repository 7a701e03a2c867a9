package receiver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/lazerdave/shipping-forecast-recorder/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (output string, err error)
}

type systemExecutor struct{}

func (systemExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}

// ExecClient drives a kiwirecorder-compatible command line tool. One process
// is spawned per probe or capture; the process owns the wire protocol.
type ExecClient struct {
	binary         string
	frequencyKHz   float64
	mode           string
	connectTimeout time.Duration
	executor       Executor
}

// ExecOption configures the client.
type ExecOption func(*ExecClient)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(e Executor) ExecOption {
	return func(c *ExecClient) { c.executor = e }
}

// NewExecClient builds a Client that shells out to the given recorder binary.
func NewExecClient(binary string, frequencyKHz float64, mode string, connectTimeout time.Duration, opts ...ExecOption) *ExecClient {
	c := &ExecClient{
		binary:         binary,
		frequencyKHz:   frequencyKHz,
		mode:           mode,
		connectTimeout: connectTimeout,
		executor:       systemExecutor{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probe measures S-meter readings for the given duration. Timeouts and
// connection failures come back tagged ErrTransient or ErrTimeout so the
// probe phase can turn them into data.
func (c *ExecClient) Probe(ctx context.Context, cand Candidate, duration time.Duration) (Reading, error) {
	args := []string{
		"-s", cand.Host,
		"-p", strconv.Itoa(cand.Port),
		"-f", formatFrequency(c.frequencyKHz),
		"--S-meter=1",
		"--time-limit", strconv.Itoa(int(duration.Seconds())),
		"--quiet",
	}

	probeCtx, cancel := context.WithTimeout(ctx, duration+c.connectTimeout)
	defer cancel()

	output, err := c.executor.Run(probeCtx, c.binary, args)
	if err != nil {
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			return Reading{}, services.Wrap(services.ErrTimeout, "receiver", "probe", cand.Key(), probeCtx.Err())
		}
		return Reading{}, services.Wrap(services.ErrTransient, "receiver", "probe", cand.Key(), err)
	}

	levels := ParseLevels(output)
	if len(levels) == 0 {
		return Reading{}, services.Wrap(services.ErrTransient, "receiver", "probe", fmt.Sprintf("%s: no S-meter readings", cand.Key()), nil)
	}
	return Reading{Levels: levels, At: time.Now().UTC()}, nil
}

// Capture records audio into req.SinkPath. The caller is responsible for the
// overall deadline; the recorder's own time limit matches req.Duration.
func (c *ExecClient) Capture(ctx context.Context, cand Candidate, req CaptureRequest) error {
	freq := req.FrequencyKHz
	if freq <= 0 {
		freq = c.frequencyKHz
	}
	mode := req.Mode
	if mode == "" {
		mode = c.mode
	}
	args := []string{
		"-s", cand.Host,
		"-p", strconv.Itoa(cand.Port),
		"-f", formatFrequency(freq),
		"-m", mode,
		"--time-limit", strconv.Itoa(int(req.Duration.Seconds())),
		"--filename", req.SinkPath,
	}

	if _, err := c.executor.Run(ctx, c.binary, args); err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrCaptureTimeout, "receiver", "capture", cand.Key(), ctx.Err())
		}
		return services.Wrap(services.ErrTransient, "receiver", "capture", cand.Key(), err)
	}
	return nil
}

func formatFrequency(khz float64) string {
	return strconv.FormatFloat(khz, 'f', -1, 64)
}
