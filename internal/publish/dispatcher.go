// Package publish hands finished recordings to downstream consumers. Sink
// failures are logged, retried, and then dropped; publication never blocks or
// fails the run that produced the recording.
package publish

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/lazerdave/shipping-forecast-recorder/internal/logging"
)

// Release describes one published recording.
type Release struct {
	Occurrence string
	AudioPath  string
	Receiver   string
	LevelDB    float64
	RecordedAt time.Time
	Duration   time.Duration
	Trimmed    bool
	// Reason is set when the recording was published untrimmed.
	Reason string
}

// Sink consumes a Release. Implementations must be safe to retry.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, rel Release) error
}

// Dispatcher fans a Release out to its sinks, each on its own goroutine with
// independent retry. One misbehaving sink cannot hold up the others.
type Dispatcher struct {
	sinks      []Sink
	timeout    time.Duration
	maxRetries uint64
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// NewDispatcher builds a Dispatcher over the given sinks.
func NewDispatcher(logger *slog.Logger, timeout time.Duration, maxRetries int, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Dispatcher{
		sinks:      sinks,
		timeout:    timeout,
		maxRetries: uint64(maxRetries),
		logger:     logging.WithComponent(logger, "publish"),
	}
}

// Dispatch delivers rel to every sink asynchronously. It returns immediately;
// call Wait to block until deliveries settle.
func (d *Dispatcher) Dispatch(rel Release) {
	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func(sink Sink) {
			defer d.wg.Done()
			d.deliver(sink, rel)
		}(sink)
	}
}

// Wait blocks until all in-flight deliveries have finished or given up.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(sink Sink, rel Release) {
	attempt := 0
	operation := func() error {
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := sink.Deliver(ctx, rel); err != nil {
			d.logger.Warn("sink delivery failed",
				logging.String("sink", sink.Name()),
				logging.Int("attempt", attempt),
				logging.Error(err))
			return err
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.maxRetries)
	if err := backoff.Retry(operation, policy); err != nil {
		d.logger.Error("sink delivery abandoned",
			logging.String("sink", sink.Name()),
			logging.String("occurrence", rel.Occurrence),
			logging.Error(err))
		return
	}
	d.logger.Info("sink delivery complete",
		logging.String("sink", sink.Name()),
		logging.String("occurrence", rel.Occurrence))
}
