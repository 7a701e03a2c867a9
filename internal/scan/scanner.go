package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lazerdave/shipping-forecast-recorder/internal/config"
	"github.com/lazerdave/shipping-forecast-recorder/internal/logging"
	"github.com/lazerdave/shipping-forecast-recorder/internal/receiver"
	"github.com/lazerdave/shipping-forecast-recorder/internal/services"
)

// Scanner runs the two-phase quality survey: a short screening probe over
// the whole candidate pool, then longer repeated probes over the best of
// the screen.
type Scanner struct {
	client       receiver.Client
	cfg          config.Scan
	frequencyKHz float64
	logger       *slog.Logger
	now          func() time.Time
}

// NewScanner wires a Scanner to a receiver client.
func NewScanner(client receiver.Client, cfg config.Scan, frequencyKHz float64, logger *slog.Logger) *Scanner {
	return &Scanner{
		client:       client,
		cfg:          cfg,
		frequencyKHz: frequencyKHz,
		logger:       logging.WithComponent(logger, "scan"),
		now:          time.Now,
	}
}

// Run surveys the candidates and returns a ranked snapshot. It fails with
// ErrNoReceivers only when not a single candidate produced a measurement.
// history carries per-endpoint failure tallies from earlier passes; failures
// observed in this pass are added to it and the merged counts break ranking
// ties between equally strong receivers.
func (p *Scanner) Run(ctx context.Context, candidates []receiver.Candidate, history map[string]int) (*Snapshot, error) {
	if len(candidates) > p.cfg.TargetCount && p.cfg.TargetCount > 0 {
		candidates = candidates[:p.cfg.TargetCount]
	}
	tallies := make(map[string]int, len(history))
	for key, count := range history {
		tallies[key] = count
	}
	p.logger.Info("screening candidates",
		logging.Int("count", len(candidates)),
		logging.Int("screen_seconds", p.cfg.ScreenSeconds))

	screen, screenTruncated := p.probePhase(ctx, candidates, p.cfg.ScreenSeconds, 1)
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrTimeout, "scan", "screen", "", err)
	}

	survivors := make([]Entry, 0, len(screen))
	for _, r := range screen {
		if r.failures > 0 {
			tallies[r.cand.Key()] += r.failures
		}
		if !r.probed || len(r.levels) == 0 {
			continue
		}
		mean, stddev := meanStdDev(r.levels)
		survivors = append(survivors, Entry{
			Candidate: r.cand,
			MeanDB:    mean,
			StdDevDB:  stddev,
			Failures:  tallies[r.cand.Key()],
		})
	}
	if len(survivors) == 0 {
		return nil, services.Wrap(services.ErrNoReceivers, "scan", "screen",
			fmt.Sprintf("none of %d candidates responded", len(candidates)), nil)
	}
	rankEntries(survivors)

	topK := p.cfg.DeepTopK
	if topK <= 0 || topK > len(survivors) {
		topK = len(survivors)
	}
	deepCands := make([]receiver.Candidate, topK)
	for i := 0; i < topK; i++ {
		deepCands[i] = survivors[i].Candidate
	}
	p.logger.Info("deep probing top candidates",
		logging.Int("count", topK),
		logging.Int("deep_seconds", p.cfg.DeepSeconds),
		logging.Int("repetitions", p.cfg.DeepRepetitions))

	deep, deepTruncated := p.probePhase(ctx, deepCands, p.cfg.DeepSeconds, p.cfg.DeepRepetitions)
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrTimeout, "scan", "deep", "", err)
	}

	entries := make([]Entry, 0, topK)
	for _, r := range deep {
		if r.failures > 0 {
			tallies[r.cand.Key()] += r.failures
		}
		// A candidate that failed any deep repetition is unreliable at the
		// moment that matters most; it is dropped rather than ranked on a
		// partial measurement. Its failures still count against it in
		// future passes.
		if !r.probed || r.failures > 0 || len(r.levels) == 0 {
			continue
		}
		mean, stddev := meanStdDev(r.levels)
		entries = append(entries, Entry{
			Candidate: r.cand,
			MeanDB:    mean,
			StdDevDB:  stddev,
			Failures:  tallies[r.cand.Key()],
			Weak:      mean < p.cfg.QualityFloorDB,
		})
	}
	if len(entries) == 0 {
		return nil, services.Wrap(services.ErrNoReceivers, "scan", "deep",
			"every screened candidate failed deep probing", nil)
	}
	rankEntries(entries)

	snap := &Snapshot{
		Generation:     uuid.NewString(),
		CreatedAt:      p.now().UTC(),
		FrequencyKHz:   p.frequencyKHz,
		FloorDB:        p.cfg.QualityFloorDB,
		Screened:       len(survivors),
		Incomplete:     screenTruncated || deepTruncated,
		Entries:        entries,
		FailureTallies: tallies,
	}
	p.logger.Info("scan complete",
		logging.String("generation", snap.Generation),
		logging.Int("ranked", len(entries)),
		logging.Int("eligible", len(snap.Eligible())),
		logging.Bool("incomplete", snap.Incomplete))
	return snap, nil
}
