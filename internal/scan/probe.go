package scan

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/lazerdave/shipping-forecast-recorder/internal/logging"
	"github.com/lazerdave/shipping-forecast-recorder/internal/receiver"
)

// probeResult collects everything one candidate produced during a phase.
// Failures become data here; they never abort the phase.
type probeResult struct {
	cand     receiver.Candidate
	levels   []float64
	failures int
	probed   bool
}

// probePhase runs `reps` probes of `seconds` each against every candidate,
// with at most p.cfg.Workers in flight. The whole phase is bounded by a
// deadline derived from the batch size; candidates still pending when it
// expires come back unprobed and the second return value reports truncation.
func (p *Scanner) probePhase(ctx context.Context, cands []receiver.Candidate, seconds, reps int) ([]probeResult, bool) {
	if len(cands) == 0 {
		return nil, false
	}

	workers := p.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	waves := (len(cands) + workers - 1) / workers
	ceiling := time.Duration(seconds*reps*waves)*time.Second +
		time.Duration(p.cfg.PhaseSlackSeconds)*time.Second
	phaseCtx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	results := make([]probeResult, len(cands))
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i, cand := range cands {
		if err := sem.Acquire(phaseCtx, 1); err != nil {
			// Deadline hit: remaining candidates stay unprobed.
			results[i] = probeResult{cand: cand}
			continue
		}
		wg.Add(1)
		go func(slot int, cand receiver.Candidate) {
			defer wg.Done()
			defer sem.Release(1)
			results[slot] = p.probeOne(phaseCtx, cand, seconds, reps)
		}(i, cand)
	}
	wg.Wait()

	truncated := phaseCtx.Err() != nil && ctx.Err() == nil
	if truncated {
		p.logger.Warn("probe phase hit time ceiling",
			logging.Int("candidates", len(cands)),
			logging.Duration("ceiling", ceiling))
	}
	return results, truncated
}

// probeOne runs the repetitions for a single candidate. A failed repetition
// ends the candidate's participation in the phase.
func (p *Scanner) probeOne(ctx context.Context, cand receiver.Candidate, seconds, reps int) probeResult {
	res := probeResult{cand: cand, probed: true}
	duration := time.Duration(seconds) * time.Second
	for rep := 0; rep < reps; rep++ {
		reading, err := p.client.Probe(ctx, cand, duration)
		if err != nil {
			res.failures++
			p.logger.Debug("probe failed",
				logging.String("receiver", cand.Key()),
				logging.Int("repetition", rep+1),
				logging.Error(err))
			return res
		}
		res.levels = append(res.levels, reading.Levels...)
	}
	return res
}
