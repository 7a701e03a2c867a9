// Package capture records one broadcast from the best available receiver,
// falling back down the ranked snapshot when receivers misbehave.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/lazerdave/shipping-forecast-recorder/internal/config"
	"github.com/lazerdave/shipping-forecast-recorder/internal/fileutil"
	"github.com/lazerdave/shipping-forecast-recorder/internal/logging"
	"github.com/lazerdave/shipping-forecast-recorder/internal/receiver"
	"github.com/lazerdave/shipping-forecast-recorder/internal/scan"
	"github.com/lazerdave/shipping-forecast-recorder/internal/services"
)

// Artifact status values.
const (
	StatusComplete = "complete"
	StatusTimedOut = "timed_out"
	StatusAborted  = "aborted"
)

// Artifact describes one finished capture on disk.
type Artifact struct {
	Path      string
	Receiver  receiver.Candidate
	LevelDB   float64
	StartedAt time.Time
	Duration  time.Duration
	Status    string
}

// Session drives one recording attempt chain against a ranked snapshot.
type Session struct {
	client       receiver.Client
	cfg          config.Recording
	frequencyKHz float64
	mode         string
	floorDB      float64
	stagingDir   string
	logger       *slog.Logger
	now          func() time.Time
}

// NewSession wires a Session to a receiver client.
func NewSession(client receiver.Client, cfg config.Recording, rcv config.Receiver, floorDB float64, stagingDir string, logger *slog.Logger) *Session {
	return &Session{
		client:       client,
		cfg:          cfg,
		frequencyKHz: rcv.FrequencyKHz,
		mode:         rcv.Mode,
		floorDB:      floorDB,
		stagingDir:   stagingDir,
		logger:       logging.WithComponent(logger, "capture"),
		now:          time.Now,
	}
}

// Record captures the broadcast identified by occurrence from the best
// eligible receiver in snap. A receiver that fails its fresh signal check or
// its capture start is skipped; a capture that overruns duration plus margin
// is fatal for the whole occurrence so we never record the broadcast twice.
func (s *Session) Record(ctx context.Context, occurrence string, snap *scan.Snapshot) (Artifact, error) {
	eligible := snap.Eligible()
	if len(eligible) == 0 {
		return Artifact{}, services.Wrap(services.ErrNoReceivers, "capture", "record",
			"snapshot has no eligible receivers", nil)
	}
	attempts := s.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	if attempts > len(eligible) {
		attempts = len(eligible)
	}

	duration := time.Duration(s.cfg.DurationSeconds) * time.Second
	margin := time.Duration(s.cfg.MarginSeconds) * time.Second

	var lastErr error
	for i := 0; i < attempts; i++ {
		entry := eligible[i]
		cand := entry.Candidate

		level, err := s.freshCheck(ctx, cand)
		if err != nil {
			s.logger.Warn("fresh signal check failed, falling back",
				logging.String("receiver", cand.Key()),
				logging.Error(err))
			lastErr = err
			continue
		}
		if level < s.floorDB {
			s.logger.Warn("receiver degraded since scan, falling back",
				logging.String("receiver", cand.Key()),
				logging.Float64("level_db", level),
				logging.Float64("floor_db", s.floorDB))
			lastErr = services.Wrap(services.ErrNoReceivers, "capture", "fresh-check",
				fmt.Sprintf("%s below floor at %.1f dB", cand.Key(), level), nil)
			continue
		}

		artifact, err := s.capture(ctx, occurrence, cand, level, duration, margin)
		if err == nil {
			return artifact, nil
		}
		if errors.Is(err, services.ErrCaptureTimeout) {
			// The broadcast window is spent; re-recording from another
			// receiver would capture different programming.
			return artifact, err
		}
		s.logger.Warn("capture failed, falling back",
			logging.String("receiver", cand.Key()),
			logging.Error(err))
		lastErr = err
	}

	if lastErr == nil {
		lastErr = services.Wrap(services.ErrNoReceivers, "capture", "record", "attempts exhausted", nil)
	}
	return Artifact{Status: StatusAborted}, lastErr
}

// freshCheck re-measures signal level just before committing to a long
// capture. The scan snapshot may be hours old by air time.
func (s *Session) freshCheck(ctx context.Context, cand receiver.Candidate) (float64, error) {
	checkSeconds := s.cfg.FreshCheckSeconds
	if checkSeconds <= 0 {
		return s.floorDB, nil
	}
	reading, err := s.client.Probe(ctx, cand, time.Duration(checkSeconds)*time.Second)
	if err != nil {
		return 0, err
	}
	return reading.Mean(), nil
}

func (s *Session) capture(ctx context.Context, occurrence string, cand receiver.Candidate, level float64, duration, margin time.Duration) (Artifact, error) {
	partPath := filepath.Join(s.stagingDir, occurrence+"_raw.wav.part")
	finalPath := filepath.Join(s.stagingDir, occurrence+"_raw.wav")
	started := s.now().UTC()

	captureCtx, cancel := context.WithTimeout(ctx, duration+margin)
	defer cancel()

	s.logger.Info("recording",
		logging.String("receiver", cand.Key()),
		logging.Float64("level_db", level),
		logging.Duration("duration", duration))

	err := s.client.Capture(captureCtx, cand, receiver.CaptureRequest{
		FrequencyKHz: s.frequencyKHz,
		Mode:         s.mode,
		Duration:     duration,
		SinkPath:     partPath,
	})
	elapsed := s.now().UTC().Sub(started)
	artifact := Artifact{
		Path:      finalPath,
		Receiver:  cand,
		LevelDB:   level,
		StartedAt: started,
		Duration:  elapsed,
	}
	if err != nil {
		if errors.Is(err, services.ErrCaptureTimeout) || errors.Is(captureCtx.Err(), context.DeadlineExceeded) {
			artifact.Status = StatusTimedOut
			artifact.Path = partPath
			return artifact, services.Wrap(services.ErrCaptureTimeout, "capture", "record", cand.Key(), err)
		}
		artifact.Status = StatusAborted
		artifact.Path = ""
		return artifact, err
	}

	// The rename marks the capture as complete; a crash before this point
	// leaves only the .part file, which a later run ignores.
	if err := fileutil.Promote(partPath, finalPath); err != nil {
		artifact.Status = StatusAborted
		artifact.Path = ""
		return artifact, services.Wrap(services.ErrStorage, "capture", "promote", finalPath, err)
	}
	artifact.Status = StatusComplete
	return artifact, nil
}
