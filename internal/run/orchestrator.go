package run

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/lazerdave/shipping-forecast-recorder/internal/capture"
	"github.com/lazerdave/shipping-forecast-recorder/internal/config"
	"github.com/lazerdave/shipping-forecast-recorder/internal/cutpoint"
	"github.com/lazerdave/shipping-forecast-recorder/internal/fileutil"
	"github.com/lazerdave/shipping-forecast-recorder/internal/logging"
	"github.com/lazerdave/shipping-forecast-recorder/internal/notifications"
	"github.com/lazerdave/shipping-forecast-recorder/internal/publish"
	"github.com/lazerdave/shipping-forecast-recorder/internal/receiver"
	"github.com/lazerdave/shipping-forecast-recorder/internal/scan"
	"github.com/lazerdave/shipping-forecast-recorder/internal/services"
	"github.com/lazerdave/shipping-forecast-recorder/internal/trim"
	"github.com/lazerdave/shipping-forecast-recorder/internal/wavio"
)

// CandidateSource enumerates candidate receivers for a scan pass.
type CandidateSource interface {
	Candidates(ctx context.Context) []receiver.Candidate
}

// SnapshotScanner ranks candidates into a snapshot. history carries
// per-endpoint failure tallies from earlier snapshots.
type SnapshotScanner interface {
	Run(ctx context.Context, candidates []receiver.Candidate, history map[string]int) (*scan.Snapshot, error)
}

// Recorder captures one broadcast against a ranked snapshot.
type Recorder interface {
	Record(ctx context.Context, occurrence string, snap *scan.Snapshot) (capture.Artifact, error)
}

// CutpointDetector locates the closedown anthem in a recording.
type CutpointDetector interface {
	Detect(recording, template wavio.Data) (cutpoint.Result, error)
}

// Fader trims a recording at a detected cutpoint.
type Fader interface {
	Apply(recording wavio.Data, det cutpoint.Result) (trim.Outcome, error)
}

// Summary is what one orchestrated run produced.
type Summary struct {
	Occurrence       string
	AlreadyPublished bool
	OutputPath       string
	Receiver         string
	Trimmed          bool
	ReviewReason     string
}

// Orchestrator drives the end-to-end pipeline for one broadcast occurrence.
type Orchestrator struct {
	cfg        *config.Config
	store      *Store
	directory  CandidateSource
	scanner    SnapshotScanner
	scans      *scan.Store
	session    Recorder
	detector   CutpointDetector
	trimmer    Fader
	dispatcher *publish.Dispatcher
	notifier   notifications.Service
	logger     *slog.Logger
	now        func() time.Time
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Store      *Store
	Directory  CandidateSource
	Scanner    SnapshotScanner
	Scans      *scan.Store
	Session    Recorder
	Detector   CutpointDetector
	Trimmer    Fader
	Dispatcher *publish.Dispatcher
	Notifier   notifications.Service
	Logger     *slog.Logger
	Now        func() time.Time
}

// NewOrchestrator wires the pipeline together.
func NewOrchestrator(cfg *config.Config, deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		cfg:        cfg,
		store:      deps.Store,
		directory:  deps.Directory,
		scanner:    deps.Scanner,
		scans:      deps.Scans,
		session:    deps.Session,
		detector:   deps.Detector,
		trimmer:    deps.Trimmer,
		dispatcher: deps.Dispatcher,
		notifier:   deps.Notifier,
		logger:     logging.WithComponent(logger, "run"),
		now:        now,
	}
}

// Execute runs the full pipeline for the occurrence. Running it twice for the
// same occurrence is safe: a published occurrence returns immediately and a
// crashed one resumes from its durable state.
func (o *Orchestrator) Execute(ctx context.Context, occurrence string) (Summary, error) {
	lock := flock.New(o.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return Summary{}, services.Wrap(services.ErrStorage, "run", "lock", o.cfg.LockPath(), err)
	}
	if !locked {
		return Summary{}, services.Wrap(services.ErrOverlap, "run", "lock",
			"another run holds "+o.cfg.LockPath(), nil)
	}
	defer func() { _ = lock.Unlock() }()

	existing, err := o.store.GetByOccurrence(ctx, occurrence)
	if err != nil {
		return Summary{}, err
	}
	var record *Run
	switch {
	case existing == nil:
		record, err = o.store.CreateRun(ctx, occurrence)
		if err != nil {
			return Summary{}, err
		}
	case existing.Status == StatusDone:
		o.logger.Info("occurrence already published",
			logging.String("occurrence", occurrence),
			logging.String("output", existing.OutputPath))
		return Summary{
			Occurrence:       occurrence,
			AlreadyPublished: true,
			OutputPath:       existing.OutputPath,
			Receiver:         existing.Receiver,
			Trimmed:          existing.Trimmed,
			ReviewReason:     existing.ReviewReason,
		}, nil
	default:
		record = existing
		if err := o.store.Transition(ctx, record.ID, StatusScanning,
			fmt.Sprintf("resumed from %s", existing.Status)); err != nil {
			return Summary{}, err
		}
	}

	summary, err := o.pipeline(ctx, record)
	if err != nil {
		stage := string(StatusFailed)
		if current, getErr := o.store.GetByID(ctx, record.ID); getErr == nil {
			stage = string(current.Status)
		}
		_ = o.store.SetError(ctx, record.ID, err.Error())
		_ = o.store.Transition(ctx, record.ID, StatusFailed, err.Error())
		if o.notifier != nil {
			_ = o.notifier.NotifyRunFailed(ctx, err, stage)
		}
		return Summary{Occurrence: record.Occurrence}, err
	}
	return summary, nil
}

func (o *Orchestrator) pipeline(ctx context.Context, record *Run) (Summary, error) {
	snap, err := o.ensureSnapshot(ctx)
	if err != nil {
		return Summary{}, err
	}

	if err := o.store.Transition(ctx, record.ID, StatusSelecting,
		fmt.Sprintf("snapshot %s with %d eligible", snap.Generation, len(snap.Eligible()))); err != nil {
		return Summary{}, err
	}
	if err := o.store.Transition(ctx, record.ID, StatusRecording, ""); err != nil {
		return Summary{}, err
	}

	artifact, err := o.record(ctx, record.Occurrence, snap)
	if err != nil {
		return Summary{}, err
	}
	if err := o.store.SetCapture(ctx, record.ID, artifact.Receiver.Key(), artifact.LevelDB, snap.Generation); err != nil {
		return Summary{}, err
	}
	if o.notifier != nil {
		_ = o.notifier.NotifyRecordingCompleted(ctx, artifact.Receiver.Key(), artifact.Duration)
	}

	if err := o.store.Transition(ctx, record.ID, StatusDetecting,
		"captured from "+artifact.Receiver.Key()); err != nil {
		return Summary{}, err
	}
	recording, err := wavio.DecodeFile(artifact.Path)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrValidation, "run", "decode", artifact.Path, err)
	}
	template, err := wavio.DecodeFile(o.cfg.Paths.TemplateWAV)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "run", "template", o.cfg.Paths.TemplateWAV, err)
	}
	det, err := o.detector.Detect(recording, template)
	if err != nil {
		return Summary{}, err
	}

	if err := o.store.Transition(ctx, record.ID, StatusTrimming,
		fmt.Sprintf("detection %s (peak %.2f, ratio %.2f)", det.Confidence, det.Peak, det.Ratio)); err != nil {
		return Summary{}, err
	}
	outcome, err := o.trimmer.Apply(recording, det)
	if err != nil {
		return Summary{}, err
	}

	outputPath, err := o.writeOutput(record.Occurrence, outcome.Audio)
	if err != nil {
		return Summary{}, err
	}

	if err := o.store.Transition(ctx, record.ID, StatusPublishing, filepath.Base(outputPath)); err != nil {
		return Summary{}, err
	}
	// Sink delivery is fire and forget: the run is done once the release is
	// handed off. Wait blocks on stragglers before the process exits.
	o.dispatcher.Dispatch(publish.Release{
		Occurrence: record.Occurrence,
		AudioPath:  outputPath,
		Receiver:   artifact.Receiver.Key(),
		LevelDB:    artifact.LevelDB,
		RecordedAt: artifact.StartedAt,
		Duration:   outcome.Audio.Duration(),
		Trimmed:    outcome.Trimmed,
		Reason:     outcome.Reason,
	})

	if err := o.store.SetResult(ctx, record.ID, outputPath, outcome.Trimmed, outcome.Reason); err != nil {
		return Summary{}, err
	}
	if err := o.store.Transition(ctx, record.ID, StatusDone, ""); err != nil {
		return Summary{}, err
	}

	return Summary{
		Occurrence:   record.Occurrence,
		OutputPath:   outputPath,
		Receiver:     artifact.Receiver.Key(),
		Trimmed:      outcome.Trimmed,
		ReviewReason: outcome.Reason,
	}, nil
}

// Scan runs only the discovery and ranking phase and persists the snapshot.
func (o *Orchestrator) Scan(ctx context.Context) (*scan.Snapshot, error) {
	candidates := o.directory.Candidates(ctx)
	if len(candidates) == 0 {
		return nil, services.Wrap(services.ErrNoReceivers, "run", "scan", "candidate pool is empty", nil)
	}
	// Even a stale snapshot still carries usable failure history.
	var history map[string]int
	if prior, err := o.scans.LoadLatest(); err == nil {
		history = prior.FailureTallies
	}
	snap, err := o.scanner.Run(ctx, candidates, history)
	if err != nil {
		return nil, err
	}
	if _, err := o.scans.Save(snap); err != nil {
		return nil, err
	}

	eligible := len(snap.Eligible())
	if o.notifier != nil {
		best := ""
		if eligible > 0 {
			best = snap.Eligible()[0].Candidate.Key()
		}
		_ = o.notifier.NotifyScanCompleted(ctx, eligible, len(snap.Entries), best)
		if eligible < o.cfg.Scan.MinExpectedReceivers {
			_ = o.notifier.NotifyLowAvailability(ctx, eligible, o.cfg.Scan.MinExpectedReceivers)
		}
	}
	return snap, nil
}

// ensureSnapshot reuses the latest persisted snapshot when it is fresh enough
// to trust, otherwise runs a new scan.
func (o *Orchestrator) ensureSnapshot(ctx context.Context) (*scan.Snapshot, error) {
	maxAge := time.Duration(o.cfg.Scan.MaxSnapshotAgeMins) * time.Minute
	if snap, err := o.scans.LoadLatest(); err == nil && !snap.Stale(o.now(), maxAge) {
		o.logger.Info("reusing scan snapshot",
			logging.String("generation", snap.Generation),
			logging.Duration("age", snap.Age(o.now())))
		return snap, nil
	}
	return o.Scan(ctx)
}

// record captures the broadcast, or reuses a capture a crashed run already
// completed for this occurrence. Reuse requires provenance: a raw file whose
// receiver cannot be recovered from the run row is re-recorded instead of
// published with an unknown origin.
func (o *Orchestrator) record(ctx context.Context, occurrence string, snap *scan.Snapshot) (capture.Artifact, error) {
	rawPath := filepath.Join(o.cfg.Paths.StagingDir, occurrence+"_raw.wav")
	if info, err := os.Stat(rawPath); err == nil && info.Size() > 0 {
		prior, loadErr := o.store.GetByOccurrence(ctx, occurrence)
		if loadErr == nil && prior != nil && prior.Receiver != "" {
			if cand, parseErr := receiver.ParseCandidate(prior.Receiver); parseErr == nil {
				o.logger.Info("reusing existing capture",
					logging.String("path", rawPath),
					logging.String("receiver", cand.Key()))
				return capture.Artifact{
					Path:     rawPath,
					Receiver: cand,
					LevelDB:  prior.LevelDB,
					Status:   capture.StatusComplete,
					Duration: time.Duration(o.cfg.Recording.DurationSeconds) * time.Second,
				}, nil
			}
		}
		o.logger.Warn("ignoring capture with unknown provenance", logging.String("path", rawPath))
	}
	return o.session.Record(ctx, occurrence, snap)
}

// writeOutput encodes the final audio into staging and promotes it into the
// output directory in one rename.
func (o *Orchestrator) writeOutput(occurrence string, audio wavio.Data) (string, error) {
	staged := filepath.Join(o.cfg.Paths.StagingDir, "forecast_"+occurrence+".wav")
	if err := wavio.EncodeFile(staged, audio); err != nil {
		return "", services.Wrap(services.ErrStorage, "run", "encode", staged, err)
	}
	final := filepath.Join(o.cfg.Paths.OutputDir, "forecast_"+occurrence+".wav")
	if err := fileutil.Promote(staged, final); err != nil {
		return "", services.Wrap(services.ErrStorage, "run", "promote", final, err)
	}
	return final, nil
}
