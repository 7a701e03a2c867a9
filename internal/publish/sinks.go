package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lazerdave/shipping-forecast-recorder/internal/fileutil"
	"github.com/lazerdave/shipping-forecast-recorder/internal/notifications"
)

// ArchiveSink mirrors the published file into a YYYY/MM directory tree with a
// checksum-verified copy.
type ArchiveSink struct {
	Root string
}

func (s *ArchiveSink) Name() string { return "archive" }

func (s *ArchiveSink) Deliver(_ context.Context, rel Release) error {
	when := rel.RecordedAt
	if when.IsZero() {
		when = time.Now()
	}
	dir := filepath.Join(s.Root, when.UTC().Format("2006"), when.UTC().Format("01"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create archive directory %s: %w", dir, err)
	}
	dest := filepath.Join(dir, filepath.Base(rel.AudioPath))
	if err := fileutil.CopyFileVerified(rel.AudioPath, dest); err != nil {
		return fmt.Errorf("archive %s: %w", rel.AudioPath, err)
	}
	return nil
}

// SidecarSink writes a plain-text summary next to the published audio so the
// recording is self-describing without the run database.
type SidecarSink struct{}

func (SidecarSink) Name() string { return "sidecar" }

func (SidecarSink) Deliver(_ context.Context, rel Release) error {
	var b strings.Builder
	fmt.Fprintf(&b, "occurrence: %s\n", rel.Occurrence)
	fmt.Fprintf(&b, "receiver: %s\n", rel.Receiver)
	fmt.Fprintf(&b, "signal_db: %.1f\n", rel.LevelDB)
	fmt.Fprintf(&b, "recorded_at: %s\n", rel.RecordedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "duration: %s\n", rel.Duration.Round(time.Second))
	fmt.Fprintf(&b, "trimmed: %t\n", rel.Trimmed)
	if rel.Reason != "" {
		fmt.Fprintf(&b, "note: %s\n", rel.Reason)
	}

	path := strings.TrimSuffix(rel.AudioPath, filepath.Ext(rel.AudioPath)) + ".txt"
	return fileutil.WriteFileAtomic(path, []byte(b.String()), 0o644)
}

// NotificationSink announces the release through the notification service.
type NotificationSink struct {
	Service notifications.Service
}

func (s *NotificationSink) Name() string { return "notify" }

func (s *NotificationSink) Deliver(ctx context.Context, rel Release) error {
	name := filepath.Base(rel.AudioPath)
	if !rel.Trimmed {
		return s.Service.NotifyReviewNeeded(ctx, name, rel.Reason)
	}
	return s.Service.NotifyPublished(ctx, name, rel.Trimmed)
}
