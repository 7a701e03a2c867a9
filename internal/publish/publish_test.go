package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lazerdave/shipping-forecast-recorder/internal/logging"
)

type countingSink struct {
	mu       sync.Mutex
	name     string
	failN    int
	attempts int
	last     Release
}

func (s *countingSink) Name() string { return s.name }

func (s *countingSink) Deliver(_ context.Context, rel Release) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	s.last = rel
	if s.attempts <= s.failN {
		return errors.New("temporary failure")
	}
	return nil
}

func testRelease(path string) Release {
	return Release{
		Occurrence: "20260110_0048",
		AudioPath:  path,
		Receiver:   "rx1.example.net:8073",
		LevelDB:    -48.2,
		RecordedAt: time.Date(2026, 1, 10, 0, 48, 0, 0, time.UTC),
		Duration:   15 * time.Minute,
		Trimmed:    true,
	}
}

func TestDispatcherDeliversToAllSinks(t *testing.T) {
	a := &countingSink{name: "a"}
	b := &countingSink{name: "b"}
	d := NewDispatcher(logging.NewNop(), time.Second, 2, a, b)

	d.Dispatch(testRelease("/tmp/out.wav"))
	d.Wait()

	if a.attempts != 1 || b.attempts != 1 {
		t.Fatalf("attempts: a=%d b=%d", a.attempts, b.attempts)
	}
	if a.last.Occurrence != "20260110_0048" {
		t.Fatalf("release not propagated: %+v", a.last)
	}
}

func TestDispatcherRetriesThenSucceeds(t *testing.T) {
	s := &countingSink{name: "flaky", failN: 2}
	d := NewDispatcher(logging.NewNop(), time.Second, 3, s)

	d.Dispatch(testRelease("/tmp/out.wav"))
	d.Wait()

	if s.attempts != 3 {
		t.Fatalf("attempts = %d, want 3", s.attempts)
	}
}

func TestDispatcherIsolatesFailingSink(t *testing.T) {
	// The bad sink never succeeds; the good one must still deliver and
	// Dispatch must never surface the failure.
	bad := &countingSink{name: "bad", failN: 100}
	good := &countingSink{name: "good"}
	d := NewDispatcher(logging.NewNop(), time.Second, 1, bad, good)

	d.Dispatch(testRelease("/tmp/out.wav"))
	d.Wait()

	if good.attempts != 1 {
		t.Fatalf("good sink attempts = %d", good.attempts)
	}
	if bad.attempts != 2 {
		t.Fatalf("bad sink attempts = %d, want initial try plus one retry", bad.attempts)
	}
}

func TestArchiveSinkCopiesIntoDatedTree(t *testing.T) {
	srcDir := t.TempDir()
	archiveRoot := t.TempDir()
	src := filepath.Join(srcDir, "forecast_20260110.wav")
	if err := os.WriteFile(src, []byte("RIFF-audio-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	sink := &ArchiveSink{Root: archiveRoot}
	if err := sink.Deliver(context.Background(), testRelease(src)); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	copied := filepath.Join(archiveRoot, "2026", "01", "forecast_20260110.wav")
	data, err := os.ReadFile(copied)
	if err != nil {
		t.Fatalf("archived copy missing: %v", err)
	}
	if string(data) != "RIFF-audio-bytes" {
		t.Fatal("archived copy corrupted")
	}
}

func TestSidecarSinkWritesSummary(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "forecast_20260110.wav")
	if err := os.WriteFile(audio, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	rel := testRelease(audio)
	rel.Trimmed = false
	rel.Reason = "secondary peak too close to primary"
	if err := (SidecarSink{}).Deliver(context.Background(), rel); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "forecast_20260110.txt"))
	if err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		"occurrence: 20260110_0048",
		"receiver: rx1.example.net:8073",
		"trimmed: false",
		"note: secondary peak too close to primary",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("sidecar missing %q in:\n%s", want, text)
		}
	}
}
