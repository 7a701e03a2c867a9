package receiver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lazerdave/shipping-forecast-recorder/internal/logging"
	"github.com/lazerdave/shipping-forecast-recorder/internal/services"
)

func TestParseCandidate(t *testing.T) {
	cand, err := ParseCandidate("sdr.example.net:8073 ")
	if err != nil {
		t.Fatalf("ParseCandidate: %v", err)
	}
	if cand.Host != "sdr.example.net" || cand.Port != 8073 {
		t.Fatalf("unexpected candidate %+v", cand)
	}
	if cand.Key() != "sdr.example.net:8073" {
		t.Fatalf("unexpected key %q", cand.Key())
	}

	for _, bad := range []string{"", "hostonly", ":8073", "host:", "host:notaport", "host:70000"} {
		if _, err := ParseCandidate(bad); err == nil {
			t.Errorf("ParseCandidate(%q) should fail", bad)
		}
	}
}

func TestParseLevels(t *testing.T) {
	cases := []struct {
		output string
		want   []float64
	}{
		{"-63.4 dBFS\n-61.0 dBFS\n", []float64{-63.4, -61.0}},
		{"RSSI: -58.2\nRSSI: -59.1\n", []float64{-58.2, -59.1}},
		{"RSSI=-70\n", []float64{-70}},
		{"connecting...\nno signal data\n", nil},
	}
	for _, tc := range cases {
		got := ParseLevels(tc.output)
		if len(got) != len(tc.want) {
			t.Fatalf("ParseLevels(%q) = %v, want %v", tc.output, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("ParseLevels(%q)[%d] = %v, want %v", tc.output, i, got[i], tc.want[i])
			}
		}
	}
}

func TestReadingMean(t *testing.T) {
	r := Reading{Levels: []float64{-60, -62, -64}}
	if got := r.Mean(); got != -62 {
		t.Fatalf("Mean() = %v, want -62", got)
	}
	if got := (Reading{}).Mean(); got != 0 {
		t.Fatalf("empty Mean() = %v, want 0", got)
	}
}

type fakeExecutor struct {
	output string
	err    error
	args   []string
}

func (f *fakeExecutor) Run(_ context.Context, _ string, args []string) (string, error) {
	f.args = args
	return f.output, f.err
}

func TestExecClientProbe(t *testing.T) {
	exec := &fakeExecutor{output: "-63.0 dBFS\n-61.0 dBFS\n"}
	client := NewExecClient("kiwirecorder.py", 198, "am", 5*time.Second, WithExecutor(exec))

	reading, err := client.Probe(context.Background(), Candidate{Host: "rx", Port: 8073}, 8*time.Second)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if got := reading.Mean(); got != -62 {
		t.Fatalf("mean = %v, want -62", got)
	}
	joined := strings.Join(exec.args, " ")
	for _, want := range []string{"-s rx", "-p 8073", "-f 198", "--S-meter=1", "--time-limit 8"} {
		if !strings.Contains(joined, want) {
			t.Errorf("probe args %q missing %q", joined, want)
		}
	}
}

func TestExecClientProbeNoReadings(t *testing.T) {
	exec := &fakeExecutor{output: "connected, streaming\n"}
	client := NewExecClient("kiwirecorder.py", 198, "am", time.Second, WithExecutor(exec))

	_, err := client.Probe(context.Background(), Candidate{Host: "rx", Port: 8073}, time.Second)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestExecClientProbeFailure(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("connection refused")}
	client := NewExecClient("kiwirecorder.py", 198, "am", time.Second, WithExecutor(exec))

	_, err := client.Probe(context.Background(), Candidate{Host: "rx", Port: 8073}, time.Second)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestExecClientCaptureTimeout(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("killed")}
	client := NewExecClient("kiwirecorder.py", 198, "am", time.Second, WithExecutor(exec))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := client.Capture(ctx, Candidate{Host: "rx", Port: 8073}, CaptureRequest{
		Duration: time.Second,
		SinkPath: "/tmp/out.wav",
	})
	if !errors.Is(err, services.ErrCaptureTimeout) {
		t.Fatalf("expected ErrCaptureTimeout, got %v", err)
	}
}

const feedTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Receivers</title>
%s
</channel></rss>`

func feedItem(title, link string) string {
	return fmt.Sprintf("<item><title>%s</title><link>%s</link></item>", title, link)
}

func noShuffle(int, func(i, j int)) {}

func TestDirectoryMergesFeedAndSeeds(t *testing.T) {
	body := fmt.Sprintf(feedTemplate,
		feedItem("KiwiSDR near Portsmouth UK", "http://rx1.example.net:8073/")+
			feedItem("KiwiSDR in Tokyo", "http://rx2.example.jp:8073/")+
			feedItem("Another UK receiver", "http://rx3.example.org:8074/"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	dir := NewDirectory(
		[]string{"seed.example.net:8073", "rx1.example.net:8073"},
		[]string{srv.URL},
		[]string{"UK"},
		nil,
		[]int{8073},
		logging.NewNop(),
		WithShuffle(noShuffle),
		WithHTTPClient(srv.Client()),
	)

	cands := dir.Candidates(context.Background())
	keys := make(map[string]bool, len(cands))
	for _, c := range cands {
		keys[c.Key()] = true
	}
	if !keys["rx1.example.net:8073"] {
		t.Error("feed candidate rx1 missing")
	}
	if !keys["seed.example.net:8073"] {
		t.Error("seed candidate missing")
	}
	if keys["rx2.example.jp:8073"] {
		t.Error("non-matching region candidate should be filtered")
	}
	if keys["rx3.example.org:8074"] {
		t.Error("disallowed port should be filtered")
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 deduplicated candidates, got %d: %v", len(cands), cands)
	}
}

func TestDirectoryHostHint(t *testing.T) {
	body := fmt.Sprintf(feedTemplate,
		feedItem("A receiver", "http://websdr.proxy.kiwisdr.com:8073/"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	dir := NewDirectory(nil, []string{srv.URL}, []string{"UK"}, []string{".kiwisdr.com"}, []int{8073},
		logging.NewNop(), WithShuffle(noShuffle), WithHTTPClient(srv.Client()))

	cands := dir.Candidates(context.Background())
	if len(cands) != 1 {
		t.Fatalf("expected host-hint match, got %v", cands)
	}
}

func TestDirectoryFeedFailureDegradesToSeeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := NewDirectory([]string{"seed.example.net:8073"}, []string{srv.URL}, []string{"UK"}, nil, nil,
		logging.NewNop(), WithShuffle(noShuffle), WithHTTPClient(srv.Client()))

	cands := dir.Candidates(context.Background())
	if len(cands) != 1 || cands[0].Key() != "seed.example.net:8073" {
		t.Fatalf("expected seeds only, got %v", cands)
	}
}
