package cutpoint

import (
	"math"
	"math/rand"
	"testing"

	"github.com/lazerdave/shipping-forecast-recorder/internal/config"
	"github.com/lazerdave/shipping-forecast-recorder/internal/logging"
	"github.com/lazerdave/shipping-forecast-recorder/internal/wavio"
)

const testRate = 4000

func testDetectionConfig() config.Detection {
	return config.Detection{
		SearchOffsetSeconds: 2,
		SearchFraction:      0.5,
		MinPeakRatio:        1.4,
		MinPeakValue:        0.35,
	}
}

// noiseData builds a deterministic pseudo-random signal.
func noiseData(rng *rand.Rand, seconds float64, amplitude int16) wavio.Data {
	n := int(seconds * testRate)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(rng.Intn(int(2*amplitude)) - int(amplitude))
	}
	return wavio.Data{SampleRate: testRate, Samples: samples}
}

// embed copies template samples into recording at the given second.
func embed(recording, template wavio.Data, atSeconds float64) {
	start := int(atSeconds * testRate)
	copy(recording.Samples[start:], template.Samples)
}

func TestDetectFindsEmbeddedTemplate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	template := noiseData(rng, 1.0, 12000)
	recording := noiseData(rng, 10.0, 900)
	embed(recording, template, 7.0)

	d := NewDetector(testDetectionConfig(), logging.NewNop())
	res, err := d.Detect(recording, template)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Confidence != ConfidenceHigh {
		t.Fatalf("confidence = %s (reason %q), want high", res.Confidence, res.Reason)
	}
	wantIdx := int(7.0 * testRate)
	if res.Index != wantIdx {
		t.Fatalf("index = %d, want %d", res.Index, wantIdx)
	}
	if res.Peak < 0.9 {
		t.Fatalf("peak = %v, expected near-perfect match", res.Peak)
	}
}

func TestDetectAppliesLeadOffset(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	template := noiseData(rng, 1.0, 12000)
	recording := noiseData(rng, 10.0, 900)
	embed(recording, template, 7.0)

	cfg := testDetectionConfig()
	cfg.LeadOffsetSeconds = 0.5
	d := NewDetector(cfg, logging.NewNop())
	res, err := d.Detect(recording, template)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	wantIdx := int(7.5 * testRate)
	if res.Index != wantIdx {
		t.Fatalf("index = %d, want %d", res.Index, wantIdx)
	}
}

func TestDetectIndexNeverLeavesSearchWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	template := noiseData(rng, 1.0, 12000)
	recording := noiseData(rng, 10.0, 900)
	embed(recording, template, 6.0)

	// A lead large enough to drag the raw match before the window start must
	// clamp back to it.
	cfg := testDetectionConfig()
	cfg.LeadOffsetSeconds = -2.0
	d := NewDetector(cfg, logging.NewNop())
	res, err := d.Detect(recording, template)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Confidence != ConfidenceHigh {
		t.Fatalf("confidence = %s, want high", res.Confidence)
	}
	wantWindow := int(0.5 * 10.0 * testRate)
	if res.WindowStart != wantWindow {
		t.Fatalf("window start = %d, want %d", res.WindowStart, wantWindow)
	}
	if res.Index != res.WindowStart {
		t.Fatalf("index = %d, want clamp to window start %d", res.Index, res.WindowStart)
	}
}

func TestDetectNoMatchIsNone(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	template := noiseData(rng, 1.0, 12000)
	recording := noiseData(rng, 10.0, 900)

	d := NewDetector(testDetectionConfig(), logging.NewNop())
	res, err := d.Detect(recording, template)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Confidence != ConfidenceNone {
		t.Fatalf("confidence = %s, want none", res.Confidence)
	}
}

func TestDetectRepeatedMatchIsAmbiguous(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	template := noiseData(rng, 0.5, 12000)
	recording := noiseData(rng, 12.0, 900)
	embed(recording, template, 7.0)
	embed(recording, template, 10.0)

	d := NewDetector(testDetectionConfig(), logging.NewNop())
	res, err := d.Detect(recording, template)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Confidence != ConfidenceAmbiguous {
		t.Fatalf("confidence = %s (ratio %v), want ambiguous", res.Confidence, res.Ratio)
	}
}

func TestDetectShortRecordingIsNone(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	template := noiseData(rng, 2.0, 12000)
	recording := noiseData(rng, 2.5, 900)

	d := NewDetector(testDetectionConfig(), logging.NewNop())
	res, err := d.Detect(recording, template)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Confidence != ConfidenceNone {
		t.Fatalf("confidence = %s, want none", res.Confidence)
	}
	if res.Reason == "" {
		t.Fatal("expected a reason for the non-detection")
	}
}

func TestDetectResamplesTemplate(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	// Template authored at double the recording rate.
	hi := noiseData(rng, 1.0, 12000)
	template := wavio.Data{SampleRate: 2 * testRate, Samples: make([]int16, 2*len(hi.Samples))}
	for i, s := range hi.Samples {
		template.Samples[2*i] = s
		template.Samples[2*i+1] = s
	}

	recording := noiseData(rng, 10.0, 900)
	embed(recording, hi, 7.0)

	d := NewDetector(testDetectionConfig(), logging.NewNop())
	res, err := d.Detect(recording, template)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Confidence == ConfidenceNone {
		t.Fatalf("resampled template should still match, got none (peak %v)", res.Peak)
	}
	if math.Abs(float64(res.Index-7*testRate)) > testRate/10 {
		t.Fatalf("index = %d, want near %d", res.Index, 7*testRate)
	}
}

func TestResampleLinear(t *testing.T) {
	in := []float64{0, 1, 2, 3}
	out := resampleLinear(in, 4000, 8000)
	if len(out) != 8 {
		t.Fatalf("len = %d, want 8", len(out))
	}
	if out[0] != 0 || math.Abs(out[1]-0.5) > 1e-9 || out[2] != 1 {
		t.Fatalf("unexpected upsample %v", out)
	}

	same := resampleLinear(in, 4000, 4000)
	for i := range in {
		if same[i] != in[i] {
			t.Fatal("same-rate resample must be identity")
		}
	}
}
