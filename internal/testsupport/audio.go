package testsupport

import (
	"math/rand"
	"testing"

	"github.com/lazerdave/shipping-forecast-recorder/internal/wavio"
)

// Noise builds a deterministic pseudo-random mono signal.
func Noise(seed int64, sampleRate int, seconds float64, amplitude int16) wavio.Data {
	rng := rand.New(rand.NewSource(seed))
	n := int(seconds * float64(sampleRate))
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(rng.Intn(int(2*amplitude)) - int(amplitude))
	}
	return wavio.Data{SampleRate: sampleRate, Samples: samples}
}

// Embed copies template samples into recording at the given second.
func Embed(recording, template wavio.Data, atSeconds float64) {
	start := int(atSeconds * float64(recording.SampleRate))
	copy(recording.Samples[start:], template.Samples)
}

// WriteWAV encodes audio to path, failing the test on error.
func WriteWAV(t testing.TB, path string, audio wavio.Data) {
	t.Helper()
	if err := wavio.EncodeFile(path, audio); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
}
