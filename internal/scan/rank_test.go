package scan

import (
	"fmt"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/lazerdave/shipping-forecast-recorder/internal/receiver"
)

func TestMeanStdDev(t *testing.T) {
	mean, stddev := meanStdDev([]float64{-60, -62, -64})
	if mean != -62 {
		t.Fatalf("mean = %v, want -62", mean)
	}
	want := math.Sqrt(8.0 / 3.0)
	if math.Abs(stddev-want) > 1e-9 {
		t.Fatalf("stddev = %v, want %v", stddev, want)
	}

	if m, s := meanStdDev(nil); m != 0 || s != 0 {
		t.Fatalf("empty input: mean=%v stddev=%v", m, s)
	}
}

func TestRankEntriesTieBreaks(t *testing.T) {
	entries := []Entry{
		{Candidate: receiver.Candidate{Host: "b", Port: 8073}, MeanDB: -50, StdDevDB: 1, Failures: 0},
		{Candidate: receiver.Candidate{Host: "a", Port: 8073}, MeanDB: -50, StdDevDB: 1, Failures: 0},
		{Candidate: receiver.Candidate{Host: "c", Port: 8073}, MeanDB: -50, StdDevDB: 0.5, Failures: 2},
		{Candidate: receiver.Candidate{Host: "d", Port: 8073}, MeanDB: -45, StdDevDB: 9, Failures: 5},
	}
	rankEntries(entries)

	wantOrder := []string{"d:8073", "c:8073", "a:8073", "b:8073"}
	for i, want := range wantOrder {
		if got := entries[i].Candidate.Key(); got != want {
			t.Fatalf("rank[%d] = %s, want %s", i, got, want)
		}
	}
}

// Ranking must be a pure function of the measurements: any permutation of the
// same entries sorts to the same order.
func TestRankEntriesDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	genEntry := gopter.CombineGens(
		gen.IntRange(0, 50),
		gen.Float64Range(-90, -30),
		gen.Float64Range(0, 10),
		gen.IntRange(0, 4),
	).Map(func(vals []interface{}) Entry {
		return Entry{
			Candidate: receiver.Candidate{
				Host: fmt.Sprintf("rx%02d.example.net", vals[0].(int)),
				Port: 8073,
			},
			MeanDB:   vals[1].(float64),
			StdDevDB: vals[2].(float64),
			Failures: vals[3].(int),
		}
	})

	properties.Property("permutation invariant", prop.ForAll(
		func(entries []Entry, seed int) bool {
			a := make([]Entry, len(entries))
			copy(a, entries)
			b := make([]Entry, len(entries))
			copy(b, entries)
			// Deterministic pseudo-shuffle of b.
			for i := len(b) - 1; i > 0; i-- {
				j := (seed + i*31) % (i + 1)
				if j < 0 {
					j += i + 1
				}
				b[i], b[j] = b[j], b[i]
			}
			rankEntries(a)
			rankEntries(b)
			for i := range a {
				if a[i] != b[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genEntry),
		gen.Int(),
	))

	properties.TestingRun(t)
}
