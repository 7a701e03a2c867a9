package scan

import (
	"time"

	"github.com/lazerdave/shipping-forecast-recorder/internal/receiver"
)

// Entry is one ranked receiver inside a snapshot.
type Entry struct {
	Candidate receiver.Candidate `json:"candidate"`
	MeanDB    float64            `json:"mean_db"`
	StdDevDB  float64            `json:"stddev_db"`
	// Failures is the endpoint's accumulated probe-failure tally, carried
	// across scan passes and used as a ranking tie-break.
	Failures int `json:"failures"`
	// Weak marks entries whose mean fell below the quality floor. They are
	// kept for diagnostics but never selected for recording.
	Weak bool `json:"weak"`
}

// Snapshot is the durable result of one scan pass.
type Snapshot struct {
	Generation   string    `json:"generation"`
	CreatedAt    time.Time `json:"created_at"`
	FrequencyKHz float64   `json:"frequency_khz"`
	FloorDB      float64   `json:"floor_db"`
	Screened     int       `json:"screened"`
	// Incomplete set when a probe phase hit its time ceiling before all
	// candidates were measured.
	Incomplete bool    `json:"incomplete,omitempty"`
	Entries    []Entry `json:"entries"`
	// FailureTallies accumulates probe failures per endpoint key across scan
	// passes, including candidates the pass discarded. The next pass feeds
	// them back as ranking history.
	FailureTallies map[string]int `json:"failure_tallies,omitempty"`
}

// Eligible returns the entries a recording session may use, in rank order.
func (s *Snapshot) Eligible() []Entry {
	eligible := make([]Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if e.Weak {
			continue
		}
		eligible = append(eligible, e)
	}
	return eligible
}

// Age reports how long ago the snapshot was taken.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// Stale reports whether the snapshot is too old to trust for selection.
func (s *Snapshot) Stale(now time.Time, maxAge time.Duration) bool {
	return s.Age(now) > maxAge
}
