package run

import "time"

// Status represents the lifecycle of a broadcast run.
type Status string

const (
	StatusScanning   Status = "scanning"
	StatusSelecting  Status = "selecting"
	StatusRecording  Status = "recording"
	StatusDetecting  Status = "detecting"
	StatusTrimming   Status = "trimming"
	StatusPublishing Status = "publishing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusScanning,
	StatusSelecting,
	StatusRecording,
	StatusDetecting,
	StatusTrimming,
	StatusPublishing,
	StatusDone,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether a run can make no further progress.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Run is one occurrence's durable record.
type Run struct {
	ID             int64
	Occurrence     string
	Status         Status
	Receiver       string
	LevelDB        float64
	ScanGeneration string
	OutputPath     string
	Trimmed        bool
	ReviewReason   string
	Error          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Transition is one recorded status change with its cause.
type Transition struct {
	ID         int64
	RunID      int64
	FromStatus Status
	ToStatus   Status
	Cause      string
	CreatedAt  time.Time
}

// DefaultOccurrence names the late-night broadcast for the given wall clock:
// the calendar date plus the fixed 0048 air time. Runs started shortly after
// midnight and runs started the evening before both resolve to the same
// occurrence because the date only rolls at the air time itself.
func DefaultOccurrence(now time.Time) string {
	local := now
	if local.Hour() >= 12 {
		local = local.Add(24 * time.Hour)
	}
	return local.Format("20060102") + "_0048"
}
