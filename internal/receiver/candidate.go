package receiver

import (
	"fmt"
	"strconv"
	"strings"
)

// Candidate identifies one remote receiver endpoint. Candidates are immutable
// once enumerated for a scan pass.
type Candidate struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Location string `json:"location,omitempty"`
}

// Key returns the canonical "host:port" identity used for deduplication and
// historical failure tracking.
func (c Candidate) Key() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Candidate) String() string { return c.Key() }

// ShortHost trims long proxy hostnames for display: a.b.c.d.e -> a.b.c.
func (c Candidate) ShortHost() string {
	parts := strings.Split(c.Host, ".")
	if len(parts) >= 3 {
		return strings.Join(parts[:3], ".")
	}
	if len(parts) == 2 {
		return parts[0]
	}
	return c.Host
}

// ParseCandidate converts a "host:port" endpoint string into a Candidate.
func ParseCandidate(endpoint string) (Candidate, error) {
	trimmed := strings.TrimSpace(endpoint)
	idx := strings.LastIndex(trimmed, ":")
	if idx <= 0 || idx == len(trimmed)-1 {
		return Candidate{}, fmt.Errorf("endpoint %q is not host:port", endpoint)
	}
	port, err := strconv.Atoi(trimmed[idx+1:])
	if err != nil || port <= 0 || port > 65535 {
		return Candidate{}, fmt.Errorf("endpoint %q has invalid port", endpoint)
	}
	return Candidate{Host: trimmed[:idx], Port: port}, nil
}
