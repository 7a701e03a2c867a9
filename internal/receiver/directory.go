package receiver

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/lazerdave/shipping-forecast-recorder/internal/logging"
)

// Directory supplies the candidate receiver set for a scan pass: a static
// seed list, optionally refreshed from one or more discovery feeds. Feed
// failures degrade to seeds only.
type Directory struct {
	seeds        []Candidate
	feeds        []string
	keywords     []string
	hostHints    []string
	allowedPorts map[int]struct{}

	client  *http.Client
	parser  *gofeed.Parser
	shuffle func(n int, swap func(i, j int))
	logger  *slog.Logger
}

// DirectoryOption configures optional Directory behavior.
type DirectoryOption func(*Directory)

// WithHTTPClient overrides the feed-fetching HTTP client.
func WithHTTPClient(client *http.Client) DirectoryOption {
	return func(d *Directory) { d.client = client }
}

// WithShuffle overrides candidate shuffling (tests use a no-op).
func WithShuffle(shuffle func(n int, swap func(i, j int))) DirectoryOption {
	return func(d *Directory) { d.shuffle = shuffle }
}

// NewDirectory builds a Directory from seed endpoints and discovery feeds.
// Malformed seeds are skipped.
func NewDirectory(seedHosts, feeds, keywords, hostHints []string, allowedPorts []int, logger *slog.Logger, opts ...DirectoryOption) *Directory {
	seeds := make([]Candidate, 0, len(seedHosts))
	for _, endpoint := range seedHosts {
		cand, err := ParseCandidate(endpoint)
		if err != nil {
			continue
		}
		seeds = append(seeds, cand)
	}

	ports := make(map[int]struct{}, len(allowedPorts))
	for _, p := range allowedPorts {
		ports[p] = struct{}{}
	}

	d := &Directory{
		seeds:        seeds,
		feeds:        feeds,
		keywords:     keywords,
		hostHints:    hostHints,
		allowedPorts: ports,
		client:       &http.Client{Timeout: 15 * time.Second},
		parser:       gofeed.NewParser(),
		shuffle:      rand.Shuffle,
		logger:       logging.WithComponent(logger, "directory"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Candidates enumerates the pool for one scan pass: discovered endpoints
// merged with seeds, deduplicated, shuffled. Never returns an error; an empty
// pool is the caller's signal.
func (d *Directory) Candidates(ctx context.Context) []Candidate {
	discovered := d.discover(ctx)

	merged := make([]Candidate, 0, len(discovered)+len(d.seeds))
	seen := make(map[string]struct{}, len(discovered)+len(d.seeds))
	for _, cand := range append(discovered, d.seeds...) {
		if _, ok := seen[cand.Key()]; ok {
			continue
		}
		seen[cand.Key()] = struct{}{}
		merged = append(merged, cand)
	}

	d.shuffle(len(merged), func(i, j int) {
		merged[i], merged[j] = merged[j], merged[i]
	})
	return merged
}

func (d *Directory) discover(ctx context.Context) []Candidate {
	var found []Candidate
	for _, feedURL := range d.feeds {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
		if err != nil {
			continue
		}
		resp, err := d.client.Do(req)
		if err != nil {
			d.logger.Warn("discovery feed unavailable", logging.String("feed", feedURL), logging.Error(err))
			continue
		}
		feed, err := d.parser.Parse(resp.Body)
		resp.Body.Close()
		if err != nil {
			d.logger.Warn("discovery feed unparsable", logging.String("feed", feedURL), logging.Error(err))
			continue
		}

		for _, item := range feed.Items {
			cand, ok := d.candidateFromItem(item)
			if !ok {
				continue
			}
			found = append(found, cand)
		}
	}
	if len(found) > 0 {
		d.logger.Info("discovery feeds yielded candidates", logging.Int("count", len(found)))
	}
	return found
}

// candidateFromItem extracts a receiver endpoint from a feed item link and
// applies the region filter: either the item text mentions a configured
// location keyword, or the hostname carries a configured suffix hint.
func (d *Directory) candidateFromItem(item *gofeed.Item) (Candidate, bool) {
	if item == nil || item.Link == "" {
		return Candidate{}, false
	}
	parsed, err := url.Parse(item.Link)
	if err != nil || parsed.Host == "" {
		return Candidate{}, false
	}
	cand, err := ParseCandidate(parsed.Host)
	if err != nil {
		return Candidate{}, false
	}
	if len(d.allowedPorts) > 0 {
		if _, ok := d.allowedPorts[cand.Port]; !ok {
			return Candidate{}, false
		}
	}

	text := item.Title + " " + item.Description
	keywordHit := false
	for _, k := range d.keywords {
		if strings.Contains(text, k) {
			keywordHit = true
			cand.Location = k
			break
		}
	}
	hintHit := false
	lowerHost := strings.ToLower(cand.Host)
	for _, hint := range d.hostHints {
		if strings.Contains(lowerHost, hint) {
			hintHit = true
			break
		}
	}
	if !keywordHit && !hintHit {
		return Candidate{}, false
	}
	return cand, true
}
