package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lazerdave/shipping-forecast-recorder/internal/config"
)

const userAgent = "Forecast-Recorder/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyScanCompleted(ctx context.Context, eligible, ranked int, bestReceiver string) error
	NotifyLowAvailability(ctx context.Context, eligible, expected int) error
	NotifyRecordingCompleted(ctx context.Context, receiver string, duration time.Duration) error
	NotifyPublished(ctx context.Context, outputFile string, trimmed bool) error
	NotifyReviewNeeded(ctx context.Context, outputFile, reason string) error
	NotifyRunFailed(ctx context.Context, err error, stage string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		cfg:      cfg,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	cfg      config.Notifications
}

func (n *ntfyService) NotifyScanCompleted(ctx context.Context, eligible, ranked int, bestReceiver string) error {
	if !n.cfg.Scan {
		return nil
	}
	data := payload{
		title:   "Forecast - Scan Complete",
		message: fmt.Sprintf("Scan ranked %d receivers, %d eligible. Best: %s", ranked, eligible, bestReceiver),
		tags:    []string{"forecast", "scan", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyLowAvailability(ctx context.Context, eligible, expected int) error {
	if !n.cfg.Scan {
		return nil
	}
	data := payload{
		title:    "Forecast - Low Receiver Availability",
		message:  fmt.Sprintf("Only %d eligible receivers (expected at least %d)", eligible, expected),
		tags:     []string{"forecast", "scan", "warning"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRecordingCompleted(ctx context.Context, receiver string, duration time.Duration) error {
	if !n.cfg.Recording {
		return nil
	}
	receiver = strings.TrimSpace(receiver)
	data := payload{
		title:   "Forecast - Recording Complete",
		message: fmt.Sprintf("Recorded %s from %s", duration.Round(time.Second), receiver),
		tags:    []string{"forecast", "recording", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPublished(ctx context.Context, outputFile string, trimmed bool) error {
	if !n.cfg.Recording {
		return nil
	}
	state := "trimmed"
	if !trimmed {
		state = "untrimmed"
	}
	data := payload{
		title:   "Forecast - Published",
		message: fmt.Sprintf("Published %s (%s)", outputFile, state),
		tags:    []string{"forecast", "publish", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReviewNeeded(ctx context.Context, outputFile, reason string) error {
	if !n.cfg.Review {
		return nil
	}
	data := payload{
		title:    "Forecast - Review Needed",
		message:  fmt.Sprintf("Published untrimmed: %s\nReason: %s", outputFile, strings.TrimSpace(reason)),
		tags:     []string{"forecast", "review"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, err error, stage string) error {
	if !n.cfg.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Run failed")
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" during ")
		builder.WriteString(stage)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Forecast - Run Failed",
		message:  builder.String(),
		tags:     []string{"forecast", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Forecast - Test",
		message:  "Notification system test",
		tags:     []string{"forecast", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyScanCompleted(context.Context, int, int, string) error          { return nil }
func (noopService) NotifyLowAvailability(context.Context, int, int) error                { return nil }
func (noopService) NotifyRecordingCompleted(context.Context, string, time.Duration) error { return nil }
func (noopService) NotifyPublished(context.Context, string, bool) error                  { return nil }
func (noopService) NotifyReviewNeeded(context.Context, string, string) error             { return nil }
func (noopService) NotifyRunFailed(context.Context, error, string) error                 { return nil }
func (noopService) TestNotification(context.Context) error                               { return nil }
