package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lazerdave/shipping-forecast-recorder/internal/config"
	"github.com/lazerdave/shipping-forecast-recorder/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default().Notifications
	cfg.NtfyTopic = ""
	svc := notifications.NewService(cfg)
	if err := svc.NotifyPublished(context.Background(), "forecast.wav", true); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type recordedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T, sink *[]recordedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*sink = append(*sink, recordedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
}

func enabledConfig(topic string) config.Notifications {
	cfg := config.Default().Notifications
	cfg.NtfyTopic = topic
	return cfg
}

func TestNtfyServiceFormatsEvents(t *testing.T) {
	var got []recordedRequest
	srv := newNtfyServer(t, &got)
	defer srv.Close()

	svc := notifications.NewService(enabledConfig(srv.URL))
	ctx := context.Background()

	if err := svc.NotifyScanCompleted(ctx, 12, 18, "rx1.example.net:8073"); err != nil {
		t.Fatalf("NotifyScanCompleted: %v", err)
	}
	if err := svc.NotifyRecordingCompleted(ctx, "rx1.example.net:8073", 15*time.Minute); err != nil {
		t.Fatalf("NotifyRecordingCompleted: %v", err)
	}
	if err := svc.NotifyReviewNeeded(ctx, "forecast_20260110.wav", "secondary peak too close to primary"); err != nil {
		t.Fatalf("NotifyReviewNeeded: %v", err)
	}
	if err := svc.NotifyRunFailed(ctx, errors.New("no receivers available"), "scan"); err != nil {
		t.Fatalf("NotifyRunFailed: %v", err)
	}

	if len(got) != 4 {
		t.Fatalf("expected 4 requests, got %d", len(got))
	}
	if got[0].title != "Forecast - Scan Complete" || got[0].tags != "forecast,scan,completed" {
		t.Fatalf("scan notification headers: %+v", got[0])
	}
	if got[1].body != "Recorded 15m0s from rx1.example.net:8073" {
		t.Fatalf("recording body: %q", got[1].body)
	}
	if got[2].priority != "high" {
		t.Fatalf("review priority: %q", got[2].priority)
	}
	if got[3].title != "Forecast - Run Failed" || got[3].priority != "high" {
		t.Fatalf("failure notification headers: %+v", got[3])
	}
}

func TestNtfyServiceHonorsCategoryToggles(t *testing.T) {
	var got []recordedRequest
	srv := newNtfyServer(t, &got)
	defer srv.Close()

	cfg := enabledConfig(srv.URL)
	cfg.Scan = false
	cfg.Review = false
	svc := notifications.NewService(cfg)
	ctx := context.Background()

	if err := svc.NotifyScanCompleted(ctx, 1, 1, "rx"); err != nil {
		t.Fatalf("NotifyScanCompleted: %v", err)
	}
	if err := svc.NotifyReviewNeeded(ctx, "f.wav", "reason"); err != nil {
		t.Fatalf("NotifyReviewNeeded: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("disabled categories must not send, got %d requests", len(got))
	}
}

func TestNtfyServiceReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc := notifications.NewService(enabledConfig(srv.URL))
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
