package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/lazerdave/shipping-forecast-recorder/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrTransient, "probe", "screen", "host unreachable", base)

	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected error to match ErrTransient, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to be preserved, got %v", err)
	}
	for _, want := range []string{"probe", "screen", "host unreachable"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in error message %q", want, err.Error())
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrNoReceivers, "scan", "rank", "zero survivors", nil)
	if !errors.Is(err, services.ErrNoReceivers) {
		t.Fatalf("expected ErrNoReceivers, got %v", err)
	}
	if errors.Is(err, services.ErrTransient) {
		t.Fatal("unexpected marker match")
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", errors.New("boom"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected nil marker to default to ErrTransient, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}
