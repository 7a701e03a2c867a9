package testsupport

import (
	"testing"

	"github.com/lazerdave/shipping-forecast-recorder/internal/config"
	"github.com/lazerdave/shipping-forecast-recorder/internal/run"
)

// MustOpenStore opens a run store against the test config and closes it when
// the test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *run.Store {
	t.Helper()
	store, err := run.Open(cfg)
	if err != nil {
		t.Fatalf("open run store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close run store: %v", err)
		}
	})
	return store
}
