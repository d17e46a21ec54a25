package instance

import "testing"

func TestGetIDPrefersConfiguredWorkerID(t *testing.T) {
	t.Setenv("TRADEIN_WORKER_ID", " cron-a ")
	t.Setenv("WORKER_ID", "legacy")
	if got := GetID(); got != "cron-a" {
		t.Fatalf("expected cron-a, got %q", got)
	}

	t.Setenv("TRADEIN_WORKER_ID", "")
	if got := GetID(); got != "legacy" {
		t.Fatalf("expected legacy fallback, got %q", got)
	}

	t.Setenv("WORKER_ID", "")
	if got := GetID(); got == "" {
		t.Fatalf("expected host name or default id")
	}
}
