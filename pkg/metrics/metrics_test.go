package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Manager) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestManager_RecordsSignalMetrics(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.RecordPublish("user.created", "sync")
	m.RecordPublish("user.created", "sync")
	m.RecordDelivery("user.created", "sync")
	m.RecordError("user.created", "panic")
	m.ObserveSubscribers("user.created", 3)
	m.ObservePublishDuration("user.created", "sync", 5*time.Millisecond)

	body := scrape(t, m)

	checks := []string{
		`signal_publishes_total{mode="sync",signal="user.created"} 2`,
		`signal_deliveries_total{mode="sync",signal="user.created"} 1`,
		`signal_errors_total{reason="panic",signal="user.created"} 1`,
		`signal_subscribers{signal="user.created"} 3`,
		`signal_publish_duration_seconds_count{mode="sync",signal="user.created"} 1`,
	}
	for _, want := range checks {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestManager_Disabled(t *testing.T) {
	m := NoOpManager()

	if m.Enabled() {
		t.Error("expected disabled manager")
	}

	// Recording on a disabled manager must not panic.
	m.RecordPublish("s", "sync")
	m.RecordDelivery("s", "sync")
	m.RecordError("s", "error")
	m.ObserveSubscribers("s", 1)
	m.ObservePublishDuration("s", "sync", time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 from disabled handler, got %d", resp.StatusCode)
	}
}

func TestManager_GoCollectorRegistered(t *testing.T) {
	m := NewManager(DefaultConfig())
	body := scrape(t, m)
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected Go runtime metrics to be registered")
	}
}
