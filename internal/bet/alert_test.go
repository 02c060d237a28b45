package bet

import (
	"testing"
	"time"
)

func TestAlertsPostAndAutoDismiss(t *testing.T) {
	alerts := NewAlerts(50 * time.Millisecond)
	defer alerts.Close()

	alerts.Post("Insufficient Balance")
	if got := alerts.Current(); got != "Insufficient Balance" {
		t.Fatalf("unexpected alert: %q", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for alerts.Current() != "" {
		if time.Now().After(deadline) {
			t.Fatalf("alert never dismissed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAlertsNewPostResetsDismissal(t *testing.T) {
	alerts := NewAlerts(time.Hour)
	defer alerts.Close()

	alerts.Post("first")
	alerts.Post("second")

	if got := alerts.Current(); got != "second" {
		t.Fatalf("unexpected alert: %q", got)
	}
}
