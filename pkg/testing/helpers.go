package testing

import (
	"testing"
	"time"
)

// AssertEventually fails the test unless condition becomes true within timeout.
// Used for side effects that run in background goroutines.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return
		}
		<-ticker.C
		if time.Now().After(deadline) {
			t.Fatalf("Condition not met within timeout: %s", message)
			return
		}
	}
}

// AssertNever fails the test if condition becomes true within window.
func AssertNever(t *testing.T, condition func() bool, window time.Duration, message string) {
	t.Helper()
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		if condition() {
			t.Fatalf("Condition unexpectedly met: %s", message)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}
