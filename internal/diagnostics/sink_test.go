package diagnostics

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLossIsRateLimitedPerKey(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s := New(logger)

	for i := 0; i < 10; i++ {
		s.Loss("edge", "e1", "api", 1)
	}
	out := buf.String()
	n := strings.Count(out, "sequence loss detected")
	if n == 0 {
		t.Fatalf("expected at least one log line, got none")
	}
	if n >= 10 {
		t.Fatalf("expected rate limiting to suppress some lines, got %d for 10 calls", n)
	}
}

func TestDistinctKeysHaveIndependentLimiters(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s := New(logger)

	s.Loss("edge", "e1", "api", 1)
	s.Loss("edge", "e2", "api", 1)
	out := buf.String()
	if strings.Count(out, "sequence loss detected") != 2 {
		t.Fatalf("expected both distinct keys to log once each, got: %s", out)
	}
}

func TestNilLoggerDefaultsWithoutPanic(t *testing.T) {
	s := New(nil)
	s.CapacityExceeded("node-1")
}
