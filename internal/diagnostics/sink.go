// Package diagnostics is the ingest path's side-channel for non-fatal
// events: sequence loss, capacity drops, and codec/socket errors
// (spec.md §4.D step 5, §7). It logs through log/slog and rate-limits
// per-key so a persistent condition (a loss storm on one edge) produces
// bounded log volume instead of flooding output.
package diagnostics

import (
	"log/slog"
	"sync"

	"golang.org/x/time/rate"
)

// defaultLimitPerSecond and defaultBurst cap each distinct key to one log
// line per second,
// bursting up to 3, matching the "don't let one noisy edge dominate the
// log" goal without suppressing isolated events entirely.
const (
	defaultLimitPerSecond = 1
	defaultBurst          = 3
)

// Sink logs diagnostic events, rate-limited per key.
type Sink struct {
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New returns a Sink that logs through logger (or slog.Default() if nil).
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger, limiters: make(map[string]*rate.Limiter)}
}

func (s *Sink) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	lim, ok := s.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(defaultLimitPerSecond), defaultBurst)
		s.limiters[key] = lim
	}
	return lim.Allow()
}

// Loss logs a sequence-gap event for the given scope (e.g. "edge" or
// "node") and key.
func (s *Sink) Loss(scope, key string, class string, count uint32) {
	if !s.allow("loss:" + scope + ":" + key) {
		return
	}
	s.logger.Warn("sequence loss detected", "scope", scope, "id", key, "class", class, "count", count)
}

// CapacityExceeded logs a dropped new-node creation due to max_nodes.
func (s *Sink) CapacityExceeded(nodeID string) {
	if !s.allow("capacity") {
		return
	}
	s.logger.Warn("node capacity exceeded, dropping new node", "node_id", nodeID)
}

// CodecError logs a malformed inbound frame.
func (s *Sink) CodecError(addr string, err error) {
	if !s.allow("codec:" + addr) {
		return
	}
	s.logger.Debug("discarding malformed frame", "addr", addr, "error", err)
}

// SocketError logs a non-WouldBlock socket I/O error.
func (s *Sink) SocketError(op string, err error) {
	if !s.allow("socket:" + op) {
		return
	}
	s.logger.Warn("socket error", "op", op, "error", err)
}
