package service

import (
	"sync"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
)

// TraceLog is the append-only in-memory trace history.
type TraceLog struct {
	mu     sync.RWMutex
	traces []*domain.ReasoningTrace
}

func NewTraceLog() *TraceLog {
	return &TraceLog{}
}

func (l *TraceLog) Append(t *domain.ReasoningTrace) {
	l.mu.Lock()
	l.traces = append(l.traces, t)
	l.mu.Unlock()
}

func (l *TraceLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.traces)
}

// List returns up to limit traces, most recent first. limit <= 0 means all.
func (l *TraceLog) List(limit int) []*domain.ReasoningTrace {
	return l.Filter(limit, func(t *domain.ReasoningTrace) (*domain.ReasoningTrace, bool) {
		return t, true
	})
}

// Filter walks most-recent-first, keeping what keep accepts (possibly
// transformed) until limit results are collected.
func (l *TraceLog) Filter(limit int, keep func(*domain.ReasoningTrace) (*domain.ReasoningTrace, bool)) []*domain.ReasoningTrace {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []*domain.ReasoningTrace{}
	for i := len(l.traces) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if t, ok := keep(l.traces[i]); ok {
			out = append(out, t)
		}
	}
	return out
}
