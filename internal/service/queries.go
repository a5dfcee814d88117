package service

import (
	"context"
	"time"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
)

const defaultTraceLimit = 50

// RoleOf reports the directory role for agentID.
func (s *ReasoningService) RoleOf(agentID string) domain.Role {
	return s.router.Directory().RoleOf(agentID)
}

func (s *ReasoningService) Router() *VisibilityRouter {
	return s.router
}

// Traces returns the unredacted log, most recent first.
func (s *ReasoningService) Traces(limit int) []*domain.ReasoningTrace {
	if limit <= 0 {
		limit = defaultTraceLimit
	}
	return s.traces.List(limit)
}

// TracesFor returns the traces viewer may see, redacted, most recent first.
// Traces resolving to none are skipped and do not count toward limit.
func (s *ReasoningService) TracesFor(viewer string, limit int) []*domain.ReasoningTrace {
	if limit <= 0 {
		limit = defaultTraceLimit
	}
	return s.traces.Filter(limit, func(t *domain.ReasoningTrace) (*domain.ReasoningTrace, bool) {
		return s.router.Redact(t, viewer)
	})
}

func (s *ReasoningService) TraceCount() int {
	return s.traces.Len()
}

func (s *ReasoningService) Subscribe(viewer string) *Subscription {
	return s.broadcaster.Subscribe(viewer)
}

func (s *ReasoningService) Unsubscribe(sub *Subscription) {
	s.broadcaster.Unsubscribe(sub)
}

func (s *ReasoningService) SubscriberCount() int {
	return s.broadcaster.SubscriberCount()
}

func (s *ReasoningService) GraphAvailable() bool {
	return s.graph != nil
}

func (s *ReasoningService) PingGraph(ctx context.Context) error {
	if s.graph == nil {
		return ErrGraphUnavailable
	}
	return s.graph.Ping(ctx)
}

func (s *ReasoningService) Snapshot(ctx context.Context, limit int) (*domain.Snapshot, error) {
	if s.graph == nil {
		return nil, ErrGraphUnavailable
	}
	if limit <= 0 {
		limit = defaultSnapshotSize
	}
	return s.graph.Snapshot(ctx, limit)
}

func (s *ReasoningService) AgentSnapshot(ctx context.Context, agentID string, limit int) (*domain.Snapshot, error) {
	if s.graph == nil {
		return nil, ErrGraphUnavailable
	}
	if limit <= 0 {
		limit = defaultSnapshotSize
	}
	return s.graph.AgentSnapshot(ctx, agentID, limit)
}

func (s *ReasoningService) CurrentVersions(ctx context.Context, kind domain.ObjectKind, limit int) ([]domain.ObjectVersion, error) {
	if s.graph == nil {
		return nil, ErrGraphUnavailable
	}
	if limit <= 0 {
		limit = defaultCurrentSize
	}
	return s.graph.CurrentVersions(ctx, kind, limit)
}

func (s *ReasoningService) History(ctx context.Context, kind domain.ObjectKind, objectID string) ([]domain.ObjectVersion, error) {
	if s.graph == nil {
		return nil, ErrGraphUnavailable
	}
	return s.graph.History(ctx, kind, objectID)
}

func (s *ReasoningService) SpeechEnabled() bool {
	return s.speech != nil
}

// Transcribe turns caller audio into text.
func (s *ReasoningService) Transcribe(ctx context.Context, audio []byte, mime string) (string, error) {
	if s.speech == nil {
		return "", ErrSpeechDisabled
	}
	return s.speech.Transcribe(ctx, audio, mime)
}

// Speak renders a response as audio.
func (s *ReasoningService) Speak(ctx context.Context, text string) ([]byte, string, error) {
	if s.speech == nil {
		return nil, "", ErrSpeechDisabled
	}
	return s.speech.Synthesize(ctx, text)
}

// EvictConversations drops idle per-agent caches.
func (s *ReasoningService) EvictConversations(idle time.Duration) int {
	return s.conversations.Evict(idle)
}
