package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheTurns  = 40
	defaultHistoryLoad = 20
)

type conversationEntry struct {
	turns   []domain.ConversationTurn
	touched time.Time
}

// ConversationMemory keeps a bounded per-agent turn cache in front of the
// durable conversation store. The store may be nil.
type ConversationMemory struct {
	mu    sync.Mutex
	cache map[string]*conversationEntry

	store       domain.ConversationStore
	cacheTurns  int
	historyLoad int
	group       singleflight.Group
	logger      *zap.Logger
}

func NewConversationMemory(store domain.ConversationStore, cacheTurns, historyLoad int, logger *zap.Logger) *ConversationMemory {
	if cacheTurns <= 0 {
		cacheTurns = defaultCacheTurns
	}
	if historyLoad <= 0 {
		historyLoad = defaultHistoryLoad
	}
	return &ConversationMemory{
		cache:       make(map[string]*conversationEntry),
		store:       store,
		cacheTurns:  cacheTurns,
		historyLoad: historyLoad,
		logger:      logger,
	}
}

// History returns the cached turns for agentID, loading durable history on a
// cache miss. Concurrent misses for one agent share a single load.
func (m *ConversationMemory) History(ctx context.Context, agentID string) []domain.ConversationTurn {
	m.mu.Lock()
	if e, ok := m.cache[agentID]; ok {
		e.touched = time.Now()
		out := append([]domain.ConversationTurn(nil), e.turns...)
		m.mu.Unlock()
		return out
	}
	m.mu.Unlock()

	if m.store == nil {
		return nil
	}

	// The load is shared by every waiter, so one caller's cancellation must
	// not fail it for the rest.
	loadCtx := context.WithoutCancel(ctx)
	v, _, _ := m.group.Do(agentID, func() (interface{}, error) {
		turns, err := m.store.RecentTurns(loadCtx, agentID, m.historyLoad)
		if err != nil {
			m.logger.Warn("failed to load conversation history", zap.String("agent_id", agentID), zap.Error(err))
			return []domain.ConversationTurn(nil), nil
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if e, ok := m.cache[agentID]; ok {
			// A Record landed while loading; keep what it wrote.
			return append([]domain.ConversationTurn(nil), e.turns...), nil
		}
		m.cache[agentID] = &conversationEntry{turns: m.trim(turns), touched: time.Now()}
		return append([]domain.ConversationTurn(nil), turns...), nil
	})
	turns, _ := v.([]domain.ConversationTurn)
	return turns
}

// Record appends one user/assistant exchange to the cache and the durable
// store. Store failures are logged, never returned.
func (m *ConversationMemory) Record(ctx context.Context, agentID, userText, assistantText string) {
	now := time.Now().UTC()
	turns := []domain.ConversationTurn{
		{Role: domain.TurnRoleUser, Content: userText, CreatedAt: now},
		{Role: domain.TurnRoleAssistant, Content: assistantText, CreatedAt: now},
	}

	m.mu.Lock()
	e, ok := m.cache[agentID]
	if !ok {
		e = &conversationEntry{}
		m.cache[agentID] = e
	}
	e.turns = m.trim(append(e.turns, turns...))
	e.touched = time.Now()
	m.mu.Unlock()

	if m.store == nil {
		return
	}
	for _, t := range turns {
		if err := m.store.AppendTurn(ctx, agentID, t); err != nil {
			m.logger.Warn("failed to persist conversation turn", zap.String("agent_id", agentID), zap.Error(err))
			return
		}
	}
}

func (m *ConversationMemory) trim(turns []domain.ConversationTurn) []domain.ConversationTurn {
	if len(turns) > m.cacheTurns {
		turns = turns[len(turns)-m.cacheTurns:]
	}
	return append([]domain.ConversationTurn(nil), turns...)
}

// Evict drops cache entries untouched for longer than idle.
func (m *ConversationMemory) Evict(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, e := range m.cache {
		if e.touched.Before(cutoff) {
			delete(m.cache, id)
			n++
		}
	}
	return n
}

func (m *ConversationMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}

// RenderPrompt prefixes text with prior turns, oldest first.
func RenderPrompt(history []domain.ConversationTurn, text string) string {
	if len(history) == 0 {
		return text
	}
	var b strings.Builder
	b.WriteString("Prior conversation (most recent last):\n")
	for _, t := range history {
		if t.Role == domain.TurnRoleAssistant {
			b.WriteString("Assistant: ")
		} else {
			b.WriteString("User: ")
		}
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	b.WriteString("\nUser: ")
	b.WriteString(text)
	return b.String()
}
