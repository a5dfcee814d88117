package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockConversationStore mocks the ConversationStore interface.
type MockConversationStore struct {
	mock.Mock
}

func (m *MockConversationStore) AppendTurn(ctx context.Context, agentID string, turn domain.ConversationTurn) error {
	args := m.Called(ctx, agentID, turn)
	return args.Error(0)
}

func (m *MockConversationStore) RecentTurns(ctx context.Context, agentID string, limit int) ([]domain.ConversationTurn, error) {
	args := m.Called(ctx, agentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ConversationTurn), args.Error(1)
}

func TestConversationMemory_LoadsOnceOnMiss(t *testing.T) {
	ctx := context.Background()
	store := new(MockConversationStore)
	stored := []domain.ConversationTurn{
		{Role: domain.TurnRoleUser, Content: "hi"},
		{Role: domain.TurnRoleAssistant, Content: "hello"},
	}
	store.On("RecentTurns", mock.Anything, "employee_bob", 20).Return(stored, nil).Once()

	m := NewConversationMemory(store, 40, 20, zap.NewNop())
	assert.Equal(t, stored, m.History(ctx, "employee_bob"))
	assert.Equal(t, stored, m.History(ctx, "employee_bob"))

	store.AssertExpectations(t)
}

func TestConversationMemory_CancelledCallerStillLoads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := new(MockConversationStore)
	stored := []domain.ConversationTurn{{Role: domain.TurnRoleUser, Content: "hi"}}
	live := mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil })
	store.On("RecentTurns", live, "employee_bob", 20).Return(stored, nil).Once()

	m := NewConversationMemory(store, 40, 20, zap.NewNop())
	assert.Equal(t, stored, m.History(ctx, "employee_bob"))
	// Cached for later callers; no second load.
	assert.Equal(t, stored, m.History(context.Background(), "employee_bob"))

	store.AssertExpectations(t)
}

func TestConversationMemory_RecordPersistsAndTrims(t *testing.T) {
	ctx := context.Background()
	store := new(MockConversationStore)
	store.On("AppendTurn", ctx, "employee_bob", mock.AnythingOfType("domain.ConversationTurn")).Return(nil)

	m := NewConversationMemory(store, 4, 20, zap.NewNop())
	for i := 0; i < 3; i++ {
		m.Record(ctx, "employee_bob", "q", "a")
	}

	got := m.History(ctx, "employee_bob")
	assert.Len(t, got, 4)
	assert.Equal(t, domain.TurnRoleUser, got[0].Role)
	store.AssertNumberOfCalls(t, "AppendTurn", 6)
}

func TestConversationMemory_StoreFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	store := new(MockConversationStore)
	store.On("RecentTurns", mock.Anything, "employee_sarah", 20).Return(nil, errors.New("db down"))
	store.On("AppendTurn", ctx, "employee_sarah", mock.Anything).Return(errors.New("db down"))

	m := NewConversationMemory(store, 40, 20, zap.NewNop())
	assert.Empty(t, m.History(ctx, "employee_sarah"))

	m.Record(ctx, "employee_sarah", "q", "a")
	assert.Len(t, m.History(ctx, "employee_sarah"), 2)
}

func TestConversationMemory_NilStoreAndEvict(t *testing.T) {
	ctx := context.Background()
	m := NewConversationMemory(nil, 0, 0, zap.NewNop())
	assert.Empty(t, m.History(ctx, "employee_bob"))

	m.Record(ctx, "employee_bob", "q", "a")
	assert.Equal(t, 1, m.Len())

	assert.Equal(t, 0, m.Evict(time.Hour))
	assert.Equal(t, 1, m.Evict(-time.Second))
	assert.Equal(t, 0, m.Len())
}

func TestRenderPrompt(t *testing.T) {
	assert.Equal(t, "hello", RenderPrompt(nil, "hello"))

	got := RenderPrompt([]domain.ConversationTurn{
		{Role: domain.TurnRoleUser, Content: "q1"},
		{Role: domain.TurnRoleAssistant, Content: "a1"},
	}, "q2")
	assert.True(t, strings.HasPrefix(got, "Prior conversation (most recent last):\n"))
	assert.Contains(t, got, "User: q1\nAssistant: a1\n")
	assert.True(t, strings.HasSuffix(got, "User: q2"))
}
