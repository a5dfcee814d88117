package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/Harshitk-cp/orgbrain/internal/llm"
	"github.com/Harshitk-cp/orgbrain/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const classifyInfra = `{"event_type":"decision_signal","topic":"infra migration","confidence":0.9,"private_note":"wants a plan"}`

type testEnv struct {
	svc   *ReasoningService
	llm   *llm.MockClient
	graph *store.MemoryGraph
	rag   *store.LexicalRetriever
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		llm:   llm.NewMockClient(),
		graph: store.NewMemoryGraph(),
		rag:   store.NewLexicalRetriever(),
	}
	env.svc = NewReasoningService(Deps{
		Completion:    env.llm,
		Graph:         env.graph,
		Conversations: env.graph,
		Retriever:     env.rag,
		Logger:        zap.NewNop(),
	})
	return env
}

func TestAsk_RequiresIdentityAndText(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Ask(ctx, "", "hello")
	assert.ErrorIs(t, err, ErrMissingIdentity)

	_, err = env.svc.Ask(ctx, "employee_bob", "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, 0, env.llm.CallCount())
}

func TestAsk_ProseWrappedJSONYieldsTrace(t *testing.T) {
	env := newTestEnv(t)
	env.llm.Enqueue(
		"Here is my classification: "+classifyInfra+" thanks",
		`Okay! {"decision":"migrate","summary":"Move to the new cluster","rationale":"cost","evidence":["bill"],"assumptions":[],"response_text":"Plan approved.","confidence":0.7,"routing":{"employee_bob":"full"},"org_updates":{"infra_plan":"new cluster"}} done`,
	)

	res, err := env.svc.Ask(context.Background(), "employee_bob", "Should we migrate?")
	require.NoError(t, err)
	require.NotNil(t, res.Trace)

	tr := res.Trace
	assert.Equal(t, "Plan approved.", res.ResponseText)
	assert.NotEmpty(t, tr.DecisionID)
	assert.Equal(t, "infra migration", tr.Topic)
	assert.Equal(t, int64(1), tr.Version)
	assert.Equal(t, []string{"employee_bob"}, tr.AgentsInvolved)
	assert.Len(t, tr.TriggerEvents, 1)
	assert.NotEmpty(t, tr.GraphUpdates.Nodes)
	assert.Equal(t, domain.VisibilityFull, tr.Routing["employee_bob"])

	assert.Equal(t, "new cluster", env.svc.TruthSnapshot()["infra_plan"])
	assert.Equal(t, 1, env.svc.TraceCount())

	notes := env.svc.PrivateNotes("employee_bob")
	require.Len(t, notes, 1)
	assert.Equal(t, "wants a plan", notes[0].Content)

	current, err := env.graph.CurrentVersions(context.Background(), domain.KindTruth, 0)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "org_truth", current[0].ObjectTag)
}

func TestAsk_FallbackStillProducesTrace(t *testing.T) {
	env := newTestEnv(t)
	env.llm.Enqueue("not json", "We should probably wait.")

	res, err := env.svc.Ask(context.Background(), "employee_sarah", "thoughts on the offsite?")
	require.NoError(t, err)
	require.NotNil(t, res.Trace)
	assert.Equal(t, "We should probably wait.", res.ResponseText)
	assert.Equal(t, "general", res.Trace.Topic)
	assert.NotEmpty(t, res.Trace.DecisionID)
	assert.Empty(t, res.Trace.Evidence)
}

func TestAsk_ReusedDecisionIDAdvancesVersion(t *testing.T) {
	env := newTestEnv(t)
	synth := `{"decision_id":"launch","decision":"go","summary":"Launch","response_text":"ok"}`
	env.llm.Enqueue(classifyInfra, synth, classifyInfra, synth)

	ctx := context.Background()
	first, err := env.svc.Ask(ctx, "employee_bob", "launch?")
	require.NoError(t, err)
	second, err := env.svc.Ask(ctx, "employee_john", "launch now?")
	require.NoError(t, err)

	assert.Equal(t, "launch", first.Trace.DecisionID)
	assert.Equal(t, int64(1), first.Trace.Version)
	assert.Equal(t, int64(2), second.Trace.Version)

	history, err := env.svc.History(ctx, domain.KindDecision, "launch")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Current)
	assert.False(t, history[1].Current)
}

func TestAsk_ConversationContextReachesClassifier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Ask(ctx, "employee_bob", "first question")
	require.NoError(t, err)
	_, err = env.svc.Ask(ctx, "employee_bob", "second question")
	require.NoError(t, err)

	// calls: classify, synthesize, classify, synthesize
	require.Equal(t, 4, env.llm.CallCount())
	assert.Contains(t, env.llm.Calls[2].User, "User: first question")
	assert.Contains(t, env.llm.Calls[2].User, "Assistant: Noted.")

	turns, err := env.graph.RecentTurns(ctx, "employee_bob", 10)
	require.NoError(t, err)
	assert.Len(t, turns, 4)
}

func TestAsk_PersistFailureStillReturnsTrace(t *testing.T) {
	env := newTestEnv(t)
	env.graph.FailWrites = errors.New("graph unreachable")
	env.llm.Enqueue(classifyInfra, `{"decision_id":"d-1","decision":"x","summary":"s","response_text":"r","org_updates":{"t":"v"}}`)

	res, err := env.svc.Ask(context.Background(), "employee_bob", "hi")
	require.NoError(t, err)
	require.NotNil(t, res.Trace)
	assert.Equal(t, int64(1), res.Trace.Version)
	assert.Empty(t, res.Trace.GraphUpdates.Nodes)
	assert.Equal(t, 1, env.svc.TraceCount())
	assert.Equal(t, "v", env.svc.TruthSnapshot()["t"])
}

func TestAsk_PublishesToSubscribers(t *testing.T) {
	env := newTestEnv(t)
	sub := env.svc.Subscribe("employee_john")
	defer env.svc.Unsubscribe(sub)

	res, err := env.svc.Ask(context.Background(), "employee_bob", "status update")
	require.NoError(t, err)

	got := receive(t, sub)
	assert.Equal(t, res.Trace.DecisionID, got.DecisionID)
}

func TestIngest_VersionChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.Ingest(ctx, IngestRequest{TruthID: "pricing_policy", Kind: "policy", Content: "X"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)
	assert.Equal(t, "knowledge", first.Topic)
	assert.Equal(t, "knowledge_ingest", first.Rationale)
	assert.Equal(t, []string{"employee_1"}, first.AgentsInvolved)

	second, err := env.svc.Ingest(ctx, IngestRequest{TruthID: "pricing_policy", Kind: "other", Content: "Y", AgentID: "employee_sarah"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)

	current, err := env.svc.CurrentVersions(ctx, domain.KindTruth, 0)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "Y", current[0].Summary)
	assert.Equal(t, int64(2), current[0].Version)
	assert.Equal(t, "policy", current[0].ObjectTag)

	history, err := env.svc.History(ctx, domain.KindTruth, "pricing_policy")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "X", history[1].Summary)

	snippets, err := env.rag.Search(ctx, "Y", 1)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "pricing_policy", snippets[0].ID)
}

func TestIngest_SkipRetrieval(t *testing.T) {
	env := newTestEnv(t)
	no := false
	_, err := env.svc.Ingest(context.Background(), IngestRequest{TruthID: "t", Kind: "k", Content: "c", AddToRetrieval: &no})
	require.NoError(t, err)

	n, err := env.rag.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIngest_Validation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Ingest(context.Background(), IngestRequest{TruthID: " ", Kind: "k"})
	assert.ErrorIs(t, err, ErrInvalidIngest)
}

func TestIngest_ConcurrentSameTruth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.svc.Ingest(ctx, IngestRequest{TruthID: "handbook", Kind: "doc", Content: fmt.Sprintf("rev %d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	next, err := env.graph.NextVersion(ctx, domain.KindTruth, "handbook")
	require.NoError(t, err)
	assert.Equal(t, int64(21), next)
}

func TestGraphReads_WithoutGraph(t *testing.T) {
	svc := NewReasoningService(Deps{Completion: llm.NewMockClient()})
	ctx := context.Background()

	_, err := svc.Snapshot(ctx, 10)
	assert.ErrorIs(t, err, ErrGraphUnavailable)
	_, err = svc.CurrentVersions(ctx, domain.KindDecision, 10)
	assert.ErrorIs(t, err, ErrGraphUnavailable)

	// ask and ingest degrade instead of failing
	res, err := svc.Ask(ctx, "employee_bob", "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Trace.Version)

	tr, err := svc.Ingest(ctx, IngestRequest{TruthID: "a", Kind: "b", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), tr.Version)
}

func TestTracesFor_Redacts(t *testing.T) {
	env := newTestEnv(t)
	env.llm.Enqueue(classifyInfra, `{"decision":"d","summary":"s","evidence":["e"],"assumptions":["a"],"response_text":"r"}`)
	_, err := env.svc.Ask(context.Background(), "employee_bob", "infra?")
	require.NoError(t, err)

	bob := env.svc.TracesFor("employee_bob", 10)
	require.Len(t, bob, 1)
	assert.Empty(t, bob[0].Evidence)

	sarah := env.svc.TracesFor("employee_sarah", 10)
	assert.Empty(t, sarah)

	all := env.svc.Traces(0)
	require.Len(t, all, 1)
	assert.Equal(t, []string{"e"}, all[0].Evidence)
}

func TestHydrateTruth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.svc.Ingest(ctx, IngestRequest{TruthID: "pto", Kind: "policy", Content: "20 days"})
	require.NoError(t, err)

	fresh := NewReasoningService(Deps{Completion: env.llm, Graph: env.graph})
	n, err := fresh.HydrateTruth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "20 days", fresh.TruthSnapshot()["pto"])
}

func TestHydrateTruth_LoadsEveryTruth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 250; i++ {
		_, err := env.svc.Ingest(ctx, IngestRequest{TruthID: fmt.Sprintf("t%03d", i), Kind: "doc", Content: "c"})
		require.NoError(t, err)
	}

	fresh := NewReasoningService(Deps{Completion: env.llm, Graph: env.graph})
	n, err := fresh.HydrateTruth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 250, n)
	assert.Len(t, fresh.TruthSnapshot(), 250)
}

func TestSynthesizeBatch_EmptyBatchIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	sub := env.svc.Subscribe("employee_john")
	defer env.svc.Unsubscribe(sub)

	trace, syn := env.svc.synthesizeBatch(context.Background(), env.svc.bus.Drain())
	assert.Nil(t, trace)
	assert.True(t, syn.Empty)
	assert.Zero(t, env.llm.CallCount())
	assert.Zero(t, env.svc.TraceCount())
	assert.Empty(t, sub.C())

	snap, err := env.graph.Snapshot(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, snap.Nodes)
}
