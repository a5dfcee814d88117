package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func truthWrite(id, content string) domain.VersionWrite {
	return domain.VersionWrite{
		Kind:           domain.KindTruth,
		ObjectID:       id,
		Summary:        content,
		Tag:            "policy",
		Confidence:     1.0,
		TriggerEvents:  []string{"evt-1"},
		AgentsInvolved: []string{"employee_sarah"},
		Routing:        map[string]domain.VisibilityLevel{"employee_sarah": domain.VisibilityFull, "employee_bob": domain.VisibilityNone},
	}
}

func countEdges(snap *domain.Snapshot, typ string, from int64) int {
	n := 0
	for _, e := range snap.Edges {
		if e.Type == typ && e.From == from {
			n++
		}
	}
	return n
}

func TestMemoryGraph_NextVersionAfterPersists(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()

	v, err := g.NextVersion(ctx, domain.KindDecision, "d1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	for i := 1; i <= 4; i++ {
		res, err := g.AppendVersion(ctx, domain.VersionWrite{Kind: domain.KindDecision, ObjectID: "d1", Summary: "s", Tag: "ship"})
		require.NoError(t, err)
		assert.Equal(t, int64(i), res.Version)
	}

	v, _ = g.NextVersion(ctx, domain.KindDecision, "d1")
	assert.Equal(t, int64(5), v)

	// Chains are per kind.
	v, _ = g.NextVersion(ctx, domain.KindTruth, "d1")
	assert.Equal(t, int64(1), v)
}

func TestMemoryGraph_PersistRejectsStaleVersion(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()

	w := truthWrite("pricing_policy", "X")
	w.Version = 1
	_, err := g.PersistVersion(ctx, w)
	require.NoError(t, err)

	_, err = g.PersistVersion(ctx, w)
	assert.True(t, errors.Is(err, ErrVersionConflict), "expected version conflict, got %v", err)

	w.Version = 3
	_, err = g.PersistVersion(ctx, w)
	assert.ErrorIs(t, err, ErrVersionConflict)

	w.Version = 2
	_, err = g.PersistVersion(ctx, w)
	assert.NoError(t, err)
}

func TestMemoryGraph_IngestChain(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()

	first, err := g.AppendVersion(ctx, truthWrite("pricing_policy", "X"))
	require.NoError(t, err)
	second, err := g.AppendVersion(ctx, truthWrite("pricing_policy", "Y"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)

	current, err := g.CurrentVersions(ctx, domain.KindTruth, 10)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "Y", current[0].Summary)
	assert.Equal(t, int64(2), current[0].Version)
	assert.Equal(t, "pricing_policy:v2", current[0].VersionID)
	assert.Equal(t, "policy", current[0].ObjectTag)
	assert.Equal(t, []string{"employee_sarah"}, current[0].RoutingAgents)

	history, err := g.History(ctx, domain.KindTruth, "pricing_policy")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Y", history[0].Summary)
	assert.True(t, history[0].Current)
	assert.Equal(t, "X", history[1].Summary)
	assert.False(t, history[1].Current)

	snap, err := g.Snapshot(ctx, 0)
	require.NoError(t, err)

	objID := first.NodeIDs[0]
	v1ID := first.NodeIDs[1]
	v2ID := second.NodeIDs[1]
	assert.Equal(t, 1, countEdges(snap, domain.EdgeCurrent, objID))
	assert.Equal(t, 1, countEdges(snap, domain.EdgeSupersedes, v2ID))
	assert.Equal(t, 0, countEdges(snap, domain.EdgeSupersedes, v1ID))
	for _, e := range snap.Edges {
		if e.Type == domain.EdgeCurrent && e.From == objID {
			assert.Equal(t, v2ID, e.To)
		}
		if e.Type == domain.EdgeSupersedes {
			assert.Equal(t, v1ID, e.To)
		}
	}
}

func TestMemoryGraph_KindSetOnce(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()

	_, err := g.AppendVersion(ctx, truthWrite("t1", "a"))
	require.NoError(t, err)

	w := truthWrite("t1", "b")
	w.Tag = "org_truth"
	_, err = g.AppendVersion(ctx, w)
	require.NoError(t, err)

	current, _ := g.CurrentVersions(ctx, domain.KindTruth, 10)
	require.Len(t, current, 1)
	assert.Equal(t, "policy", current[0].ObjectTag)
}

func TestMemoryGraph_ConcurrentAppendsAreGapFree(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()

	const writers = 25
	var wg sync.WaitGroup
	versions := make([]int64, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := g.AppendVersion(ctx, domain.VersionWrite{Kind: domain.KindDecision, ObjectID: "hot", Tag: "x"})
			if err != nil {
				t.Errorf("append failed: %v", err)
				return
			}
			versions[i] = res.Version
		}(i)
	}
	wg.Wait()

	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	for i, v := range versions {
		assert.Equal(t, int64(i+1), v)
	}

	history, err := g.History(ctx, domain.KindDecision, "hot")
	require.NoError(t, err)
	assert.Len(t, history, writers)
}

func TestMemoryGraph_ParticipantsLinked(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()
	require.NoError(t, g.SeedEmployees(ctx, domain.DefaultEmployees))

	res, err := g.AppendVersion(ctx, domain.VersionWrite{
		Kind:           domain.KindDecision,
		ObjectID:       "d1",
		Summary:        "Hire two engineers",
		AgentsInvolved: []string{"employee_john", "employee_new"},
	})
	require.NoError(t, err)

	snap, _ := g.Snapshot(ctx, 0)
	participated := 0
	labels := map[string]bool{}
	for _, n := range snap.Nodes {
		labels[n.Label] = true
	}
	for _, e := range snap.Edges {
		if e.Type == domain.EdgeParticipatedIn && e.To == res.NodeIDs[1] {
			participated++
		}
	}
	assert.Equal(t, 2, participated)
	assert.True(t, labels["John"])
	assert.True(t, labels["employee_new"])
	assert.True(t, labels["Hire two engineers"])
}

func TestMemoryGraph_AgentSnapshot(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()

	_, err := g.AppendVersion(ctx, truthWrite("hr_policy", "visible to sarah"))
	require.NoError(t, err)
	_, err = g.AppendVersion(ctx, domain.VersionWrite{
		Kind:     domain.KindDecision,
		ObjectID: "eng_only",
		Summary:  "bob only",
		Routing:  map[string]domain.VisibilityLevel{"employee_bob": domain.VisibilitySummary},
	})
	require.NoError(t, err)

	snap, err := g.AgentSnapshot(ctx, "employee_sarah", 100)
	require.NoError(t, err)

	var summaries []string
	for _, n := range snap.Nodes {
		if n.Labels[0] == domain.LabelTruthVersion || n.Labels[0] == domain.LabelDecisionVersion {
			summaries = append(summaries, n.Label)
		}
	}
	assert.Equal(t, []string{"visible to sarah"}, summaries)
	assert.NotEmpty(t, snap.Edges)

	snap, _ = g.AgentSnapshot(ctx, "employee_bob", 100)
	summaries = nil
	for _, n := range snap.Nodes {
		if n.Labels[0] == domain.LabelDecisionVersion || n.Labels[0] == domain.LabelTruthVersion {
			summaries = append(summaries, n.Label)
		}
	}
	assert.Equal(t, []string{"bob only"}, summaries)
}

func TestMemoryGraph_SnapshotLimit(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()
	require.NoError(t, g.SeedEmployees(ctx, domain.DefaultEmployees))

	snap, err := g.Snapshot(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 2)
}

func TestMemoryGraph_Turns(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()

	for _, c := range []string{"one", "two", "three"} {
		require.NoError(t, g.AppendTurn(ctx, "employee_bob", domain.ConversationTurn{Role: domain.TurnRoleUser, Content: c}))
	}

	turns, err := g.RecentTurns(ctx, "employee_bob", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "two", turns[0].Content)
	assert.Equal(t, "three", turns[1].Content)

	turns, err = g.RecentTurns(ctx, "employee_nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestMemoryGraph_HistoryNotFound(t *testing.T) {
	_, err := NewMemoryGraph().History(context.Background(), domain.KindDecision, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryGraph_FailWrites(t *testing.T) {
	g := NewMemoryGraph()
	g.FailWrites = errors.New("disk full")

	_, err := g.AppendVersion(context.Background(), truthWrite("t", "x"))
	assert.EqualError(t, err, "disk full")
}

func TestMemoryGraph_NonPositiveLimitIsUnbounded(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		_, err := g.AppendVersion(ctx, truthWrite(fmt.Sprintf("truth_%03d", i), "c"))
		require.NoError(t, err)
	}

	all, err := g.CurrentVersions(ctx, domain.KindTruth, 0)
	require.NoError(t, err)
	assert.Len(t, all, 250)

	some, err := g.CurrentVersions(ctx, domain.KindTruth, 10)
	require.NoError(t, err)
	assert.Len(t, some, 10)
}

func TestMemoryGraph_LongHistoryWalksEveryVersion(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()

	for i := 1; i <= 50; i++ {
		_, err := g.AppendVersion(ctx, truthWrite("pricing", fmt.Sprintf("v%d", i)))
		require.NoError(t, err)
		// Interleave another chain so the walk must stay on its own object.
		_, err = g.AppendVersion(ctx, truthWrite("hiring", fmt.Sprintf("h%d", i)))
		require.NoError(t, err)
	}

	history, err := g.History(ctx, domain.KindTruth, "pricing")
	require.NoError(t, err)
	require.Len(t, history, 50)
	for i, ov := range history {
		assert.Equal(t, int64(50-i), ov.Version)
		assert.Equal(t, fmt.Sprintf("v%d", 50-i), ov.Summary)
		assert.Equal(t, i == 0, ov.Current)
	}
}
