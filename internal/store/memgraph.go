package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/google/uuid"
)

type memNode struct {
	id        int64
	label     string
	key       string
	props     map[string]any
	createdAt time.Time
}

type memEdge struct {
	id    int64
	typ   string
	from  int64
	to    int64
	props map[string]any
}

// MemoryGraph is an in-process GraphStore with the same versioning rules as
// the PostgreSQL store. One mutex serializes all writes.
type MemoryGraph struct {
	mu sync.RWMutex

	seq      int64
	nodes    map[int64]*memNode
	nodeKeys map[string]int64
	edges    map[int64]*memEdge
	edgeKeys map[string]int64
	// current maps an object node to its CURRENT edge.
	current map[int64]int64
	// supersedes maps a version node to the version node it replaced.
	supersedes map[int64]int64

	// FailWrites makes every write return this error; used to exercise
	// persistence-failure paths.
	FailWrites error
}

func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		nodes:      make(map[int64]*memNode),
		nodeKeys:   make(map[string]int64),
		edges:      make(map[int64]*memEdge),
		edgeKeys:   make(map[string]int64),
		current:    make(map[int64]int64),
		supersedes: make(map[int64]int64),
	}
}

func nodeKey(label, key string) string {
	return label + "\x00" + key
}

func edgeKey(typ string, from, to int64) string {
	return fmt.Sprintf("%s\x00%d\x00%d", typ, from, to)
}

func (g *MemoryGraph) Ping(ctx context.Context) error {
	return nil
}

// mergeNodeLocked returns the node for (label, key), creating it with props
// when absent. Existing properties are left untouched.
func (g *MemoryGraph) mergeNodeLocked(label, key string, props map[string]any) (*memNode, bool) {
	if id, ok := g.nodeKeys[nodeKey(label, key)]; ok {
		return g.nodes[id], false
	}
	g.seq++
	n := &memNode{id: g.seq, label: label, key: key, props: props, createdAt: time.Now().UTC()}
	g.nodes[n.id] = n
	g.nodeKeys[nodeKey(label, key)] = n.id
	return n, true
}

func (g *MemoryGraph) mergeEdgeLocked(typ string, from, to int64, props map[string]any) *memEdge {
	if id, ok := g.edgeKeys[edgeKey(typ, from, to)]; ok {
		return g.edges[id]
	}
	if props == nil {
		props = map[string]any{}
	}
	g.seq++
	e := &memEdge{id: g.seq, typ: typ, from: from, to: to, props: props}
	g.edges[e.id] = e
	g.edgeKeys[edgeKey(typ, from, to)] = e.id
	return e
}

func (g *MemoryGraph) deleteEdgeLocked(id int64) {
	e, ok := g.edges[id]
	if !ok {
		return
	}
	delete(g.edgeKeys, edgeKey(e.typ, e.from, e.to))
	delete(g.edges, id)
}

func (g *MemoryGraph) objectLocked(kind domain.ObjectKind, objectID string) (*memNode, bool) {
	id, ok := g.nodeKeys[nodeKey(kind.ObjectLabel(), objectID)]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// currentLocked returns the current version node of an object, or nil.
func (g *MemoryGraph) currentLocked(obj *memNode) *memNode {
	edgeID, ok := g.current[obj.id]
	if !ok {
		return nil
	}
	return g.nodes[g.edges[edgeID].to]
}

func (g *MemoryGraph) currentVersionLocked(kind domain.ObjectKind, objectID string) int64 {
	obj, ok := g.objectLocked(kind, objectID)
	if !ok {
		return 0
	}
	if cur := g.currentLocked(obj); cur != nil {
		return int64Prop(cur.props, "version")
	}
	return 0
}

func (g *MemoryGraph) NextVersion(ctx context.Context, kind domain.ObjectKind, objectID string) (int64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.currentVersionLocked(kind, objectID) + 1, nil
}

func (g *MemoryGraph) PersistVersion(ctx context.Context, w domain.VersionWrite) (*domain.VersionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.persistLocked(w, w.Version)
}

func (g *MemoryGraph) AppendVersion(ctx context.Context, w domain.VersionWrite) (*domain.VersionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.persistLocked(w, g.currentVersionLocked(w.Kind, w.ObjectID)+1)
}

func (g *MemoryGraph) persistLocked(w domain.VersionWrite, version int64) (*domain.VersionResult, error) {
	if g.FailWrites != nil {
		return nil, g.FailWrites
	}
	if w.ObjectID == "" {
		return nil, ErrInvalidObjectID
	}
	if version != g.currentVersionLocked(w.Kind, w.ObjectID)+1 {
		return nil, fmt.Errorf("%w: %s %s v%d", ErrVersionConflict, w.Kind, w.ObjectID, version)
	}

	obj, _ := g.mergeNodeLocked(w.Kind.ObjectLabel(), w.ObjectID, objectProperties(w))
	prev := g.currentLocked(obj)

	vnode, created := g.mergeNodeLocked(w.Kind.VersionLabel(), domain.VersionKey(w.ObjectID, version), versionProperties(w, version))
	if !created {
		return nil, fmt.Errorf("%w: version node %s exists", ErrConflict, vnode.key)
	}
	res := &domain.VersionResult{Version: version, NodeIDs: []int64{obj.id, vnode.id}}

	if prev != nil {
		g.deleteEdgeLocked(g.current[obj.id])
		sup := g.mergeEdgeLocked(domain.EdgeSupersedes, vnode.id, prev.id, nil)
		g.supersedes[vnode.id] = prev.id
		res.EdgeIDs = append(res.EdgeIDs, sup.id)
	}
	cur := g.mergeEdgeLocked(domain.EdgeCurrent, obj.id, vnode.id, nil)
	g.current[obj.id] = cur.id
	res.EdgeIDs = append(res.EdgeIDs, cur.id)

	for _, agent := range w.AgentsInvolved {
		emp, _ := g.mergeNodeLocked(domain.LabelEmployee, agent, employeeProperties(domain.Employee{ID: agent}))
		e := g.mergeEdgeLocked(domain.EdgeParticipatedIn, emp.id, vnode.id, nil)
		res.NodeIDs = append(res.NodeIDs, emp.id)
		res.EdgeIDs = append(res.EdgeIDs, e.id)
	}
	return res, nil
}

func (g *MemoryGraph) CurrentVersions(ctx context.Context, kind domain.ObjectKind, limit int) ([]domain.ObjectVersion, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []domain.ObjectVersion
	for objID, edgeID := range g.current {
		obj := g.nodes[objID]
		if obj.label != kind.ObjectLabel() {
			continue
		}
		v := g.nodes[g.edges[edgeID].to]
		ov := objectVersionFromProps(kind, obj.props, v.props)
		ov.Current = true
		out = append(out, ov)
	}
	sortVersionsNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (g *MemoryGraph) History(ctx context.Context, kind domain.ObjectKind, objectID string) ([]domain.ObjectVersion, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	obj, ok := g.objectLocked(kind, objectID)
	if !ok {
		return nil, ErrNotFound
	}

	var out []domain.ObjectVersion
	node := g.currentLocked(obj)
	for node != nil {
		ov := objectVersionFromProps(kind, obj.props, node.props)
		ov.Current = len(out) == 0
		out = append(out, ov)
		node = g.supersededLocked(node.id)
	}
	return out, nil
}

func (g *MemoryGraph) supersededLocked(versionNodeID int64) *memNode {
	prev, ok := g.supersedes[versionNodeID]
	if !ok {
		return nil
	}
	return g.nodes[prev]
}

func (g *MemoryGraph) Snapshot(ctx context.Context, limit int) (*domain.Snapshot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]int64, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return g.snapshotLocked(ids, limit), nil
}

func (g *MemoryGraph) AgentSnapshot(ctx context.Context, agentID string, limit int) (*domain.Snapshot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var visible []int64
	for id, n := range g.nodes {
		if n.label != domain.LabelDecisionVersion && n.label != domain.LabelTruthVersion {
			continue
		}
		if containsString(stringsProp(n.props, "routing_agents"), agentID) {
			visible = append(visible, id)
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i] > visible[j] })
	if limit > 0 && len(visible) > limit {
		visible = visible[:limit]
	}

	seen := make(map[int64]bool, len(visible))
	for _, id := range visible {
		seen[id] = true
	}
	ids := append([]int64{}, visible...)
	for _, e := range g.edges {
		if seen[e.from] && !seen[e.to] {
			seen[e.to] = true
			ids = append(ids, e.to)
		} else if seen[e.to] && !seen[e.from] {
			seen[e.from] = true
			ids = append(ids, e.from)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	snap := g.snapshotLocked(ids, 0)
	// Keep only edges touching a visible version.
	edges := snap.Edges[:0]
	visibleSet := make(map[int64]bool, len(visible))
	for _, id := range visible {
		visibleSet[id] = true
	}
	for _, e := range snap.Edges {
		if visibleSet[e.From] || visibleSet[e.To] {
			edges = append(edges, e)
		}
	}
	snap.Edges = edges
	return snap, nil
}

func (g *MemoryGraph) snapshotLocked(ids []int64, edgeLimit int) *domain.Snapshot {
	snap := &domain.Snapshot{Nodes: []domain.GraphNode{}, Edges: []domain.GraphEdge{}}
	in := make(map[int64]bool, len(ids))
	for _, id := range ids {
		n := g.nodes[id]
		in[id] = true
		labels := []string{n.label}
		snap.Nodes = append(snap.Nodes, domain.GraphNode{
			ID:         n.id,
			Labels:     labels,
			Label:      domain.DisplayLabel(labels, n.props, n.id),
			Properties: copyProps(n.props),
		})
	}

	edgeIDs := make([]int64, 0, len(g.edges))
	for id, e := range g.edges {
		if in[e.from] && in[e.to] {
			edgeIDs = append(edgeIDs, id)
		}
	}
	sort.Slice(edgeIDs, func(i, j int) bool { return edgeIDs[i] < edgeIDs[j] })
	if edgeLimit > 0 && len(edgeIDs) > edgeLimit {
		edgeIDs = edgeIDs[:edgeLimit]
	}
	for _, id := range edgeIDs {
		e := g.edges[id]
		snap.Edges = append(snap.Edges, domain.GraphEdge{
			ID:         e.id,
			Type:       e.typ,
			From:       e.from,
			To:         e.to,
			Label:      domain.EdgeDisplayLabel(e.typ, e.props),
			Properties: copyProps(e.props),
		})
	}
	return snap
}

func (g *MemoryGraph) SeedEmployees(ctx context.Context, employees []domain.Employee) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailWrites != nil {
		return g.FailWrites
	}
	for _, e := range employees {
		n, created := g.mergeNodeLocked(domain.LabelEmployee, e.ID, employeeProperties(e))
		if !created {
			for k, v := range employeeProperties(e) {
				n.props[k] = v
			}
		}
	}
	return nil
}

func (g *MemoryGraph) AppendTurn(ctx context.Context, agentID string, turn domain.ConversationTurn) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailWrites != nil {
		return g.FailWrites
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	emp, _ := g.mergeNodeLocked(domain.LabelEmployee, agentID, employeeProperties(domain.Employee{ID: agentID}))
	n, _ := g.mergeNodeLocked(domain.LabelConversationTurn, uuid.NewString(), map[string]any{
		"employee_id": agentID,
		"role":        turn.Role,
		"content":     turn.Content,
		"created_at":  turn.CreatedAt.Format(time.RFC3339Nano),
	})
	g.mergeEdgeLocked(domain.EdgeSaid, emp.id, n.id, nil)
	return nil
}

func (g *MemoryGraph) RecentTurns(ctx context.Context, agentID string, limit int) ([]domain.ConversationTurn, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	empID, ok := g.nodeKeys[nodeKey(domain.LabelEmployee, agentID)]
	if !ok {
		return []domain.ConversationTurn{}, nil
	}

	var ids []int64
	for _, e := range g.edges {
		if e.typ == domain.EdgeSaid && e.from == empID {
			ids = append(ids, e.to)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}

	turns := make([]domain.ConversationTurn, 0, len(ids))
	for _, id := range ids {
		turns = append(turns, turnFromProps(g.nodes[id].props))
	}
	return turns, nil
}

func turnFromProps(props map[string]any) domain.ConversationTurn {
	t := domain.ConversationTurn{
		Role:    stringProp(props, "role"),
		Content: stringProp(props, "content"),
	}
	if ts, err := time.Parse(time.RFC3339Nano, stringProp(props, "created_at")); err == nil {
		t.CreatedAt = ts
	}
	return t
}

func copyProps(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
