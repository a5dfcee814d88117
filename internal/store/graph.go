package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GraphStore keeps the property graph in two tables, graph_nodes and
// graph_edges. Version writes run in one transaction under a row lock on the
// object node.
type GraphStore struct {
	db *pgxpool.Pool
}

func NewGraphStore(db *pgxpool.Pool) *GraphStore {
	return &GraphStore{db: db}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *GraphStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// mergeNode returns the id of (label, key), inserting it with props when
// absent. Existing properties are not modified.
func mergeNode(ctx context.Context, q querier, label, key string, props map[string]any) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`INSERT INTO graph_nodes (label, key, properties)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (label, key) DO UPDATE SET label = EXCLUDED.label
		 RETURNING id`,
		label, key, props,
	).Scan(&id)
	return id, err
}

func mergeEdge(ctx context.Context, q querier, typ string, from, to int64) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`INSERT INTO graph_edges (edge_type, from_id, to_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (edge_type, from_id, to_id) DO UPDATE SET edge_type = EXCLUDED.edge_type
		 RETURNING id`,
		typ, from, to,
	).Scan(&id)
	return id, err
}

type currentRef struct {
	edgeID    int64
	versionID int64
	version   int64
}

func currentOf(ctx context.Context, q querier, objectNodeID int64) (*currentRef, error) {
	ref := &currentRef{}
	err := q.QueryRow(ctx,
		`SELECT e.id, v.id, (v.properties->>'version')::bigint
		 FROM graph_edges e
		 JOIN graph_nodes v ON v.id = e.to_id
		 WHERE e.from_id = $1 AND e.edge_type = $2`,
		objectNodeID, domain.EdgeCurrent,
	).Scan(&ref.edgeID, &ref.versionID, &ref.version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ref, nil
}

func (s *GraphStore) NextVersion(ctx context.Context, kind domain.ObjectKind, objectID string) (int64, error) {
	var current int64
	err := s.db.QueryRow(ctx,
		`SELECT (v.properties->>'version')::bigint
		 FROM graph_nodes o
		 JOIN graph_edges e ON e.from_id = o.id AND e.edge_type = $3
		 JOIN graph_nodes v ON v.id = e.to_id
		 WHERE o.label = $1 AND o.key = $2`,
		kind.ObjectLabel(), objectID, domain.EdgeCurrent,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 1, nil
		}
		return 0, err
	}
	return current + 1, nil
}

func (s *GraphStore) PersistVersion(ctx context.Context, w domain.VersionWrite) (*domain.VersionResult, error) {
	return s.persist(ctx, w, false)
}

func (s *GraphStore) AppendVersion(ctx context.Context, w domain.VersionWrite) (*domain.VersionResult, error) {
	return s.persist(ctx, w, true)
}

func (s *GraphStore) persist(ctx context.Context, w domain.VersionWrite, auto bool) (*domain.VersionResult, error) {
	if w.ObjectID == "" {
		return nil, ErrInvalidObjectID
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin version tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	objID, err := mergeNode(ctx, tx, w.Kind.ObjectLabel(), w.ObjectID, objectProperties(w))
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", w.Kind.ObjectLabel(), err)
	}
	if _, err := tx.Exec(ctx, `SELECT 1 FROM graph_nodes WHERE id = $1 FOR UPDATE`, objID); err != nil {
		return nil, fmt.Errorf("lock object: %w", err)
	}

	prev, err := currentOf(ctx, tx, objID)
	if err != nil {
		return nil, fmt.Errorf("read current version: %w", err)
	}
	var current int64
	if prev != nil {
		current = prev.version
	}

	version := w.Version
	if auto {
		version = current + 1
	} else if version != current+1 {
		return nil, fmt.Errorf("%w: %s %s v%d (current v%d)", ErrVersionConflict, w.Kind, w.ObjectID, version, current)
	}

	var versionNodeID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO graph_nodes (label, key, properties) VALUES ($1, $2, $3) RETURNING id`,
		w.Kind.VersionLabel(), domain.VersionKey(w.ObjectID, version), versionProperties(w, version),
	).Scan(&versionNodeID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrVersionConflict, domain.VersionKey(w.ObjectID, version))
		}
		return nil, fmt.Errorf("insert version node: %w", err)
	}

	res := &domain.VersionResult{Version: version, NodeIDs: []int64{objID, versionNodeID}}

	if prev != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM graph_edges WHERE id = $1`, prev.edgeID); err != nil {
			return nil, fmt.Errorf("retire current edge: %w", err)
		}
		supID, err := mergeEdge(ctx, tx, domain.EdgeSupersedes, versionNodeID, prev.versionID)
		if err != nil {
			return nil, fmt.Errorf("link supersedes: %w", err)
		}
		res.EdgeIDs = append(res.EdgeIDs, supID)
	}

	curID, err := mergeEdge(ctx, tx, domain.EdgeCurrent, objID, versionNodeID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: concurrent current pointer", ErrVersionConflict)
		}
		return nil, fmt.Errorf("link current: %w", err)
	}
	res.EdgeIDs = append(res.EdgeIDs, curID)

	for _, agent := range w.AgentsInvolved {
		empID, err := mergeNode(ctx, tx, domain.LabelEmployee, agent, employeeProperties(domain.Employee{ID: agent}))
		if err != nil {
			return nil, fmt.Errorf("merge employee %s: %w", agent, err)
		}
		edgeID, err := mergeEdge(ctx, tx, domain.EdgeParticipatedIn, empID, versionNodeID)
		if err != nil {
			return nil, fmt.Errorf("link participant %s: %w", agent, err)
		}
		res.NodeIDs = append(res.NodeIDs, empID)
		res.EdgeIDs = append(res.EdgeIDs, edgeID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit version tx: %w", err)
	}
	return res, nil
}

func (s *GraphStore) CurrentVersions(ctx context.Context, kind domain.ObjectKind, limit int) ([]domain.ObjectVersion, error) {
	rows, err := s.db.Query(ctx,
		`SELECT o.properties, v.properties
		 FROM graph_nodes o
		 JOIN graph_edges e ON e.from_id = o.id AND e.edge_type = $2
		 JOIN graph_nodes v ON v.id = e.to_id
		 WHERE o.label = $1
		 ORDER BY v.id DESC
		 LIMIT $3`,
		kind.ObjectLabel(), domain.EdgeCurrent, sqlLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ObjectVersion
	for rows.Next() {
		var objProps, props map[string]any
		if err := rows.Scan(&objProps, &props); err != nil {
			return nil, err
		}
		ov := objectVersionFromProps(kind, objProps, props)
		ov.Current = true
		out = append(out, ov)
	}
	return out, rows.Err()
}

func (s *GraphStore) History(ctx context.Context, kind domain.ObjectKind, objectID string) ([]domain.ObjectVersion, error) {
	var objNodeID int64
	var objProps map[string]any
	err := s.db.QueryRow(ctx,
		`SELECT id, properties FROM graph_nodes WHERE label = $1 AND key = $2`,
		kind.ObjectLabel(), objectID,
	).Scan(&objNodeID, &objProps)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`WITH RECURSIVE chain AS (
		     SELECT v.id, v.properties, 0 AS depth
		     FROM graph_edges e
		     JOIN graph_nodes v ON v.id = e.to_id
		     WHERE e.from_id = $1 AND e.edge_type = $2
		   UNION ALL
		     SELECT p.id, p.properties, c.depth + 1
		     FROM chain c
		     JOIN graph_edges s ON s.from_id = c.id AND s.edge_type = $3
		     JOIN graph_nodes p ON p.id = s.to_id
		 )
		 SELECT properties FROM chain ORDER BY depth`,
		objNodeID, domain.EdgeCurrent, domain.EdgeSupersedes,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ObjectVersion
	for rows.Next() {
		var props map[string]any
		if err := rows.Scan(&props); err != nil {
			return nil, err
		}
		ov := objectVersionFromProps(kind, objProps, props)
		ov.Current = len(out) == 0
		out = append(out, ov)
	}
	return out, rows.Err()
}

func (s *GraphStore) Snapshot(ctx context.Context, limit int) (*domain.Snapshot, error) {
	nodes, ids, err := s.queryNodes(ctx,
		`SELECT id, label, properties FROM graph_nodes ORDER BY id LIMIT $1`, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	edges, err := s.queryEdges(ctx,
		`SELECT id, edge_type, from_id, to_id, properties
		 FROM graph_edges
		 WHERE from_id = ANY($1) AND to_id = ANY($1)
		 ORDER BY id
		 LIMIT $2`, ids, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	return &domain.Snapshot{Nodes: nodes, Edges: edges}, nil
}

func (s *GraphStore) AgentSnapshot(ctx context.Context, agentID string, limit int) (*domain.Snapshot, error) {
	versions, versionIDs, err := s.queryNodes(ctx,
		`SELECT id, label, properties FROM graph_nodes
		 WHERE label = ANY($2) AND properties->'routing_agents' @> jsonb_build_array($1::text)
		 ORDER BY id DESC
		 LIMIT $3`,
		agentID, []string{domain.LabelDecisionVersion, domain.LabelTruthVersion}, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	if len(versionIDs) == 0 {
		return &domain.Snapshot{Nodes: []domain.GraphNode{}, Edges: []domain.GraphEdge{}}, nil
	}

	edges, err := s.queryEdges(ctx,
		`SELECT id, edge_type, from_id, to_id, properties
		 FROM graph_edges
		 WHERE from_id = ANY($1) OR to_id = ANY($1)
		 ORDER BY id`, versionIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(versionIDs))
	for _, id := range versionIDs {
		seen[id] = true
	}
	var neighborIDs []int64
	for _, e := range edges {
		for _, id := range []int64{e.From, e.To} {
			if !seen[id] {
				seen[id] = true
				neighborIDs = append(neighborIDs, id)
			}
		}
	}

	nodes := versions
	if len(neighborIDs) > 0 {
		neighbors, _, err := s.queryNodes(ctx,
			`SELECT id, label, properties FROM graph_nodes WHERE id = ANY($1) ORDER BY id`, neighborIDs)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, neighbors...)
	}
	return &domain.Snapshot{Nodes: nodes, Edges: edges}, nil
}

func (s *GraphStore) queryNodes(ctx context.Context, sql string, args ...any) ([]domain.GraphNode, []int64, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	nodes := []domain.GraphNode{}
	var ids []int64
	for rows.Next() {
		var n domain.GraphNode
		var label string
		if err := rows.Scan(&n.ID, &label, &n.Properties); err != nil {
			return nil, nil, err
		}
		n.Labels = []string{label}
		n.Label = domain.DisplayLabel(n.Labels, n.Properties, n.ID)
		nodes = append(nodes, n)
		ids = append(ids, n.ID)
	}
	return nodes, ids, rows.Err()
}

func (s *GraphStore) queryEdges(ctx context.Context, sql string, args ...any) ([]domain.GraphEdge, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := []domain.GraphEdge{}
	for rows.Next() {
		var e domain.GraphEdge
		if err := rows.Scan(&e.ID, &e.Type, &e.From, &e.To, &e.Properties); err != nil {
			return nil, err
		}
		e.Label = domain.EdgeDisplayLabel(e.Type, e.Properties)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *GraphStore) SeedEmployees(ctx context.Context, employees []domain.Employee) error {
	for _, e := range employees {
		_, err := s.db.Exec(ctx,
			`INSERT INTO graph_nodes (label, key, properties)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (label, key) DO UPDATE
			 SET properties = graph_nodes.properties || EXCLUDED.properties`,
			domain.LabelEmployee, e.ID, employeeProperties(e),
		)
		if err != nil {
			return fmt.Errorf("seed employee %s: %w", e.ID, err)
		}
	}
	return nil
}

func (s *GraphStore) AppendTurn(ctx context.Context, agentID string, turn domain.ConversationTurn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	empID, err := mergeNode(ctx, tx, domain.LabelEmployee, agentID, employeeProperties(domain.Employee{ID: agentID}))
	if err != nil {
		return fmt.Errorf("merge employee: %w", err)
	}

	var turnID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO graph_nodes (label, key, properties, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		domain.LabelConversationTurn, uuid.NewString(), map[string]any{
			"employee_id": agentID,
			"role":        turn.Role,
			"content":     turn.Content,
			"created_at":  turn.CreatedAt.Format(time.RFC3339Nano),
		}, turn.CreatedAt,
	).Scan(&turnID)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	if _, err := mergeEdge(ctx, tx, domain.EdgeSaid, empID, turnID); err != nil {
		return fmt.Errorf("link turn: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *GraphStore) RecentTurns(ctx context.Context, agentID string, limit int) ([]domain.ConversationTurn, error) {
	rows, err := s.db.Query(ctx,
		`SELECT t.properties
		 FROM graph_nodes emp
		 JOIN graph_edges e ON e.from_id = emp.id AND e.edge_type = $2
		 JOIN graph_nodes t ON t.id = e.to_id
		 WHERE emp.label = $1 AND emp.key = $3
		 ORDER BY t.id DESC
		 LIMIT $4`,
		domain.LabelEmployee, domain.EdgeSaid, agentID, sqlLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var newestFirst []domain.ConversationTurn
	for rows.Next() {
		var props map[string]any
		if err := rows.Scan(&props); err != nil {
			return nil, err
		}
		newestFirst = append(newestFirst, turnFromProps(props))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	turns := make([]domain.ConversationTurn, len(newestFirst))
	for i, t := range newestFirst {
		turns[len(newestFirst)-1-i] = t
	}
	return turns, nil
}
