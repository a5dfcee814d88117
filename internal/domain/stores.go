package domain

import "context"

// GraphStore persists versioned decisions and truths as a property graph.
// Read limits of zero or less mean no limit.
type GraphStore interface {
	Ping(ctx context.Context) error
	NextVersion(ctx context.Context, kind ObjectKind, objectID string) (int64, error)
	// PersistVersion writes w.Version and fails with a version conflict when it
	// is not exactly current+1.
	PersistVersion(ctx context.Context, w VersionWrite) (*VersionResult, error)
	// AppendVersion computes and writes the next version atomically.
	AppendVersion(ctx context.Context, w VersionWrite) (*VersionResult, error)
	CurrentVersions(ctx context.Context, kind ObjectKind, limit int) ([]ObjectVersion, error)
	History(ctx context.Context, kind ObjectKind, objectID string) ([]ObjectVersion, error)
	Snapshot(ctx context.Context, limit int) (*Snapshot, error)
	AgentSnapshot(ctx context.Context, agentID string, limit int) (*Snapshot, error)
	SeedEmployees(ctx context.Context, employees []Employee) error
}

// ConversationStore is the durable conversation log. A RecentTurns limit of
// zero or less returns every turn.
type ConversationStore interface {
	AppendTurn(ctx context.Context, agentID string, turn ConversationTurn) error
	RecentTurns(ctx context.Context, agentID string, limit int) ([]ConversationTurn, error)
}

type Snippet struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Retriever returns context snippets for a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Snippet, error)
	Add(ctx context.Context, id, content string) error
}
