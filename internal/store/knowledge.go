package store

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// KnowledgeStore is a pgvector-backed Retriever.
type KnowledgeStore struct {
	db       *pgxpool.Pool
	embedder domain.EmbeddingClient
}

func NewKnowledgeStore(db *pgxpool.Pool, embedder domain.EmbeddingClient) *KnowledgeStore {
	return &KnowledgeStore{db: db, embedder: embedder}
}

func (s *KnowledgeStore) Add(ctx context.Context, id, content string) error {
	emb, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed snippet: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO knowledge_snippets (id, content, embedding, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (id) DO UPDATE
		 SET content = EXCLUDED.content, embedding = EXCLUDED.embedding, updated_at = NOW()`,
		id, content, pgvector.NewVector(emb),
	)
	return err
}

func (s *KnowledgeStore) Search(ctx context.Context, query string, k int) ([]domain.Snippet, error) {
	if k <= 0 {
		return []domain.Snippet{}, nil
	}
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	vec := pgvector.NewVector(emb)
	rows, err := s.db.Query(ctx,
		`SELECT id, content, 1 - (embedding <=> $1) AS score
		 FROM knowledge_snippets
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		vec, k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Snippet{}
	for rows.Next() {
		var sn domain.Snippet
		if err := rows.Scan(&sn.ID, &sn.Content, &sn.Score); err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// Count reports how many snippets are stored.
func (s *KnowledgeStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM knowledge_snippets`).Scan(&n)
	return n, err
}
