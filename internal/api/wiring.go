package api

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/orgbrain/internal/config"
	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/Harshitk-cp/orgbrain/internal/embedding"
	"github.com/Harshitk-cp/orgbrain/internal/llm"
	"github.com/Harshitk-cp/orgbrain/internal/service"
	"github.com/Harshitk-cp/orgbrain/internal/speech"
	"github.com/Harshitk-cp/orgbrain/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Graph backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendNone     = "none"
)

// NewService builds the reasoning service and its collaborators from the
// environment. db may be nil when no database is configured.
func NewService(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) (*service.ReasoningService, error) {
	graph, err := newGraphStore(config.GraphBackend(), db)
	if err != nil {
		return nil, err
	}

	llmProvider := config.LLMProvider()
	completion, err := llm.NewClient(llmProvider, config.LLMAPIKey(), config.LLMModel())
	if err != nil {
		logger.Warn("LLM client initialization failed, using mock", zap.String("provider", llmProvider), zap.Error(err))
		completion = llm.NewMockClient()
	} else {
		logger.Info("LLM client initialized", zap.String("provider", llmProvider))
	}
	completion = llm.NewBreakerClient(completion, llm.DefaultBreakerConfig(llmProvider), logger)

	retriever := newRetriever(ctx, db, logger)

	var speechClient domain.SpeechClient
	speechProvider := config.SpeechProvider()
	speechClient, err = speech.NewClient(speechProvider, speech.ElevenLabsConfig{
		APIKey:   config.ElevenAPIKey(),
		VoiceID:  config.ElevenVoiceID(),
		TTSModel: config.ElevenTTSModel(),
		STTModel: config.ElevenSTTModel(),
	})
	if err != nil {
		logger.Warn("speech client initialization failed", zap.String("provider", speechProvider), zap.Error(err))
	}

	deps := service.Deps{
		Completion:       completion,
		Retriever:        retriever,
		Speech:           speechClient,
		Directory:        service.NewDirectory(domain.DefaultEmployees, config.OrgRoles()),
		Logger:           logger,
		TopK:             config.RAGTopK(),
		SubscriberBuffer: config.SubscriberBuffer(),
		CacheTurns:       config.ConversationCacheTurns(),
		HistoryLoad:      config.ConversationHistoryLoad(),
		DefaultAgentID:   config.DefaultAgentID(),
	}
	if graph != nil {
		deps.Graph = graph
		deps.Conversations = graph
	}

	svc := service.NewReasoningService(deps)

	if err := svc.SeedEmployees(ctx); err != nil {
		logger.Warn("failed to seed employees", zap.Error(err))
	}
	if n, err := svc.HydrateTruth(ctx); err != nil {
		logger.Warn("failed to hydrate org truth", zap.Error(err))
	} else if n > 0 {
		logger.Info("org truth hydrated", zap.Int("truths", n))
	}

	logger.Info("reasoning service ready",
		zap.String("graph_backend", config.GraphBackend()),
		zap.Bool("speech", speechClient != nil))
	return svc, nil
}

// graphBackend is both the versioned graph and the durable conversation log.
type graphBackend interface {
	domain.GraphStore
	domain.ConversationStore
}

func newGraphStore(backend string, db *pgxpool.Pool) (graphBackend, error) {
	switch backend {
	case BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("graph backend %q requires DATABASE_URL", backend)
		}
		return store.NewGraphStore(db), nil
	case BackendMemory:
		return store.NewMemoryGraph(), nil
	case BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown graph backend: %s (valid options: postgres, memory, none)", backend)
	}
}

// newRetriever prefers the pgvector knowledge store and falls back to the
// in-memory lexical retriever.
func newRetriever(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) domain.Retriever {
	var r store.Seedable = store.NewLexicalRetriever()

	if db != nil {
		provider := config.EmbeddingProvider()
		embedder, err := embedding.NewClient(provider, config.EmbeddingAPIKey())
		if err != nil {
			logger.Warn("embedding client initialization failed, using lexical retrieval", zap.String("provider", provider), zap.Error(err))
		} else {
			logger.Info("embedding client initialized", zap.String("provider", provider))
			r = store.NewKnowledgeStore(db, embedder)
		}
	}

	if err := store.SeedKnowledge(ctx, r); err != nil {
		logger.Warn("failed to seed default knowledge", zap.Error(err))
	}
	return r
}
