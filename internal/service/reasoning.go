package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/Harshitk-cp/orgbrain/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrMissingIdentity  = errors.New("missing identity")
	ErrEmptyInput       = errors.New("provide either non-empty text or audio")
	ErrGraphUnavailable = errors.New("graph store not initialized")
	ErrInvalidIngest    = errors.New("truth_id and kind must be non-empty")
	ErrSpeechDisabled   = errors.New("speech provider not configured")
)

const (
	noEventsResponse    = "No new events."
	knowledgeTopic      = "knowledge"
	knowledgeRationale  = "knowledge_ingest"
	defaultRetrievalK   = 3
	defaultIngestAgent  = "employee_1"
	defaultSnapshotSize = 5000
	defaultCurrentSize  = 200
)

// Deps wires a ReasoningService. Graph, Conversations, Retriever and Speech
// may be nil.
type Deps struct {
	Completion    domain.CompletionClient
	Graph         domain.GraphStore
	Conversations domain.ConversationStore
	Retriever     domain.Retriever
	Speech        domain.SpeechClient
	Directory     *Directory
	Logger        *zap.Logger

	TopK             int
	SubscriberBuffer int
	CacheTurns       int
	HistoryLoad      int
	DefaultAgentID   string
}

// ReasoningService owns the application state shared by request handlers:
// the event bus, trace log, truth snapshot, private notes and conversation
// cache, each behind its own lock.
type ReasoningService struct {
	pipeline      *Pipeline
	bus           *EventBus
	traces        *TraceLog
	router        *VisibilityRouter
	broadcaster   *TraceBroadcaster
	conversations *ConversationMemory

	graph     domain.GraphStore
	retriever domain.Retriever
	speech    domain.SpeechClient
	logger    *zap.Logger

	topK         int
	defaultAgent string

	notesMu sync.Mutex
	notes   map[string]domain.PrivateNote
	noteSeq map[string]uint64

	truthMu sync.RWMutex
	truth   map[string]string
}

func NewReasoningService(d Deps) *ReasoningService {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Directory == nil {
		d.Directory = NewDirectory(domain.DefaultEmployees, nil)
	}
	if d.TopK <= 0 {
		d.TopK = defaultRetrievalK
	}
	if d.DefaultAgentID == "" {
		d.DefaultAgentID = defaultIngestAgent
	}

	router := NewVisibilityRouter(d.Directory)
	return &ReasoningService{
		pipeline:      NewPipeline(d.Completion, d.Logger),
		bus:           NewEventBus(),
		traces:        NewTraceLog(),
		router:        router,
		broadcaster:   NewTraceBroadcaster(router, d.SubscriberBuffer, d.Logger),
		conversations: NewConversationMemory(d.Conversations, d.CacheTurns, d.HistoryLoad, d.Logger),
		graph:         d.Graph,
		retriever:     d.Retriever,
		speech:        d.Speech,
		logger:        d.Logger,
		topK:          d.TopK,
		defaultAgent:  d.DefaultAgentID,
		notes:         make(map[string]domain.PrivateNote),
		noteSeq:       make(map[string]uint64),
		truth:         make(map[string]string),
	}
}

// AskResult is what a caller gets back from one Ask. Trace is nil when the
// drained batch was empty.
type AskResult struct {
	ResponseText string                 `json:"response_text"`
	Trace        *domain.ReasoningTrace `json:"trace"`
}

// Ask runs one input through classification and synthesis, persists the
// resulting versions and publishes the trace.
func (s *ReasoningService) Ask(ctx context.Context, agentID, text string) (*AskResult, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, ErrMissingIdentity
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	history := s.conversations.History(ctx, agentID)
	cls := s.pipeline.Classify(ctx, RenderPrompt(history, text))
	note := s.storeNote(agentID, cls.PrivateNote)

	s.bus.Emit(domain.Event{
		ID:         uuid.New(),
		EmittedBy:  agentID,
		Type:       cls.Type,
		Topic:      cls.Topic,
		Timestamp:  time.Now().UTC(),
		Confidence: cls.Confidence,
		References: []string{note.Key()},
	})

	trace, syn := s.synthesizeBatch(ctx, s.bus.Drain())
	if trace == nil {
		return &AskResult{ResponseText: noEventsResponse}, nil
	}

	response := syn.ResponseText
	if response == "" {
		response = trace.Summary
	}
	s.conversations.Record(ctx, agentID, text, response)

	return &AskResult{ResponseText: response, Trace: trace}, nil
}

// synthesizeBatch runs Stage B over batch, persists the decision and truth
// versions, and records the trace. An empty batch yields a nil trace and
// touches nothing.
func (s *ReasoningService) synthesizeBatch(ctx context.Context, batch []domain.Event) (*domain.ReasoningTrace, Synthesis) {
	snippets := []domain.Snippet{}
	if len(batch) > 0 {
		snippets = s.retrieve(ctx, batch)
	}
	syn := s.pipeline.Synthesize(ctx, SynthesisInput{
		Events:   batch,
		Snippets: snippets,
		Truth:    s.TruthSnapshot(),
	})
	if syn.Empty {
		return nil, syn
	}

	decisionID := syn.DecisionID
	if decisionID == "" {
		decisionID = uuid.NewString()
	}
	summary := syn.Summary
	if summary == "" {
		summary = syn.Decision
	}

	eventIDs, agents := batchLineage(batch)
	now := time.Now().UTC()
	updates := domain.GraphUpdates{Nodes: []int64{}, Edges: []int64{}}

	truthIDs := s.applyTruthUpdates(syn.OrgUpdates)

	version := s.appendVersion(ctx, domain.VersionWrite{
		Kind:           domain.KindDecision,
		ObjectID:       decisionID,
		Summary:        summary,
		Tag:            syn.Decision,
		Confidence:     syn.Confidence,
		TriggerEvents:  eventIDs,
		AgentsInvolved: agents,
		Routing:        syn.Routing,
		CreatedAt:      now,
	}, &updates)

	for _, id := range truthIDs {
		s.appendVersion(ctx, domain.VersionWrite{
			Kind:           domain.KindTruth,
			ObjectID:       id,
			Summary:        syn.OrgUpdates[id],
			Tag:            domain.TruthKindDefault,
			Confidence:     syn.Confidence,
			TriggerEvents:  eventIDs,
			AgentsInvolved: agents,
			Routing:        syn.Routing,
			CreatedAt:      now,
		}, &updates)
	}

	trace := &domain.ReasoningTrace{
		DecisionID:     decisionID,
		Topic:          batchTopic(batch),
		Summary:        summary,
		Version:        version,
		Rationale:      syn.Rationale,
		Evidence:       syn.Evidence,
		Assumptions:    syn.Assumptions,
		TriggerEvents:  eventIDs,
		AgentsInvolved: agents,
		GraphUpdates:   updates,
		Routing:        syn.Routing,
		CreatedAt:      now,
	}
	s.record(trace, "ask")
	return trace, syn
}

// IngestRequest records externally supplied knowledge as a truth version.
type IngestRequest struct {
	TruthID string
	Kind    string
	Content string
	AgentID string
	Routing map[string]domain.VisibilityLevel
	// AddToRetrieval defaults to true when nil.
	AddToRetrieval *bool
}

func (s *ReasoningService) Ingest(ctx context.Context, req IngestRequest) (*domain.ReasoningTrace, error) {
	truthID := strings.TrimSpace(req.TruthID)
	kind := strings.TrimSpace(req.Kind)
	if truthID == "" || kind == "" {
		return nil, ErrInvalidIngest
	}
	agentID := strings.TrimSpace(req.AgentID)
	if agentID == "" {
		agentID = s.defaultAgent
	}
	routing := req.Routing
	if routing == nil {
		routing = map[string]domain.VisibilityLevel{}
	}

	s.truthMu.Lock()
	s.truth[truthID] = req.Content
	s.truthMu.Unlock()

	if s.retriever != nil && (req.AddToRetrieval == nil || *req.AddToRetrieval) {
		if err := s.retriever.Add(ctx, truthID, req.Content); err != nil {
			s.logger.Warn("failed to add knowledge to retrieval", zap.String("truth_id", truthID), zap.Error(err))
		}
	}

	trigger := uuid.NewString()
	now := time.Now().UTC()
	updates := domain.GraphUpdates{Nodes: []int64{}, Edges: []int64{}}
	version := s.appendVersion(ctx, domain.VersionWrite{
		Kind:           domain.KindTruth,
		ObjectID:       truthID,
		Summary:        req.Content,
		Tag:            kind,
		Confidence:     1.0,
		TriggerEvents:  []string{trigger},
		AgentsInvolved: []string{agentID},
		Routing:        routing,
		CreatedAt:      now,
	}, &updates)

	trace := &domain.ReasoningTrace{
		DecisionID:     truthID,
		Topic:          knowledgeTopic,
		Summary:        req.Content,
		Version:        version,
		Rationale:      knowledgeRationale,
		Evidence:       []string{},
		Assumptions:    []string{},
		TriggerEvents:  []string{trigger},
		AgentsInvolved: []string{agentID},
		GraphUpdates:   updates,
		Routing:        routing,
		CreatedAt:      now,
	}
	s.record(trace, "knowledge")
	return trace, nil
}

func (s *ReasoningService) record(trace *domain.ReasoningTrace, source string) {
	s.traces.Append(trace)
	s.broadcaster.Publish(trace)
	metrics.TracesTotal.WithLabelValues(source).Inc()
}

// appendVersion writes one version and folds the touched ids into updates.
// Failures are logged and counted; the version then defaults to 1.
func (s *ReasoningService) appendVersion(ctx context.Context, w domain.VersionWrite, updates *domain.GraphUpdates) int64 {
	if s.graph == nil {
		return 1
	}
	res, err := s.graph.AppendVersion(ctx, w)
	if err != nil {
		metrics.PersistFailures.WithLabelValues(w.Kind.String()).Inc()
		s.logger.Error("failed to persist version",
			zap.String("kind", w.Kind.String()),
			zap.String("object_id", w.ObjectID),
			zap.Error(err))
		return 1
	}
	updates.Nodes = append(updates.Nodes, res.NodeIDs...)
	updates.Edges = append(updates.Edges, res.EdgeIDs...)
	return res.Version
}

func (s *ReasoningService) storeNote(agentID, content string) domain.PrivateNote {
	s.notesMu.Lock()
	defer s.notesMu.Unlock()

	s.noteSeq[agentID]++
	note := domain.PrivateNote{
		AgentID:   agentID,
		Seq:       s.noteSeq[agentID],
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.notes[note.Key()] = note
	return note
}

// PrivateNotes returns the notes owned by agentID, oldest first.
func (s *ReasoningService) PrivateNotes(agentID string) []domain.PrivateNote {
	s.notesMu.Lock()
	defer s.notesMu.Unlock()

	out := []domain.PrivateNote{}
	for seq := uint64(1); seq <= s.noteSeq[agentID]; seq++ {
		if n, ok := s.notes[domain.NoteKey(agentID, seq)]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (s *ReasoningService) retrieve(ctx context.Context, batch []domain.Event) []domain.Snippet {
	if s.retriever == nil {
		return []domain.Snippet{}
	}
	query, err := json.Marshal(batch)
	if err != nil {
		return []domain.Snippet{}
	}
	snippets, err := s.retriever.Search(ctx, string(query), s.topK)
	if err != nil {
		s.logger.Warn("retrieval failed", zap.Error(err))
		return []domain.Snippet{}
	}
	return snippets
}

// applyTruthUpdates writes non-empty updates into the snapshot and returns
// their ids in sorted order.
func (s *ReasoningService) applyTruthUpdates(updates map[string]string) []string {
	ids := make([]string, 0, len(updates))
	for id, content := range updates {
		if content == "" {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	s.truthMu.Lock()
	for _, id := range ids {
		s.truth[id] = updates[id]
	}
	s.truthMu.Unlock()
	return ids
}

// TruthSnapshot copies the current organizational truth.
func (s *ReasoningService) TruthSnapshot() map[string]string {
	s.truthMu.RLock()
	defer s.truthMu.RUnlock()
	out := make(map[string]string, len(s.truth))
	for k, v := range s.truth {
		out[k] = v
	}
	return out
}

// HydrateTruth loads the current truth versions from the graph into the
// snapshot. Missing graph is not an error.
func (s *ReasoningService) HydrateTruth(ctx context.Context) (int, error) {
	if s.graph == nil {
		return 0, nil
	}
	current, err := s.graph.CurrentVersions(ctx, domain.KindTruth, 0)
	if err != nil {
		return 0, fmt.Errorf("load current truth: %w", err)
	}

	s.truthMu.Lock()
	defer s.truthMu.Unlock()
	for _, v := range current {
		s.truth[v.ObjectID] = v.Summary
	}
	return len(current), nil
}

// SeedEmployees merges the directory into the graph.
func (s *ReasoningService) SeedEmployees(ctx context.Context) error {
	if s.graph == nil {
		return nil
	}
	return s.graph.SeedEmployees(ctx, s.router.Directory().Employees())
}

func batchLineage(batch []domain.Event) (eventIDs, agents []string) {
	eventIDs = make([]string, 0, len(batch))
	agents = []string{}
	seen := make(map[string]bool)
	for _, e := range batch {
		eventIDs = append(eventIDs, e.ID.String())
		if e.EmittedBy != "" && !seen[e.EmittedBy] {
			seen[e.EmittedBy] = true
			agents = append(agents, e.EmittedBy)
		}
	}
	return eventIDs, agents
}

func batchTopic(batch []domain.Event) string {
	for _, e := range batch {
		if t := strings.TrimSpace(e.Topic); t != "" {
			return t
		}
	}
	return defaultTopic
}
