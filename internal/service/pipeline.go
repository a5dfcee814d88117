package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/Harshitk-cp/orgbrain/internal/llm"
	"github.com/Harshitk-cp/orgbrain/internal/metrics"
	"go.uber.org/zap"
)

const (
	defaultTopic      = "general"
	defaultConfidence = 0.5
	fallbackDecision  = "respond"
)

// Classification is the Stage A result for one input.
type Classification struct {
	Type        domain.EventType
	Topic       string
	Confidence  float64
	PrivateNote string
	// Parsed is false when the completion was unusable and defaults were used.
	Parsed bool
}

type classificationWire struct {
	EventType   llm.LooseString `json:"event_type"`
	Topic       llm.LooseString `json:"topic"`
	Confidence  llm.LooseFloat  `json:"confidence"`
	PrivateNote llm.LooseString `json:"private_note"`
}

// SynthesisInput is everything Stage B sees for one cycle.
type SynthesisInput struct {
	Events   []domain.Event
	Snippets []domain.Snippet
	Truth    map[string]string
}

// Synthesis is the Stage B result.
type Synthesis struct {
	DecisionID   string
	Decision     string
	Summary      string
	Rationale    string
	Evidence     []string
	Assumptions  []string
	ResponseText string
	Confidence   float64
	Routing      map[string]domain.VisibilityLevel
	OrgUpdates   map[string]string
	Parsed       bool
	// Empty is set when there were no events to synthesize; nothing else is.
	Empty bool
}

type synthesisWire struct {
	DecisionID   llm.LooseString    `json:"decision_id"`
	Decision     llm.LooseString    `json:"decision"`
	Summary      llm.LooseString    `json:"summary"`
	Rationale    llm.LooseString    `json:"rationale"`
	Evidence     llm.StringList     `json:"evidence"`
	Assumptions  llm.StringList     `json:"assumptions"`
	ResponseText llm.LooseString    `json:"response_text"`
	Confidence   llm.LooseFloat     `json:"confidence"`
	Routing      llm.LooseStringMap `json:"routing"`
	OrgUpdates   llm.LooseStringMap `json:"org_updates"`
}

// Pipeline runs the two completion stages. Neither stage returns an error:
// unusable output degrades to fixed defaults.
type Pipeline struct {
	llm    domain.CompletionClient
	logger *zap.Logger
}

func NewPipeline(client domain.CompletionClient, logger *zap.Logger) *Pipeline {
	return &Pipeline{llm: client, logger: logger}
}

// Classify normalizes one caller input (already prefixed with any
// conversation context) into an event classification.
func (p *Pipeline) Classify(ctx context.Context, prompt string) Classification {
	raw, err := p.llm.Complete(ctx, llm.ClassifierPrompt, prompt)
	if err != nil {
		p.logger.Warn("classification completion failed", zap.Error(err))
		raw = ""
	}

	wire, ok := llm.ExtractJSON(raw, classificationWire{})
	if !ok {
		metrics.CompletionFallbacks.WithLabelValues("classify").Inc()
		return Classification{
			Type:        domain.EventUpdate,
			Topic:       defaultTopic,
			Confidence:  defaultConfidence,
			PrivateNote: raw,
		}
	}

	topic := strings.TrimSpace(wire.Topic.String())
	if topic == "" {
		topic = defaultTopic
	}
	return Classification{
		Type:        domain.ParseEventType(wire.EventType.String()),
		Topic:       topic,
		Confidence:  domain.ClampConfidence(wire.Confidence.Or(defaultConfidence)),
		PrivateNote: wire.PrivateNote.String(),
		Parsed:      true,
	}
}

// Synthesize reduces a batch of events into a decision and truth updates. An
// empty batch returns an Empty result without calling the model.
func (p *Pipeline) Synthesize(ctx context.Context, in SynthesisInput) Synthesis {
	if len(in.Events) == 0 {
		return Synthesis{Empty: true}
	}

	start := time.Now()
	defer func() {
		metrics.SynthesisDuration.Observe(time.Since(start).Seconds())
	}()

	raw, err := p.llm.Complete(ctx, llm.SynthesizerPrompt, renderSynthesisPrompt(in))
	if err != nil {
		p.logger.Warn("synthesis completion failed", zap.Error(err))
		raw = ""
	}

	wire, ok := llm.ExtractJSON(raw, synthesisWire{})
	if !ok {
		metrics.CompletionFallbacks.WithLabelValues("synthesize").Inc()
		return Synthesis{
			Decision:     fallbackDecision,
			ResponseText: raw,
			Confidence:   defaultConfidence,
			Evidence:     []string{},
			Assumptions:  []string{},
			Routing:      map[string]domain.VisibilityLevel{},
			OrgUpdates:   map[string]string{},
		}
	}

	updates := make(map[string]string, len(wire.OrgUpdates))
	for id, content := range wire.OrgUpdates {
		if strings.TrimSpace(id) == "" || content == "" {
			continue
		}
		updates[id] = content
	}

	decision := strings.TrimSpace(wire.Decision.String())
	if decision == "" {
		decision = fallbackDecision
	}

	return Synthesis{
		DecisionID:   strings.TrimSpace(wire.DecisionID.String()),
		Decision:     decision,
		Summary:      wire.Summary.String(),
		Rationale:    wire.Rationale.String(),
		Evidence:     nonNilStrings(wire.Evidence),
		Assumptions:  nonNilStrings(wire.Assumptions),
		ResponseText: wire.ResponseText.String(),
		Confidence:   domain.ClampConfidence(wire.Confidence.Or(defaultConfidence)),
		Routing:      domain.ParseRouting(wire.Routing),
		OrgUpdates:   updates,
		Parsed:       true,
	}
}

func renderSynthesisPrompt(in SynthesisInput) string {
	truthIDs := make([]string, 0, len(in.Truth))
	for id := range in.Truth {
		truthIDs = append(truthIDs, id)
	}
	sort.Strings(truthIDs)
	truth := make([]map[string]string, 0, len(truthIDs))
	for _, id := range truthIDs {
		truth = append(truth, map[string]string{"truth_id": id, "content": in.Truth[id]})
	}

	payload := map[string]any{
		"events":    in.Events,
		"context":   in.Snippets,
		"org_truth": truth,
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
