package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockCall records one Complete invocation.
type MockCall struct {
	System string
	User   string
}

// MockClient is a configurable completion client for testing and offline runs.
// Queued responses are served first, then Handler, then a canned answer keyed
// on the prompt.
type MockClient struct {
	mu sync.Mutex

	Queue   []MockResponse
	Handler func(system, user string) (string, error)

	Calls []MockCall
}

type MockResponse struct {
	Text string
	Err  error
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

// Enqueue appends scripted responses served in order.
func (c *MockClient) Enqueue(responses ...string) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range responses {
		c.Queue = append(c.Queue, MockResponse{Text: r})
	}
	return c
}

// EnqueueError scripts a transport failure.
func (c *MockClient) EnqueueError(err error) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Queue = append(c.Queue, MockResponse{Err: err})
	return c
}

func (c *MockClient) Complete(ctx context.Context, system, user string) (string, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, MockCall{System: system, User: user})
	if len(c.Queue) > 0 {
		next := c.Queue[0]
		c.Queue = c.Queue[1:]
		c.mu.Unlock()
		return next.Text, next.Err
	}
	handler := c.Handler
	c.mu.Unlock()

	if handler != nil {
		return handler(system, user)
	}
	return cannedResponse(system, user), nil
}

// CallCount is safe to use while other goroutines complete.
func (c *MockClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// Reset clears all recorded calls and scripted responses.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Queue = nil
	c.Handler = nil
	c.Calls = nil
}

func cannedResponse(system, user string) string {
	var v any
	if system == ClassifierPrompt {
		v = map[string]any{
			"event_type":   "update",
			"topic":        "general",
			"confidence":   0.5,
			"private_note": user,
		}
	} else {
		v = map[string]any{
			"decision":      "acknowledge",
			"summary":       "Input acknowledged.",
			"rationale":     "offline mock provider",
			"evidence":      []string{},
			"assumptions":   []string{},
			"response_text": "Noted.",
			"confidence":    0.5,
			"routing":       map[string]string{},
			"org_updates":   map[string]string{},
		}
	}
	b, _ := json.Marshal(v)
	return string(b)
}
