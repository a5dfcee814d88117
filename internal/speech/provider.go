package speech

import (
	"context"
	"fmt"
	"sync"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
)

const (
	ProviderElevenLabs = "elevenlabs"
	ProviderMock       = "mock"
)

func NewClient(provider string, cfg ElevenLabsConfig) (domain.SpeechClient, error) {
	switch provider {
	case ProviderElevenLabs:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("ELEVEN_API_KEY is required for ElevenLabs provider")
		}
		return NewElevenLabsClient(cfg), nil
	case ProviderMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown speech provider: %s (valid options: elevenlabs, mock)", provider)
	}
}

// MockClient treats audio bytes as UTF-8 text and echoes text back as audio.
type MockClient struct {
	mu sync.Mutex

	TranscribeErr  error
	SynthesizeErr  error
	TranscribeCall [][]byte
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Transcribe(ctx context.Context, audio []byte, mime string) (string, error) {
	c.mu.Lock()
	c.TranscribeCall = append(c.TranscribeCall, audio)
	err := c.TranscribeErr
	c.mu.Unlock()
	if err != nil {
		return "", err
	}
	return string(audio), nil
}

// TranscribeCount is safe to use while other goroutines transcribe.
func (c *MockClient) TranscribeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.TranscribeCall)
}

func (c *MockClient) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if c.SynthesizeErr != nil {
		return nil, "", c.SynthesizeErr
	}
	return []byte(text), mpegMime, nil
}
