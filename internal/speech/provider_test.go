package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_ConcurrentTranscribe(t *testing.T) {
	c := NewMockClient()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text, err := c.Transcribe(context.Background(), []byte(fmt.Sprintf("clip %d", i)), "audio/webm")
			assert.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("clip %d", i), text)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 32, c.TranscribeCount())
}

func TestMockClient_TranscribeErrRecordsCall(t *testing.T) {
	c := NewMockClient()
	c.TranscribeErr = errors.New("bad audio")

	_, err := c.Transcribe(context.Background(), []byte("x"), "audio/webm")
	require.Error(t, err)
	assert.Equal(t, 1, c.TranscribeCount())
}

func TestNewClient_Providers(t *testing.T) {
	c, err := NewClient(ProviderMock, ElevenLabsConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, c)

	_, err = NewClient(ProviderElevenLabs, ElevenLabsConfig{})
	assert.Error(t, err)

	_, err = NewClient("whisper", ElevenLabsConfig{})
	assert.Error(t, err)
}
