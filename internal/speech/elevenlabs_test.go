package speech

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElevenLabs_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/speech-to-text", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "scribe_v2", r.FormValue("model_id"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "audio-bytes", string(data))
		assert.Equal(t, "audio/webm", hdr.Header.Get("Content-Type"))

		_ = json.NewEncoder(w).Encode(map[string]string{"text": "hello there"})
	}))
	defer srv.Close()

	c := NewElevenLabsClient(ElevenLabsConfig{APIKey: "secret", STTModel: "scribe_v2", BaseURL: srv.URL})
	text, err := c.Transcribe(context.Background(), []byte("audio-bytes"), "audio/webm")
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
}

func TestElevenLabs_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "audio/mpeg", r.Header.Get("Accept"))

		var body synthesisRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hi", body.Text)
		assert.Equal(t, "eleven_multilingual_v2", body.ModelID)

		_, _ = w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	c := NewElevenLabsClient(ElevenLabsConfig{APIKey: "k", VoiceID: "voice-1", TTSModel: "eleven_multilingual_v2", BaseURL: srv.URL})
	audio, mime, err := c.Synthesize(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), audio)
	assert.Equal(t, "audio/mpeg", mime)
}

func TestElevenLabs_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewElevenLabsClient(ElevenLabsConfig{APIKey: "k", VoiceID: "v", BaseURL: srv.URL})
	_, _, err := c.Synthesize(context.Background(), "hi")
	assert.ErrorContains(t, err, "429")
}
