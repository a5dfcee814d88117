package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	elevenBaseURL = "https://api.elevenlabs.io/v1"
	mpegMime      = "audio/mpeg"
)

// ElevenLabsClient implements transcription and speech synthesis.
type ElevenLabsClient struct {
	apiKey     string
	voiceID    string
	ttsModel   string
	sttModel   string
	baseURL    string
	httpClient *http.Client
}

type ElevenLabsConfig struct {
	APIKey   string
	VoiceID  string
	TTSModel string
	STTModel string
	BaseURL  string
}

func NewElevenLabsClient(cfg ElevenLabsConfig) *ElevenLabsClient {
	base := cfg.BaseURL
	if base == "" {
		base = elevenBaseURL
	}
	return &ElevenLabsClient{
		apiKey:     cfg.APIKey,
		voiceID:    cfg.VoiceID,
		ttsModel:   cfg.TTSModel,
		sttModel:   cfg.STTModel,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (c *ElevenLabsClient) Transcribe(ctx context.Context, audio []byte, mime string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("model_id", c.sttModel); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="audio"`)
	if strings.TrimSpace(mime) == "" {
		mime = "application/octet-stream"
	}
	header.Set("Content-Type", mime)
	part, err := w.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speech-to-text", &body)
	if err != nil {
		return "", fmt.Errorf("create stt request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("xi-api-key", c.apiKey)

	respBody, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("stt: %w", err)
	}

	var result transcriptionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal stt response: %w", err)
	}
	return result.Text, nil
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	payload, err := json.Marshal(synthesisRequest{
		Text:          text,
		ModelID:       c.ttsModel,
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if err != nil {
		return nil, "", fmt.Errorf("marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-speech/"+c.voiceID, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", mpegMime)
	req.Header.Set("xi-api-key", c.apiKey)

	audio, err := c.do(req)
	if err != nil {
		return nil, "", fmt.Errorf("tts: %w", err)
	}
	return audio, mpegMime, nil
}

func (c *ElevenLabsClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
