package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by COS_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("COS_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

// ServerAddr returns the HTTP listen address. Defaults to 0.0.0.0:3000.
func ServerAddr() string {
	addr := os.Getenv("COS_HTTP_ADDR")
	if addr == "" {
		return "0.0.0.0:3000"
	}
	return addr
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// GraphBackend returns postgres, memory or none.
// Defaults to postgres when DATABASE_URL is set, memory otherwise.
func GraphBackend() string {
	b := strings.ToLower(os.Getenv("GRAPH_BACKEND"))
	if b != "" {
		return b
	}
	if DatabaseURL() != "" {
		return "postgres"
	}
	return "memory"
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// APIKey is the shared secret expected in X-API-Key. Empty disables the check.
func APIKey() string {
	return os.Getenv("COS_API_KEY")
}

// CORSOrigins returns the allowed origins. Defaults to all origins.
func CORSOrigins() []string {
	raw := os.Getenv("COS_CORS_ORIGINS")
	if raw == "" {
		return []string{"*"}
	}
	return splitList(raw)
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func CerebrasAPIKey() string {
	return os.Getenv("CEREBRAS_API_KEY")
}

// LLMProvider returns the configured completion provider.
// Defaults to "openai" if not set.
// Valid values: openai, anthropic, cerebras, mock
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// LLMModel overrides the provider's default chat model.
func LLMModel() string {
	if m := os.Getenv("LLM_MODEL"); m != "" {
		return m
	}
	return os.Getenv("OPENAI_MODEL")
}

// LLMAPIKey returns the API key for the configured completion provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "cerebras":
		return CerebrasAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// EmbeddingProvider returns the configured embedding provider.
// Defaults to "openai" when an OpenAI key is present, "mock" otherwise.
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p != "" {
		return p
	}
	if OpenAIAPIKey() != "" {
		return "openai"
	}
	return "mock"
}

func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// SpeechProvider returns elevenlabs when ELEVEN_API_KEY is set, mock otherwise.
func SpeechProvider() string {
	if p := os.Getenv("SPEECH_PROVIDER"); p != "" {
		return p
	}
	if ElevenAPIKey() != "" {
		return "elevenlabs"
	}
	return "mock"
}

func ElevenAPIKey() string {
	return os.Getenv("ELEVEN_API_KEY")
}

func ElevenVoiceID() string {
	return envOr("ELEVEN_VOICE_ID", "21m00Tcm4TlvDq8ikWAM")
}

func ElevenTTSModel() string {
	return envOr("ELEVEN_TTS_MODEL", "eleven_multilingual_v2")
}

func ElevenSTTModel() string {
	return envOr("ELEVEN_STT_MODEL", "scribe_v2")
}

// RAGTopK is the number of snippets retrieved per synthesis. Defaults to 3.
func RAGTopK() int {
	return intOr("RAG_TOP_K", 3)
}

// SubscriberBuffer is the per-subscriber queue depth. Defaults to 64.
func SubscriberBuffer() int {
	return intOr("SUBSCRIBER_BUFFER", 64)
}

// StreamKeepAlive is the SSE/WebSocket keep-alive period. Defaults to 10s.
func StreamKeepAlive() time.Duration {
	d, err := time.ParseDuration(os.Getenv("STREAM_KEEPALIVE"))
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

func ConversationCacheTurns() int {
	return intOr("CONVERSATION_CACHE_TURNS", 40)
}

func ConversationHistoryLoad() int {
	return intOr("CONVERSATION_HISTORY_LOAD", 20)
}

// DefaultAgentID is used by the chat command when no name is given.
func DefaultAgentID() string {
	return envOr("DEFAULT_AGENT_ID", "employee_1")
}

// OrgRoles parses ORG_ROLES ("employee_ann=hr,employee_max=ceo") into a map.
// Entries without "=" are ignored.
func OrgRoles() map[string]string {
	out := make(map[string]string)
	for _, entry := range splitList(os.Getenv("ORG_ROLES")) {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	return intOr("RATE_LIMIT_BURST", 20)
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intOr(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
