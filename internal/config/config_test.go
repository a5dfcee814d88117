package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	for _, key := range []string{"COS_HTTP_ADDR", "RAG_TOP_K", "SUBSCRIBER_BUFFER", "STREAM_KEEPALIVE", "DATABASE_URL", "GRAPH_BACKEND", "COS_CORS_ORIGINS"} {
		t.Setenv(key, "")
	}

	assert.Equal(t, "0.0.0.0:3000", ServerAddr())
	assert.Equal(t, 3, RAGTopK())
	assert.Equal(t, 64, SubscriberBuffer())
	assert.Equal(t, 10*time.Second, StreamKeepAlive())
	assert.Equal(t, "memory", GraphBackend())
	assert.Equal(t, []string{"*"}, CORSOrigins())
}

func TestGraphBackend_PostgresWhenDatabaseURLSet(t *testing.T) {
	t.Setenv("GRAPH_BACKEND", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/cos")

	assert.Equal(t, "postgres", GraphBackend())

	t.Setenv("GRAPH_BACKEND", "None")
	assert.Equal(t, "none", GraphBackend())
}

func TestOrgRoles(t *testing.T) {
	t.Setenv("ORG_ROLES", "employee_ann=hr, employee_max = ceo,broken")

	roles := OrgRoles()
	assert.Equal(t, map[string]string{"employee_ann": "hr", "employee_max": "ceo"}, roles)
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("RAG_TOP_K", "-2")
	t.Setenv("RATE_LIMIT_RPS", "abc")

	assert.Equal(t, 3, RAGTopK())
	assert.Equal(t, float64(100), RateLimitRPS())
}
