package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAPIKey(t *testing.T) {
	h := APIKey("s3cret")(okHandler)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"prefix", "s3cre", http.StatusUnauthorized},
		{"correct", "s3cret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/traces", nil)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"unauthorized"`)
			}
		})
	}
}

func TestAPIKey_DisabledWhenEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	APIKey("")(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIdentity(t *testing.T) {
	var seen string
	h := Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ViewerFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/stream?employee_name=Sarah", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "employee_sarah", seen)

	req = httptest.NewRequest(http.MethodGet, "/v1/stream?employee_name=Sarah", nil)
	req.Header.Set(EmployeeHeader, " John ")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "employee_john", seen)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "", seen)
}

func TestRateLimit_PerViewer(t *testing.T) {
	h := Identity(RateLimit(0.0001, 1)(okHandler))

	do := func(name string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(EmployeeHeader, name)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("bob"))
	assert.Equal(t, http.StatusTooManyRequests, do("bob"))
	assert.Equal(t, http.StatusOK, do("sarah"))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Len(t, seen, 36)
}

func TestMetricsCollector_CountsErrors(t *testing.T) {
	var requests, errs atomic.Int64
	mc := NewMetricsCollector(&requests, &errs)

	fail := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	mc.Middleware(okHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	mc.Middleware(fail).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, int64(2), requests.Load())
	assert.Equal(t, int64(1), errs.Load())
}

func TestResponseWriter_Flushes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	var f http.Flusher = rw
	f.Flush()
	assert.True(t, rec.Flushed)
}
