package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ritchermap/search-service/internal/application/services"
)

// CacheMiddleware caches whole GET responses for read-heavy routes whose
// handlers do not cache themselves. Search and suggestion handlers carry
// their own finer-grained caching and are not listed here.
type CacheMiddleware struct {
	cache        *services.CacheService
	cachedRoutes []string
}

// NewCacheMiddleware creates a new response cache middleware
func NewCacheMiddleware(cache *services.CacheService) *CacheMiddleware {
	return &CacheMiddleware{
		cache: cache,
		cachedRoutes: []string{
			"/api/v1/analytics/metrics",
			"/api/v1/analytics/zero-result-queries",
		},
	}
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || m.cache == nil || !m.cacheable(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		key := m.cacheKey(r)
		if cached, ok := m.cache.Get(r.Context(), key); ok {
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}

		w.Header().Set("X-Cache", "MISS")
		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}
		next.ServeHTTP(recorder, r)

		if recorder.statusCode == http.StatusOK && recorder.body.Len() > 0 {
			if !m.cache.Set(r.Context(), key, recorder.body.Bytes(), services.CacheClassAPIResponse) {
				log.Debug().Str("key", key).Msg("response cache write skipped")
			}
		}
	})
}

func (m *CacheMiddleware) cacheable(path string) bool {
	for _, route := range m.cachedRoutes {
		if strings.HasPrefix(path, route) {
			return true
		}
	}
	return false
}

// cacheKey digests method, path and query so any parameter change is a
// distinct entry
func (m *CacheMiddleware) cacheKey(r *http.Request) string {
	raw := r.Method + ":" + r.URL.Path
	if r.URL.RawQuery != "" {
		raw += "?" + r.URL.RawQuery
	}
	sum := sha256.Sum256([]byte(raw))
	return m.cache.Keys().Key("api_response", hex.EncodeToString(sum[:16]))
}

// responseRecorder captures the response body for caching
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
