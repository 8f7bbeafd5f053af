package cachekeys

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// none is the sentinel for absent optional components. It is distinct from
// the digest of an empty map or string, so "filter omitted" and "filter
// empty" never collide.
const none = "none"

// longComponentLimit is the length above which free-text components are
// collapsed to a digest to bound key length.
const longComponentLimit = 50

// digestLen is the hex length of collapsed components.
const digestLen = 16

// Builder derives deterministic cache keys from structured request inputs.
// Equal logical content always yields the identical key string regardless
// of input ordering; the zero-value prefix is replaced with "ritchermap".
type Builder struct {
	prefix string
}

// NewBuilder creates a key builder with the given namespace prefix
func NewBuilder(prefix string) *Builder {
	if prefix == "" {
		prefix = "ritchermap"
	}
	return &Builder{prefix: prefix}
}

// Key joins the namespace and cleaned components under the builder prefix.
// It never fails and never returns an empty string.
func (b *Builder) Key(namespace string, components ...string) string {
	parts := make([]string, 0, len(components)+2)
	parts = append(parts, b.prefix, namespace)
	for _, c := range components {
		parts = append(parts, cleanComponent(c))
	}
	return strings.Join(parts, ":")
}

// HashMap canonicalizes a map component: keys are sorted before
// serialization, so insertion order never changes the digest.
func HashMap(data map[string]string) string {
	if len(data) == 0 {
		if data == nil {
			return none
		}
		return digest("{}")
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(data[k])
		sb.WriteByte(';')
	}
	return digest(sb.String())
}

// SearchResults builds the cache key for a search response
func (b *Builder) SearchResults(query string, filters map[string]string, searchType, sort string, page, pageSize int) string {
	return b.Key("search", query, HashMap(filters), searchType, sort, fmt.Sprintf("%d", page), fmt.Sprintf("%d", pageSize))
}

// Autocomplete builds the cache key for suggestion lookups
func (b *Builder) Autocomplete(query, searchType string) string {
	if searchType == "" {
		searchType = "all"
	}
	return b.Key("autocomplete", query, searchType)
}

// Recommendations builds the cache key for a recommendation request
func (b *Builder) Recommendations(userID, itemID, itemType, gameID, strategy string, limit int) string {
	if userID == "" {
		userID = "anon"
	}
	if gameID == "" {
		gameID = "all"
	}
	return b.Key("recommendations", userID, itemID, itemType, gameID, fmt.Sprintf("%d", limit), strategy)
}

// Trending builds the cache key for trending data
func (b *Builder) Trending(dataType, timePeriod, itemType string) string {
	if itemType == "" {
		itemType = "all"
	}
	return b.Key("trending", dataType, timePeriod, itemType)
}

// Analytics builds the cache key for windowed analytics metrics
func (b *Builder) Analytics(metricType, timePeriod string, filters map[string]string) string {
	return b.Key("analytics", metricType, timePeriod, HashMap(filters))
}

// UserSession builds the cache key for per-user session data
func (b *Builder) UserSession(userID string) string {
	return b.Key("session", userID)
}

// Counter builds the cache key for a dated realtime counter
func (b *Builder) Counter(counterType, date string) string {
	return b.Key("counter", counterType, date)
}

// PopularItems builds the cache key for click-derived popular items
func (b *Builder) PopularItems(itemType, timePeriod string, limit int) string {
	return b.Key("popular", itemType, timePeriod, fmt.Sprintf("%d", limit))
}

func cleanComponent(s string) string {
	if s == "" {
		return none
	}
	if len(s) > longComponentLimit {
		return digest(s)
	}

	var sb strings.Builder
	for _, c := range strings.ToLower(s) {
		if c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' || c == '_' {
			sb.WriteRune(c)
		}
	}
	if sb.Len() == 0 {
		return none
	}
	return sb.String()
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:digestLen]
}
