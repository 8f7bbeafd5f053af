package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritchermap/search-service/internal/application/services"
	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/domain/repositories"
)

// writeIndex records index writes
type writeIndex struct {
	stubIndex
	mu      sync.Mutex
	indexed map[string]int
	deleted []string
}

func (s *writeIndex) IndexDocument(ctx context.Context, collection string, doc map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexed == nil {
		s.indexed = map[string]int{}
	}
	s.indexed[collection]++
	return nil
}

func (s *writeIndex) DeleteDocument(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, collection+"/"+id)
	return nil
}

// pagedCatalog serves a fixed single page
type pagedCatalog struct {
	markers []*entities.CatalogMarker
}

func (c *pagedCatalog) ListMarkers(ctx context.Context, page, pageSize int) ([]*entities.CatalogMarker, error) {
	if page > 1 {
		return nil, nil
	}
	return c.markers, nil
}

func (c *pagedCatalog) ListGames(ctx context.Context, page, pageSize int) ([]*entities.CatalogGame, error) {
	return nil, nil
}

func (c *pagedCatalog) ListCategories(ctx context.Context, gameID string) ([]*entities.CatalogCategory, error) {
	return nil, nil
}

func newIndexingHandlerFixture() (*IndexingHandler, *writeIndex) {
	index := &writeIndex{}
	svc := services.NewIndexingService(index, &pagedCatalog{
		markers: []*entities.CatalogMarker{{ID: "m1", Title: "Korok Seed"}},
	}, nil, 0)
	return NewIndexingHandler(svc), index
}

// routedRequest runs a request through a mux so PathValue resolves
func routedRequest(handler http.HandlerFunc, pattern, method, target string, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestIndexingHandler_IndexMarker(t *testing.T) {
	handler, index := newIndexingHandlerFixture()

	w := routedRequest(handler.IndexDocument, "POST /api/v1/index/{collection}",
		"POST", "/api/v1/index/markers", `{"id":"m1","title":"Korok Seed","game_id":"g1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, index.indexed["markers"])
}

func TestIndexingHandler_UnknownCollection(t *testing.T) {
	handler, _ := newIndexingHandlerFixture()

	w := routedRequest(handler.IndexDocument, "POST /api/v1/index/{collection}",
		"POST", "/api/v1/index/planets", `{"id":"p1"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIndexingHandler_InvalidBody(t *testing.T) {
	handler, _ := newIndexingHandlerFixture()

	w := routedRequest(handler.IndexDocument, "POST /api/v1/index/{collection}",
		"POST", "/api/v1/index/markers", "{broken")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIndexingHandler_MissingID(t *testing.T) {
	handler, _ := newIndexingHandlerFixture()

	w := routedRequest(handler.IndexDocument, "POST /api/v1/index/{collection}",
		"POST", "/api/v1/index/markers", `{"title":"no id"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIndexingHandler_Delete(t *testing.T) {
	handler, index := newIndexingHandlerFixture()

	w := routedRequest(handler.DeleteDocument, "DELETE /api/v1/index/{collection}/{id}",
		"DELETE", "/api/v1/index/markers/m1", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"markers/m1"}, index.deleted)
}

func TestIndexingHandler_Reindex(t *testing.T) {
	handler, _ := newIndexingHandlerFixture()

	w := routedRequest(handler.Reindex, "POST /api/v1/index/reindex",
		"POST", "/api/v1/index/reindex", "")

	require.Equal(t, http.StatusOK, w.Code)

	report := services.ReindexReport{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.Equal(t, repositories.BulkResult{Indexed: 1}, report.Markers)
}
