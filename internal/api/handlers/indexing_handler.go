package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ritchermap/search-service/internal/application/services"
	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/infrastructure/clients/typesense"
)

// IndexingHandler handles index write HTTP requests
type IndexingHandler struct {
	indexing *services.IndexingService
}

// NewIndexingHandler creates a new indexing handler
func NewIndexingHandler(indexing *services.IndexingService) *IndexingHandler {
	return &IndexingHandler{indexing: indexing}
}

// IndexDocument handles POST /api/v1/index/{collection}
func (h *IndexingHandler) IndexDocument(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")

	var err error
	switch collection {
	case typesense.MarkersCollection:
		marker := &entities.CatalogMarker{}
		if decodeErr := json.NewDecoder(r.Body).Decode(marker); decodeErr != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		err = h.indexing.IndexMarker(r.Context(), marker)
	case typesense.GamesCollection:
		game := &entities.CatalogGame{}
		if decodeErr := json.NewDecoder(r.Body).Decode(game); decodeErr != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		err = h.indexing.IndexGame(r.Context(), game)
	case typesense.CategoriesCollection:
		category := &entities.CatalogCategory{}
		if decodeErr := json.NewDecoder(r.Body).Decode(category); decodeErr != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		err = h.indexing.IndexCategory(r.Context(), category)
	default:
		respondWithError(w, http.StatusBadRequest, "unknown collection: "+collection)
		return
	}

	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "indexed"})
}

// DeleteDocument handles DELETE /api/v1/index/{collection}/{id}
func (h *IndexingHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.indexing.Delete(r.Context(), r.PathValue("collection"), r.PathValue("id")); err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Reindex handles POST /api/v1/index/reindex
func (h *IndexingHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	report, err := h.indexing.ReindexAll(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}
