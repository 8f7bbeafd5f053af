package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/domain/providers"
	"github.com/ritchermap/search-service/pkg/config"
	apperrors "github.com/ritchermap/search-service/pkg/errors"
)

// HTTPProvider implements CatalogProvider against the marker and content
// management services
type HTTPProvider struct {
	markerBaseURL string
	gameBaseURL   string
	httpClient    *http.Client
}

var _ providers.CatalogProvider = (*HTTPProvider)(nil)

// NewHTTPProvider creates a new catalog provider
func NewHTTPProvider(cfg *config.CatalogConfig) *HTTPProvider {
	return &HTTPProvider{
		markerBaseURL: strings.TrimRight(cfg.MarkerServiceURL, "/"),
		gameBaseURL:   strings.TrimRight(cfg.GameServiceURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ListMarkers returns one page of markers
func (p *HTTPProvider) ListMarkers(ctx context.Context, page, pageSize int) ([]*entities.CatalogMarker, error) {
	endpoint, err := pagedURL(p.markerBaseURL+"/api/v1/markers", page, pageSize)
	if err != nil {
		return nil, err
	}

	var response struct {
		Data []*entities.CatalogMarker `json:"data"`
	}
	if err := p.doJSON(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, apperrors.NewExternalError("failed to list markers", err)
	}
	return response.Data, nil
}

// ListGames returns one page of games
func (p *HTTPProvider) ListGames(ctx context.Context, page, pageSize int) ([]*entities.CatalogGame, error) {
	endpoint, err := pagedURL(p.gameBaseURL+"/api/v1/games", page, pageSize)
	if err != nil {
		return nil, err
	}

	var response struct {
		Data []*entities.CatalogGame `json:"data"`
	}
	if err := p.doJSON(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, apperrors.NewExternalError("failed to list games", err)
	}
	return response.Data, nil
}

// ListCategories returns the categories of one game
func (p *HTTPProvider) ListCategories(ctx context.Context, gameID string) ([]*entities.CatalogCategory, error) {
	if strings.TrimSpace(gameID) == "" {
		return nil, apperrors.NewValidationError("game id is required")
	}

	endpoint := fmt.Sprintf("%s/api/v1/games/%s/categories", p.gameBaseURL, url.PathEscape(gameID))

	var response struct {
		Data []*entities.CatalogCategory `json:"data"`
	}
	if err := p.doJSON(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, apperrors.NewExternalError("failed to list categories", err)
	}
	return response.Data, nil
}

func pagedURL(base string, page, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	if page > 0 {
		query.Set("page", fmt.Sprintf("%d", page))
	}
	if pageSize > 0 {
		query.Set("page_size", fmt.Sprintf("%d", pageSize))
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (p *HTTPProvider) doJSON(ctx context.Context, method, endpoint string, body io.Reader, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("catalog service returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
