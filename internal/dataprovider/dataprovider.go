package dataprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"trading-journal-console/internal/backend"
)

// Sort orders accepted by the list endpoint.
const (
	OrderAsc  = "ASC"
	OrderDesc = "DESC"
)

// ListParams selects a page of a resource.
type ListParams struct {
	Sort   string
	Order  string
	Start  int
	End    int
	Filter map[string]string
}

// ListResult is one page of records plus the total across all pages.
type ListResult struct {
	Data  []json.RawMessage
	Total int
}

// Provider is the generic REST data gateway. Resources follow the json-server
// convention: /{resource} and /{resource}/{id}.
type Provider struct {
	api    backend.Doer
	logger *zap.Logger
}

// New creates a data gateway on top of the API client.
func New(api backend.Doer, logger *zap.Logger) *Provider {
	return &Provider{api: api, logger: logger.Named("data")}
}

// GetList fetches a sorted, filtered page. The total comes from X-Total-Count
// and falls back to the page length.
func (p *Provider) GetList(ctx context.Context, s *backend.Session, resource string, params ListParams) (*ListResult, error) {
	query := url.Values{}
	for key, value := range params.Filter {
		if value != "" {
			query.Set(key, value)
		}
	}
	if params.Sort != "" {
		order := strings.ToUpper(params.Order)
		if order != OrderDesc {
			order = OrderAsc
		}
		query.Set("_sort", params.Sort)
		query.Set("_order", order)
	}
	if params.End > params.Start {
		query.Set("_start", strconv.Itoa(params.Start))
		query.Set("_end", strconv.Itoa(params.End))
	}

	resp, err := p.api.Do(ctx, s, backend.Request{Method: http.MethodGet, Path: "/" + resource, Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", resource, err)
	}

	var rows []json.RawMessage
	if err := resp.DecodeData(&rows); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", resource, err)
	}

	total := len(rows)
	if header := resp.Header.Get("X-Total-Count"); header != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(header)); err == nil {
			total = n
		} else {
			p.logger.Warn("Ignoring malformed X-Total-Count", zap.String("resource", resource), zap.String("value", header))
		}
	}
	return &ListResult{Data: rows, Total: total}, nil
}

// GetOne fetches a single record. The API wraps it in a {"data": ...} envelope.
func (p *Provider) GetOne(ctx context.Context, s *backend.Session, resource, id string) (json.RawMessage, error) {
	resp, err := p.api.Do(ctx, s, backend.Request{Method: http.MethodGet, Path: recordPath(resource, id)})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", resource, id, err)
	}
	return backend.UnwrapData(resp.Data), nil
}

// GetMany fetches several records by id.
func (p *Provider) GetMany(ctx context.Context, s *backend.Session, resource string, ids []string) ([]json.RawMessage, error) {
	query := url.Values{"id": ids}
	resp, err := p.api.Do(ctx, s, backend.Request{Method: http.MethodGet, Path: "/" + resource, Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to get many %s: %w", resource, err)
	}
	var rows []json.RawMessage
	if err := resp.DecodeData(&rows); err != nil {
		return nil, fmt.Errorf("failed to get many %s: %w", resource, err)
	}
	return rows, nil
}

// Create posts a new record and returns it as stored, unwrapped from {"data": ...}.
func (p *Provider) Create(ctx context.Context, s *backend.Session, resource string, data interface{}) (json.RawMessage, error) {
	resp, err := p.api.Do(ctx, s, backend.Request{Method: http.MethodPost, Path: "/" + resource, Body: data})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", resource, err)
	}
	p.logger.Debug("Record created", zap.String("resource", resource))
	return backend.UnwrapData(resp.Data), nil
}

// Update replaces a record.
func (p *Provider) Update(ctx context.Context, s *backend.Session, resource, id string, data interface{}) (json.RawMessage, error) {
	resp, err := p.api.Do(ctx, s, backend.Request{Method: http.MethodPut, Path: recordPath(resource, id), Body: data})
	if err != nil {
		return nil, fmt.Errorf("failed to update %s %s: %w", resource, id, err)
	}
	return resp.Data, nil
}

// Delete removes a record.
func (p *Provider) Delete(ctx context.Context, s *backend.Session, resource, id string) error {
	if _, err := p.api.Do(ctx, s, backend.Request{Method: http.MethodDelete, Path: recordPath(resource, id)}); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", resource, id, err)
	}
	return nil
}

func recordPath(resource, id string) string {
	return "/" + resource + "/" + url.PathEscape(id)
}
