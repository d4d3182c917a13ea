package lookup

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"trading-journal-console/internal/backend"
	"trading-journal-console/internal/models"
)

// Service reads the API's lookup lists.
type Service struct {
	api backend.Doer
}

// New creates a lookup service.
func New(api backend.Doer) *Service {
	return &Service{api: api}
}

// Exchanges returns the supported exchanges ordered by name.
func (s *Service) Exchanges(ctx context.Context, sess *backend.Session) ([]models.Exchange, error) {
	var exchanges []models.Exchange
	if err := s.fetch(ctx, sess, "/lookup/exchanges", &exchanges); err != nil {
		return nil, fmt.Errorf("failed to load exchanges: %w", err)
	}
	sort.SliceStable(exchanges, func(i, j int) bool {
		return strings.ToLower(exchanges[i].Name) < strings.ToLower(exchanges[j].Name)
	})
	return exchanges, nil
}

// Pairs returns the tradable pairs in API order.
func (s *Service) Pairs(ctx context.Context, sess *backend.Session) ([]models.Pair, error) {
	var pairs []models.Pair
	if err := s.fetch(ctx, sess, "/lookup/pairs", &pairs); err != nil {
		return nil, fmt.Errorf("failed to load pairs: %w", err)
	}
	return pairs, nil
}

func (s *Service) fetch(ctx context.Context, sess *backend.Session, path string, out interface{}) error {
	resp, err := s.api.Do(ctx, sess, backend.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return err
	}
	return resp.DecodeData(out)
}
