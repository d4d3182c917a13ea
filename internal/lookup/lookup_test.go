package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trading-journal-console/internal/backend"
	"trading-journal-console/internal/config"
)

func TestLookups(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lookup/exchanges":
			_, _ = w.Write([]byte(`[{"id":2,"name":"MEXC"},{"id":1,"name":"Binance"},{"id":3,"name":"KuCoin"}]`))
		case "/lookup/pairs":
			_, _ = w.Write([]byte(`{"data":[{"id":1,"symbol":"BTCUSDT"},{"id":2,"symbol":"ETHUSDT"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	server := httptest.NewServer(handler)
	defer server.Close()
	api := backend.NewClient(&config.API{BaseURL: server.URL, Timeout: time.Second, RateLimit: 100, RateLimitBurst: 10}, zap.NewNop(), nil)
	svc := New(api)

	t.Run("Exchanges sorted by name", func(t *testing.T) {
		exchanges, err := svc.Exchanges(context.Background(), backend.NewSession())
		require.NoError(t, err)
		require.Len(t, exchanges, 3)
		assert.Equal(t, "Binance", exchanges[0].Name)
		assert.Equal(t, "KuCoin", exchanges[1].Name)
		assert.Equal(t, "MEXC", exchanges[2].Name)
	})

	t.Run("Pairs in envelope", func(t *testing.T) {
		pairs, err := svc.Pairs(context.Background(), backend.NewSession())
		require.NoError(t, err)
		require.Len(t, pairs, 2)
		assert.Equal(t, "BTCUSDT", pairs[0].Symbol)
	})
}
