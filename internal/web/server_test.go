package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trading-journal-console/internal/auth"
	"trading-journal-console/internal/backend"
	"trading-journal-console/internal/config"
	"trading-journal-console/internal/database"
	"trading-journal-console/internal/dataprovider"
	"trading-journal-console/internal/exchangekeys"
	"trading-journal-console/internal/lookup"
)

const sessionCookie = "session"

// fakeAPI is a minimal trading journal API. A request is authenticated when
// it carries session=valid.
type fakeAPI struct {
	mu        sync.Mutex
	requests  []string
	lastQuery url.Values
	created   []map[string]interface{}
}

func (f *fakeAPI) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
}

func (f *fakeAPI) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.requests {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	c, err := r.Cookie(sessionCookie)
	authed := err == nil && c.Value == "valid"

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "gooduser" || body["password"] != "goodpass" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"bad credentials"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "valid", Path: "/", Domain: "api.example", HttpOnly: true})
		_, _ = w.Write([]byte(`{"ok":true}`))
	case r.Method == http.MethodPost && r.URL.Path == "/auth/register":
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodPost && r.URL.Path == "/logout":
		w.WriteHeader(http.StatusNoContent)
	case !authed:
		w.WriteHeader(http.StatusUnauthorized)
	case r.URL.Path == "/me":
		_, _ = w.Write([]byte(`{"user":{"id":5,"username":"jane","first_name":"Jane","last_name":"Doe"}}`))
	case r.URL.Path == "/lookup/exchanges":
		_, _ = w.Write([]byte(`[{"id":1,"name":"Binance"},{"id":2,"name":"KuCoin"},{"id":3,"name":"MEXC"}]`))
	case r.URL.Path == "/lookup/pairs":
		_, _ = w.Write([]byte(`{"data":[{"id":1,"symbol":"BTC/USDT"},{"id":2,"symbol":"ETH/USDT"}]}`))
	case r.URL.Path == "/user-exchanges/forms":
		_, _ = w.Write([]byte(`[]`))
	case r.Method == http.MethodPost && r.URL.Path == "/user-exchanges":
		_, _ = w.Write([]byte(`{"data":{"id":9}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/trades":
		f.mu.Lock()
		f.lastQuery = r.URL.Query()
		f.mu.Unlock()
		w.Header().Set("X-Total-Count", "2")
		_, _ = w.Write([]byte(`[
			{"id":2,"symbol":"ETHUSDT","type":"spot","entry_price":3000,"exchange":"KuCoin","trade_date":"2024-04-28"},
			{"id":1,"symbol":"BTCUSDT","type":"futures","entry_price":64000,"exit_price":65000,"leverage":10,"exchange":"Binance","trade_date":"2024-04-20"}
		]`))
	case r.Method == http.MethodPost && r.URL.Path == "/trades":
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.created = append(f.created, body)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"data":{"id":3}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func setupServer(t *testing.T) (http.Handler, *fakeAPI) {
	t.Helper()
	fake := &fakeAPI{}
	api := httptest.NewServer(fake)
	t.Cleanup(api.Close)

	log := zap.NewNop()
	client := backend.NewClient(&config.API{BaseURL: api.URL, Timeout: 5 * time.Second, RateLimit: 1000, RateLimitBurst: 100}, log, nil)
	lookups := lookup.New(client)

	db, err := database.NewDatabase("file:" + database.NewKey() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	srv, err := NewServer(config.Server{CookiePrefix: "tj_", PageSize: 25}, Deps{
		Auth:    auth.NewGateway(client, log, "PUT"),
		Data:    dataprovider.New(client, log),
		Lookups: lookups,
		Keys:    exchangekeys.NewManager(client, lookups, log),
		Drafts:  database.NewDraftStore(db, log),
		Ping:    sqlDB.PingContext,
	}, log)
	require.NoError(t, err)
	return srv.server.Handler, fake
}

func do(h http.Handler, method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var valid = &http.Cookie{Name: sessionCookie, Value: "valid"}

func TestLogin(t *testing.T) {
	t.Run("Rejected credentials stay on the login page", func(t *testing.T) {
		// Arrange
		h, _ := setupServer(t)

		// Act
		rec := do(h, http.MethodPost, "/login", url.Values{"username": {"baduser"}, "password": {"badpass"}})

		// Assert
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Header().Get("Location"))
		assert.Contains(t, rec.Body.String(), "Invalid credentials")
		assert.Contains(t, rec.Body.String(), `value="baduser"`)
	})

	t.Run("Accepted credentials go to the root", func(t *testing.T) {
		h, _ := setupServer(t)

		rec := do(h, http.MethodPost, "/login", url.Values{"username": {"gooduser"}, "password": {"goodpass"}})

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookie, cookies[0].Name)
		assert.Equal(t, "valid", cookies[0].Value)
		assert.Empty(t, cookies[0].Domain)
	})
}

func TestRouteGating(t *testing.T) {
	t.Run("No session", func(t *testing.T) {
		h, fake := setupServer(t)

		rec := do(h, http.MethodGet, "/trades", nil)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
		assert.Zero(t, fake.count("GET /trades"))
	})

	t.Run("Refused session is expired", func(t *testing.T) {
		h, _ := setupServer(t)

		rec := do(h, http.MethodGet, "/", nil, &http.Cookie{Name: sessionCookie, Value: "stale"})

		assert.Equal(t, "/login", rec.Header().Get("Location"))
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookie, cookies[0].Name)
		assert.True(t, cookies[0].MaxAge < 0)
	})

	t.Run("Console cookies are not forwarded", func(t *testing.T) {
		h, _ := setupServer(t)

		rec := do(h, http.MethodGet, "/", nil, &http.Cookie{Name: "tj_flash", Value: "info%7Chello"})

		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})
}

func TestDashboard(t *testing.T) {
	h, _ := setupServer(t)

	rec := do(h, http.MethodGet, "/", nil, valid)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome, Jane Doe!")
}

func TestRegisterFlashesOnLogin(t *testing.T) {
	h, _ := setupServer(t)

	rec := do(h, http.MethodPost, "/register", url.Values{"username": {"new"}, "password": {"pw"}})
	require.Equal(t, "/login", rec.Header().Get("Location"))
	flash := rec.Result().Cookies()[0]

	page := do(h, http.MethodGet, "/login", nil, flash)

	assert.Contains(t, page.Body.String(), "User created successfully")
}

func TestTradeList(t *testing.T) {
	h, fake := setupServer(t)

	rec := do(h, http.MethodGet, "/trades?symbol=BTC&sort=symbol&order=asc&page=2", nil, valid)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTC", fake.lastQuery.Get("symbol"))
	assert.Equal(t, "symbol", fake.lastQuery.Get("_sort"))
	assert.Equal(t, "ASC", fake.lastQuery.Get("_order"))
	assert.Equal(t, "25", fake.lastQuery.Get("_start"))
	assert.Equal(t, "50", fake.lastQuery.Get("_end"))
	assert.Contains(t, rec.Body.String(), "ETHUSDT")
}

func TestExportCSV(t *testing.T) {
	h, _ := setupServer(t)

	rec := do(h, http.MethodGet, "/trades/export.csv", nil, valid)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2,ETHUSDT,spot,3000,,,KuCoin,2024-04-28", lines[1])
	assert.Equal(t, "1,BTCUSDT,futures,64000,65000,10,Binance,2024-04-20", lines[2])
}

func TestTradeCreateValidation(t *testing.T) {
	h, fake := setupServer(t)

	rec := do(h, http.MethodPost, "/trades", url.Values{"symbol": {""}, "leverage": {"ten"}}, valid)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Must be a number")
	assert.Zero(t, fake.count("POST /trades"))
}

func TestTradeCreateRejectsNonFinite(t *testing.T) {
	h, fake := setupServer(t)

	rec := do(h, http.MethodPost, "/trades", url.Values{"symbol": {"BTCUSDT"}, "type": {"futures"}, "leverage": {"Inf"}, "entry_price": {"NaN"}}, valid)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Must be a number")
	assert.Zero(t, fake.count("POST /trades"))
}

func TestExchangeKeysRequiredKey(t *testing.T) {
	h, fake := setupServer(t)

	rec := do(h, http.MethodPost, "/exchange-keys/3", url.Values{"apiSecret": {"s"}}, valid)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Required")
	assert.Zero(t, fake.count("POST /user-exchanges"))
}

func TestTradeEntry(t *testing.T) {
	// Arrange
	h, fake := setupServer(t)
	start := do(h, http.MethodGet, "/entry", nil, valid)
	require.Equal(t, http.StatusSeeOther, start.Code)
	entry := start.Header().Get("Location")
	require.True(t, strings.HasPrefix(entry, "/entry/"))

	// Act
	do(h, http.MethodPost, entry, url.Values{"exchange": {"Binance"}, "pair": {"BTC/USDT"}, "action": {"set:orderType=Limit"}}, valid)
	do(h, http.MethodPost, entry, url.Values{"price": {"64000"}, "action": {"toggle:isLong"}}, valid)
	do(h, http.MethodPost, entry, url.Values{"exchange": {"MEXC"}, "leverage": {"5"}}, valid)
	rec := do(h, http.MethodPost, entry, url.Values{"action": {"submit"}}, valid)

	// Assert
	assert.Equal(t, "/trades", rec.Header().Get("Location"))
	require.Len(t, fake.created, 1)
	payload := fake.created[0]
	assert.Equal(t, "MEXC", payload["exchange"])
	assert.Equal(t, "BTC/USDT", payload["pair"])
	assert.Equal(t, 5.0, payload["leverage"])
	assert.NotContains(t, payload, "orderType")
	assert.Equal(t, 64000.0, payload["price"])
	assert.NotContains(t, payload, "isLong")
	assert.NotContains(t, payload, "assetMode")

	again := do(h, http.MethodGet, entry, nil, valid)
	assert.Equal(t, "/entry", again.Header().Get("Location"))
}

func TestTradeEntryValidation(t *testing.T) {
	h, fake := setupServer(t)
	entry := do(h, http.MethodGet, "/entry", nil, valid).Header().Get("Location")

	rec := do(h, http.MethodPost, entry, url.Values{"exchange": {"KuCoin"}, "action": {"submit"}}, valid)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Trading Pair: Required")
	assert.Empty(t, fake.created)
}

func TestTradeEntryBelongsToSession(t *testing.T) {
	// Arrange
	h, fake := setupServer(t)
	entry := do(h, http.MethodGet, "/entry", nil, valid).Header().Get("Location")
	do(h, http.MethodPost, entry, url.Values{"exchange": {"MEXC"}, "pair": {"BTC/USDT"}, "notes": {"private"}}, valid)
	other := &http.Cookie{Name: "device", Value: "b"}

	// Act
	page := do(h, http.MethodGet, entry, nil, valid, other)
	submit := do(h, http.MethodPost, entry, url.Values{"action": {"submit"}}, valid, other)

	// Assert
	assert.Equal(t, "/entry", page.Header().Get("Location"))
	assert.NotContains(t, page.Body.String(), "private")
	assert.Equal(t, "/entry", submit.Header().Get("Location"))
	assert.Empty(t, fake.created)

	own := do(h, http.MethodGet, entry, nil, valid)
	assert.Equal(t, http.StatusOK, own.Code)
	assert.Contains(t, own.Body.String(), "private")
}

func TestHealth(t *testing.T) {
	h, _ := setupServer(t)

	rec := do(h, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}
