package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"trading-journal-console/internal/backend"
	"trading-journal-console/internal/dataprovider"
	"trading-journal-console/internal/export"
	"trading-journal-console/internal/models"
)

const tradesResource = "trades"

// tradeColumns are the list columns; Key is the sort field.
var tradeColumns = []struct{ Key, Label string }{
	{"id", "ID"},
	{"symbol", "Symbol"},
	{"type", "Type"},
	{"entry_price", "Entry Price"},
	{"exit_price", "Exit Price"},
	{"leverage", "Leverage"},
	{"exchange", "Exchange"},
	{"trade_date", "Trade Date"},
}

// listQuery is the trade list state carried in the URL.
type listQuery struct {
	Symbol  string
	DateGTE string
	DateLTE string
	Sort    string
	Order   string
	Page    int
}

func parseListQuery(q url.Values) listQuery {
	lq := listQuery{
		Symbol:  strings.TrimSpace(q.Get("symbol")),
		DateGTE: strings.TrimSpace(q.Get("date_gte")),
		DateLTE: strings.TrimSpace(q.Get("date_lte")),
		Sort:    "id",
		Order:   dataprovider.OrderDesc,
		Page:    1,
	}
	for _, c := range tradeColumns {
		if c.Key == q.Get("sort") {
			lq.Sort = c.Key
		}
	}
	if strings.EqualFold(q.Get("order"), dataprovider.OrderAsc) {
		lq.Order = dataprovider.OrderAsc
	}
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		lq.Page = p
	}
	return lq
}

func (lq listQuery) params(pageSize int) dataprovider.ListParams {
	start := (lq.Page - 1) * pageSize
	return dataprovider.ListParams{
		Sort:  lq.Sort,
		Order: lq.Order,
		Start: start,
		End:   start + pageSize,
		Filter: map[string]string{
			"symbol":   lq.Symbol,
			"date_gte": lq.DateGTE,
			"date_lte": lq.DateLTE,
		},
	}
}

func (lq listQuery) values() url.Values {
	v := url.Values{}
	for key, value := range map[string]string{"symbol": lq.Symbol, "date_gte": lq.DateGTE, "date_lte": lq.DateLTE} {
		if value != "" {
			v.Set(key, value)
		}
	}
	v.Set("sort", lq.Sort)
	v.Set("order", lq.Order)
	if lq.Page > 1 {
		v.Set("page", strconv.Itoa(lq.Page))
	}
	return v
}

func (lq listQuery) url(path string, change func(*listQuery)) string {
	next := lq
	if change != nil {
		change(&next)
	}
	return withQuery(path, next.values())
}

type columnView struct {
	Label  string
	URL    string
	Active bool
	Desc   bool
}

type tradesView struct {
	Query   listQuery
	Columns []columnView
	Rows    [][]string
	IDs     []int64
	Total   int
	Page    int
	Pages   int
	PrevURL string
	NextURL string
	CSVURL  string
	PDFURL  string
}

// loadTrades fetches the rows the list currently shows.
func (s *Server) loadTrades(r *http.Request, lq listQuery) ([]models.Trade, int, error) {
	result, err := s.deps.Data.GetList(r.Context(), sessionFrom(r), tradesResource, lq.params(s.cfg.PageSize))
	if err != nil {
		return nil, 0, err
	}
	trades := make([]models.Trade, 0, len(result.Data))
	for _, raw := range result.Data {
		var t models.Trade
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, 0, fmt.Errorf("failed to decode trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, result.Total, nil
}

func (s *Server) tradeList(w http.ResponseWriter, r *http.Request) {
	lq := parseListQuery(r.URL.Query())
	trades, total, err := s.loadTrades(r, lq)
	if err != nil {
		s.fail(w, r, err, "Failed to load trades", "/")
		return
	}

	view := tradesView{
		Query:  lq,
		Total:  total,
		Page:   lq.Page,
		Pages:  (total + s.cfg.PageSize - 1) / s.cfg.PageSize,
		CSVURL: lq.url("/trades/export.csv", nil),
		PDFURL: lq.url("/trades/export.pdf", nil),
	}
	for _, c := range tradeColumns {
		key := c.Key
		active := lq.Sort == key
		view.Columns = append(view.Columns, columnView{
			Label:  c.Label,
			Active: active,
			Desc:   active && lq.Order == dataprovider.OrderDesc,
			URL: lq.url("/trades", func(q *listQuery) {
				q.Page = 1
				if q.Sort == key && q.Order == dataprovider.OrderAsc {
					q.Order = dataprovider.OrderDesc
				} else {
					q.Order = dataprovider.OrderAsc
				}
				q.Sort = key
			}),
		})
	}
	for _, t := range trades {
		view.Rows = append(view.Rows, export.Row(t))
		view.IDs = append(view.IDs, t.ID)
	}
	if lq.Page > 1 {
		view.PrevURL = lq.url("/trades", func(q *listQuery) { q.Page-- })
	}
	if lq.Page < view.Pages {
		view.NextURL = lq.url("/trades", func(q *listQuery) { q.Page++ })
	}

	s.render(w, r, http.StatusOK, "trades", Page{Title: "Trades", Nav: true, Data: view})
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, "text/csv; charset=utf-8", "csv", func(w http.ResponseWriter, trades []models.Trade) error {
		return export.CSV(w, trades)
	})
}

func (s *Server) exportPDF(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, "application/pdf", "pdf", func(w http.ResponseWriter, trades []models.Trade) error {
		return export.PDF(w, "Trades", trades)
	})
}

// download reloads the rows of the list query in the URL and streams them as a file.
func (s *Server) download(w http.ResponseWriter, r *http.Request, contentType, ext string, write func(http.ResponseWriter, []models.Trade) error) {
	lq := parseListQuery(r.URL.Query())
	trades, _, err := s.loadTrades(r, lq)
	if err != nil {
		s.fail(w, r, err, "Failed to export trades", lq.url("/trades", nil))
		return
	}

	s.relay(w, r)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="trades-%s.%s"`, s.now().Format("20060102-150405"), ext))
	if err := write(w, trades); err != nil {
		s.logger.Error("Export failed", zap.String("format", ext), zap.Error(err))
	}
}

type tradeFormView struct {
	ID     string
	Values map[string]string
	Errors map[string]string
	Types  []string
}

// tradeNumberFields are the optional numeric inputs of the record form.
var tradeNumberFields = []string{"leverage", "entry_price", "exit_price", "fee", "stop_loss", "take_profit"}

func tradeValues(t models.Trade) map[string]string {
	number := func(v *float64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	}
	date := t.TradeDate
	if len(date) > 10 {
		date = date[:10]
	}
	return map[string]string{
		"symbol":      t.Symbol,
		"type":        t.Type,
		"leverage":    number(t.Leverage),
		"entry_price": number(t.EntryPrice),
		"exit_price":  number(t.ExitPrice),
		"fee":         number(t.Fee),
		"indicators":  t.Indicators,
		"sentiment":   t.Sentiment,
		"stop_loss":   number(t.StopLoss),
		"take_profit": number(t.TakeProfit),
		"exchange":    t.Exchange,
		"trade_date":  date,
		"notes":       t.Notes,
	}
}

// parseTrade reads the record form. Field errors are returned, not Go errors.
func parseTrade(r *http.Request) (models.Trade, map[string]string, map[string]string) {
	values := map[string]string{}
	for _, name := range []string{"symbol", "type", "indicators", "sentiment", "exchange", "trade_date", "notes"} {
		values[name] = strings.TrimSpace(r.PostFormValue(name))
	}
	for _, name := range tradeNumberFields {
		values[name] = strings.TrimSpace(r.PostFormValue(name))
	}

	errs := map[string]string{}
	t := models.Trade{
		Symbol:     values["symbol"],
		Type:       values["type"],
		Indicators: values["indicators"],
		Sentiment:  values["sentiment"],
		Exchange:   values["exchange"],
		TradeDate:  values["trade_date"],
		Notes:      values["notes"],
	}
	if t.Symbol == "" {
		errs["symbol"] = "Required"
	}
	if t.Type != "" && t.Type != models.TradeTypeSpot && t.Type != models.TradeTypeFutures {
		errs["type"] = "Choose spot or futures"
	}
	if t.TradeDate != "" {
		if _, err := time.Parse("2006-01-02", t.TradeDate); err != nil {
			errs["trade_date"] = "Invalid date"
		}
	}

	targets := map[string]**float64{
		"leverage":    &t.Leverage,
		"entry_price": &t.EntryPrice,
		"exit_price":  &t.ExitPrice,
		"fee":         &t.Fee,
		"stop_loss":   &t.StopLoss,
		"take_profit": &t.TakeProfit,
	}
	for _, name := range tradeNumberFields {
		raw := values[name]
		if raw == "" {
			continue
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			errs[name] = "Must be a number"
			continue
		}
		*targets[name] = &n
	}
	return t, values, errs
}

func (s *Server) renderTradeForm(w http.ResponseWriter, r *http.Request, status int, view tradeFormView) {
	view.Types = []string{models.TradeTypeSpot, models.TradeTypeFutures}
	title := "Create Trade"
	if view.ID != "" {
		title = "Edit Trade #" + view.ID
	}
	s.render(w, r, status, "trade_form", Page{Title: title, Nav: true, Data: view})
}

func (s *Server) tradeNew(w http.ResponseWriter, r *http.Request) {
	s.renderTradeForm(w, r, http.StatusOK, tradeFormView{Values: tradeValues(models.Trade{})})
}

func (s *Server) tradeCreate(w http.ResponseWriter, r *http.Request) {
	t, values, errs := parseTrade(r)
	if len(errs) > 0 {
		s.renderTradeForm(w, r, http.StatusUnprocessableEntity, tradeFormView{Values: values, Errors: errs})
		return
	}
	if _, err := s.deps.Data.Create(r.Context(), sessionFrom(r), tradesResource, t); err != nil {
		s.fail(w, r, err, "Failed to create trade", "/trades/new")
		return
	}
	s.setFlash(w, flashSuccess, "Trade created")
	s.redirect(w, r, "/trades")
}

func (s *Server) tradeEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	raw, err := s.deps.Data.GetOne(r.Context(), sessionFrom(r), tradesResource, id)
	if err != nil {
		if backend.StatusOf(err) == http.StatusNotFound {
			s.renderError(w, r, http.StatusNotFound, "Trade not found.")
			return
		}
		s.fail(w, r, err, "Failed to load trade", "/trades")
		return
	}
	var t models.Trade
	if err := json.Unmarshal(raw, &t); err != nil {
		s.logger.Error("Trade payload rejected", zap.String("id", id), zap.Error(err))
		s.renderError(w, r, http.StatusBadGateway, "The trade could not be read.")
		return
	}
	s.renderTradeForm(w, r, http.StatusOK, tradeFormView{ID: id, Values: tradeValues(t)})
}

func (s *Server) tradeUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, values, errs := parseTrade(r)
	if len(errs) > 0 {
		s.renderTradeForm(w, r, http.StatusUnprocessableEntity, tradeFormView{ID: id, Values: values, Errors: errs})
		return
	}
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		t.ID = n
	}
	if _, err := s.deps.Data.Update(r.Context(), sessionFrom(r), tradesResource, id, t); err != nil {
		s.fail(w, r, err, "Failed to update trade", "/trades/"+url.PathEscape(id))
		return
	}
	s.setFlash(w, flashSuccess, "Trade updated")
	s.redirect(w, r, "/trades")
}

func (s *Server) tradeDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.deps.Data.Delete(r.Context(), sessionFrom(r), tradesResource, id)
	var httpErr *backend.HTTPError
	if err != nil && !(errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound) {
		s.fail(w, r, err, "Failed to delete trade", "/trades/"+url.PathEscape(id))
		return
	}
	s.setFlash(w, flashSuccess, "Trade deleted")
	s.redirect(w, r, "/trades")
}
