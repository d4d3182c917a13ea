package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"trading-journal-console/internal/exchangekeys"
)

type keyCard struct {
	exchangekeys.Card
	Errors exchangekeys.FieldErrors
	// ShowInFormsInput is the checkbox state to render, which may differ from
	// the saved value after a failed save.
	ShowInFormsInput bool
}

type keysView struct {
	Cards []keyCard
	// ConfirmClear is the exchange awaiting a clear confirmation, 0 for none.
	ConfirmClear int64
	Test         *testView
}

type testView struct {
	ExchangeName string
	Result       *exchangekeys.TestResult
}

func (s *Server) keysPage(w http.ResponseWriter, r *http.Request) {
	s.renderKeys(w, r, http.StatusOK, keysView{}, nil)
}

// renderKeys loads the cards and renders the page. override replaces the
// loaded card with the same exchange, to show a failed save.
func (s *Server) renderKeys(w http.ResponseWriter, r *http.Request, status int, view keysView, override *keyCard) {
	cards, err := s.deps.Keys.Load(r.Context(), sessionFrom(r))
	if err != nil {
		s.fail(w, r, err, "Failed to load exchange keys", "/")
		return
	}
	for _, c := range cards {
		if override != nil && override.ExchangeID == c.ExchangeID {
			view.Cards = append(view.Cards, *override)
			continue
		}
		view.Cards = append(view.Cards, keyCard{Card: c, ShowInFormsInput: c.ShowInForms})
	}
	s.render(w, r, status, "exchange_keys", Page{Title: "Exchange Keys", Nav: true, Data: view})
}

// card resolves the exchange in the URL. On failure it has already answered.
func (s *Server) card(w http.ResponseWriter, r *http.Request) (*exchangekeys.Card, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "exchangeID"), 10, 64)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "Unknown exchange.")
		return nil, false
	}
	card, err := s.deps.Keys.Find(r.Context(), sessionFrom(r), id)
	if errors.Is(err, exchangekeys.ErrUnknownExchange) {
		s.renderError(w, r, http.StatusNotFound, "Unknown exchange.")
		return nil, false
	}
	if err != nil {
		s.fail(w, r, err, "Failed to load exchange keys", "/exchange-keys")
		return nil, false
	}
	return card, true
}

func (s *Server) keysSave(w http.ResponseWriter, r *http.Request) {
	card, ok := s.card(w, r)
	if !ok {
		return
	}
	sess := sessionFrom(r)
	in := exchangekeys.Input{
		APIKey:        r.PostFormValue("apiKey"),
		APISecret:     r.PostFormValue("apiSecret"),
		APIPassphrase: r.PostFormValue("apiPassphrase"),
		ShowInForms:   r.PostFormValue("showInForms") != "",
	}

	errs, err := s.deps.Keys.Save(r.Context(), sess, sess.Key(), card, in)
	switch {
	case errors.Is(err, exchangekeys.ErrBusy):
		s.setFlash(w, flashInfo, "A save for "+card.ExchangeName+" is already in progress")
		s.redirect(w, r, "/exchange-keys")
	case err != nil:
		s.fail(w, r, err, "Failed to save "+card.ExchangeName+" keys", "/exchange-keys")
	case len(errs) > 0:
		s.renderKeys(w, r, http.StatusUnprocessableEntity, keysView{}, &keyCard{Card: *card, Errors: errs, ShowInFormsInput: in.ShowInForms})
	default:
		s.setFlash(w, flashSuccess, card.ExchangeName+" keys saved")
		s.redirect(w, r, "/exchange-keys")
	}
}

func (s *Server) keysClear(w http.ResponseWriter, r *http.Request) {
	card, ok := s.card(w, r)
	if !ok {
		return
	}
	sess := sessionFrom(r)

	err := s.deps.Keys.Clear(r.Context(), sess, sess.Key(), card, r.PostFormValue("confirm") == "yes")
	switch {
	case errors.Is(err, exchangekeys.ErrConfirmationRequired):
		s.renderKeys(w, r, http.StatusOK, keysView{ConfirmClear: card.ExchangeID}, nil)
	case errors.Is(err, exchangekeys.ErrNotSaved):
		s.setFlash(w, flashInfo, "No keys saved for "+card.ExchangeName)
		s.redirect(w, r, "/exchange-keys")
	case errors.Is(err, exchangekeys.ErrBusy):
		s.setFlash(w, flashInfo, "Clearing "+card.ExchangeName+" keys is already in progress")
		s.redirect(w, r, "/exchange-keys")
	case err != nil:
		s.fail(w, r, err, "Failed to clear "+card.ExchangeName+" keys", "/exchange-keys")
	default:
		s.setFlash(w, flashSuccess, card.ExchangeName+" keys cleared")
		s.redirect(w, r, "/exchange-keys")
	}
}

func (s *Server) keysTest(w http.ResponseWriter, r *http.Request) {
	card, ok := s.card(w, r)
	if !ok {
		return
	}
	sess := sessionFrom(r)

	result, err := s.deps.Keys.TestConnection(r.Context(), sess, sess.Key(), card)
	switch {
	case errors.Is(err, exchangekeys.ErrNotSaved):
		s.setFlash(w, flashInfo, "Save "+card.ExchangeName+" keys before testing")
		s.redirect(w, r, "/exchange-keys")
	case errors.Is(err, exchangekeys.ErrBusy):
		s.setFlash(w, flashInfo, "A connection test for "+card.ExchangeName+" is already running")
		s.redirect(w, r, "/exchange-keys")
	case err != nil:
		s.fail(w, r, err, "Connection test failed", "/exchange-keys")
	default:
		s.renderKeys(w, r, http.StatusOK, keysView{Test: &testView{ExchangeName: card.ExchangeName, Result: result}}, nil)
	}
}
