package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"trading-journal-console/internal/database"
	"trading-journal-console/internal/models"
	"trading-journal-console/internal/tradeform"
)

type contractView struct {
	Code   string
	Label  string
	Active bool
}

type fieldView struct {
	tradeform.Field
	// Input selects the widget: text, number, select, cycle, toggle or side.
	Input string
	Value string
	Error string
	On    bool
}

type entryView struct {
	Key       string
	Exchange  string
	Pair      string
	TradeTime string
	Notes     string
	Contracts []contractView
	Exchanges []string
	Pairs     []string
	Title     string
	Fields    []fieldView
	Errors    map[string]string
}

func inputOf(k tradeform.Kind) string {
	switch k {
	case tradeform.KindNumber:
		return "number"
	case tradeform.KindChoice:
		return "select"
	case tradeform.KindCycle:
		return "cycle"
	case tradeform.KindToggle:
		return "toggle"
	case tradeform.KindSide:
		return "side"
	case tradeform.KindDateTime:
		return "datetime"
	}
	return "text"
}

// exchangeChoices lists the exchanges flagged to show in forms, or all of
// them when none is flagged.
func (s *Server) exchangeChoices(r *http.Request) ([]string, error) {
	cards, err := s.deps.Keys.Load(r.Context(), sessionFrom(r))
	if err != nil {
		return nil, err
	}
	var shown, all []string
	for _, c := range cards {
		all = append(all, c.ExchangeName)
		if c.ShowInForms {
			shown = append(shown, c.ExchangeName)
		}
	}
	if len(shown) > 0 {
		return shown, nil
	}
	return all, nil
}

func (s *Server) buildEntryView(r *http.Request, key string, form *tradeform.Form) (entryView, error) {
	exchanges, err := s.exchangeChoices(r)
	if err != nil {
		return entryView{}, err
	}
	pairs, err := s.deps.Lookups.Pairs(r.Context(), sessionFrom(r))
	if err != nil {
		return entryView{}, err
	}

	view := entryView{
		Key:       key,
		Exchange:  form.Exchange(),
		Pair:      form.Value(tradeform.FieldPair),
		TradeTime: form.Value(tradeform.FieldTradeTime),
		Notes:     form.Value(tradeform.FieldNotes),
		Exchanges: exchanges,
		Pairs:     symbols(pairs),
		Errors:    form.Errors(),
	}
	for _, c := range tradeform.ContractTypes {
		view.Contracts = append(view.Contracts, contractView{Code: string(c), Label: c.Label(), Active: c == form.ContractType()})
	}
	if layout := form.Layout(); layout != nil {
		view.Title = layout.Title
	}
	for _, fd := range form.Fields() {
		view.Fields = append(view.Fields, fieldView{
			Field: fd,
			Input: inputOf(fd.Kind),
			Value: form.Value(fd.Name),
			Error: form.Error(fd.Name),
			On:    form.Bool(fd.Name),
		})
	}
	return view, nil
}

func symbols(pairs []models.Pair) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Symbol)
	}
	return out
}

func (s *Server) renderEntry(w http.ResponseWriter, r *http.Request, status int, key string, form *tradeform.Form) {
	view, err := s.buildEntryView(r, key, form)
	if err != nil {
		s.fail(w, r, err, "Failed to load exchanges and pairs", "/")
		return
	}
	s.render(w, r, status, "entry", Page{Title: "New Trade", Nav: true, Data: view})
}

// entryStart opens a fresh draft.
func (s *Server) entryStart(w http.ResponseWriter, r *http.Request) {
	key := database.NewKey()
	if err := s.deps.Drafts.Save(r.Context(), sessionFrom(r).Key(), key, tradeform.New(s.now())); err != nil {
		s.logger.Error("Failed to create draft", zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, "Could not start a new trade.")
		return
	}
	s.redirect(w, r, "/entry/"+key)
}

// draftRef names a draft and the session that owns it.
type draftRef struct {
	Owner string
	Key   string
}

// draft loads the session's draft in the URL. On failure it has already
// answered.
func (s *Server) draft(w http.ResponseWriter, r *http.Request) (draftRef, *tradeform.Form, bool) {
	ref := draftRef{Owner: sessionFrom(r).Key(), Key: chi.URLParam(r, "key")}
	if !database.ValidKey(ref.Key) {
		s.renderError(w, r, http.StatusNotFound, "Unknown draft.")
		return ref, nil, false
	}
	form, err := s.deps.Drafts.Load(r.Context(), ref.Owner, ref.Key)
	if errors.Is(err, database.ErrDraftNotFound) {
		s.setFlash(w, flashInfo, "That draft has expired. A new one was started.")
		s.redirect(w, r, "/entry")
		return ref, nil, false
	}
	if err != nil {
		s.logger.Error("Failed to load draft", zap.String("key", ref.Key), zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, "Could not load the draft.")
		return ref, nil, false
	}
	return ref, form, true
}

func (s *Server) entryPage(w http.ResponseWriter, r *http.Request) {
	ref, form, ok := s.draft(w, r)
	if !ok {
		return
	}
	s.renderEntry(w, r, http.StatusOK, ref.Key, form)
}

// entrySubmit binds the typed inputs, then runs the pressed button's action.
func (s *Server) entrySubmit(w http.ResponseWriter, r *http.Request) {
	ref, form, ok := s.draft(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Malformed form submission.")
		return
	}
	input := make(map[string]string, len(r.PostForm))
	for name, values := range r.PostForm {
		if name != "action" && len(values) > 0 {
			input[name] = values[0]
		}
	}
	self := "/entry/" + ref.Key

	if err := form.Bind(input); err != nil {
		s.setFlash(w, flashError, err.Error())
	}

	switch action := r.PostFormValue("action"); action {
	case "discard":
		if err := s.deps.Drafts.Delete(r.Context(), ref.Owner, ref.Key); err != nil {
			s.logger.Warn("Failed to delete draft", zap.String("key", ref.Key), zap.Error(err))
		}
		s.setFlash(w, flashInfo, "Draft discarded")
		s.redirect(w, r, "/entry")
		return

	case "submit":
		s.saveDraft(r, ref, form)
		if !form.Validate() {
			s.renderEntry(w, r, http.StatusUnprocessableEntity, ref.Key, form)
			return
		}
		if _, err := s.deps.Data.Create(r.Context(), sessionFrom(r), tradesResource, form.Payload()); err != nil {
			s.fail(w, r, err, "Failed to record trade", self)
			return
		}
		if err := s.deps.Drafts.Delete(r.Context(), ref.Owner, ref.Key); err != nil {
			s.logger.Warn("Failed to delete submitted draft", zap.String("key", ref.Key), zap.Error(err))
		}
		s.setFlash(w, flashSuccess, "Trade recorded")
		s.redirect(w, r, "/trades")
		return

	case "", "save":
		if action == "save" {
			s.setFlash(w, flashSuccess, "Draft saved")
		}

	default:
		a, err := tradeform.ParseAction(action)
		if err == nil {
			err = form.Apply(a)
		}
		if err != nil {
			s.setFlash(w, flashError, err.Error())
		}
	}

	s.saveDraft(r, ref, form)
	s.redirect(w, r, self)
}

func (s *Server) saveDraft(r *http.Request, ref draftRef, form *tradeform.Form) {
	if err := s.deps.Drafts.Save(r.Context(), ref.Owner, ref.Key, form); err != nil {
		s.logger.Error("Failed to save draft", zap.String("key", ref.Key), zap.Error(err))
	}
}
