package exchangekeys

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"trading-journal-console/internal/auth"
	"trading-journal-console/internal/backend"
	"trading-journal-console/internal/lookup"
	"trading-journal-console/internal/models"
)

var (
	// ErrConfirmationRequired is returned by Clear until the user confirms.
	ErrConfirmationRequired = errors.New("clearing credentials requires confirmation")
	// ErrNotSaved is returned for actions that need a stored credential record.
	ErrNotSaved = errors.New("no credentials saved for this exchange")
	// ErrUnknownExchange is returned when the exchange is not in the lookup list.
	ErrUnknownExchange = errors.New("unknown exchange")
)

// Field names used in FieldErrors.
const (
	FieldAPIKey        = "apiKey"
	FieldAPISecret     = "apiSecret"
	FieldAPIPassphrase = "apiPassphrase"
)

// FieldErrors maps a form field to its validation message.
type FieldErrors map[string]string

// Stored tells which secrets already have a value on the server.
type Stored struct {
	APIKey        bool
	APISecret     bool
	APIPassphrase bool
}

// Card is the credential state of one exchange.
type Card struct {
	ExchangeID   int64
	ExchangeName string
	// RecordID is the saved user-exchange id, 0 when nothing is saved.
	RecordID    int64
	ShowInForms bool
	Stored      Stored
}

// Saved reports whether the exchange has a credential record.
func (c *Card) Saved() bool { return c.RecordID != 0 }

// NeedsPassphrase reports whether the exchange's API uses a passphrase.
func (c *Card) NeedsPassphrase() bool {
	return strings.Contains(strings.ToLower(c.ExchangeName), "kucoin")
}

// Input is what the user typed on a card. Blank secrets keep the stored value.
type Input struct {
	APIKey        string
	APISecret     string
	APIPassphrase string
	ShowInForms   bool
}

// TestResult is the outcome of a connection test.
type TestResult struct {
	OK     bool
	Status int
	// Body is the API reply, pretty-printed when it is JSON.
	Body string
}

// Manager loads and changes the user's exchange credentials.
type Manager struct {
	api     backend.Doer
	lookups *lookup.Service
	logger  *zap.Logger
	busy    *Busy
}

// NewManager creates a credential manager.
func NewManager(api backend.Doer, lookups *lookup.Service, logger *zap.Logger) *Manager {
	return &Manager{
		api:     api,
		lookups: lookups,
		logger:  logger.Named("exchange-keys"),
		busy:    NewBusy(),
	}
}

// Load returns one card per supported exchange, merged with the saved forms.
func (m *Manager) Load(ctx context.Context, s *backend.Session) ([]Card, error) {
	exchanges, err := m.lookups.Exchanges(ctx, s)
	if err != nil {
		return nil, err
	}

	resp, err := m.api.Do(ctx, s, backend.Request{Method: http.MethodGet, Path: "/user-exchanges/forms"})
	if err != nil {
		return nil, fmt.Errorf("failed to load saved credentials: %w", err)
	}
	var saved []models.UserExchange
	if len(bytes.TrimSpace(resp.Data)) > 0 {
		if err := resp.DecodeData(&saved); err != nil {
			return nil, fmt.Errorf("failed to load saved credentials: %w", err)
		}
	}

	byExchange := make(map[int64]models.UserExchange, len(saved))
	for _, ue := range saved {
		byExchange[ue.ExchangeID] = ue
	}

	cards := make([]Card, 0, len(exchanges))
	for _, ex := range exchanges {
		card := Card{ExchangeID: ex.ID, ExchangeName: ex.Name}
		if ue, ok := byExchange[ex.ID]; ok {
			card.RecordID = ue.ID
			card.ShowInForms = ue.ShowInForms
			card.Stored = Stored{APIKey: ue.HasAPIKey, APISecret: ue.HasAPISecret, APIPassphrase: ue.HasAPIPassphrase}
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// Find loads the cards and returns the one for exchangeID.
func (m *Manager) Find(ctx context.Context, s *backend.Session, exchangeID int64) (*Card, error) {
	cards, err := m.Load(ctx, s)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		if cards[i].ExchangeID == exchangeID {
			return &cards[i], nil
		}
	}
	return nil, ErrUnknownExchange
}

// Validate checks in against what is already stored on card.
func Validate(card *Card, in Input) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(in.APIKey) == "" && !card.Stored.APIKey {
		errs[FieldAPIKey] = "Required"
	}
	if strings.TrimSpace(in.APISecret) == "" && !card.Stored.APISecret {
		errs[FieldAPISecret] = "Required"
	}
	if card.NeedsPassphrase() && strings.TrimSpace(in.APIPassphrase) == "" && !card.Stored.APIPassphrase {
		errs[FieldAPIPassphrase] = "Required"
	}
	return errs
}

// Save validates and sends only the secrets that were typed. Validation
// failures are returned as FieldErrors and nothing is sent. On success card
// reflects the new stored state.
func (m *Manager) Save(ctx context.Context, s *backend.Session, owner string, card *Card, in Input) (FieldErrors, error) {
	if errs := Validate(card, in); len(errs) > 0 {
		return errs, nil
	}

	release, err := m.busy.Acquire(owner, card.ExchangeID, ActionSave)
	if err != nil {
		return nil, err
	}
	defer release()

	payload := models.UpsertUserExchange{
		ExchangeID:    card.ExchangeID,
		APIKey:        strings.TrimSpace(in.APIKey),
		APISecret:     strings.TrimSpace(in.APISecret),
		APIPassphrase: strings.TrimSpace(in.APIPassphrase),
		ShowInForms:   in.ShowInForms,
	}
	resp, err := m.api.Do(ctx, s, backend.Request{Method: http.MethodPost, Path: "/user-exchanges", Body: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to save %s credentials: %w", card.ExchangeName, err)
	}

	var stored models.UserExchange
	if len(bytes.TrimSpace(resp.Data)) > 0 && resp.DecodeData(&stored) == nil && stored.ID != 0 {
		card.RecordID = stored.ID
	}
	card.ShowInForms = in.ShowInForms
	card.Stored.APIKey = card.Stored.APIKey || payload.APIKey != ""
	card.Stored.APISecret = card.Stored.APISecret || payload.APISecret != ""
	card.Stored.APIPassphrase = card.Stored.APIPassphrase || payload.APIPassphrase != ""

	m.logger.Info("Credentials saved", zap.String("exchange", card.ExchangeName))
	return nil, nil
}

// Clear deletes the saved credentials once the user has confirmed.
func (m *Manager) Clear(ctx context.Context, s *backend.Session, owner string, card *Card, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if !card.Saved() {
		return ErrNotSaved
	}

	release, err := m.busy.Acquire(owner, card.ExchangeID, ActionDelete)
	if err != nil {
		return err
	}
	defer release()

	path := "/user-exchanges/" + strconv.FormatInt(card.RecordID, 10)
	if _, err := m.api.Do(ctx, s, backend.Request{Method: http.MethodDelete, Path: path}); err != nil {
		return fmt.Errorf("failed to clear %s credentials: %w", card.ExchangeName, err)
	}

	card.RecordID = 0
	card.ShowInForms = false
	card.Stored = Stored{}
	m.logger.Info("Credentials cleared", zap.String("exchange", card.ExchangeName))
	return nil
}

// TestConnection asks the API to try the stored credentials. A rejection by
// the exchange is a result, not an error. Session failures are returned as
// errors so the caller can log the user out.
func (m *Manager) TestConnection(ctx context.Context, s *backend.Session, owner string, card *Card) (*TestResult, error) {
	if !card.Saved() {
		return nil, ErrNotSaved
	}

	release, err := m.busy.Acquire(owner, card.ExchangeID, ActionTest)
	if err != nil {
		return nil, err
	}
	defer release()

	path := "/user-exchanges/" + strconv.FormatInt(card.RecordID, 10) + "/test"
	resp, err := m.api.Do(ctx, s, backend.Request{Method: http.MethodPost, Path: path})
	if err != nil {
		if auth.CheckErr(err) != nil {
			return nil, err
		}
		var httpErr *backend.HTTPError
		if errors.As(err, &httpErr) {
			body := httpErr.Body
			if httpErr.Status == 0 {
				body = httpErr.Message
			}
			return &TestResult{OK: false, Status: httpErr.Status, Body: FormatBody([]byte(body))}, nil
		}
		return nil, err
	}
	return &TestResult{OK: true, Status: resp.Status, Body: FormatBody(resp.Data)}, nil
}

// FormatBody pretty-prints JSON and returns anything else as plain text.
func FormatBody(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "(empty response)"
	}
	if json.Valid(trimmed) {
		var out bytes.Buffer
		if err := json.Indent(&out, trimmed, "", "  "); err == nil {
			return out.String()
		}
	}
	return string(trimmed)
}
