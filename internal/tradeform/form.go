package tradeform

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateTimeLayout is the wire format of the trade date/time input.
const DateTimeLayout = "2006-01-02T15:04"

var (
	// ErrFieldNotOwned is returned for writes to a field the current layout
	// does not show.
	ErrFieldNotOwned = errors.New("field is not part of the current form")
	// ErrInvalidAction is returned for an action the field does not support.
	ErrInvalidAction = errors.New("invalid form action")
	// ErrInvalidValue is returned for a value outside a field's options.
	ErrInvalidValue = errors.New("invalid value")
)

// ActionKind is the kind of a form mutation.
type ActionKind string

const (
	ActionSet    ActionKind = "set"
	ActionToggle ActionKind = "toggle"
	ActionCycle  ActionKind = "cycle"
)

// Action is one mutation of the form. It is the only way to write a field.
type Action struct {
	Kind  ActionKind
	Field string
	Value string
}

// ParseAction reads "toggle:<field>", "cycle:<field>" or "set:<field>=<value>".
func ParseAction(s string) (Action, error) {
	kind, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return Action{}, fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
	switch ActionKind(kind) {
	case ActionToggle, ActionCycle:
		return Action{Kind: ActionKind(kind), Field: rest}, nil
	case ActionSet:
		field, value, _ := strings.Cut(rest, "=")
		return Action{Kind: ActionSet, Field: field, Value: value}, nil
	}
	return Action{}, fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// Form is the state of one trade entry form. Every field is written through
// Apply, which also enforces the cross-field rules.
type Form struct {
	values map[string]string
	errors map[string]string
}

// New creates an empty form with the top panel defaults.
func New(now time.Time) *Form {
	f := &Form{values: map[string]string{}, errors: map[string]string{}}
	for _, fd := range TopPanel() {
		if fd.Default != "" {
			f.values[fd.Name] = fd.Default
		}
	}
	f.values[FieldTradeTime] = now.Format(DateTimeLayout)
	return f
}

// Value returns the raw value of a field.
func (f *Form) Value(name string) string { return f.values[name] }

// Bool returns a toggle or side field as a boolean.
func (f *Form) Bool(name string) bool { return f.values[name] == "true" }

// Exchange returns the selected exchange name.
func (f *Form) Exchange() string { return f.values[FieldExchange] }

// Venue returns the layout family of the selected exchange.
func (f *Form) Venue() Venue { return VenueOf(f.Exchange()) }

// ContractType returns the selected code, futures by default.
func (f *Form) ContractType() ContractType {
	if c := ContractType(f.values[FieldContractType]); c != "" {
		return c
	}
	return ContractFutures
}

// Layout returns the layout for the current exchange, nil when none is selected.
func (f *Form) Layout() *Layout { return LayoutFor(f.Venue(), f.ContractType()) }

// Fields returns the layout fields that are active in the current state.
func (f *Form) Fields() []Field {
	layout := f.Layout()
	if layout == nil {
		return nil
	}
	active := make([]Field, 0, len(layout.Fields))
	for _, fd := range layout.Fields {
		if fd.Active(f) {
			active = append(active, fd)
		}
	}
	return active
}

// Error returns the validation message of a field.
func (f *Form) Error(name string) string { return f.errors[name] }

// Errors returns a copy of the validation messages.
func (f *Form) Errors() map[string]string {
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Owns reports whether the field belongs to the top panel or the current layout.
func (f *Form) Owns(name string) bool {
	_, ok := f.field(name)
	return ok
}

func (f *Form) field(name string) (Field, bool) {
	for _, fd := range TopPanel() {
		if fd.Name == name {
			return fd, true
		}
	}
	if layout := f.Layout(); layout != nil {
		return layout.Field(name)
	}
	return Field{}, false
}

// Apply performs one mutation.
func (f *Form) Apply(a Action) error {
	fd, ok := f.field(a.Field)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFieldNotOwned, a.Field)
	}

	switch a.Kind {
	case ActionSet:
		return f.set(fd, a.Value)
	case ActionToggle:
		switch fd.Kind {
		case KindToggle:
			f.setBool(fd.Name, !f.Bool(fd.Name))
			return nil
		case KindSide:
			f.pressSide(fd, !f.Bool(fd.Name))
			return nil
		}
	case ActionCycle:
		if fd.Kind == KindCycle && len(fd.Options) > 0 {
			f.values[fd.Name] = nextOption(fd.Options, f.valueOr(fd))
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", ErrInvalidAction, a.Kind, a.Field)
}

// Bind sets the typed inputs of a submitted form. Exchange and contract type
// go first so the rest binds against the right layout. Inputs for fields the
// resulting layout does not own are ignored, as are action-driven fields.
// A rejected input is recorded as a field error and the rest still bind.
func (f *Form) Bind(input map[string]string) error {
	var errs []error
	for _, name := range []string{FieldExchange, FieldContractType} {
		if value, ok := input[name]; ok {
			if err := f.Apply(Action{Kind: ActionSet, Field: name, Value: value}); err != nil {
				f.errors[name] = MsgInvalidOption
				errs = append(errs, err)
			}
		}
	}
	names := []string{FieldPair, FieldTradeTime, FieldNotes}
	if layout := f.Layout(); layout != nil {
		for _, fd := range layout.Fields {
			names = append(names, fd.Name)
		}
	}
	for _, name := range names {
		value, ok := input[name]
		if !ok {
			continue
		}
		fd, owned := f.field(name)
		if !owned || !typed(fd.Kind) {
			continue
		}
		if err := f.Apply(Action{Kind: ActionSet, Field: name, Value: value}); err != nil {
			f.errors[name] = MsgInvalidOption
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func typed(k Kind) bool {
	return k == KindText || k == KindNumber || k == KindChoice || k == KindDateTime
}

func (f *Form) set(fd Field, value string) error {
	if fd.Kind != KindText {
		value = strings.TrimSpace(value)
	}
	delete(f.errors, fd.Name)

	switch fd.Kind {
	case KindToggle:
		f.setBool(fd.Name, parseBool(value))
		return nil
	case KindSide:
		f.pressSide(fd, parseBool(value))
		return nil
	case KindChoice, KindCycle:
		switch fd.Name {
		case FieldExchange:
			f.selectExchange(value)
			return nil
		case FieldPair:
			f.store(fd.Name, value)
			return nil
		}
		if value != "" && len(fd.Options) > 0 && !contains(fd.Options, value) {
			return fmt.Errorf("%w for %s: %q", ErrInvalidValue, fd.Name, value)
		}
		if fd.Name == FieldContractType {
			f.selectContract(ContractType(value))
			return nil
		}
	}
	f.store(fd.Name, value)
	return nil
}

func (f *Form) store(name, value string) {
	if value == "" {
		delete(f.values, name)
		return
	}
	f.values[name] = value
}

// setBool writes a toggle. Turning TP/SL or reduce-only on turns the other
// off; turning TP/SL off clears its prices and their errors.
func (f *Form) setBool(name string, on bool) {
	wasOn := f.Bool(name)
	f.values[name] = strconv.FormatBool(on)

	if on && !wasOn {
		switch name {
		case FieldTakeProfitEnabled:
			if f.Bool(FieldReduceOnly) {
				f.values[FieldReduceOnly] = "false"
			}
		case FieldReduceOnly:
			if f.Bool(FieldTakeProfitEnabled) {
				f.setBool(FieldTakeProfitEnabled, false)
			}
		}
	}

	if name == FieldTakeProfitEnabled && !on {
		for _, price := range []string{FieldTakeProfit, FieldStopLoss} {
			delete(f.values, price)
			delete(f.errors, price)
		}
	}
}

// pressSide selects one side of a long/short pair, clearing the other.
// Pressing the selected side again unsets it.
func (f *Form) pressSide(fd Field, on bool) {
	f.values[fd.Name] = strconv.FormatBool(on)
	if on && fd.Opposite != "" {
		f.values[fd.Opposite] = "false"
	}
}

func (f *Form) selectExchange(name string) {
	if name == f.Exchange() {
		return
	}
	f.store(FieldExchange, name)
	f.reconcile()
}

func (f *Form) selectContract(code ContractType) {
	if code == "" {
		code = ContractFutures
	}
	if code == f.ContractType() && f.values[FieldContractType] != "" {
		return
	}
	f.values[FieldContractType] = string(code)
	f.reconcile()
}

// reconcile drops values the current layout does not own and fills in the
// layout defaults.
func (f *Form) reconcile() {
	owned := map[string]bool{}
	for _, fd := range TopPanel() {
		owned[fd.Name] = true
	}
	layout := f.Layout()
	if layout != nil {
		for _, fd := range layout.Fields {
			owned[fd.Name] = true
		}
	}
	for name := range f.values {
		if !owned[name] {
			delete(f.values, name)
		}
	}
	for name := range f.errors {
		if !owned[name] {
			delete(f.errors, name)
		}
	}
	if layout == nil {
		return
	}
	for _, fd := range layout.Fields {
		if _, ok := f.values[fd.Name]; !ok && fd.Default != "" {
			f.values[fd.Name] = fd.Default
		}
	}
}

func (f *Form) valueOr(fd Field) string {
	if v, ok := f.values[fd.Name]; ok {
		return v
	}
	return fd.Default
}

// Snapshot encodes the form values for storage. Errors are not kept.
func (f *Form) Snapshot() ([]byte, error) {
	return json.Marshal(f.values)
}

// Restore rebuilds a form from a Snapshot.
func Restore(data []byte) (*Form, error) {
	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to restore form: %w", err)
	}
	if values == nil {
		values = map[string]string{}
	}
	f := &Form{values: values, errors: map[string]string{}}
	f.reconcile()
	return f, nil
}

func nextOption(options []string, current string) string {
	for i, o := range options {
		if o == current {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

func contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}
