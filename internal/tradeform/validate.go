package tradeform

import (
	"math"
	"strconv"
	"time"
)

// Validation messages shown next to the inputs.
const (
	MsgRequired        = "Required"
	MsgRequiredTPSL    = "Required when TP/SL is on"
	MsgNotNumber       = "Must be a number"
	MsgPositive        = "Must be > 0"
	MsgUnsupported     = "Unsupported exchange"
	MsgBadDateTime     = "Invalid date/time"
	MsgUnknownContract = "Unknown contract type"
	MsgInvalidOption   = "Invalid option"
)

// Validate checks the form and records a message per invalid field.
// TP/SL prices are only checked while TP/SL is on.
func (f *Form) Validate() bool {
	f.errors = map[string]string{}

	switch {
	case f.Exchange() == "":
		f.errors[FieldExchange] = MsgRequired
	case f.Layout() == nil:
		f.errors[FieldExchange] = MsgUnsupported
	}
	if f.Value(FieldPair) == "" {
		f.errors[FieldPair] = MsgRequired
	}
	if v := f.Value(FieldTradeTime); v == "" {
		f.errors[FieldTradeTime] = MsgRequired
	} else if _, err := time.Parse(DateTimeLayout, v); err != nil {
		f.errors[FieldTradeTime] = MsgBadDateTime
	}
	if !contains(contractCodes(), string(f.ContractType())) {
		f.errors[FieldContractType] = MsgUnknownContract
	}

	tpsl := f.Bool(FieldTakeProfitEnabled)
	for _, fd := range f.Fields() {
		if fd.Kind != KindNumber {
			continue
		}
		isTPSL := fd.Name == FieldTakeProfit || fd.Name == FieldStopLoss
		raw := f.Value(fd.Name)
		if raw == "" {
			if isTPSL && tpsl {
				f.errors[fd.Name] = MsgRequiredTPSL
			}
			continue
		}
		n, err := parseNumber(raw)
		if err != nil {
			f.errors[fd.Name] = MsgNotNumber
			continue
		}
		if msg := checkBounds(fd, n, isTPSL); msg != "" {
			f.errors[fd.Name] = msg
		}
	}
	return len(f.errors) == 0
}

func checkBounds(fd Field, n float64, positive bool) string {
	if positive && !(n > 0) {
		return MsgPositive
	}
	if fd.HasMin && n < fd.Min {
		return "Must be at least " + strconv.FormatFloat(fd.Min, 'f', -1, 64)
	}
	if fd.HasMax && n > fd.Max {
		return "Must be at most " + strconv.FormatFloat(fd.Max, 'f', -1, 64)
	}
	return ""
}

// parseNumber parses a finite float. NaN and infinities are rejected.
func parseNumber(raw string) (float64, error) {
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

func contractCodes() []string {
	codes := make([]string, len(ContractTypes))
	for i, c := range ContractTypes {
		codes[i] = string(c)
	}
	return codes
}

// Payload is the body posted for a valid form. It holds the top panel and
// the active fields of the current layout only; numbers are sent as numbers
// and toggles as booleans. The trade time is read as UTC.
func (f *Form) Payload() map[string]interface{} {
	p := map[string]interface{}{
		FieldExchange:     f.Exchange(),
		FieldPair:         f.Value(FieldPair),
		FieldContractType: string(f.ContractType()),
	}
	if t, err := time.ParseInLocation(DateTimeLayout, f.Value(FieldTradeTime), time.UTC); err == nil {
		p[FieldTradeTime] = t.Format(time.RFC3339)
	}
	if notes := f.Value(FieldNotes); notes != "" {
		p[FieldNotes] = notes
	}
	for _, fd := range f.Fields() {
		raw, ok := f.values[fd.Name]
		switch fd.Kind {
		case KindNumber:
			if n, err := parseNumber(raw); ok && err == nil {
				p[fd.Name] = n
			}
		case KindToggle, KindSide:
			p[fd.Name] = f.Bool(fd.Name)
		default:
			if ok && raw != "" {
				p[fd.Name] = raw
			}
		}
	}
	return p
}
