package tradeform

import "strings"

// ContractType is the account mode code sent to the API.
type ContractType string

// The codes are what the API expects, spelling included.
const (
	ContractSpot    ContractType = "SPOPT"
	ContractCross   ContractType = "CORSS"
	ContractFutures ContractType = "FUTURES"
)

// Label is the button text for the code.
func (c ContractType) Label() string {
	switch c {
	case ContractSpot:
		return "Spot"
	case ContractCross:
		return "Cross Margin"
	case ContractFutures:
		return "Futures"
	}
	return string(c)
}

// ContractTypes lists the codes in display order.
var ContractTypes = []ContractType{ContractSpot, ContractCross, ContractFutures}

// Venue identifies which layout an exchange uses.
type Venue string

const (
	VenueNone    Venue = ""
	VenueBinance Venue = "binance"
	VenueKucoin  Venue = "kucoin"
	VenueMexc    Venue = "mexc"
)

// VenueOf maps an exchange name from the lookup list to its layout.
func VenueOf(exchange string) Venue {
	name := strings.ToLower(exchange)
	switch {
	case strings.Contains(name, "binance"):
		return VenueBinance
	case strings.Contains(name, "kucoin"):
		return VenueKucoin
	case strings.Contains(name, "mexc"):
		return VenueMexc
	}
	return VenueNone
}

// Kind tells how a field is edited and encoded.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindChoice
	KindCycle
	KindToggle
	KindSide
	KindDateTime
)

// Field names shared with the templates and the payload.
const (
	FieldExchange     = "exchange"
	FieldPair         = "pair"
	FieldTradeTime    = "tradeTime"
	FieldContractType = "contractType"
	FieldNotes        = "notes"

	FieldMarginMode = "marginMode"
	FieldAssetMode  = "assetMode"
	FieldMarginType = "marginType"
	FieldBorrowMode = "borrowMode"
	FieldLeverage   = "leverage"
	FieldOrderType  = "orderType"
	FieldPrice      = "price"
	FieldStopPrice  = "stopPrice"
	FieldSize       = "size"
	FieldAmount     = "amount"
	FieldVolume     = "volume"
	FieldSide       = "side"

	FieldTakeProfitEnabled = "takeProfitEnabled"
	FieldReduceOnly        = "reduceOnly"
	FieldTakeProfit        = "takeProfit"
	FieldStopLoss          = "stopLoss"

	FieldIsLong  = "isLong"
	FieldIsShort = "isShort"
)

// Order types offered by the Binance layout.
const (
	OrderLimit     = "Limit"
	OrderMarket    = "Market"
	OrderStopLimit = "Stop Limit"
)

// Field describes one input of a layout.
type Field struct {
	Name    string
	Label   string
	Kind    Kind
	Options []string
	Default string
	// Min and Max bound numbers when HasMin / HasMax are set.
	Min, Max       float64
	HasMin, HasMax bool
	// Opposite is the other button of a long/short pair.
	Opposite string
	// ActiveWhen limits the field to some states of the form. Nil means always.
	ActiveWhen func(f *Form) bool
}

// Active reports whether the field takes part in the form's current state.
func (fd Field) Active(f *Form) bool {
	return fd.ActiveWhen == nil || fd.ActiveWhen(f)
}

// Layout is the field set one exchange form exposes.
type Layout struct {
	Venue  Venue
	Title  string
	Fields []Field
}

// Field returns the named field of the layout.
func (l *Layout) Field(name string) (Field, bool) {
	for _, fd := range l.Fields {
		if fd.Name == name {
			return fd, true
		}
	}
	return Field{}, false
}

// TopPanel is the exchange/pair/time/contract selector shown above every
// layout, plus the notes block below it.
func TopPanel() []Field {
	return []Field{
		{Name: FieldExchange, Label: "Exchange", Kind: KindChoice},
		{Name: FieldPair, Label: "Trading Pair", Kind: KindChoice},
		{Name: FieldTradeTime, Label: "Date / Time", Kind: KindDateTime},
		{Name: FieldContractType, Label: "Contract Type", Kind: KindChoice, Options: contractCodes(), Default: string(ContractFutures)},
		{Name: FieldNotes, Label: "Notes", Kind: KindText},
	}
}

// LayoutFor returns the layout for a venue and contract type, or nil for an
// unsupported venue. KuCoin falls back to futures for unknown codes.
func LayoutFor(venue Venue, contract ContractType) *Layout {
	switch venue {
	case VenueBinance:
		return binanceLayout()
	case VenueKucoin:
		switch contract {
		case ContractSpot:
			return kucoinSpotLayout()
		case ContractCross:
			return kucoinCrossLayout()
		default:
			return kucoinFuturesLayout()
		}
	case VenueMexc:
		return mexcLayout()
	}
	return nil
}

func binanceLayout() *Layout {
	fields := []Field{
		{Name: FieldMarginMode, Label: "Margin Mode", Kind: KindCycle, Options: []string{"Cross", "Isolated"}, Default: "Cross"},
		leverageField(),
		{Name: FieldAssetMode, Label: "Asset Mode", Kind: KindCycle, Options: []string{"Single-Asset", "Multi-Assets"}, Default: "Single-Asset"},
		{Name: FieldOrderType, Label: "Order Type", Kind: KindChoice, Options: []string{OrderLimit, OrderMarket, OrderStopLimit}, Default: OrderStopLimit},
		{Name: FieldStopPrice, Label: "Stop Price", Kind: KindNumber, ActiveWhen: orderTypeIs(OrderStopLimit)},
		{Name: FieldPrice, Label: "Price", Kind: KindNumber, ActiveWhen: orderTypeIs(OrderLimit)},
		{Name: FieldSize, Label: "Size (%)", Kind: KindNumber, Default: "1", Min: 0, HasMin: true, Max: 100, HasMax: true},
	}
	fields = append(fields, tpslFields()...)
	fields = append(fields, sideFields("Buy/Long", "Sell/Short")...)
	return &Layout{Venue: VenueBinance, Title: "Binance Trade", Fields: fields}
}

func kucoinSpotLayout() *Layout {
	fields := []Field{priceField(), amountField(), volumeField()}
	fields = append(fields, sideFields("Buy", "Sell")...)
	return &Layout{Venue: VenueKucoin, Title: "Kucoin Trade", Fields: fields}
}

func kucoinCrossLayout() *Layout {
	fields := []Field{
		{Name: FieldBorrowMode, Label: "Borrow Mode", Kind: KindChoice, Options: []string{"Standard", "Auto-Borrow", "Auto-Repay", "Auto-Borrow and Repay"}, Default: "Standard"},
		priceField(), amountField(), volumeField(),
	}
	fields = append(fields, sideFields("Buy", "Sell")...)
	return &Layout{Venue: VenueKucoin, Title: "Kucoin Trade", Fields: fields}
}

func kucoinFuturesLayout() *Layout {
	fields := []Field{
		{Name: FieldMarginType, Label: "Margin Type", Kind: KindChoice, Options: []string{"Isolated", "Cross"}, Default: "Isolated"},
		leverageField(),
		priceField(), amountField(),
	}
	fields = append(fields, tpslFields()...)
	fields = append(fields, sideFields("Buy/Long", "Sell/Short")...)
	return &Layout{Venue: VenueKucoin, Title: "Kucoin Trade", Fields: fields}
}

func mexcLayout() *Layout {
	fields := []Field{
		{Name: FieldSide, Label: "Side", Kind: KindChoice, Options: []string{"Buy", "Sell"}, Default: "Buy"},
		{Name: FieldMarginType, Label: "Margin Type", Kind: KindChoice, Options: []string{"Cross", "Isolated"}, Default: "Cross"},
		leverageField(),
		priceField(), amountField(), volumeField(),
	}
	fields = append(fields, tpslFields()...)
	return &Layout{Venue: VenueMexc, Title: "MEXC Trade", Fields: fields}
}

func leverageField() Field {
	return Field{Name: FieldLeverage, Label: "Leverage", Kind: KindNumber, Min: 1, HasMin: true}
}

func priceField() Field  { return Field{Name: FieldPrice, Label: "Price", Kind: KindNumber} }
func amountField() Field { return Field{Name: FieldAmount, Label: "Amount", Kind: KindNumber} }
func volumeField() Field { return Field{Name: FieldVolume, Label: "Volume", Kind: KindNumber} }

// tpslFields is the shared TP/SL block. The price inputs only exist while
// TP/SL is on.
func tpslFields() []Field {
	tpOn := func(f *Form) bool { return f.Bool(FieldTakeProfitEnabled) }
	return []Field{
		{Name: FieldTakeProfitEnabled, Label: "TP/SL", Kind: KindToggle, Default: "false"},
		{Name: FieldReduceOnly, Label: "Reduce-Only", Kind: KindToggle, Default: "false"},
		{Name: FieldStopLoss, Label: "Stop Loss", Kind: KindNumber, Min: 0, HasMin: true, ActiveWhen: tpOn},
		{Name: FieldTakeProfit, Label: "Take Profit", Kind: KindNumber, Min: 0, HasMin: true, ActiveWhen: tpOn},
	}
}

func sideFields(longLabel, shortLabel string) []Field {
	return []Field{
		{Name: FieldIsLong, Label: longLabel, Kind: KindSide, Opposite: FieldIsShort, Default: "false"},
		{Name: FieldIsShort, Label: shortLabel, Kind: KindSide, Opposite: FieldIsLong, Default: "false"},
	}
}

func orderTypeIs(orderType string) func(f *Form) bool {
	return func(f *Form) bool { return f.Value(FieldOrderType) == orderType }
}
