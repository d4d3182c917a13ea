package tradeform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newForm(t *testing.T, exchange string) *Form {
	t.Helper()
	f := New(now)
	require.NoError(t, f.Apply(Action{Kind: ActionSet, Field: FieldExchange, Value: exchange}))
	require.NoError(t, f.Apply(Action{Kind: ActionSet, Field: FieldPair, Value: "BTC/USDT"}))
	return f
}

func apply(t *testing.T, f *Form, actions ...string) {
	t.Helper()
	for _, s := range actions {
		a, err := ParseAction(s)
		require.NoError(t, err)
		require.NoError(t, f.Apply(a), s)
	}
}

func TestNew(t *testing.T) {
	f := New(now)

	assert.Equal(t, "2024-05-01T09:30", f.Value(FieldTradeTime))
	assert.Equal(t, ContractFutures, f.ContractType())
	assert.Nil(t, f.Layout())
	assert.Empty(t, f.Fields())
}

func TestExchangeSelectsLayout(t *testing.T) {
	tests := []struct {
		name     string
		exchange string
		contract ContractType
		owns     []string
		notOwns  []string
	}{
		{"Binance", "Binance", ContractFutures, []string{FieldMarginMode, FieldAssetMode, FieldSize, FieldIsLong}, []string{FieldVolume, FieldSide}},
		{"KuCoin spot", "KuCoin", ContractSpot, []string{FieldPrice, FieldAmount, FieldVolume}, []string{FieldLeverage, FieldTakeProfitEnabled, FieldBorrowMode}},
		{"KuCoin cross", "KuCoin", ContractCross, []string{FieldBorrowMode, FieldVolume}, []string{FieldLeverage, FieldMarginType}},
		{"KuCoin futures", "KuCoin", ContractFutures, []string{FieldMarginType, FieldLeverage, FieldTakeProfitEnabled}, []string{FieldVolume, FieldBorrowMode}},
		{"MEXC", "MEXC", ContractFutures, []string{FieldSide, FieldMarginType, FieldVolume}, []string{FieldIsLong, FieldMarginMode}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newForm(t, tt.exchange)
			apply(t, f, "set:contractType="+string(tt.contract))

			for _, name := range tt.owns {
				assert.True(t, f.Owns(name), name)
			}
			for _, name := range tt.notOwns {
				assert.False(t, f.Owns(name), name)
			}
		})
	}
}

func TestSwitchingExchangePrunesValues(t *testing.T) {
	// Arrange
	f := newForm(t, "Binance")
	apply(t, f, "set:stopPrice=100", "cycle:marginMode", "set:leverage=20")

	// Act
	apply(t, f, "set:exchange=KuCoin")

	// Assert
	p := f.Payload()
	assert.NotContains(t, p, FieldStopPrice)
	assert.NotContains(t, p, FieldMarginMode)
	assert.NotContains(t, p, FieldAssetMode)
	assert.NotContains(t, p, FieldSize)
	assert.Equal(t, 20.0, p[FieldLeverage])
	assert.Equal(t, "Isolated", p[FieldMarginType])
	assert.Equal(t, "BTC/USDT", p[FieldPair])
}

func TestWritesOutsideLayoutAreRejected(t *testing.T) {
	f := newForm(t, "MEXC")

	err := f.Apply(Action{Kind: ActionSet, Field: FieldStopPrice, Value: "1"})

	assert.ErrorIs(t, err, ErrFieldNotOwned)
	assert.Empty(t, f.Value(FieldStopPrice))
}

func TestTPSLAndReduceOnlyAreExclusive(t *testing.T) {
	f := newForm(t, "Binance")

	apply(t, f, "toggle:takeProfitEnabled")
	assert.True(t, f.Bool(FieldTakeProfitEnabled))
	assert.False(t, f.Bool(FieldReduceOnly))

	apply(t, f, "toggle:reduceOnly")
	assert.True(t, f.Bool(FieldReduceOnly))
	assert.False(t, f.Bool(FieldTakeProfitEnabled))

	apply(t, f, "toggle:takeProfitEnabled")
	assert.True(t, f.Bool(FieldTakeProfitEnabled))
	assert.False(t, f.Bool(FieldReduceOnly))
}

func TestDisablingTPSLClearsPrices(t *testing.T) {
	// Arrange
	f := newForm(t, "KuCoin")
	apply(t, f, "toggle:takeProfitEnabled", "set:takeProfit=abc", "set:stopLoss=90")
	require.False(t, f.Validate())
	require.Equal(t, MsgNotNumber, f.Error(FieldTakeProfit))

	// Act
	apply(t, f, "toggle:takeProfitEnabled")

	// Assert
	assert.Empty(t, f.Value(FieldTakeProfit))
	assert.Empty(t, f.Value(FieldStopLoss))
	assert.Empty(t, f.Error(FieldTakeProfit))
	assert.NotContains(t, f.Payload(), FieldStopLoss)
}

func TestReduceOnlyClearsPrices(t *testing.T) {
	f := newForm(t, "Binance")
	apply(t, f, "toggle:takeProfitEnabled", "set:takeProfit=120")

	apply(t, f, "toggle:reduceOnly")

	assert.Empty(t, f.Value(FieldTakeProfit))
}

func TestSideButtons(t *testing.T) {
	f := newForm(t, "Binance")

	apply(t, f, "toggle:isLong")
	assert.True(t, f.Bool(FieldIsLong))
	assert.False(t, f.Bool(FieldIsShort))

	apply(t, f, "toggle:isShort")
	assert.False(t, f.Bool(FieldIsLong))
	assert.True(t, f.Bool(FieldIsShort))

	apply(t, f, "toggle:isShort")
	assert.False(t, f.Bool(FieldIsLong))
	assert.False(t, f.Bool(FieldIsShort))
}

func TestCycle(t *testing.T) {
	f := newForm(t, "Binance")
	assert.Equal(t, "Cross", f.Value(FieldMarginMode))

	apply(t, f, "cycle:marginMode")
	assert.Equal(t, "Isolated", f.Value(FieldMarginMode))

	apply(t, f, "cycle:marginMode")
	assert.Equal(t, "Cross", f.Value(FieldMarginMode))

	assert.ErrorIs(t, f.Apply(Action{Kind: ActionCycle, Field: FieldLeverage}), ErrInvalidAction)
}

func TestBinanceOrderTypeFields(t *testing.T) {
	names := func(f *Form) []string {
		var out []string
		for _, fd := range f.Fields() {
			out = append(out, fd.Name)
		}
		return out
	}
	f := newForm(t, "Binance")

	assert.Equal(t, OrderStopLimit, f.Value(FieldOrderType))
	assert.Contains(t, names(f), FieldStopPrice)
	assert.NotContains(t, names(f), FieldPrice)

	apply(t, f, "set:orderType=Limit")
	assert.Contains(t, names(f), FieldPrice)
	assert.NotContains(t, names(f), FieldStopPrice)

	apply(t, f, "set:orderType=Market")
	assert.NotContains(t, names(f), FieldPrice)
	assert.NotContains(t, names(f), FieldStopPrice)

	assert.ErrorIs(t, f.Apply(Action{Kind: ActionSet, Field: FieldOrderType, Value: "Trailing"}), ErrInvalidValue)
}

func TestValidate(t *testing.T) {
	t.Run("Missing exchange and pair", func(t *testing.T) {
		f := New(now)

		assert.False(t, f.Validate())
		assert.Equal(t, MsgRequired, f.Error(FieldExchange))
		assert.Equal(t, MsgRequired, f.Error(FieldPair))
	})

	t.Run("Unsupported exchange", func(t *testing.T) {
		f := newForm(t, "Bybit")

		assert.False(t, f.Validate())
		assert.Equal(t, MsgUnsupported, f.Error(FieldExchange))
	})

	t.Run("TP/SL required only while on", func(t *testing.T) {
		f := newForm(t, "MEXC")
		assert.True(t, f.Validate())

		apply(t, f, "toggle:takeProfitEnabled")

		assert.False(t, f.Validate())
		assert.Equal(t, MsgRequiredTPSL, f.Error(FieldTakeProfit))
		assert.Equal(t, MsgRequiredTPSL, f.Error(FieldStopLoss))
	})

	t.Run("TP/SL must be positive", func(t *testing.T) {
		f := newForm(t, "MEXC")
		apply(t, f, "toggle:takeProfitEnabled", "set:takeProfit=0", "set:stopLoss=-1")

		assert.False(t, f.Validate())
		assert.Equal(t, MsgPositive, f.Error(FieldTakeProfit))
		assert.Equal(t, MsgPositive, f.Error(FieldStopLoss))
	})

	t.Run("Bounds", func(t *testing.T) {
		f := newForm(t, "Binance")
		apply(t, f, "set:leverage=0", "set:size=150")

		assert.False(t, f.Validate())
		assert.Equal(t, "Must be at least 1", f.Error(FieldLeverage))
		assert.Equal(t, "Must be at most 100", f.Error(FieldSize))
	})

	t.Run("NaN and infinities are not numbers", func(t *testing.T) {
		f := newForm(t, "MEXC")
		apply(t, f, "set:leverage=Inf", "toggle:takeProfitEnabled", "set:takeProfit=NaN", "set:stopLoss=-Inf")

		assert.False(t, f.Validate())
		assert.Equal(t, MsgNotNumber, f.Error(FieldLeverage))
		assert.Equal(t, MsgNotNumber, f.Error(FieldTakeProfit))
		assert.Equal(t, MsgNotNumber, f.Error(FieldStopLoss))
		assert.NotContains(t, f.Payload(), FieldLeverage)
	})

	t.Run("Setting a value clears its error", func(t *testing.T) {
		f := newForm(t, "Binance")
		apply(t, f, "set:leverage=x")
		require.False(t, f.Validate())

		apply(t, f, "set:leverage=5")

		assert.Empty(t, f.Error(FieldLeverage))
	})
}

func TestPayload(t *testing.T) {
	f := newForm(t, "Binance")
	apply(t, f, "set:orderType=Limit", "set:price=64000.5", "set:leverage=10", "toggle:isLong", "set:notes=breakout")
	require.True(t, f.Validate())

	p := f.Payload()

	assert.Equal(t, map[string]interface{}{
		FieldExchange:          "Binance",
		FieldPair:              "BTC/USDT",
		FieldContractType:      "FUTURES",
		FieldTradeTime:         "2024-05-01T09:30:00Z",
		FieldNotes:             "breakout",
		FieldMarginMode:        "Cross",
		FieldAssetMode:         "Single-Asset",
		FieldLeverage:          10.0,
		FieldOrderType:         OrderLimit,
		FieldPrice:             64000.5,
		FieldSize:              1.0,
		FieldTakeProfitEnabled: false,
		FieldReduceOnly:        false,
		FieldIsLong:            true,
		FieldIsShort:           false,
	}, p)
}

func TestBind(t *testing.T) {
	f := New(now)

	err := f.Bind(map[string]string{
		FieldExchange:     "KuCoin",
		FieldContractType: "SPOPT",
		FieldPair:         "ETH/USDT",
		FieldPrice:        "3000",
		FieldLeverage:     "5",
		FieldIsLong:       "true",
	})

	require.NoError(t, err)
	assert.Equal(t, "3000", f.Value(FieldPrice))
	assert.Empty(t, f.Value(FieldLeverage))
	assert.False(t, f.Bool(FieldIsLong))
}

func TestBindKeepsGoingAfterInvalidChoice(t *testing.T) {
	f := New(now)

	err := f.Bind(map[string]string{
		FieldExchange:     "KuCoin",
		FieldContractType: "BOGUS",
		FieldPair:         "ETH/USDT",
		FieldNotes:        "breakout",
	})

	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, MsgInvalidOption, f.Error(FieldContractType))
	assert.Equal(t, ContractFutures, f.ContractType())
	assert.Equal(t, "ETH/USDT", f.Value(FieldPair))
	assert.Equal(t, "breakout", f.Value(FieldNotes))
}

func TestSnapshotRestore(t *testing.T) {
	f := newForm(t, "KuCoin")
	apply(t, f, "set:contractType=CORSS", "set:borrowMode=Auto-Repay", "set:amount=2")

	data, err := f.Snapshot()
	require.NoError(t, err)
	restored, err := Restore(data)

	require.NoError(t, err)
	assert.Equal(t, f.Payload(), restored.Payload())
	assert.Equal(t, ContractCross, restored.ContractType())
}

func TestRestoreNullSnapshot(t *testing.T) {
	f, err := Restore([]byte("null"))
	require.NoError(t, err)

	apply(t, f, "set:exchange=Binance", "set:pair=BTC/USDT")

	assert.Equal(t, "BTC/USDT", f.Value(FieldPair))
	assert.Equal(t, ContractFutures, f.ContractType())
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("set:notes=a=b")
	require.NoError(t, err)
	assert.Equal(t, Action{Kind: ActionSet, Field: FieldNotes, Value: "a=b"}, a)

	_, err = ParseAction("submit")
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = ParseAction("flip:isLong")
	assert.ErrorIs(t, err, ErrInvalidAction)
}
