package service_test

import (
	"alpha_bot/internal/models"
	"alpha_bot/internal/modules/paper/service"
	"fmt"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	btcBinance = models.Ticker{
		ID: "BTCUSDT", Name: "Bitcoin", Base: "BTC", Quote: "USDT",
		Exchange: models.Exchange{ID: "binance", Name: "Binance"},
	}
	ethCoinbase = models.Ticker{
		ID: "ETHUSD", Name: "Ethereum", Base: "ETH", Quote: "USDC",
		Exchange: models.Exchange{ID: "coinbasepro", Name: "Coinbase Pro"},
	}
	t0 = time.Unix(1700000000, 0)
)

// plainFormatter не округляет.
type plainFormatter struct{}

func (plainFormatter) FormatPrice(_ models.Ticker, v float64) (string, float64, error) {
	return strconv.FormatFloat(v, 'f', -1, 64), v, nil
}

func (plainFormatter) FormatAmount(_ models.Ticker, v float64) (string, float64, error) {
	return strconv.FormatFloat(v, 'f', -1, 64), v, nil
}

// stepFormatter режет количество до шага 0.001, цену округляет до 0.01.
type stepFormatter struct{}

func (stepFormatter) FormatPrice(_ models.Ticker, v float64) (string, float64, error) {
	r := math.Round(v*100) / 100
	return strconv.FormatFloat(r, 'f', 2, 64), r, nil
}

func (stepFormatter) FormatAmount(_ models.Ticker, v float64) (string, float64, error) {
	r := math.Floor(v*1000) / 1000
	return strconv.FormatFloat(r, 'f', 3, 64), r, nil
}

func newEngine(f service.Formatter, clock *time.Time) *service.Engine {
	e := service.NewEngine(service.DefaultLimits(), f)
	e.SetClock(func() time.Time { return *clock })
	n := 0
	e.SetIDs(func() string {
		n++
		return fmt.Sprintf("o-%d", n)
	})
	return e
}

func buy(ticker models.Ticker, amount float64) service.TradeRequest {
	return service.TradeRequest{
		User:      models.User{UserID: "1"},
		Ticker:    ticker,
		OrderType: models.OrderBuy,
		Amount:    amount,
	}
}

func TestProcessRejectsOversizedBuyAgainstStartingBalance(t *testing.T) {
	now := t0
	e := newEngine(plainFormatter{}, &now)

	p, err := e.Process(buy(btcBinance, 0.5), models.Quote{Close: 50000}, nil, 0)
	require.NoError(t, err)
	require.Nil(t, p.Order)
	require.NotNil(t, p.Rejection)
	assert.Equal(t, models.RejectInsufficientBalance, p.Rejection.Kind)
	assert.Contains(t, p.Rejection.Message, "10000 USD")
}

func TestMarketBuyCommitArithmetic(t *testing.T) {
	now := t0
	e := newEngine(plainFormatter{}, &now)

	p, err := e.Process(buy(btcBinance, 0.1), models.Quote{Close: 50000}, nil, 0)
	require.NoError(t, err)
	require.Nil(t, p.Rejection)
	o := p.Order
	assert.False(t, o.IsLimit)
	assert.Equal(t, models.PlacementNone, o.Placement)
	assert.Equal(t, "binance", o.Venue)
	assert.Equal(t, "BTC", o.BaseAsset)
	assert.Equal(t, models.USD, o.QuoteAsset)

	ledger := e.Open(nil, "1", o.Venue)
	assert.Equal(t, t0.Unix(), ledger.GlobalLastReset)
	require.Nil(t, e.Validate(*o, ledger.Balance))
	e.Apply(ledger.Balance, *o)

	assert.Equal(t, 5000.0, ledger.Balance.USD)
	assert.Equal(t, 0.1, ledger.Balance.Get("binance", "BTC"))
}

func TestLimitOrderConservationAndCancel(t *testing.T) {
	now := t0
	e := newEngine(plainFormatter{}, &now)

	req := buy(btcBinance, 0.1)
	req.HasPrice, req.Price = true, 40000
	p, err := e.Process(req, models.Quote{Close: 50000}, nil, 0)
	require.NoError(t, err)
	require.Nil(t, p.Rejection)
	o := *p.Order
	assert.True(t, o.IsLimit)
	assert.Equal(t, models.PlacementBelow, o.Placement)

	ledger := e.Open(nil, "1", o.Venue)
	e.Apply(ledger.Balance, o)
	// лимитка списывает только платящую сторону
	assert.Equal(t, 6000.0, ledger.Balance.USD)
	assert.Zero(t, ledger.Balance.Get("binance", "BTC"))

	e.Cancel(ledger.Balance, o)
	assert.Equal(t, 10000.0, ledger.Balance.USD)
	assert.Zero(t, ledger.Balance.Get("binance", "BTC"))
}

func TestLimitSellFillAndCancel(t *testing.T) {
	now := t0
	e := newEngine(plainFormatter{}, &now)

	ledger := e.Open(nil, "1", "binance")
	ledger.Balance.Add("binance", "BTC", 1)

	req := service.TradeRequest{
		User: models.User{UserID: "1"}, Ticker: btcBinance, OrderType: models.OrderSell,
		Amount: 0.4, HasPrice: true, Price: 60000,
	}
	p, err := e.Process(req, models.Quote{Close: 50000}, ledger, 0)
	require.NoError(t, err)
	require.Nil(t, p.Rejection)
	o := *p.Order
	assert.Equal(t, models.PlacementAbove, o.Placement)

	e.Apply(ledger.Balance, o)
	assert.InDelta(t, 0.6, ledger.Balance.Get("binance", "BTC"), 1e-12)
	assert.Equal(t, 10000.0, ledger.Balance.USD)

	filled := ledger.Clone()
	e.Fill(filled.Balance, o)
	assert.Equal(t, 34000.0, filled.Balance.USD)

	e.Cancel(ledger.Balance, o)
	assert.InDelta(t, 1.0, ledger.Balance.Get("binance", "BTC"), 1e-12)
}

func TestStablecoinsShareBalanceAcrossVenues(t *testing.T) {
	now := t0
	e := newEngine(plainFormatter{}, &now)

	p, err := e.Process(buy(btcBinance, 0.1), models.Quote{Close: 50000}, nil, 0)
	require.NoError(t, err)
	ledger := e.Open(nil, "1", "binance")
	e.Apply(ledger.Balance, *p.Order)

	// USDC на другой площадке тратит тот же USD
	p, err = e.Process(buy(ethCoinbase, 2), models.Quote{Close: 2000}, ledger, 0)
	require.NoError(t, err)
	require.Nil(t, p.Rejection)
	ledger = e.Open(ledger, "1", "coinbasepro")
	e.Apply(ledger.Balance, *p.Order)

	assert.Equal(t, 1000.0, ledger.Balance.USD)
	assert.Equal(t, 2.0, ledger.Balance.Get("coinbasepro", "ETH"))
	assert.Equal(t, 0.1, ledger.Balance.Get("binance", "BTC"))

	p, err = e.Process(buy(ethCoinbase, 1), models.Quote{Close: 2000}, ledger, 0)
	require.NoError(t, err)
	require.NotNil(t, p.Rejection)
	assert.Equal(t, models.RejectInsufficientBalance, p.Rejection.Kind)
	assert.Contains(t, p.Rejection.Message, "1000 USD")
}

func TestProcessPercentages(t *testing.T) {
	now := t0
	e := newEngine(plainFormatter{}, &now)

	req := buy(btcBinance, 50)
	req.AmountIsPercent = true
	p, err := e.Process(req, models.Quote{Close: 50000}, nil, 0)
	require.NoError(t, err)
	require.Nil(t, p.Rejection)
	assert.Equal(t, 0.1, p.Order.Amount)

	// больше 100% не бывает
	req.Amount = 250
	p, err = e.Process(req, models.Quote{Close: 50000}, nil, 0)
	require.NoError(t, err)
	require.Nil(t, p.Rejection)
	assert.Equal(t, 0.2, p.Order.Amount)

	req = buy(btcBinance, 0.1)
	req.HasPrice, req.Price, req.PriceIsPercent = true, 2, true
	p, err = e.Process(req, models.Quote{Close: 50000}, nil, 0)
	require.NoError(t, err)
	require.Nil(t, p.Rejection)
	assert.Equal(t, 49000.0, p.Order.Price)
	assert.True(t, p.Order.IsLimit)

	ledger := e.Open(nil, "1", "binance")
	ledger.Balance.Add("binance", "BTC", 1)
	sell := service.TradeRequest{
		User: models.User{UserID: "1"}, Ticker: btcBinance, OrderType: models.OrderSell,
		Amount: 25, AmountIsPercent: true, HasPrice: true, Price: 10, PriceIsPercent: true,
	}
	p, err = e.Process(sell, models.Quote{Close: 50000}, ledger, 0)
	require.NoError(t, err)
	require.Nil(t, p.Rejection)
	assert.Equal(t, 0.25, p.Order.Amount)
	assert.InDelta(t, 55000.0, p.Order.Price, 1e-9)
	assert.Equal(t, models.PlacementAbove, p.Order.Placement)

	sell.OrderType = models.OrderStopSell
	p, err = e.Process(sell, models.Quote{Close: 50000}, ledger, 0)
	require.NoError(t, err)
	require.Nil(t, p.Rejection)
	assert.Equal(t, 45000.0, p.Order.Price)
	assert.Equal(t, models.PlacementBelow, p.Order.Placement)
}

func TestProcessUsesRoundedValues(t *testing.T) {
	now := t0
	e := newEngine(stepFormatter{}, &now)

	p, err := e.Process(buy(btcBinance, 0.0004), models.Quote{Close: 50000}, nil, 0)
	require.NoError(t, err)
	require.NotNil(t, p.Rejection)
	assert.Equal(t, models.RejectZeroSize, p.Rejection.Kind)
	assert.Equal(t, "Insufficient order size", p.Rejection.Title)

	p, err = e.Process(buy(btcBinance, 0.1239), models.Quote{Close: 50000.004}, nil, 0)
	require.NoError(t, err)
	require.Nil(t, p.Rejection)
	assert.Equal(t, 0.123, p.Order.Amount)
	assert.Equal(t, "0.123", p.Order.AmountText)
	assert.Equal(t, "50000.00", p.Order.PriceText)
	// цена и close округлены одинаково: рыночная заявка
	assert.False(t, p.Order.IsLimit)
}

func TestValidateOrder(t *testing.T) {
	now := t0
	e := newEngine(plainFormatter{}, &now)

	sell := service.TradeRequest{
		User: models.User{UserID: "1"}, Ticker: btcBinance, OrderType: models.OrderSell, Amount: 0.1,
	}
	p, err := e.Process(sell, models.Quote{Close: 50000}, nil, 0)
	require.NoError(t, err)
	require.NotNil(t, p.Rejection)
	assert.Equal(t, models.RejectInsufficientBalance, p.Rejection.Kind)
	assert.Contains(t, p.Rejection.Message, "0 BTC")

	req := buy(btcBinance, 0.1)
	req.HasPrice, req.Price = true, -5
	p, err = e.Process(req, models.Quote{Close: 50000}, nil, 0)
	require.NoError(t, err)
	require.NotNil(t, p.Rejection)
	assert.Equal(t, models.RejectInvalidPrice, p.Rejection.Kind)

	// покупка на весь баланс проходит несмотря на ошибку округления
	req = buy(btcBinance, 10000.0/3)
	p, err = e.Process(req, models.Quote{Close: 3}, nil, 0)
	require.NoError(t, err)
	assert.Nil(t, p.Rejection)

	noVenue := btcBinance
	noVenue.Exchange = models.Exchange{}
	p, err = e.Process(buy(noVenue, 0.1), models.Quote{Close: 50000}, nil, 0)
	require.NoError(t, err)
	require.NotNil(t, p.Rejection)
	assert.Equal(t, models.RejectUnsupported, p.Rejection.Kind)
}

func TestOpenOrderCap(t *testing.T) {
	now := t0
	e := newEngine(plainFormatter{}, &now)

	req := buy(btcBinance, 0.01)
	req.HasPrice, req.Price = true, 40000
	p, err := e.Process(req, models.Quote{Close: 50000}, nil, 50)
	require.NoError(t, err)
	require.NotNil(t, p.Rejection)
	assert.Equal(t, models.RejectCapacity, p.Rejection.Kind)

	// рыночные заявки не занимают слот
	p, err = e.Process(buy(btcBinance, 0.01), models.Quote{Close: 50000}, nil, 50)
	require.NoError(t, err)
	assert.Nil(t, p.Rejection)
}

func TestResetGating(t *testing.T) {
	now := t0
	e := newEngine(plainFormatter{}, &now)

	rej := e.CheckReset(nil)
	require.NotNil(t, rej)
	assert.Equal(t, models.RejectNoActivity, rej.Kind)

	ledger := e.Open(nil, "1", "binance")

	now = t0.Add(6 * 24 * time.Hour)
	rej = e.CheckReset(ledger)
	require.NotNil(t, rej)
	assert.Equal(t, models.RejectResetCooldown, rej.Kind)
	assert.Contains(t, rej.Message, "1d")

	now = t0.Add(604800 * time.Second)
	require.Nil(t, e.CheckReset(ledger))

	reset := e.Reset(ledger)
	assert.Nil(t, reset.Balance)
	assert.Equal(t, 1, reset.GlobalResetCount)
	assert.Equal(t, now.Unix(), reset.GlobalLastReset)

	// после сброса первая сделка не сдвигает отметку
	reopened := e.Open(reset, "1", "binance")
	assert.Equal(t, now.Unix(), reopened.GlobalLastReset)
	assert.Equal(t, 10000.0, reopened.Balance.USD)
}

func TestExpired(t *testing.T) {
	now := t0
	e := newEngine(plainFormatter{}, &now)

	o := models.PendingOrder{CreatedAt: t0}
	now = t0.Add(59 * time.Second)
	assert.Nil(t, e.Expired(o))

	now = t0.Add(61 * time.Second)
	rej := e.Expired(o)
	require.NotNil(t, rej)
	assert.Equal(t, models.RejectExpired, rej.Kind)
}
