package models

import (
	"errors"
	"math"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAsset(t *testing.T) {
	for _, s := range []string{"USD", "usdt", " USDC ", "DAI", "HUSD", "TUSD", "PAX", "USDK", "USDN", "BUSD", "GUSD", "USDS"} {
		assert.Equal(t, USD, NormalizeAsset(s), s)
		assert.True(t, IsStablecoin(s), s)
	}
	assert.Equal(t, "BTC", NormalizeAsset("btc"))
	assert.Equal(t, "EUR", NormalizeAsset("EUR"))
	assert.False(t, IsStablecoin("EUR"))
}

func TestBalanceStablecoinsShareUSDBucket(t *testing.T) {
	b := NewBalance(10000, "binance")

	b.Add("binance", "USDT", -2500)
	b.Add("coinbasepro", "USDC", -2500)
	b.Add("kraken", "BTC", 0.25)

	assert.Equal(t, 5000.0, b.USD)
	assert.Equal(t, 5000.0, b.Get("ftx", "DAI"))
	assert.Equal(t, 0.25, b.Get("kraken", "btc"))
	assert.Zero(t, b.Get("binance", "BTC"))
	assert.Equal(t, []string{"binance", "kraken"}, b.VenueNames())
}

func TestBalanceJSONShape(t *testing.T) {
	b := NewBalance(5000, "binance")
	b.Add("binance", "BTC", 0.1)

	raw, err := sonic.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"USD":5000,"binance":{"BTC":0.1}}`, string(raw))

	var back Balance
	require.NoError(t, sonic.Unmarshal(raw, &back))
	assert.Equal(t, 5000.0, back.USD)
	assert.Equal(t, 0.1, back.Get("binance", "BTC"))
}

func TestBalanceMalformed(t *testing.T) {
	cases := map[string]string{
		"usd not a number":   `{"USD":"lots"}`,
		"venue not object":   `{"USD":1,"binance":5}`,
		"asset not a number": `{"USD":1,"binance":{"BTC":"x"}}`,
		"not an object":      `[1,2]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var b Balance
			err := b.UnmarshalJSON([]byte(raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedBalance))
		})
	}

	b := NewBalance(math.NaN(), "")
	assert.True(t, errors.Is(b.Validate(), ErrMalformedBalance))
}

func TestLedgerCloneIsDeep(t *testing.T) {
	l := &Ledger{OwnerID: "u1", Balance: NewBalance(100, "binance")}
	cp := l.Clone()
	cp.Balance.Add("binance", "BTC", 1)
	cp.Balance.USD = 1

	assert.Equal(t, 100.0, l.Balance.USD)
	assert.Zero(t, l.Balance.Get("binance", "BTC"))

	var empty *Ledger
	assert.Nil(t, empty.Clone())
	assert.False(t, empty.Active())
}
