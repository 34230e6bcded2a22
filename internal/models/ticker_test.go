package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTickerFingerprint(t *testing.T) {
	a := Ticker{
		ID: "BTCUSDT", Base: "BTC", Quote: "USDT",
		Exchange: Exchange{ID: "binance"},
		Extra:    map[string]any{"a": 1, "b": "x", "c": true},
	}
	b := a
	b.Extra = map[string]any{"c": true, "b": "x", "a": 1}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.True(t, a.SameInstrument(b))

	b.Exchange.ID = "coinbasepro"
	assert.False(t, a.SameInstrument(b))
	assert.Equal(t, "coinbasepro", Ticker{Exchange: Exchange{ID: " CoinbasePro "}}.Venue())
}

func TestUserOwner(t *testing.T) {
	guest := User{UserID: "1"}
	assert.False(t, guest.Registered())
	assert.Equal(t, "1", guest.OwnerID())
	assert.Equal(t, []string{"1"}, guest.OwnerIDs())

	linked := User{UserID: "1", AccountID: "acc"}
	assert.True(t, linked.Registered())
	assert.Equal(t, "acc", linked.OwnerID())
	assert.Equal(t, []string{"1", "acc"}, linked.OwnerIDs())
}

func TestPaperOrderCrossed(t *testing.T) {
	above := PaperOrder{PendingOrder: PendingOrder{Price: 100, Placement: PlacementAbove}}
	assert.True(t, above.Crossed(100))
	assert.True(t, above.Crossed(101))
	assert.False(t, above.Crossed(99.99))

	below := PaperOrder{PendingOrder: PendingOrder{Price: 100, Placement: PlacementBelow}}
	assert.True(t, below.Crossed(100))
	assert.False(t, below.Crossed(100.01))

	assert.False(t, PaperOrder{}.Crossed(1))
}
