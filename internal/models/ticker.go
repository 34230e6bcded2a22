package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/bytedance/sonic"
)

// Exchange: площадка, к которой привязан тикер.
type Exchange struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ticker: уже разрезолвленный инструмент. Для ядра непрозрачен:
// читаем base/quote/exchange, остальное только сравниваем.
type Ticker struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Base     string         `json:"base"`
	Quote    string         `json:"quote"`
	Symbol   string         `json:"symbol"`
	Exchange Exchange       `json:"exchange"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Venue returns the exchange id the ticker trades on, lower-cased.
func (t Ticker) Venue() string {
	return strings.ToLower(strings.TrimSpace(t.Exchange.ID))
}

// Fingerprint is a key-order independent identity of the ticker.
// Two tickers are the same instrument iff their fingerprints match.
func (t Ticker) Fingerprint() string {
	raw, err := sonic.ConfigStd.Marshal(t)
	if err != nil {
		// map с нестроковыми значениями, которые sonic не смог закодировать
		raw = []byte(t.ID + "|" + t.Symbol + "|" + t.Venue())
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// SameInstrument ...
func (t Ticker) SameInstrument(other Ticker) bool {
	return t.Fingerprint() == other.Fingerprint()
}
