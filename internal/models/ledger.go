package models

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
)

// USD: общий кошелёк для всех стейблкоинов.
const USD = "USD"

var stablecoins = map[string]struct{}{
	"USD": {}, "USDT": {}, "USDC": {}, "DAI": {}, "HUSD": {}, "TUSD": {},
	"PAX": {}, "USDK": {}, "USDN": {}, "BUSD": {}, "GUSD": {}, "USDS": {},
}

// IsStablecoin ...
func IsStablecoin(symbol string) bool {
	_, ok := stablecoins[strings.ToUpper(strings.TrimSpace(symbol))]
	return ok
}

// NormalizeAsset maps every stablecoin onto the single USD bucket.
// Both the read and the write path of the ledger go through it.
func NormalizeAsset(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if _, ok := stablecoins[s]; ok {
		return USD
	}
	return s
}

// Balance: бумажный баланс: плоский USD и активы по площадкам.
// В JSON это {"USD": 10000, "binance": {"BTC": 0.1}}.
type Balance struct {
	USD    float64
	Venues map[string]map[string]float64
}

// NewBalance creates the starting sheet for a first trade on venue.
func NewBalance(startUSD float64, venue string) *Balance {
	b := &Balance{USD: startUSD, Venues: make(map[string]map[string]float64)}
	if venue != "" {
		b.Venues[venue] = make(map[string]float64)
	}
	return b
}

// Get returns the holding of asset on venue, stablecoins read the USD bucket.
func (b *Balance) Get(venue, asset string) float64 {
	asset = NormalizeAsset(asset)
	if asset == USD {
		return b.USD
	}
	return b.Venues[venue][asset]
}

// Add applies delta to the asset bucket, creating the venue map on demand.
func (b *Balance) Add(venue, asset string, delta float64) {
	asset = NormalizeAsset(asset)
	if asset == USD {
		b.USD += delta
		return
	}
	if b.Venues == nil {
		b.Venues = make(map[string]map[string]float64)
	}
	if b.Venues[venue] == nil {
		b.Venues[venue] = make(map[string]float64)
	}
	b.Venues[venue][asset] += delta
}

// EnsureVenue ...
func (b *Balance) EnsureVenue(venue string) {
	if b.Venues == nil {
		b.Venues = make(map[string]map[string]float64)
	}
	if _, ok := b.Venues[venue]; !ok {
		b.Venues[venue] = make(map[string]float64)
	}
}

// Clone ...
func (b *Balance) Clone() *Balance {
	if b == nil {
		return nil
	}
	out := &Balance{USD: b.USD, Venues: make(map[string]map[string]float64, len(b.Venues))}
	for venue, assets := range b.Venues {
		cp := make(map[string]float64, len(assets))
		for k, v := range assets {
			cp[k] = v
		}
		out.Venues[venue] = cp
	}
	return out
}

// VenueNames returns venues in stable order.
func (b *Balance) VenueNames() []string {
	names := make([]string, 0, len(b.Venues))
	for v := range b.Venues {
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}

// Validate rejects NaN/Inf quantities.
func (b *Balance) Validate() error {
	if !finite(b.USD) {
		return fmt.Errorf("%w: USD=%v", ErrMalformedBalance, b.USD)
	}
	for venue, assets := range b.Venues {
		for asset, qty := range assets {
			if !finite(qty) {
				return fmt.Errorf("%w: %s.%s=%v", ErrMalformedBalance, venue, asset, qty)
			}
		}
	}
	return nil
}

func (b Balance) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(b.Venues)+1)
	doc[USD] = b.USD
	for venue, assets := range b.Venues {
		doc[venue] = assets
	}
	return sonic.ConfigStd.Marshal(doc)
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	var doc map[string]any
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBalance, err)
	}

	out := Balance{Venues: make(map[string]map[string]float64)}
	for key, raw := range doc {
		if key == USD {
			usd, ok := raw.(float64)
			if !ok {
				return fmt.Errorf("%w: USD is %T", ErrMalformedBalance, raw)
			}
			out.USD = usd
			continue
		}
		nested, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: venue %q is %T", ErrMalformedBalance, key, raw)
		}
		assets := make(map[string]float64, len(nested))
		for asset, v := range nested {
			qty, ok := v.(float64)
			if !ok {
				return fmt.Errorf("%w: %s.%s is %T", ErrMalformedBalance, key, asset, v)
			}
			assets[asset] = qty
		}
		out.Venues[key] = assets
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*b = out
	return nil
}

// Ledger: бумажный счёт владельца.
type Ledger struct {
	OwnerID          string   `json:"ownerId"`
	Balance          *Balance `json:"balance,omitempty"`
	GlobalLastReset  int64    `json:"globalLastReset"`
	GlobalResetCount int      `json:"globalResetCount"`
}

// Active reports whether the owner has a balance sheet (traded since the last reset).
func (l *Ledger) Active() bool { return l != nil && l.Balance != nil }

// Clone ...
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	cp := *l
	cp.Balance = l.Balance.Clone()
	return &cp
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
