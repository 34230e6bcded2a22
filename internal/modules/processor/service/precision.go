package service

import (
	"alpha_bot/internal/models"
	"alpha_bot/pkg/logger"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

const defaultDecimals = 8

// Rule: шаг цены/количества для площадки или конкретного символа.
type Rule struct {
	TickSize       string `yaml:"tick_size"`
	StepSize       string `yaml:"step_size"`
	PriceDecimals  *int32 `yaml:"price_decimals"`
	AmountDecimals *int32 `yaml:"amount_decimals"`
}

type venueRules struct {
	Rule    `yaml:",inline"`
	Symbols map[string]Rule `yaml:"symbols"`
}

type precisionFile struct {
	Default Rule                  `yaml:"default"`
	Venues  map[string]venueRules `yaml:"venues"`
}

// Precision rounds prices and amounts the way the venue would.
// Returned numbers are authoritative: downstream math uses them, not the raw input.
type Precision struct {
	table precisionFile
}

// LoadPrecision читает таблицу; отсутствующий файл: не ошибка, берём дефолты.
func LoadPrecision(path string) (*Precision, error) {
	p := &Precision{}
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("[PRECISION] %s not found, using %d decimals everywhere", path, defaultDecimals)
			return p, nil
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return ParsePrecision(raw)
}

func ParsePrecision(raw []byte) (*Precision, error) {
	var table precisionFile
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, errors.Wrap(err, "parse precision table")
	}
	venues := make(map[string]venueRules, len(table.Venues))
	for name, v := range table.Venues {
		symbols := make(map[string]Rule, len(v.Symbols))
		for sym, r := range v.Symbols {
			symbols[strings.ToUpper(sym)] = r
		}
		v.Symbols = symbols
		venues[strings.ToLower(name)] = v
	}
	table.Venues = venues
	return &Precision{table: table}, nil
}

// FormatPrice rounds to the nearest tick.
func (p *Precision) FormatPrice(ticker models.Ticker, price float64) (string, float64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return "", 0, errors.Errorf("price %v is not a number", price)
	}
	rule := p.resolve(ticker)
	d := decimal.NewFromFloat(price)

	var places int32
	if tick, ok := parseStep(rule.TickSize); ok {
		d = d.Div(tick).Round(0).Mul(tick)
		places = stepPlaces(tick)
	} else {
		places = decimals(rule.PriceDecimals)
		d = d.Round(places)
	}
	f, _ := d.Float64()
	return d.StringFixed(places), f, nil
}

// FormatAmount rounds down to the lot step, never overspending.
func (p *Precision) FormatAmount(ticker models.Ticker, amount float64) (string, float64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "", 0, errors.Errorf("amount %v is not a number", amount)
	}
	rule := p.resolve(ticker)
	d := decimal.NewFromFloat(amount)

	var places int32
	if step, ok := parseStep(rule.StepSize); ok {
		d = d.Div(step).Floor().Mul(step)
		places = stepPlaces(step)
	} else {
		places = decimals(rule.AmountDecimals)
		d = d.Truncate(places)
	}
	f, _ := d.Float64()
	return d.StringFixed(places), f, nil
}

// resolve: символ > площадка > default, по каждому полю отдельно.
func (p *Precision) resolve(ticker models.Ticker) Rule {
	out := p.table.Default
	venue, ok := p.table.Venues[ticker.Venue()]
	if !ok {
		return out
	}
	out = merge(out, venue.Rule)
	for _, key := range []string{ticker.ID, ticker.Symbol} {
		if sym, ok := venue.Symbols[strings.ToUpper(key)]; ok && key != "" {
			return merge(out, sym)
		}
	}
	return out
}

func merge(base, over Rule) Rule {
	if over.TickSize != "" {
		base.TickSize = over.TickSize
	}
	if over.StepSize != "" {
		base.StepSize = over.StepSize
	}
	if over.PriceDecimals != nil {
		base.PriceDecimals = over.PriceDecimals
	}
	if over.AmountDecimals != nil {
		base.AmountDecimals = over.AmountDecimals
	}
	return base
}

func parseStep(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func stepPlaces(step decimal.Decimal) int32 {
	step = step.Truncate(16)
	places := -step.Exponent()
	// "0.0100" хранится с лишними нулями
	for places > 0 && step.Equal(step.Truncate(places-1)) {
		places--
	}
	if places < 0 {
		return 0
	}
	return places
}

func decimals(v *int32) int32 {
	if v == nil || *v < 0 {
		return defaultDecimals
	}
	return *v
}
