package service

import (
	"alpha_bot/internal/models"
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	errAlertUsage  = errors.New("usage: /alert <ticker> [exchange] <level> [level ...]")
	errPaperUsage  = errors.New("usage: /paper <buy|sell|stop-sell> <ticker> [exchange] <amount>[%] [@ <price>[%]]")
	errNotANumber  = errors.New("not a number")
	errNonPositive = errors.New("must be greater than zero")
)

type alertArgs struct {
	Query    string
	Exchange string
	Levels   []float64
}

type paperArgs struct {
	OrderType       models.OrderType
	Query           string
	Exchange        string
	Amount          float64
	AmountIsPercent bool
	HasPrice        bool
	Price           float64
	PriceIsPercent  bool
}

// parseNumber понимает "1,5", "$100", "25%".
func parseNumber(s string) (v float64, percent bool, err error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	if strings.HasSuffix(s, "%") {
		percent = true
		s = strings.TrimSuffix(s, "%")
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err = strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, errNotANumber
	}
	return v, percent, nil
}

func isNumber(s string) bool {
	_, _, err := parseNumber(s)
	return err == nil
}

func parseAlertArgs(raw string) (alertArgs, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return alertArgs{}, errAlertUsage
	}
	out := alertArgs{Query: fields[0]}
	for _, f := range fields[1:] {
		v, percent, err := parseNumber(f)
		if err != nil {
			// площадка допустима только перед уровнями
			if len(out.Levels) == 0 && out.Exchange == "" {
				out.Exchange = strings.ToLower(f)
				continue
			}
			return alertArgs{}, errAlertUsage
		}
		if percent {
			return alertArgs{}, errAlertUsage
		}
		if v <= 0 {
			return alertArgs{}, errNonPositive
		}
		out.Levels = append(out.Levels, v)
	}
	if len(out.Levels) == 0 {
		return alertArgs{}, errAlertUsage
	}
	return out, nil
}

func parseOrderType(s string) (models.OrderType, bool) {
	switch strings.ToLower(s) {
	case "buy", "long":
		return models.OrderBuy, true
	case "sell", "short":
		return models.OrderSell, true
	case "stop-sell", "stopsell", "stop":
		return models.OrderStopSell, true
	}
	return "", false
}

func parsePaperArgs(raw string) (paperArgs, error) {
	// "@45000" и "@ 45000" эквивалентны
	raw = strings.ReplaceAll(raw, "@", " @ ")
	fields := strings.Fields(raw)
	if len(fields) < 3 {
		return paperArgs{}, errPaperUsage
	}

	orderType, ok := parseOrderType(fields[0])
	if !ok {
		return paperArgs{}, errPaperUsage
	}
	out := paperArgs{OrderType: orderType, Query: fields[1]}

	rest := fields[2:]
	if len(rest) > 0 && !isNumber(rest[0]) && rest[0] != "@" {
		out.Exchange = strings.ToLower(rest[0])
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return paperArgs{}, errPaperUsage
	}

	amount, percent, err := parseNumber(rest[0])
	if err != nil {
		return paperArgs{}, errPaperUsage
	}
	if amount < 0 {
		return paperArgs{}, errNonPositive
	}
	out.Amount, out.AmountIsPercent = amount, percent
	rest = rest[1:]

	if len(rest) == 0 {
		return out, nil
	}
	if rest[0] != "@" || len(rest) != 2 {
		return paperArgs{}, errPaperUsage
	}
	price, percent, err := parseNumber(rest[1])
	if err != nil {
		return paperArgs{}, errPaperUsage
	}
	out.HasPrice, out.Price, out.PriceIsPercent = true, price, percent
	return out, nil
}
