package service

import (
	"alpha_bot/internal/models"
	"alpha_bot/pkg/tracing"
	"context"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	endpointCandle      = "candle"
	endpointMatchTicker = "match_ticker"
)

var ErrNoCandles = errors.New("no candle data")

type candleRequest struct {
	Ticker   models.Ticker `json:"ticker"`
	Platform string        `json:"platform"`
}

type matchRequest struct {
	Query    string `json:"query"`
	Exchange string `json:"exchange,omitempty"`
	Platform string `json:"platform"`
}

// Candle возвращает последнюю цену закрытия инструмента.
// Одинаковые одновременные запросы схлопываются в один.
func (c *Client) Candle(ctx context.Context, ticker models.Ticker, platform string) (models.Quote, error) {
	span, ctx := tracing.StartSpan(ctx, "processor.candle")
	defer span.Finish()

	key := endpointCandle + ":" + platform + ":" + ticker.Fingerprint()
	v, err, _ := c.group.Do(key, func() (any, error) {
		raw, err := c.request(ctx, endpointCandle, candleRequest{Ticker: ticker, Platform: platform})
		if err != nil {
			return models.Quote{}, err
		}
		return ParseCandle(raw)
	})
	if err != nil {
		tracing.Fail(span, err)
		return models.Quote{}, err
	}
	q := v.(models.Quote)
	if q.Platform == "" {
		q.Platform = platform
	}
	return q, nil
}

// MatchTicker резолвит пользовательский ввод ("btc", "AAPL") в инструмент.
func (c *Client) MatchTicker(ctx context.Context, query, exchange, platform string) (models.Ticker, error) {
	span, ctx := tracing.StartSpan(ctx, "processor.match_ticker")
	defer span.Finish()

	raw, err := c.request(ctx, endpointMatchTicker, matchRequest{
		Query:    strings.TrimSpace(query),
		Exchange: strings.ToLower(exchange),
		Platform: platform,
	})
	if err != nil {
		tracing.Fail(span, err)
		return models.Ticker{}, err
	}
	t, err := ParseTicker(raw)
	if err != nil {
		tracing.Fail(span, err)
	}
	return t, err
}

func replyError(res gjson.Result) error {
	if msg := res.Get("message"); msg.Exists() && msg.Type != gjson.Null && msg.String() != "" {
		return errors.Errorf("processor: %s", msg.String())
	}
	return nil
}

// ParseCandle достаёт close из последней свечи: [ts, open, high, low, close, ...].
func ParseCandle(raw []byte) (models.Quote, error) {
	res := gjson.ParseBytes(raw)
	if err := replyError(res); err != nil {
		return models.Quote{}, err
	}

	candles := res.Get("response.candles").Array()
	if len(candles) == 0 {
		return models.Quote{}, ErrNoCandles
	}
	row := candles[len(candles)-1].Array()
	if len(row) == 0 {
		return models.Quote{}, ErrNoCandles
	}
	cell := row[len(row)-1]
	if len(row) >= 5 {
		cell = row[4]
	}
	if cell.Type != gjson.Number {
		return models.Quote{}, errors.Errorf("malformed close %q", cell.Raw)
	}

	return models.Quote{
		Close:      cell.Float(),
		SourceText: res.Get("response.sourceText").String(),
		Platform:   res.Get("response.platform").String(),
	}, nil
}

func ParseTicker(raw []byte) (models.Ticker, error) {
	res := gjson.ParseBytes(raw)
	if err := replyError(res); err != nil {
		return models.Ticker{}, err
	}
	node := res.Get("response.ticker")
	if !node.Exists() || node.Type == gjson.Null {
		return models.Ticker{}, models.ErrNotFound
	}

	var t models.Ticker
	if err := sonic.UnmarshalString(node.Raw, &t); err != nil {
		return models.Ticker{}, errors.Wrap(err, "decode ticker")
	}
	if t.ID == "" {
		return models.Ticker{}, models.ErrNotFound
	}
	return t, nil
}
