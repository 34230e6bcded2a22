package service_test

import (
	"alpha_bot/internal/instrumentation"
	"alpha_bot/internal/models"
	"alpha_bot/internal/modules/config"
	"alpha_bot/internal/modules/processor/service"
	"alpha_bot/pkg/logger"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestMain(m *testing.M) {
	logger.UseNop()
	os.Exit(m.Run())
}

// fakeProcessor отвечает на кадры так, как это делает настоящий сервис.
func fakeProcessor(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			req := gjson.ParseBytes(msg)
			id := req.Get("id").String()

			var reply string
			switch req.Get("endpoint").String() {
			case "candle":
				switch req.Get("payload.ticker.id").String() {
				case "SLOW":
					continue
				case "BAD":
					reply = fmt.Sprintf(`{"id":%q,"message":"unknown ticker"}`, id)
				default:
					reply = fmt.Sprintf(`{"id":%q,"response":{"candles":[[1,2,3,4,49000,7],[2,2,3,4,50000.5,10]],"sourceText":"Binance","platform":"telegram"}}`, id)
				}
			case "match_ticker":
				if req.Get("payload.query").String() == "nope" {
					reply = fmt.Sprintf(`{"id":%q,"response":{"ticker":null}}`, id)
				} else {
					reply = fmt.Sprintf(`{"id":%q,"response":{"ticker":{"id":"BTCUSDT","name":"Bitcoin","base":"BTC","quote":"USDT","exchange":{"id":%q,"name":"Binance"}}}}`,
						id, req.Get("payload.exchange").String())
				}
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, url string, timeout time.Duration) *service.Client {
	t.Helper()
	cfg := &config.Config{}
	cfg.Processor.URL = url
	cfg.Processor.Timeout = timeout
	c := service.NewClient(cfg, instrumentation.NewNop())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientCandle(t *testing.T) {
	c := newClient(t, wsURL(fakeProcessor(t)), time.Second)

	q, err := c.Candle(context.Background(), ticker("binance", "BTCUSDT"), "telegram")
	require.NoError(t, err)
	assert.Equal(t, 50000.5, q.Close)
	assert.Equal(t, "Binance", q.SourceText)
	assert.Equal(t, "telegram", q.Platform)

	_, err = c.Candle(context.Background(), ticker("binance", "BAD"), "telegram")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown ticker")
}

func TestClientMatchTicker(t *testing.T) {
	c := newClient(t, wsURL(fakeProcessor(t)), time.Second)

	tk, err := c.MatchTicker(context.Background(), " btc ", "Binance", "telegram")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", tk.ID)
	assert.Equal(t, "binance", tk.Venue())

	_, err = c.MatchTicker(context.Background(), "nope", "", "telegram")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestClientTimeout(t *testing.T) {
	c := newClient(t, wsURL(fakeProcessor(t)), 100*time.Millisecond)

	_, err := c.Candle(context.Background(), ticker("binance", "SLOW"), "telegram")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), err.Error())

	// соединение живо, следующий запрос проходит
	_, err = c.Candle(context.Background(), ticker("binance", "BTCUSDT"), "telegram")
	assert.NoError(t, err)
}

func TestClientNotConfiguredAndClosed(t *testing.T) {
	c := newClient(t, "", time.Second)
	_, err := c.Candle(context.Background(), ticker("binance", "BTCUSDT"), "telegram")
	assert.ErrorIs(t, err, service.ErrNotConfigured)

	c = newClient(t, wsURL(fakeProcessor(t)), time.Second)
	require.NoError(t, c.Close())
	_, err = c.MatchTicker(context.Background(), "btc", "", "telegram")
	assert.ErrorIs(t, err, service.ErrClosed)
}

func TestParseCandle(t *testing.T) {
	q, err := service.ParseCandle([]byte(`{"response":{"candles":[[1,2]]}}`))
	require.NoError(t, err)
	assert.Equal(t, 2.0, q.Close)

	_, err = service.ParseCandle([]byte(`{"response":{"candles":[]}}`))
	assert.ErrorIs(t, err, service.ErrNoCandles)

	_, err = service.ParseCandle([]byte(`{"response":{"candles":[[1,2,3,4,"x"]]}}`))
	assert.Error(t, err)
}
