// Package bybit adapts github.com/bybit-exchange/bybit.go.api's REST client
// and a hand-rolled public websocket connection into the core's
// ExchangeAdapter/TradeAdapter contracts. The websocket reconnect and
// keepalive loop is carried over from the teacher's streaming reader almost
// verbatim, generalized to push into the subscription manager's per-pair
// channels instead of a fixed snapshot channel.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	bybitapi "github.com/bybit-exchange/bybit.go.api"
	"github.com/gorilla/websocket"

	"marketdatamanager/internal/exchange"
	"marketdatamanager/internal/marketdata"
	"marketdatamanager/logger"
)

const (
	publicWSURL           = "wss://stream.bybit.com/v5/public/linear"
	defaultReconnectDelay = 5 * time.Second
	defaultKeepAlive      = 20 * time.Second
)

// Adapter is the bybit ExchangeAdapter/TradeAdapter, scoped to linear
// (USDT-margined) perpetuals.
type Adapter struct {
	rest *bybitapi.Client
	log  *logger.Entry

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	tickerChans map[string]chan marketdata.Ticker
	bookChans   map[string]chan marketdata.OrderBook
	tradeChans  map[string]chan marketdata.Trade
}

// New constructs a bybit adapter against baseURL (public REST host).
func New(apiKey, secretKey, baseURL string) *Adapter {
	client := bybitapi.NewBybitHttpClient(apiKey, secretKey, bybitapi.WithBaseURL(baseURL))
	return &Adapter{
		rest: client,
		log:  logger.GetLogger().WithComponent("bybit_adapter"),
	}
}

func (a *Adapter) Name() string      { return "bybit" }
func (a *Adapter) IsStreaming() bool { return true }

func (a *Adapter) MarketDataService() exchange.MarketDataService { return restService{a.rest} }

func (a *Adapter) StreamingMarketData() exchange.StreamingMarketDataService {
	return streamingService{a}
}

// Connect subscribes to bybit's public linear topics for every pair in sub
// over one websocket connection, reconnecting with backoff on drop.
func (a *Adapter) Connect(ctx context.Context, sub *exchange.ProductSubscription) error {
	a.mu.Lock()
	if a.cancel != nil {
		a.mu.Unlock()
		return fmt.Errorf("bybit adapter already connected")
	}
	if sub.IsEmpty() {
		a.mu.Unlock()
		return fmt.Errorf("bybit adapter: empty product subscription")
	}

	a.tickerChans = make(map[string]chan marketdata.Ticker)
	a.bookChans = make(map[string]chan marketdata.OrderBook)
	a.tradeChans = make(map[string]chan marketdata.Trade)

	var topics []string
	for _, pair := range sub.Tickers() {
		sym := bybitSymbol(pair)
		topics = append(topics, "tickers."+sym)
		a.tickerChans[pair] = make(chan marketdata.Ticker, 1)
	}
	for _, pair := range sub.OrderBooks() {
		sym := bybitSymbol(pair)
		topics = append(topics, "orderbook.50."+sym)
		a.bookChans[pair] = make(chan marketdata.OrderBook, 1)
	}
	for _, pair := range sub.Trades() {
		sym := bybitSymbol(pair)
		topics = append(topics, "publicTrade."+sym)
		a.tradeChans[pair] = make(chan marketdata.Trade, 1)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	log := a.log
	a.mu.Unlock()

	started := make(chan struct{})
	var once sync.Once
	go func() {
		defer close(a.done)
		runBybitWebSocket(runCtx, publicWSURL, topics, defaultReconnectDelay, log, a.dispatch, func(conn *websocket.Conn) {
			if conn != nil {
				once.Do(func() { close(started) })
			}
		})
	}()

	select {
	case <-started:
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	case <-time.After(10 * time.Second):
		cancel()
		return fmt.Errorf("bybit adapter: timed out waiting for websocket connection")
	}

	log.WithFields(logger.Fields{"topics": len(topics)}).Info("connected to bybit public stream")
	return nil
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	done := a.done
	a.cancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	a.log.Info("disconnected from bybit public stream")
	return nil
}

type bybitTopicEnvelope struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

func (a *Adapter) dispatch(raw string) error {
	var env bybitTopicEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.Topic == "" {
		return nil
	}

	parts := strings.SplitN(env.Topic, ".", 2)
	kind := parts[0]

	switch kind {
	case "tickers":
		sym := parts[len(parts)-1]
		pair := pairFromBybitSymbol(sym)
		a.mu.Lock()
		ch := a.tickerChans[pair]
		a.mu.Unlock()
		if ch == nil {
			return nil
		}
		var t struct {
			Bid1Price string `json:"bid1Price"`
			Ask1Price string `json:"ask1Price"`
			LastPrice string `json:"lastPrice"`
		}
		if err := json.Unmarshal(env.Data, &t); err != nil {
			return nil
		}
		deliver(ch, marketdata.Ticker{
			Bid:       parseFloat(t.Bid1Price),
			Ask:       parseFloat(t.Ask1Price),
			Last:      parseFloat(t.LastPrice),
			Timestamp: time.Now().UnixMilli(),
		})

	case "orderbook":
		sym := parts[len(parts)-1]
		pair := pairFromBybitSymbol(sym)
		a.mu.Lock()
		ch := a.bookChans[pair]
		a.mu.Unlock()
		if ch == nil {
			return nil
		}
		var ob struct {
			Bids [][2]string `json:"b"`
			Asks [][2]string `json:"a"`
		}
		if err := json.Unmarshal(env.Data, &ob); err != nil {
			return nil
		}
		deliver(ch, marketdata.OrderBook{
			Bids:      toLevels(ob.Bids),
			Asks:      toLevels(ob.Asks),
			Timestamp: time.Now().UnixMilli(),
		})

	case "publicTrade":
		sym := parts[len(parts)-1]
		pair := pairFromBybitSymbol(sym)
		a.mu.Lock()
		ch := a.tradeChans[pair]
		a.mu.Unlock()
		if ch == nil {
			return nil
		}
		var trades []struct {
			ID    string `json:"i"`
			Price string `json:"p"`
			Size  string `json:"v"`
			Side  string `json:"S"`
			Time  int64  `json:"T"`
		}
		if err := json.Unmarshal(env.Data, &trades); err != nil || len(trades) == 0 {
			return nil
		}
		last := trades[len(trades)-1]
		deliver(ch, marketdata.Trade{
			ID:        last.ID,
			Price:     parseFloat(last.Price),
			Quantity:  parseFloat(last.Size),
			Side:      strings.ToLower(last.Side),
			Timestamp: last.Time,
		})
	}
	return nil
}

func deliver[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

func toLevels(raw [][2]string) []marketdata.OrderBookLevel {
	levels := make([]marketdata.OrderBookLevel, 0, len(raw))
	for _, r := range raw {
		levels = append(levels, marketdata.OrderBookLevel{Price: parseFloat(r[0]), Quantity: parseFloat(r[1])})
	}
	return levels
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func bybitSymbol(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
}

// pairFromBybitSymbol turns the symbol part of a topic ("BTCUSDT", or
// "50.BTCUSDT" for order books) back into the "BTC/USDT" pair the per-pair
// channels are keyed by. Only USDT-quoted symbols are recognised; any other
// symbol comes back upper-cased without a slash and matches no channel.
func pairFromBybitSymbol(sym string) string {
	if i := strings.LastIndex(sym, "."); i >= 0 {
		sym = sym[i+1:]
	}
	upper := strings.ToUpper(sym)
	if len(upper) > len("USDT") && strings.HasSuffix(upper, "USDT") {
		return upper[:len(upper)-len("USDT")] + "/USDT"
	}
	return upper
}
