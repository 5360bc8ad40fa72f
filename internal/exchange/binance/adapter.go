// Package binance adapts github.com/adshao/go-binance/v2 into the core's
// ExchangeAdapter and TradeAdapter contracts: go-binance's REST client for
// polling and trade operations, a hand-rolled combined-stream websocket
// connection (via gorilla/websocket, in the teacher's streaming-reader
// style) for ticker/order-book/trade pushes.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/gorilla/websocket"

	"marketdatamanager/internal/exchange"
	"marketdatamanager/internal/marketdata"
	"marketdatamanager/logger"
)

const streamBaseURL = "wss://stream.binance.com:9443/stream?streams="

// Adapter is the binance ExchangeAdapter/TradeAdapter. One Adapter owns at
// most one live websocket connection at a time; the reconciliation engine
// serializes Connect/Disconnect calls against it.
type Adapter struct {
	rest *binance.Client
	log  *logger.Entry

	mu   sync.Mutex
	conn *websocket.Conn
	stop context.CancelFunc
	done chan struct{}

	tickerChans map[string]chan marketdata.Ticker
	bookChans   map[string]chan marketdata.OrderBook
	tradeChans  map[string]chan marketdata.Trade
}

// New constructs a binance adapter. apiKey/secretKey may be empty for
// public-only (market data) use.
func New(apiKey, secretKey string) *Adapter {
	return &Adapter{
		rest: binance.NewClient(apiKey, secretKey),
		log:  logger.GetLogger().WithComponent("binance_adapter"),
	}
}

func (a *Adapter) Name() string      { return "binance" }
func (a *Adapter) IsStreaming() bool { return true }

func (a *Adapter) MarketDataService() exchange.MarketDataService { return restService{a.rest} }

// Connect opens one combined-stream websocket carrying every (type, pair)
// named in sub, and pre-creates the per-type channels StreamingMarketData
// hands back. It blocks until the connection is established.
func (a *Adapter) Connect(ctx context.Context, sub *exchange.ProductSubscription) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn != nil {
		return fmt.Errorf("binance adapter already connected")
	}
	if sub.IsEmpty() {
		return fmt.Errorf("binance adapter: empty product subscription")
	}

	var streams []string
	a.tickerChans = make(map[string]chan marketdata.Ticker)
	a.bookChans = make(map[string]chan marketdata.OrderBook)
	a.tradeChans = make(map[string]chan marketdata.Trade)

	for _, pair := range sub.Tickers() {
		sym := binanceSymbol(pair)
		streams = append(streams, sym+"@ticker")
		a.tickerChans[pair] = make(chan marketdata.Ticker, 1)
	}
	for _, pair := range sub.OrderBooks() {
		sym := binanceSymbol(pair)
		streams = append(streams, sym+"@depth20")
		a.bookChans[pair] = make(chan marketdata.OrderBook, 1)
	}
	for _, pair := range sub.Trades() {
		sym := binanceSymbol(pair)
		streams = append(streams, sym+"@trade")
		a.tradeChans[pair] = make(chan marketdata.Trade, 1)
	}

	url := streamBaseURL + strings.Join(streams, "/")
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("binance adapter: dial: %w", err)
	}

	dialCtx, cancel := context.WithCancel(context.Background())
	a.conn = conn
	a.stop = cancel
	a.done = make(chan struct{})

	go a.readLoop(dialCtx, conn)

	a.log.WithFields(logger.Fields{"streams": len(streams)}).Info("connected to binance combined stream")
	return nil
}

// Disconnect tears down the websocket and blocks until the read loop has
// exited, matching StreamingExchangeSession.close's synchronous contract.
func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	conn := a.conn
	stop := a.stop
	done := a.done
	a.conn = nil
	a.stop = nil
	a.mu.Unlock()

	if conn == nil {
		return nil
	}
	if stop != nil {
		stop()
	}
	_ = conn.Close()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	a.log.Info("disconnected from binance combined stream")
	return nil
}

func (a *Adapter) StreamingMarketData() exchange.StreamingMarketDataService {
	return streamingService{a}
}

func (a *Adapter) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer close(a.done)
	for {
		if ctx.Err() != nil {
			return
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				a.log.WithError(err).Warn("binance stream read error")
			}
			return
		}
		a.dispatch(msg)
	}
}

type combinedEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

func (a *Adapter) dispatch(msg []byte) {
	var env combinedEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		a.log.WithError(err).Debug("failed to decode binance stream envelope")
		return
	}

	parts := strings.SplitN(env.Stream, "@", 2)
	if len(parts) != 2 {
		return
	}
	sym, kind := parts[0], parts[1]
	pair := pairFromBinanceSymbol(sym)

	switch {
	case kind == "ticker":
		var raw struct {
			BidPrice string `json:"b"`
			AskPrice string `json:"a"`
			LastPrice string `json:"c"`
			EventTime int64  `json:"E"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return
		}
		a.mu.Lock()
		ch := a.tickerChans[pair]
		a.mu.Unlock()
		if ch == nil {
			return
		}
		deliver(ch, marketdata.Ticker{
			Bid:       parseFloat(raw.BidPrice),
			Ask:       parseFloat(raw.AskPrice),
			Last:      parseFloat(raw.LastPrice),
			Timestamp: raw.EventTime,
		})

	case strings.HasPrefix(kind, "depth"):
		var raw struct {
			Bids [][2]string `json:"bids"`
			Asks [][2]string `json:"asks"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return
		}
		a.mu.Lock()
		ch := a.bookChans[pair]
		a.mu.Unlock()
		if ch == nil {
			return
		}
		deliver(ch, marketdata.OrderBook{
			Bids:      toLevels(raw.Bids),
			Asks:      toLevels(raw.Asks),
			Timestamp: time.Now().UnixMilli(),
		})

	case kind == "trade":
		var raw struct {
			ID        int64  `json:"t"`
			Price     string `json:"p"`
			Quantity  string `json:"q"`
			BuyerMaker bool  `json:"m"`
			EventTime int64  `json:"E"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return
		}
		a.mu.Lock()
		ch := a.tradeChans[pair]
		a.mu.Unlock()
		if ch == nil {
			return
		}
		side := "buy"
		if raw.BuyerMaker {
			side = "sell"
		}
		deliver(ch, marketdata.Trade{
			ID:        strconv.FormatInt(raw.ID, 10),
			Price:     parseFloat(raw.Price),
			Quantity:  parseFloat(raw.Quantity),
			Side:      side,
			Timestamp: raw.EventTime,
		})
	}
}

// deliver is a latest-wins send: a slow stream consumer only ever misses
// intermediate pushes, never blocks the read loop.
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
		levels = append(levels, marketdata.OrderBookLevel{
			Price:    parseFloat(r[0]),
			Quantity: parseFloat(r[1]),
		})
	}
	return levels
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// binanceSymbol renders "BTC/USDT" as the lowercase "btcusdt" stream
// identifier binance expects.
func binanceSymbol(pair string) string {
	return strings.ToLower(strings.ReplaceAll(pair, "/", ""))
}

// pairFromBinanceSymbol is binanceSymbol's inverse for symbols quoted in
// USDT, BUSD or USD: "btcusdt" becomes "BTC/USDT", the form the dispatch
// table is keyed by. A symbol with any other quote currency comes back
// upper-cased without a slash, matches no channel, and its pushes are
// dropped.
func pairFromBinanceSymbol(sym string) string {
	upper := strings.ToUpper(sym)
	for _, quote := range []string{"USDT", "BUSD", "USD"} {
		if len(upper) > len(quote) && strings.HasSuffix(upper, quote) {
			return upper[:len(upper)-len(quote)] + "/" + quote
		}
	}
	return upper
}
