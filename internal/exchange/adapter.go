// Package exchange declares the narrow contracts the subscription manager
// depends on — ExchangeAdapter, TradeAdapter, and the registry that
// resolves an exchange name to one — without implementing any exchange
// itself. Concrete adapters live in sibling packages (binance, bybit,
// kucoin, kraken).
package exchange

import (
	"context"
	"fmt"
	"sync"

	"marketdatamanager/internal/marketdata"
)

// ProductSubscription is the opaque per-connection manifest a streaming
// exchange is told to open with: which pairs, for which data types. It is
// built once per StreamingExchangeSession.open call and handed to
// ExchangeAdapter.Connect.
type ProductSubscription struct {
	tickers    []string
	orderBooks []string
	trades     []string
}

// NewProductSubscription returns an empty manifest ready for AddTicker,
// AddOrderBook and AddTrades calls.
func NewProductSubscription() *ProductSubscription {
	return &ProductSubscription{}
}

func (p *ProductSubscription) AddTicker(pair string) *ProductSubscription {
	p.tickers = append(p.tickers, pair)
	return p
}

func (p *ProductSubscription) AddOrderBook(pair string) *ProductSubscription {
	p.orderBooks = append(p.orderBooks, pair)
	return p
}

func (p *ProductSubscription) AddTrades(pair string) *ProductSubscription {
	p.trades = append(p.trades, pair)
	return p
}

func (p *ProductSubscription) Tickers() []string    { return p.tickers }
func (p *ProductSubscription) OrderBooks() []string { return p.orderBooks }
func (p *ProductSubscription) Trades() []string     { return p.trades }

func (p *ProductSubscription) IsEmpty() bool {
	return len(p.tickers) == 0 && len(p.orderBooks) == 0 && len(p.trades) == 0
}

// MarketDataService is the request/response surface used by PollingLoop:
// one blocking call per subscription per tick.
type MarketDataService interface {
	GetTicker(ctx context.Context, pair string) (marketdata.Ticker, error)
	GetOrderBook(ctx context.Context, pair string, depth int) (marketdata.OrderBook, error)
	GetTrades(ctx context.Context, pair string) ([]marketdata.Trade, error)
}

// StreamingMarketDataService exposes one per-pair channel factory per
// streaming data type. Each factory is called once per (pair, type) when a
// StreamingExchangeSession opens; the returned channel is read until it
// closes or the session is torn down.
type StreamingMarketDataService interface {
	Ticker(ctx context.Context, pair string) (<-chan marketdata.Ticker, error)
	OrderBook(ctx context.Context, pair string, depth int) (<-chan marketdata.OrderBook, error)
	Trades(ctx context.Context, pair string) (<-chan marketdata.Trade, error)
}

// ExchangeAdapter is the contract the core depends on for both streaming
// and polling-only exchanges. Polling-only adapters may implement Connect/
// Disconnect/StreamingMarketData as no-ops; IsStreaming() false means the
// engine never calls them.
type ExchangeAdapter interface {
	Name() string
	IsStreaming() bool
	MarketDataService() MarketDataService

	Connect(ctx context.Context, sub *ProductSubscription) error
	Disconnect(ctx context.Context) error
	StreamingMarketData() StreamingMarketDataService
}

// CurrencyPairSetter is implemented by an OpenOrdersParams or
// TradeHistoryParams value that can be scoped to a single market. An
// adapter whose params type does not implement this cannot support the
// operation; the poller treats that as "unsupported operation on
// exchange" (logged and skipped, not fatal).
type CurrencyPairSetter interface {
	SetCurrencyPair(pair string)
}

// LimitSetter is optionally implemented by TradeHistoryParams to accept a
// result-count hint.
type LimitSetter interface {
	SetLimit(n int)
}

// PagingSetter is optionally implemented by TradeHistoryParams to accept
// page-based pagination hints.
type PagingSetter interface {
	SetPage(page, size int)
}

// OpenOrdersParams is an opaque, adapter-defined parameter object for
// GetOpenOrders. Adapters that can scope it to a market implement
// CurrencyPairSetter on their concrete type.
type OpenOrdersParams interface{}

// TradeHistoryParams is an opaque, adapter-defined parameter object for
// GetTradeHistory. Adapters may additionally implement CurrencyPairSetter,
// LimitSetter and/or PagingSetter on their concrete type.
type TradeHistoryParams interface{}

// TradeAdapter is the contract for account-scoped trade operations this
// core consumes: open orders and trade history polling (spec §4.1/§4.5).
type TradeAdapter interface {
	CreateOpenOrdersParams() OpenOrdersParams
	CreateTradeHistoryParams() TradeHistoryParams
	GetOpenOrders(ctx context.Context, params OpenOrdersParams) ([]marketdata.Order, error)
	GetTradeHistory(ctx context.Context, params TradeHistoryParams) ([]marketdata.Trade, error)
}

// Registry resolves an exchange name to its adapter and classifies it as
// streaming-capable or polling-only. It is built once at wiring time and
// treated as read-only by the reconciliation engine thereafter.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]ExchangeAdapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]ExchangeAdapter)}
}

// Register adds or replaces the adapter for name.
func (r *Registry) Register(name string, adapter ExchangeAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[name] = adapter
}

// Get resolves name to its adapter.
func (r *Registry) Get(name string) (ExchangeAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("exchange %q is not registered", name)
	}
	return adapter, nil
}

// Names returns the currently registered exchange names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
