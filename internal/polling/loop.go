// Package polling drives the PollingLoop step of the reconciliation engine:
// one blocking request per subscription, issued sequentially per tick so a
// single IP's rate limit is respected, with a per-exchange token-bucket
// limiter in front of each call. Grounded on the teacher's per-exchange
// weight bookkeeping in internal/metrics/rate, generalized here to a plain
// pre-fetch wait instead of weighted accounting.
package polling

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"marketdatamanager/internal/eventbus"
	"marketdatamanager/internal/exchange"
	"marketdatamanager/internal/marketdata"
	"marketdatamanager/internal/metrics"
	"marketdatamanager/logger"
)

// Loop issues one request per subscription in an activePolling set,
// sequentially, publishing each successful response to the bus. A fetch
// error is logged and swallowed; it never suppresses a sibling fetch.
type Loop struct {
	registry *exchange.Registry
	bus      *eventbus.Bus
	log      *logger.Entry

	// Metrics is optional; nil disables per-fetch counting.
	Metrics *metrics.Counters

	mu                sync.Mutex
	limiters          map[string]*rate.Limiter
	requestsPerSecond float64
	burst             int
}

// New constructs a Loop. requestsPerSecond/burst configure the per-exchange
// rate.Limiter created lazily the first time that exchange is polled.
func New(registry *exchange.Registry, bus *eventbus.Bus, log *logger.Entry, requestsPerSecond float64, burst int) *Loop {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &Loop{
		registry:          registry,
		bus:               bus,
		log:               log,
		limiters:          make(map[string]*rate.Limiter),
		requestsPerSecond: requestsPerSecond,
		burst:             burst,
	}
}

func (l *Loop) limiterFor(exchangeName string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[exchangeName]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.requestsPerSecond), l.burst)
		l.limiters[exchangeName] = lim
	}
	return lim
}

// Run iterates activePolling sequentially, checking ctx between fetches so
// a stop request takes effect promptly without waiting for the whole set to
// drain.
func (l *Loop) Run(ctx context.Context, activePolling marketdata.SubscriptionSet) {
	activePolling.Each(func(sub marketdata.Subscription) {
		if ctx.Err() != nil {
			return
		}
		l.fetchOne(ctx, sub)
	})
}

func (l *Loop) fetchOne(ctx context.Context, sub marketdata.Subscription) {
	log := l.log.WithFields(logger.Fields{
		"exchange": sub.Spec.Exchange,
		"pair":     sub.Spec.CurrencyPair(),
		"type":     sub.Type.String(),
	})

	adapter, err := l.registry.Get(sub.Spec.Exchange)
	if err != nil {
		log.WithError(err).Error("polling loop: unknown exchange")
		return
	}

	if err := l.limiterFor(sub.Spec.Exchange).Wait(ctx); err != nil {
		return
	}

	switch sub.Type {
	case marketdata.Ticker:
		l.fetchTicker(ctx, adapter, sub, log)
	case marketdata.OrderBook:
		l.fetchOrderBook(ctx, adapter, sub, log)
	case marketdata.Trades:
		l.fetchTrades(ctx, adapter, sub, log)
	case marketdata.OpenOrders:
		l.fetchOpenOrders(ctx, adapter, sub, log)
	case marketdata.TradeHistory:
		l.fetchTradeHistory(ctx, adapter, sub, log)
	default:
		panic(fmt.Sprintf("polling loop: unknown data type %v in dispatch", sub.Type))
	}
}

// recordResult feeds the optional metrics counters; a no-op when unset.
func (l *Loop) recordResult(ok bool) {
	if l.Metrics != nil {
		l.Metrics.RecordPollResult(ok)
	}
}

func (l *Loop) fetchTicker(ctx context.Context, adapter exchange.ExchangeAdapter, sub marketdata.Subscription, log *logger.Entry) {
	svc := adapter.MarketDataService()
	t, err := svc.GetTicker(ctx, sub.Spec.CurrencyPair())
	if err != nil {
		log.WithError(err).Error("polling loop: ticker fetch failed")
		l.recordResult(false)
		return
	}
	l.recordResult(true)
	l.bus.Tickers.Publish(marketdata.TickerEvent{Spec: sub.Spec, Ticker: t})
}

func (l *Loop) fetchOrderBook(ctx context.Context, adapter exchange.ExchangeAdapter, sub marketdata.Subscription, log *logger.Entry) {
	svc := adapter.MarketDataService()
	book, err := svc.GetOrderBook(ctx, sub.Spec.CurrencyPair(), marketdata.OrderBookDepth)
	if err != nil {
		log.WithError(err).Error("polling loop: order book fetch failed")
		l.recordResult(false)
		return
	}
	l.recordResult(true)
	l.bus.OrderBooks.Publish(marketdata.OrderBookEvent{Spec: sub.Spec, Book: book})
}

func (l *Loop) fetchTrades(ctx context.Context, adapter exchange.ExchangeAdapter, sub marketdata.Subscription, log *logger.Entry) {
	svc := adapter.MarketDataService()
	trades, err := svc.GetTrades(ctx, sub.Spec.CurrencyPair())
	if err != nil {
		// Matches the original's "Trades not supported yet": degrade to a
		// skipped tick instead of propagating, per spec §7's "unsupported
		// operation on exchange" taxonomy.
		log.WithError(err).Warn("polling loop: trades unsupported on exchange, skipping")
		l.recordResult(false)
		return
	}
	l.recordResult(true)
	l.bus.Trades.Publish(marketdata.TradeEvent{Spec: sub.Spec, Trade: firstOrZero(trades)})
}

func firstOrZero(trades []marketdata.Trade) marketdata.Trade {
	if len(trades) == 0 {
		return marketdata.Trade{}
	}
	return trades[len(trades)-1]
}

func (l *Loop) fetchOpenOrders(ctx context.Context, adapter exchange.ExchangeAdapter, sub marketdata.Subscription, log *logger.Entry) {
	trader, ok := adapter.(exchange.TradeAdapter)
	if !ok {
		log.Warn("polling loop: open orders unsupported on exchange, skipping")
		return
	}
	params := trader.CreateOpenOrdersParams()
	if setter, ok := params.(exchange.CurrencyPairSetter); ok {
		setter.SetCurrencyPair(sub.Spec.CurrencyPair())
	} else {
		log.Warn("polling loop: open orders params do not accept a currency pair, skipping")
		return
	}
	orders, err := trader.GetOpenOrders(ctx, params)
	if err != nil {
		log.WithError(err).Error("polling loop: open orders fetch failed")
		l.recordResult(false)
		return
	}
	l.recordResult(true)
	l.bus.OpenOrders.Publish(marketdata.OpenOrdersEvent{Spec: sub.Spec, Orders: orders})
}

func (l *Loop) fetchTradeHistory(ctx context.Context, adapter exchange.ExchangeAdapter, sub marketdata.Subscription, log *logger.Entry) {
	trader, ok := adapter.(exchange.TradeAdapter)
	if !ok {
		log.Warn("polling loop: trade history unsupported on exchange, skipping")
		return
	}
	params := trader.CreateTradeHistoryParams()
	if setter, ok := params.(exchange.CurrencyPairSetter); ok {
		setter.SetCurrencyPair(sub.Spec.CurrencyPair())
	} else {
		log.Warn("polling loop: trade history params do not accept a currency pair, skipping")
		return
	}
	if setter, ok := params.(exchange.PagingSetter); ok {
		setter.SetPage(marketdata.TradeHistoryPage, marketdata.MaxTradeHistoryItems)
	} else if setter, ok := params.(exchange.LimitSetter); ok {
		setter.SetLimit(marketdata.MaxTradeHistoryItems)
	}
	trades, err := trader.GetTradeHistory(ctx, params)
	if err != nil {
		log.WithError(err).Error("polling loop: trade history fetch failed")
		l.recordResult(false)
		return
	}
	l.recordResult(true)
	l.bus.TradeHistory.Publish(marketdata.TradeHistoryEvent{Spec: sub.Spec, Trades: trades})
}
