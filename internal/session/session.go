// Package session owns one live streaming connection to an exchange and the
// per-(DataType, CurrencyPair) pipelines that forward its pushes onto the
// event bus. It mirrors the teacher's per-batch uuid.New().String()
// idiom (internal/metadata/iceberg.go) for a stable session identifier used
// only in log correlation.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"marketdatamanager/internal/eventbus"
	"marketdatamanager/internal/exchange"
	"marketdatamanager/internal/marketdata"
	"marketdatamanager/logger"
)

// Session is a StreamingExchangeSession: one physical connection plus the
// goroutines relaying its per-type pushes into the bus. Each pipeline is
// isolated — one stream erroring out logs and dies without affecting its
// siblings, matching the original's per-subscription onError handler.
type Session struct {
	id      string
	adapter exchange.ExchangeAdapter

	mu      sync.Mutex
	cancels []context.CancelFunc
	closed  bool

	log *logger.Entry
}

// Open connects adapter with a product subscription built from target and
// spawns one relay goroutine per (DataType, CurrencyPair) in target. target
// must contain only streaming-capable subscriptions (TICKER, ORDER_BOOK,
// TRADES); the caller (ReconciliationEngine) is responsible for that
// filtering.
func Open(ctx context.Context, adapter exchange.ExchangeAdapter, target marketdata.SubscriptionSet, bus *eventbus.Bus, log *logger.Entry) (*Session, error) {
	id := uuid.New().String()
	sessionLog := log.WithFields(logger.Fields{"exchange": adapter.Name(), "session_id": id})

	sub := exchange.NewProductSubscription()
	target.Each(func(s marketdata.Subscription) {
		switch s.Type {
		case marketdata.Ticker:
			sub.AddTicker(s.Spec.CurrencyPair())
		case marketdata.OrderBook:
			sub.AddOrderBook(s.Spec.CurrencyPair())
		case marketdata.Trades:
			sub.AddTrades(s.Spec.CurrencyPair())
		}
	})

	if sub.IsEmpty() {
		return nil, nil
	}

	if err := adapter.Connect(ctx, sub); err != nil {
		return nil, err
	}

	sess := &Session{id: id, adapter: adapter, log: sessionLog}

	streaming := adapter.StreamingMarketData()
	target.Each(func(s marketdata.Subscription) {
		switch s.Type {
		case marketdata.Ticker:
			sess.relayTicker(streaming, bus, s.Spec)
		case marketdata.OrderBook:
			sess.relayOrderBook(streaming, bus, s.Spec)
		case marketdata.Trades:
			sess.relayTrades(streaming, bus, s.Spec)
		}
	})

	sessionLog.Info("streaming session opened")
	return sess, nil
}

func (s *Session) addCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()
}

func (s *Session) relayTicker(streaming exchange.StreamingMarketDataService, bus *eventbus.Bus, spec marketdata.TickerSpec) {
	pipeCtx, cancel := context.WithCancel(context.Background())
	s.addCancel(cancel)

	ch, err := streaming.Ticker(pipeCtx, spec.CurrencyPair())
	if err != nil {
		s.log.WithError(err).WithFields(logger.Fields{"pair": spec.CurrencyPair()}).Error("failed to open ticker stream")
		return
	}
	go func() {
		for {
			select {
			case <-pipeCtx.Done():
				return
			case v, ok := <-ch:
				if !ok {
					s.log.WithFields(logger.Fields{"pair": spec.CurrencyPair()}).Warn("ticker stream closed")
					return
				}
				bus.Tickers.Publish(marketdata.TickerEvent{Spec: spec, Ticker: v})
			}
		}
	}()
}

func (s *Session) relayOrderBook(streaming exchange.StreamingMarketDataService, bus *eventbus.Bus, spec marketdata.TickerSpec) {
	pipeCtx, cancel := context.WithCancel(context.Background())
	s.addCancel(cancel)

	ch, err := streaming.OrderBook(pipeCtx, spec.CurrencyPair(), marketdata.OrderBookDepth)
	if err != nil {
		s.log.WithError(err).WithFields(logger.Fields{"pair": spec.CurrencyPair()}).Error("failed to open order book stream")
		return
	}
	go func() {
		for {
			select {
			case <-pipeCtx.Done():
				return
			case v, ok := <-ch:
				if !ok {
					s.log.WithFields(logger.Fields{"pair": spec.CurrencyPair()}).Warn("order book stream closed")
					return
				}
				bus.OrderBooks.Publish(marketdata.OrderBookEvent{Spec: spec, Book: v})
			}
		}
	}()
}

func (s *Session) relayTrades(streaming exchange.StreamingMarketDataService, bus *eventbus.Bus, spec marketdata.TickerSpec) {
	pipeCtx, cancel := context.WithCancel(context.Background())
	s.addCancel(cancel)

	ch, err := streaming.Trades(pipeCtx, spec.CurrencyPair())
	if err != nil {
		s.log.WithError(err).WithFields(logger.Fields{"pair": spec.CurrencyPair()}).Error("failed to open trade stream")
		return
	}
	go func() {
		for {
			select {
			case <-pipeCtx.Done():
				return
			case v, ok := <-ch:
				if !ok {
					s.log.WithFields(logger.Fields{"pair": spec.CurrencyPair()}).Warn("trade stream closed")
					return
				}
				bus.Trades.Publish(marketdata.TradeEvent{Spec: spec, Trade: v})
			}
		}
	}()
}

// Close releases every relay handle best-effort, logging failures, then
// blocks until the adapter's disconnect completes.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	if err := s.adapter.Disconnect(ctx); err != nil {
		s.log.WithError(err).Error("failed to disconnect streaming session")
		return err
	}
	s.log.Info("streaming session closed")
	return nil
}
