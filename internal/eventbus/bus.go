package eventbus

import "marketdatamanager/internal/marketdata"

// Bus holds the five logical topics the subscription manager publishes to,
// one per marketdata.DataType. It is safe for concurrent use by many
// producers (streaming sessions, the polling loop) and many consumers.
type Bus struct {
	Tickers      *Topic[marketdata.TickerEvent]
	OrderBooks   *Topic[marketdata.OrderBookEvent]
	Trades       *Topic[marketdata.TradeEvent]
	OpenOrders   *Topic[marketdata.OpenOrdersEvent]
	TradeHistory *Topic[marketdata.TradeHistoryEvent]
}

// New constructs a Bus with all five topics ready to use.
func New() *Bus {
	return &Bus{
		Tickers:      NewTopic[marketdata.TickerEvent](),
		OrderBooks:   NewTopic[marketdata.OrderBookEvent](),
		Trades:       NewTopic[marketdata.TradeEvent](),
		OpenOrders:   NewTopic[marketdata.OpenOrdersEvent](),
		TradeHistory: NewTopic[marketdata.TradeHistoryEvent](),
	}
}

// Tickers for spec, filtered to the matching market.
func (b *Bus) Ticker(spec marketdata.TickerSpec) (<-chan marketdata.TickerEvent, func()) {
	return Filtered(b.Tickers, func(e marketdata.TickerEvent) bool { return e.Spec == spec })
}

// OrderBook for spec, filtered to the matching market.
func (b *Bus) OrderBook(spec marketdata.TickerSpec) (<-chan marketdata.OrderBookEvent, func()) {
	return Filtered(b.OrderBooks, func(e marketdata.OrderBookEvent) bool { return e.Spec == spec })
}

// Trade stream for spec, filtered to the matching market.
func (b *Bus) Trade(spec marketdata.TickerSpec) (<-chan marketdata.TradeEvent, func()) {
	return Filtered(b.Trades, func(e marketdata.TradeEvent) bool { return e.Spec == spec })
}

// OpenOrders for spec, filtered to the matching market.
func (b *Bus) OpenOrdersFor(spec marketdata.TickerSpec) (<-chan marketdata.OpenOrdersEvent, func()) {
	return Filtered(b.OpenOrders, func(e marketdata.OpenOrdersEvent) bool { return e.Spec == spec })
}

// TradeHistory for spec, filtered to the matching market.
func (b *Bus) TradeHistoryFor(spec marketdata.TickerSpec) (<-chan marketdata.TradeHistoryEvent, func()) {
	return Filtered(b.TradeHistory, func(e marketdata.TradeHistoryEvent) bool { return e.Spec == spec })
}
