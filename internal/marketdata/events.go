package marketdata

// Ticker is the adapter-agnostic payload carried by a TickerEvent. Adapters
// translate their native response into this shape before publishing.
type Ticker struct {
	Bid       float64
	Ask       float64
	Last      float64
	Timestamp int64
}

// OrderBookLevel is a single price/quantity rung of an order book side.
type OrderBookLevel struct {
	Price    float64
	Quantity float64
}

// OrderBook is the adapter-agnostic order book snapshot payload.
type OrderBook struct {
	Bids      []OrderBookLevel
	Asks      []OrderBookLevel
	Timestamp int64
}

// Trade is a single executed trade, public or belonging to the account
// depending on which event it is attached to.
type Trade struct {
	ID        string
	Price     float64
	Quantity  float64
	Side      string
	Timestamp int64
}

// Order is a single resting order as reported by an exchange's open-orders
// endpoint.
type Order struct {
	ID       string
	Side     string
	Price    float64
	Quantity float64
	Status   string
}

// TickerEvent carries a Ticker update for the market identified by Spec.
type TickerEvent struct {
	Spec   TickerSpec
	Ticker Ticker
}

// GetSpec returns the market this event belongs to.
func (e TickerEvent) GetSpec() TickerSpec { return e.Spec }

// OrderBookEvent carries an OrderBook update for the market identified by Spec.
type OrderBookEvent struct {
	Spec TickerSpec
	Book OrderBook
}

// GetSpec returns the market this event belongs to.
func (e OrderBookEvent) GetSpec() TickerSpec { return e.Spec }

// TradeEvent carries one public trade for the market identified by Spec.
type TradeEvent struct {
	Spec  TickerSpec
	Trade Trade
}

// GetSpec returns the market this event belongs to.
func (e TradeEvent) GetSpec() TickerSpec { return e.Spec }

// OpenOrdersEvent carries the current open-orders snapshot for Spec.
type OpenOrdersEvent struct {
	Spec   TickerSpec
	Orders []Order
}

// GetSpec returns the market this event belongs to.
func (e OpenOrdersEvent) GetSpec() TickerSpec { return e.Spec }

// TradeHistoryEvent carries the most recent account trade history for Spec.
type TradeHistoryEvent struct {
	Spec   TickerSpec
	Trades []Trade
}

// GetSpec returns the market this event belongs to.
func (e TradeHistoryEvent) GetSpec() TickerSpec { return e.Spec }
