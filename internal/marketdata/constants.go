package marketdata

// MaxTradeHistoryItems is the page length used when polling
// USER_TRADE_HISTORY, carried over from the original implementation's
// MAX_TRADES constant.
const MaxTradeHistoryItems = 20

// OrderBookDepth is the default number of levels requested on each side of
// a polled order book, carried over from the original ORDERBOOK_DEPTH
// constant.
const OrderBookDepth = 20

// TradeHistoryPage is the page number requested when an adapter's trade
// history params support paging. Polling always starts from the first page;
// the core does not track pagination state across ticks.
const TradeHistoryPage = 0
