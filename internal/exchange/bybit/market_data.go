package bybit

import (
	"context"
	"encoding/json"
	"fmt"

	bybitapi "github.com/bybit-exchange/bybit.go.api"

	"marketdatamanager/internal/marketdata"
)

// restService implements exchange.MarketDataService over bybit's unified
// trading account REST surface, scoped to the linear category.
type restService struct {
	client *bybitapi.Client
}

func linearParams(symbol string, extra map[string]interface{}) map[string]interface{} {
	params := map[string]interface{}{
		"category": "linear",
		"symbol":   symbol,
	}
	for k, v := range extra {
		params[k] = v
	}
	return params
}

func (s restService) GetTicker(ctx context.Context, pair string) (marketdata.Ticker, error) {
	sym := bybitSymbol(pair)
	resp, err := s.client.NewUtaBybitServiceWithParams(linearParams(sym, nil)).GetTickersInfo(ctx)
	if err != nil {
		return marketdata.Ticker{}, fmt.Errorf("bybit GetTicker %s: %w", pair, err)
	}
	payload, err := json.Marshal(resp.Result)
	if err != nil {
		return marketdata.Ticker{}, fmt.Errorf("bybit GetTicker %s: marshal result: %w", pair, err)
	}
	var parsed struct {
		List []struct {
			Bid1Price string `json:"bid1Price"`
			Ask1Price string `json:"ask1Price"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil || len(parsed.List) == 0 {
		return marketdata.Ticker{}, fmt.Errorf("bybit GetTicker %s: unexpected response shape", pair)
	}
	t := parsed.List[0]
	return marketdata.Ticker{
		Bid:  parseFloat(t.Bid1Price),
		Ask:  parseFloat(t.Ask1Price),
		Last: parseFloat(t.LastPrice),
	}, nil
}

func (s restService) GetOrderBook(ctx context.Context, pair string, depth int) (marketdata.OrderBook, error) {
	sym := bybitSymbol(pair)
	resp, err := s.client.NewUtaBybitServiceWithParams(linearParams(sym, map[string]interface{}{"limit": depth})).GetOrderBookInfo(ctx)
	if err != nil {
		return marketdata.OrderBook{}, fmt.Errorf("bybit GetOrderBook %s: %w", pair, err)
	}
	payload, err := json.Marshal(resp.Result)
	if err != nil {
		return marketdata.OrderBook{}, fmt.Errorf("bybit GetOrderBook %s: marshal result: %w", pair, err)
	}
	var parsed struct {
		Bids [][2]string `json:"b"`
		Asks [][2]string `json:"a"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return marketdata.OrderBook{}, fmt.Errorf("bybit GetOrderBook %s: unexpected response shape", pair)
	}
	return marketdata.OrderBook{Bids: toLevels(parsed.Bids), Asks: toLevels(parsed.Asks)}, nil
}

func (s restService) GetTrades(ctx context.Context, pair string) ([]marketdata.Trade, error) {
	sym := bybitSymbol(pair)
	resp, err := s.client.NewUtaBybitServiceWithParams(linearParams(sym, map[string]interface{}{"limit": marketdata.MaxTradeHistoryItems})).GetPublicTradeInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("bybit GetTrades %s: %w", pair, err)
	}
	payload, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("bybit GetTrades %s: marshal result: %w", pair, err)
	}
	var parsed struct {
		List []struct {
			ExecID string `json:"execId"`
			Price  string `json:"price"`
			Size   string `json:"size"`
			Side   string `json:"side"`
			Time   string `json:"time"`
		} `json:"list"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("bybit GetTrades %s: unexpected response shape", pair)
	}
	trades := make([]marketdata.Trade, 0, len(parsed.List))
	for _, t := range parsed.List {
		var tsMillis int64
		if v := parseFloat(t.Time); v > 0 {
			tsMillis = int64(v)
		}
		trades = append(trades, marketdata.Trade{
			ID:        t.ExecID,
			Price:     parseFloat(t.Price),
			Quantity:  parseFloat(t.Size),
			Side:      t.Side,
			Timestamp: tsMillis,
		})
	}
	return trades, nil
}

// streamingService hands back the channels the adapter pre-created in Connect.
type streamingService struct {
	a *Adapter
}

func (s streamingService) Ticker(ctx context.Context, pair string) (<-chan marketdata.Ticker, error) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	ch, ok := s.a.tickerChans[pair]
	if !ok {
		return nil, fmt.Errorf("bybit: %s not opened for ticker streaming", pair)
	}
	return ch, nil
}

func (s streamingService) OrderBook(ctx context.Context, pair string, depth int) (<-chan marketdata.OrderBook, error) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	ch, ok := s.a.bookChans[pair]
	if !ok {
		return nil, fmt.Errorf("bybit: %s not opened for order book streaming", pair)
	}
	return ch, nil
}

func (s streamingService) Trades(ctx context.Context, pair string) (<-chan marketdata.Trade, error) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	ch, ok := s.a.tradeChans[pair]
	if !ok {
		return nil, fmt.Errorf("bybit: %s not opened for trade streaming", pair)
	}
	return ch, nil
}
