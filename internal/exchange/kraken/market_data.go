package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"marketdatamanager/internal/marketdata"
	"marketdatamanager/logger"
)

// restService implements exchange.MarketDataService over Kraken's public
// REST API. Kraken replies with a map keyed by its own internal pair
// spelling; since each call queries exactly one pair, the single entry in
// that map is taken regardless of its key.
type restService struct {
	baseURL string
	client  *http.Client
	log     *logger.Entry
}

func firstValue(result json.RawMessage) (json.RawMessage, error) {
	var byPair map[string]json.RawMessage
	if err := json.Unmarshal(result, &byPair); err != nil {
		return nil, fmt.Errorf("unexpected kraken result shape: %w", err)
	}
	for _, v := range byPair {
		return v, nil
	}
	return nil, fmt.Errorf("kraken result contained no pairs")
}

func (s restService) GetTicker(ctx context.Context, pair string) (marketdata.Ticker, error) {
	q := url.Values{"pair": {krakenPair(pair)}}
	body, err := httpGet(ctx, s.client, buildURL(s.baseURL, "Ticker", q))
	if err != nil {
		return marketdata.Ticker{}, fmt.Errorf("kraken GetTicker %s: %w", pair, err)
	}
	result, err := decode(body)
	if err != nil {
		return marketdata.Ticker{}, fmt.Errorf("kraken GetTicker %s: %w", pair, err)
	}
	entry, err := firstValue(result)
	if err != nil {
		return marketdata.Ticker{}, fmt.Errorf("kraken GetTicker %s: %w", pair, err)
	}
	var parsed struct {
		Ask  []string `json:"a"`
		Bid  []string `json:"b"`
		Last []string `json:"c"`
	}
	if err := json.Unmarshal(entry, &parsed); err != nil {
		return marketdata.Ticker{}, fmt.Errorf("kraken GetTicker %s: %w", pair, err)
	}
	t := marketdata.Ticker{}
	if len(parsed.Ask) > 0 {
		t.Ask = parseFloat(parsed.Ask[0])
	}
	if len(parsed.Bid) > 0 {
		t.Bid = parseFloat(parsed.Bid[0])
	}
	if len(parsed.Last) > 0 {
		t.Last = parseFloat(parsed.Last[0])
	}
	return t, nil
}

func (s restService) GetOrderBook(ctx context.Context, pair string, depth int) (marketdata.OrderBook, error) {
	q := url.Values{"pair": {krakenPair(pair)}, "count": {strconv.Itoa(depth)}}
	body, err := httpGet(ctx, s.client, buildURL(s.baseURL, "Depth", q))
	if err != nil {
		return marketdata.OrderBook{}, fmt.Errorf("kraken GetOrderBook %s: %w", pair, err)
	}
	result, err := decode(body)
	if err != nil {
		return marketdata.OrderBook{}, fmt.Errorf("kraken GetOrderBook %s: %w", pair, err)
	}
	entry, err := firstValue(result)
	if err != nil {
		return marketdata.OrderBook{}, fmt.Errorf("kraken GetOrderBook %s: %w", pair, err)
	}
	var parsed struct {
		Bids [][3]interface{} `json:"bids"`
		Asks [][3]interface{} `json:"asks"`
	}
	if err := json.Unmarshal(entry, &parsed); err != nil {
		return marketdata.OrderBook{}, fmt.Errorf("kraken GetOrderBook %s: %w", pair, err)
	}
	return marketdata.OrderBook{
		Bids: toLevels(parsed.Bids),
		Asks: toLevels(parsed.Asks),
	}, nil
}

func toLevels(raw [][3]interface{}) []marketdata.OrderBookLevel {
	levels := make([]marketdata.OrderBookLevel, 0, len(raw))
	for _, r := range raw {
		price, _ := r[0].(string)
		volume, _ := r[1].(string)
		levels = append(levels, marketdata.OrderBookLevel{Price: parseFloat(price), Quantity: parseFloat(volume)})
	}
	return levels
}

// GetTrades is unsupported: Kraken's trade-history endpoint returns a
// continuation cursor this core's request/response MarketDataService
// contract has no place for. The polling loop treats the resulting error
// as "unsupported operation on exchange" and skips the tick.
func (s restService) GetTrades(ctx context.Context, pair string) ([]marketdata.Trade, error) {
	return nil, fmt.Errorf("kraken adapter: trades polling not supported")
}
