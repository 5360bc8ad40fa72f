package binance

import (
	"context"
	"fmt"
	"strings"

	gobinance "github.com/adshao/go-binance/v2"

	"marketdatamanager/internal/marketdata"
)

// restService implements exchange.MarketDataService over go-binance's REST
// client, for the PollingLoop's market-data requests.
type restService struct {
	client *gobinance.Client
}

func (s restService) GetTicker(ctx context.Context, pair string) (marketdata.Ticker, error) {
	sym := binanceSymbol(pair)
	book, err := s.client.NewBookTickerService().Symbol(strings.ToUpper(sym)).Do(ctx)
	if err != nil {
		return marketdata.Ticker{}, fmt.Errorf("binance GetTicker %s: %w", pair, err)
	}
	return marketdata.Ticker{
		Bid:  parseFloat(book.BidPrice),
		Ask:  parseFloat(book.AskPrice),
		Last: parseFloat(book.BidPrice), // book ticker carries no trade-price; approximate with bid.
	}, nil
}

func (s restService) GetOrderBook(ctx context.Context, pair string, depth int) (marketdata.OrderBook, error) {
	sym := strings.ToUpper(binanceSymbol(pair))
	depthRes, err := s.client.NewDepthService().Symbol(sym).Limit(depth).Do(ctx)
	if err != nil {
		return marketdata.OrderBook{}, fmt.Errorf("binance GetOrderBook %s: %w", pair, err)
	}
	book := marketdata.OrderBook{
		Bids: make([]marketdata.OrderBookLevel, 0, len(depthRes.Bids)),
		Asks: make([]marketdata.OrderBookLevel, 0, len(depthRes.Asks)),
	}
	for _, b := range depthRes.Bids {
		book.Bids = append(book.Bids, marketdata.OrderBookLevel{Price: parseFloat(b.Price), Quantity: parseFloat(b.Quantity)})
	}
	for _, a := range depthRes.Asks {
		book.Asks = append(book.Asks, marketdata.OrderBookLevel{Price: parseFloat(a.Price), Quantity: parseFloat(a.Quantity)})
	}
	return book, nil
}

func (s restService) GetTrades(ctx context.Context, pair string) ([]marketdata.Trade, error) {
	sym := strings.ToUpper(binanceSymbol(pair))
	raw, err := s.client.NewRecentTradesService().Symbol(sym).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance GetTrades %s: %w", pair, err)
	}
	trades := make([]marketdata.Trade, 0, len(raw))
	for _, t := range raw {
		side := "buy"
		if t.IsBuyerMaker {
			side = "sell"
		}
		trades = append(trades, marketdata.Trade{
			ID:        fmt.Sprintf("%d", t.ID),
			Price:     parseFloat(t.Price),
			Quantity:  parseFloat(t.Quantity),
			Side:      side,
			Timestamp: t.Time,
		})
	}
	return trades, nil
}

// streamingService implements exchange.StreamingMarketDataService by handing
// back the channels the adapter pre-created in Connect.
type streamingService struct {
	a *Adapter
}

func (s streamingService) Ticker(ctx context.Context, pair string) (<-chan marketdata.Ticker, error) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	ch, ok := s.a.tickerChans[pair]
	if !ok {
		return nil, fmt.Errorf("binance: %s not opened for ticker streaming", pair)
	}
	return ch, nil
}

func (s streamingService) OrderBook(ctx context.Context, pair string, depth int) (<-chan marketdata.OrderBook, error) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	ch, ok := s.a.bookChans[pair]
	if !ok {
		return nil, fmt.Errorf("binance: %s not opened for order book streaming", pair)
	}
	return ch, nil
}

func (s streamingService) Trades(ctx context.Context, pair string) (<-chan marketdata.Trade, error) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	ch, ok := s.a.tradeChans[pair]
	if !ok {
		return nil, fmt.Errorf("binance: %s not opened for trade streaming", pair)
	}
	return ch, nil
}
