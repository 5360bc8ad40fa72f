package kucoin

import (
	"context"
	"fmt"

	futuresmarket "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/generate/futures/market"
	"golang.org/x/time/rate"

	"marketdatamanager/internal/marketdata"
	"marketdatamanager/logger"
)

// restService implements exchange.MarketDataService over the kucoin
// universal SDK's futures market API, rate-limited the way the teacher's
// open-interest reader rate-limits its polling loop.
type restService struct {
	marketAPI futuresmarket.MarketAPI
	limiter   *rate.Limiter
	log       *logger.Entry
}

func (s restService) GetTicker(ctx context.Context, pair string) (marketdata.Ticker, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return marketdata.Ticker{}, err
	}
	sym := kucoinSymbol(pair)
	req := futuresmarket.NewGetSymbolReqBuilder().SetSymbol(sym).Build()
	resp, err := s.marketAPI.GetSymbol(req, ctx)
	if err != nil {
		return marketdata.Ticker{}, fmt.Errorf("kucoin GetTicker %s: %w", pair, err)
	}
	if resp == nil {
		return marketdata.Ticker{}, fmt.Errorf("kucoin GetTicker %s: empty response", pair)
	}
	return marketdata.Ticker{
		Bid:  parseFloat(resp.BidPrice),
		Ask:  parseFloat(resp.AskPrice),
		Last: parseFloat(resp.LastTradePrice),
	}, nil
}

func (s restService) GetOrderBook(ctx context.Context, pair string, depth int) (marketdata.OrderBook, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return marketdata.OrderBook{}, err
	}
	sym := kucoinSymbol(pair)
	req := futuresmarket.NewGetFullOrderBookReqBuilder().SetSymbol(sym).Build()
	resp, err := s.marketAPI.GetFullOrderBook(req, ctx)
	if err != nil {
		return marketdata.OrderBook{}, fmt.Errorf("kucoin GetOrderBook %s: %w", pair, err)
	}
	if resp == nil {
		return marketdata.OrderBook{}, fmt.Errorf("kucoin GetOrderBook %s: empty response", pair)
	}
	book := marketdata.OrderBook{
		Bids: make([]marketdata.OrderBookLevel, 0, min(len(resp.Bids), depth)),
		Asks: make([]marketdata.OrderBookLevel, 0, min(len(resp.Asks), depth)),
	}
	for i, lvl := range resp.Bids {
		if i >= depth {
			break
		}
		if len(lvl) < 2 {
			continue
		}
		book.Bids = append(book.Bids, marketdata.OrderBookLevel{Price: lvl[0], Quantity: lvl[1]})
	}
	for i, lvl := range resp.Asks {
		if i >= depth {
			break
		}
		if len(lvl) < 2 {
			continue
		}
		book.Asks = append(book.Asks, marketdata.OrderBookLevel{Price: lvl[0], Quantity: lvl[1]})
	}
	return book, nil
}

// GetTrades is unimplemented on kucoin's futures market API in this
// adapter: the SDK's public trade-history endpoint returns aggregated
// fills the core's Trade shape cannot represent faithfully without a
// dedicated mapping this system does not need yet. The polling loop treats
// this as "unsupported operation on exchange" and skips the tick.
func (s restService) GetTrades(ctx context.Context, pair string) ([]marketdata.Trade, error) {
	return nil, fmt.Errorf("kucoin adapter: trades polling not supported")
}
