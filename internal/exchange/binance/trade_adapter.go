package binance

import (
	"context"
	"fmt"
	"strings"

	"marketdatamanager/internal/exchange"
	"marketdatamanager/internal/marketdata"
)

// openOrdersParams implements exchange.CurrencyPairSetter.
type openOrdersParams struct {
	pair string
}

func (p *openOrdersParams) SetCurrencyPair(pair string) { p.pair = pair }

// tradeHistoryParams implements exchange.CurrencyPairSetter and
// exchange.LimitSetter; binance's trade-history endpoint has no
// page/size pagination, so PagingSetter is deliberately not implemented.
type tradeHistoryParams struct {
	pair  string
	limit int
}

func (p *tradeHistoryParams) SetCurrencyPair(pair string) { p.pair = pair }
func (p *tradeHistoryParams) SetLimit(n int)              { p.limit = n }

func (a *Adapter) CreateOpenOrdersParams() exchange.OpenOrdersParams { return &openOrdersParams{} }

func (a *Adapter) CreateTradeHistoryParams() exchange.TradeHistoryParams {
	return &tradeHistoryParams{limit: marketdata.MaxTradeHistoryItems}
}

func (a *Adapter) GetOpenOrders(ctx context.Context, params exchange.OpenOrdersParams) ([]marketdata.Order, error) {
	p, ok := params.(*openOrdersParams)
	if !ok || p.pair == "" {
		return nil, fmt.Errorf("binance GetOpenOrders: currency pair not set")
	}
	sym := strings.ToUpper(binanceSymbol(p.pair))
	orders, err := a.rest.NewListOpenOrdersService().Symbol(sym).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance GetOpenOrders %s: %w", p.pair, err)
	}
	out := make([]marketdata.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, marketdata.Order{
			ID:       fmt.Sprintf("%d", o.OrderID),
			Side:     strings.ToLower(string(o.Side)),
			Price:    parseFloat(o.Price),
			Quantity: parseFloat(o.OrigQuantity),
			Status:   string(o.Status),
		})
	}
	return out, nil
}

func (a *Adapter) GetTradeHistory(ctx context.Context, params exchange.TradeHistoryParams) ([]marketdata.Trade, error) {
	p, ok := params.(*tradeHistoryParams)
	if !ok || p.pair == "" {
		return nil, fmt.Errorf("binance GetTradeHistory: currency pair not set")
	}
	sym := strings.ToUpper(binanceSymbol(p.pair))
	limit := p.limit
	if limit <= 0 {
		limit = marketdata.MaxTradeHistoryItems
	}
	raw, err := a.rest.NewListTradesService().Symbol(sym).Limit(limit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance GetTradeHistory %s: %w", p.pair, err)
	}
	trades := make([]marketdata.Trade, 0, len(raw))
	for _, t := range raw {
		side := "buy"
		if !t.IsBuyer {
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
