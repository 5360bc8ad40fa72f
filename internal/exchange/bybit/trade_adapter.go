package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"marketdatamanager/internal/exchange"
	"marketdatamanager/internal/marketdata"
)

type openOrdersParams struct {
	pair string
}

func (p *openOrdersParams) SetCurrencyPair(pair string) { p.pair = pair }

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
		return nil, fmt.Errorf("bybit GetOpenOrders: currency pair not set")
	}
	sym := bybitSymbol(p.pair)
	resp, err := a.rest.NewUtaBybitServiceWithParams(linearParams(sym, nil)).GetOpenOrdersInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("bybit GetOpenOrders %s: %w", p.pair, err)
	}
	payload, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("bybit GetOpenOrders %s: marshal result: %w", p.pair, err)
	}
	var parsed struct {
		List []struct {
			OrderID  string `json:"orderId"`
			Side     string `json:"side"`
			Price    string `json:"price"`
			Qty      string `json:"qty"`
			OrderStatus string `json:"orderStatus"`
		} `json:"list"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("bybit GetOpenOrders %s: unexpected response shape", p.pair)
	}
	orders := make([]marketdata.Order, 0, len(parsed.List))
	for _, o := range parsed.List {
		orders = append(orders, marketdata.Order{
			ID:       o.OrderID,
			Side:     strings.ToLower(o.Side),
			Price:    parseFloat(o.Price),
			Quantity: parseFloat(o.Qty),
			Status:   o.OrderStatus,
		})
	}
	return orders, nil
}

func (a *Adapter) GetTradeHistory(ctx context.Context, params exchange.TradeHistoryParams) ([]marketdata.Trade, error) {
	p, ok := params.(*tradeHistoryParams)
	if !ok || p.pair == "" {
		return nil, fmt.Errorf("bybit GetTradeHistory: currency pair not set")
	}
	limit := p.limit
	if limit <= 0 {
		limit = marketdata.MaxTradeHistoryItems
	}
	sym := bybitSymbol(p.pair)
	resp, err := a.rest.NewUtaBybitServiceWithParams(linearParams(sym, map[string]interface{}{"limit": limit})).GetTradeHistoryInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("bybit GetTradeHistory %s: %w", p.pair, err)
	}
	payload, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("bybit GetTradeHistory %s: marshal result: %w", p.pair, err)
	}
	var parsed struct {
		List []struct {
			ExecID string `json:"execId"`
			Price  string `json:"execPrice"`
			Qty    string `json:"execQty"`
			Side   string `json:"side"`
		} `json:"list"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("bybit GetTradeHistory %s: unexpected response shape", p.pair)
	}
	trades := make([]marketdata.Trade, 0, len(parsed.List))
	for _, t := range parsed.List {
		trades = append(trades, marketdata.Trade{
			ID:       t.ExecID,
			Price:    parseFloat(t.Price),
			Quantity: parseFloat(t.Qty),
			Side:     strings.ToLower(t.Side),
		})
	}
	return trades, nil
}
