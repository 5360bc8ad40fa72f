// Package kraken adapts Kraken's public REST API with a plain net/http
// client, the way the teacher's legacy fetcher package talks to Kraken —
// no SDK exists in the example pack for this venue, and Kraken's websocket
// deltas were never wired in the teacher either (see its fetcher TODO), so
// this adapter stays polling-only.
package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketdatamanager/internal/exchange"
	"marketdatamanager/internal/marketdata"
	"marketdatamanager/logger"
)

const defaultBaseURL = "https://api.kraken.com/0/public"

// Adapter is the kraken ExchangeAdapter. Polling-only: IsStreaming is
// false, so Connect/Disconnect/StreamingMarketData are never exercised.
type Adapter struct {
	baseURL string
	client  *http.Client
	log     *logger.Entry
}

func New(baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     logger.GetLogger().WithComponent("kraken_adapter"),
	}
}

func (a *Adapter) Name() string      { return "kraken" }
func (a *Adapter) IsStreaming() bool { return false }

func (a *Adapter) MarketDataService() exchange.MarketDataService {
	return restService{baseURL: a.baseURL, client: a.client, log: a.log}
}

func (a *Adapter) Connect(ctx context.Context, sub *exchange.ProductSubscription) error {
	return fmt.Errorf("kraken adapter is polling-only and does not support Connect")
}

func (a *Adapter) Disconnect(ctx context.Context) error { return nil }

func (a *Adapter) StreamingMarketData() exchange.StreamingMarketDataService {
	return unsupportedStreamingService{}
}

type unsupportedStreamingService struct{}

func (unsupportedStreamingService) Ticker(ctx context.Context, pair string) (<-chan marketdata.Ticker, error) {
	return nil, fmt.Errorf("kraken adapter is polling-only")
}

func (unsupportedStreamingService) OrderBook(ctx context.Context, pair string, depth int) (<-chan marketdata.OrderBook, error) {
	return nil, fmt.Errorf("kraken adapter is polling-only")
}

func (unsupportedStreamingService) Trades(ctx context.Context, pair string) (<-chan marketdata.Trade, error) {
	return nil, fmt.Errorf("kraken adapter is polling-only")
}

// krakenPair renders "BTC/USD" as kraken's REST-pair convention, e.g.
// "XBTUSD" for the bitcoin market. Kraken's legacy asset aliasing (XBT for
// BTC) is applied only for the base; anything else passes through
// untranslated, matching what the teacher's fetcher already assumed of its
// configured symbol strings.
func krakenPair(pair string) string {
	parts := strings.SplitN(pair, "/", 2)
	if len(parts) != 2 {
		return strings.ReplaceAll(pair, "/", "")
	}
	base, counter := parts[0], parts[1]
	if strings.EqualFold(base, "BTC") {
		base = "XBT"
	}
	return strings.ToUpper(base) + strings.ToUpper(counter)
}

func httpGet(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "marketdatamanager/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func buildURL(base, path string, query url.Values) string {
	u := strings.TrimRight(base, "/") + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

type krakenEnvelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

func decode(body []byte) (json.RawMessage, error) {
	var env krakenEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode kraken response: %w", err)
	}
	if len(env.Error) > 0 {
		return nil, fmt.Errorf("kraken API error: %s", strings.Join(env.Error, "; "))
	}
	return env.Result, nil
}
