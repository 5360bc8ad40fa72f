package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"marketdatamanager/config"
	"marketdatamanager/internal/exchange"
	"marketdatamanager/internal/exchange/binance"
	"marketdatamanager/internal/exchange/bybit"
	"marketdatamanager/internal/exchange/kraken"
	"marketdatamanager/internal/exchange/kucoin"
	"marketdatamanager/internal/marketdata"
	"marketdatamanager/internal/metrics"
	"marketdatamanager/internal/status"
	"marketdatamanager/logger"
	"marketdatamanager/manager"
)

func main() {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("error loading .env file")
	}

	configPath := os.Getenv("MDM_CONFIG")
	if configPath == "" {
		configPath = "config/config.yml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("failed to configure logger")
		os.Exit(1)
	}

	entry := log.WithComponent("main")
	entry.WithFields(logger.Fields{"environment": config.AppEnvironment()}).Info("starting market data subscription manager")

	registry := buildRegistry(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var counters *metrics.Counters
	if cfg.Metrics.Enabled {
		counters = metrics.New()
		if cfg.Metrics.CloudWatch {
			metrics.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace, cfg.Metrics.DashboardName)
		}
		reportInterval := cfg.Metrics.ReportInterval
		if reportInterval <= 0 {
			reportInterval = 30 * time.Second
		}
		metrics.StartDropPublisher(ctx, log, reportInterval)
	}

	mgr := manager.New(registry, log.WithComponent("manager"),
		manager.WithLoopInterval(cfg.Manager.LoopInterval()),
		manager.WithRateLimit(cfg.Manager.RequestsPerSecond, cfg.Manager.Burst),
		manager.WithMetrics(counters),
		manager.WithNotifier(func(n manager.Notification) {
			fields := logger.Fields{"kind": n.Kind, "exchange": n.Exchange}
			e := entry.WithFields(fields)
			if n.Err != nil {
				e.WithError(n.Err).Warn("reconciliation notification")
				return
			}
			e.Info("reconciliation notification")
		}),
	)

	statusServer := status.NewServer(status.Config{Enabled: cfg.Status.Enabled, Address: cfg.Status.Address}, mgr.Engine(), log.WithComponent("status"))
	if statusServer != nil {
		go func() {
			if err := statusServer.Run(ctx); err != nil {
				entry.WithError(err).Error("status server exited with error")
			}
		}()
		entry.WithFields(logger.Fields{"address": statusServer.Address()}).Info("status endpoint listening")
	}

	if cfg.Metrics.Enabled {
		reportInterval := cfg.Metrics.ReportInterval
		if reportInterval <= 0 {
			reportInterval = 30 * time.Second
		}
		metrics.StartBusSubscriberMetrics(ctx, mgr.Bus(), reportInterval)
	}

	mgr.Start(ctx)
	mgr.UpdateSubscriptions(subscriptionsFromConfig(cfg, entry))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	entry.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	mgr.Stop(stopCtx)

	entry.Info("market data subscription manager stopped")
}

// buildRegistry wires one adapter per configured exchange. An exchange
// present in cfg.Exchanges but not recognized here is skipped with a
// warning rather than aborting startup.
func buildRegistry(cfg *config.Config) *exchange.Registry {
	registry := exchange.NewRegistry()
	log := logger.GetLogger().WithComponent("main")

	for name, ex := range cfg.Exchanges {
		switch name {
		case "binance":
			registry.Register(name, binance.New(ex.APIKey, ex.APISecret))
		case "bybit":
			registry.Register(name, bybit.New(ex.APIKey, ex.APISecret, ex.BaseURL))
		case "kucoin":
			registry.Register(name, kucoin.New(ex.BaseURL, ex.RequestsPerSecond, ex.Burst))
		case "kraken":
			registry.Register(name, kraken.New(ex.BaseURL))
		default:
			log.WithFields(logger.Fields{"exchange": name}).Warn("unrecognized exchange in configuration, skipping")
		}
	}

	return registry
}

// subscriptionsFromConfig builds the initial desired set from the
// subscriptions section. Operators update the live set afterward through
// Manager.UpdateSubscriptions; this seed only avoids an idle startup with
// zero subscriptions. Entries naming an unrecognized type are logged and
// skipped rather than aborting startup.
func subscriptionsFromConfig(cfg *config.Config, log *logger.Entry) marketdata.SubscriptionSet {
	subs := make([]marketdata.Subscription, 0, len(cfg.Subscriptions))
	for _, s := range cfg.Subscriptions {
		dt, ok := parseDataType(s.Type)
		if !ok {
			log.WithFields(logger.Fields{"type": s.Type}).Warn("unrecognized subscription type in configuration, skipping")
			continue
		}
		subs = append(subs, marketdata.Subscription{
			Spec: marketdata.TickerSpec{Exchange: s.Exchange, Base: s.Base, Counter: s.Counter},
			Type: dt,
		})
	}
	return marketdata.NewSubscriptionSet(subs...)
}

func parseDataType(name string) (marketdata.DataType, bool) {
	switch name {
	case "TICKER":
		return marketdata.Ticker, true
	case "ORDER_BOOK":
		return marketdata.OrderBook, true
	case "TRADES":
		return marketdata.Trades, true
	case "OPEN_ORDERS":
		return marketdata.OpenOrders, true
	case "USER_TRADE_HISTORY":
		return marketdata.TradeHistory, true
	default:
		return 0, false
	}
}
