// Command capture fetches public endpoints from the configured venues and
// archives the raw payloads as parquet batches. The archived responses
// preserve venue quirks (misspelled fields, mixed types, undocumented
// statuses) for use as normalizer test fixtures.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradewire/capture"
	"tradewire/config"
	"tradewire/exchange"
	"tradewire/exchange/bitrue"
	"tradewire/exchange/gemini"
	"tradewire/exchange/lbank"
	"tradewire/exchange/pacifica"
	"tradewire/exchange/probit"
	"tradewire/logger"
)

type venue struct {
	name    string
	adapter exchange.Exchange
	symbols []string
}

func main() {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultConfigPath, "Path to configuration file")
	only := flag.String("venue", "", "Capture a single venue instead of all enabled ones")
	rounds := flag.Int("rounds", 1, "Number of capture rounds (0 runs until interrupted)")
	interval := flag.Duration("interval", 10*time.Second, "Delay between capture rounds")
	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolveConfigPath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}
	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	venues := buildVenues(cfg, *only)
	if len(venues) == 0 {
		log.Error("no venues to capture")
		os.Exit(1)
	}

	archiver, err := capture.NewArchiver(cfg)
	if err != nil {
		log.WithError(err).Error("failed to create archiver")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := archiver.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start archiver")
		os.Exit(1)
	}

	for round := 0; *rounds == 0 || round < *rounds; round++ {
		if ctx.Err() != nil {
			break
		}
		for _, v := range venues {
			captureVenue(ctx, v, archiver, log)
		}
		if *rounds == 0 || round < *rounds-1 {
			select {
			case <-ctx.Done():
			case <-time.After(*interval):
			}
		}
	}

	cancel()
	archiver.Stop()
	log.Info("capture finished")
}

func buildVenues(cfg *config.Config, only string) []venue {
	var venues []venue
	add := func(name string, ex config.ExchangeConfig, adapter exchange.Exchange) {
		if !ex.Enabled {
			return
		}
		if only != "" && only != name {
			return
		}
		venues = append(venues, venue{name: name, adapter: adapter, symbols: ex.Symbols})
	}

	add("gemini", cfg.Exchanges.Gemini, gemini.New(exchange.Credentials{}, gemini.Options{
		BaseURL:       cfg.Exchanges.Gemini.BaseURL,
		Timeout:       cfg.Exchanges.Gemini.Timeout,
		RatePerSecond: cfg.Exchanges.Gemini.RatePerSecond,
	}))
	add("bitrue", cfg.Exchanges.Bitrue, bitrue.New(exchange.Credentials{}, bitrue.Options{
		BaseURL:       cfg.Exchanges.Bitrue.BaseURL,
		Timeout:       cfg.Exchanges.Bitrue.Timeout,
		RatePerSecond: cfg.Exchanges.Bitrue.RatePerSecond,
	}))
	add("pacifica", cfg.Exchanges.Pacifica, pacifica.New(exchange.Credentials{}, pacifica.Options{
		BaseURL:       cfg.Exchanges.Pacifica.BaseURL,
		Timeout:       cfg.Exchanges.Pacifica.Timeout,
		RatePerSecond: cfg.Exchanges.Pacifica.RatePerSecond,
	}))
	add("probit", cfg.Exchanges.Probit, probit.New(exchange.Credentials{}, probit.Options{
		BaseURL:       cfg.Exchanges.Probit.BaseURL,
		Timeout:       cfg.Exchanges.Probit.Timeout,
		RatePerSecond: cfg.Exchanges.Probit.RatePerSecond,
	}))
	add("lbank", cfg.Exchanges.Lbank, lbank.New(exchange.Credentials{}, lbank.Options{
		BaseURL:       cfg.Exchanges.Lbank.BaseURL,
		Timeout:       cfg.Exchanges.Lbank.Timeout,
		RatePerSecond: cfg.Exchanges.Lbank.RatePerSecond,
	}))

	return venues
}

// captureVenue records the public surface of one venue. Failures are
// logged and skipped so one broken endpoint does not end the round.
func captureVenue(ctx context.Context, v venue, archiver *capture.Archiver, log *logger.Log) {
	clog := log.WithComponent("capture").WithFields(logger.Fields{"exchange": v.name})

	if err := v.adapter.LoadMarkets(ctx); err != nil {
		clog.WithError(err).Warn("load markets failed")
		return
	}

	for _, symbol := range v.symbols {
		now := time.Now().UnixMilli()

		if t, err := v.adapter.FetchTicker(ctx, symbol); err != nil {
			clog.WithError(err).WithFields(logger.Fields{"symbol": symbol}).Warn("fetch ticker failed")
		} else {
			archiver.Add(capture.Record{Exchange: v.name, Endpoint: "ticker", Symbol: symbol, Status: 200, Payload: t.Info.Raw, ReceivedTime: now})
		}

		if book, err := v.adapter.FetchOrderBook(ctx, symbol, 0); err != nil {
			clog.WithError(err).WithFields(logger.Fields{"symbol": symbol}).Warn("fetch order book failed")
		} else {
			archiver.Add(capture.Record{Exchange: v.name, Endpoint: "order_book", Symbol: symbol, Status: 200, Payload: book.Info.Raw, ReceivedTime: now})
		}

		if trades, err := v.adapter.FetchTrades(ctx, symbol, 0, 50); err != nil {
			clog.WithError(err).WithFields(logger.Fields{"symbol": symbol}).Warn("fetch trades failed")
		} else {
			for _, trade := range trades {
				archiver.Add(capture.Record{Exchange: v.name, Endpoint: "trades", Symbol: symbol, Status: 200, Payload: trade.Info.Raw, ReceivedTime: now})
			}
		}
	}
	clog.Info("capture round complete")
}
