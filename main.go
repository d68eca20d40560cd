package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

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

// venueSession is one configured adapter plus the symbols it watches.
type venueSession struct {
	name    string
	adapter exchange.Exchange
	symbols []string
}

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultConfigPath, "Path to configuration file")
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

	if cfg.Logging.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Logging.CloudWatch.Region, cfg.Logging.CloudWatch.Namespace)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Tradewire.Name,
		"version":     cfg.Tradewire.Version,
		"environment": config.AppEnvironment(),
	}).Info("starting tradewire monitor")

	sessions := buildSessions(cfg)
	if len(sessions) == 0 {
		log.Error("no exchanges enabled in configuration")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var archiver *capture.Archiver
	if cfg.Capture.Enabled {
		archiver, err = capture.NewArchiver(cfg)
		if err != nil {
			log.WithError(err).Error("failed to create capture archiver")
			os.Exit(1)
		}
		if err := archiver.Start(ctx); err != nil {
			log.WithError(err).Error("failed to start capture archiver")
			os.Exit(1)
		}
	}

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s venueSession) {
			defer wg.Done()
			monitorVenue(ctx, cfg, s, archiver, log)
		}(s)
	}

	log.Info("all monitors started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	if archiver != nil {
		archiver.Stop()
	}

	log.Info("tradewire stopped")
}

// buildSessions instantiates one adapter per enabled venue.
func buildSessions(cfg *config.Config) []venueSession {
	var sessions []venueSession

	if ex := cfg.Exchanges.Gemini; ex.Enabled {
		sessions = append(sessions, venueSession{
			name: "gemini",
			adapter: gemini.New(credsFor(ex), gemini.Options{
				BaseURL:       ex.BaseURL,
				Timeout:       ex.Timeout,
				RatePerSecond: ex.RatePerSecond,
			}),
			symbols: ex.Symbols,
		})
	}
	if ex := cfg.Exchanges.Bitrue; ex.Enabled {
		sessions = append(sessions, venueSession{
			name: "bitrue",
			adapter: bitrue.New(credsFor(ex), bitrue.Options{
				BaseURL:       ex.BaseURL,
				Timeout:       ex.Timeout,
				RatePerSecond: ex.RatePerSecond,
			}),
			symbols: ex.Symbols,
		})
	}
	if ex := cfg.Exchanges.Pacifica; ex.Enabled {
		sessions = append(sessions, venueSession{
			name: "pacifica",
			adapter: pacifica.New(credsFor(ex), pacifica.Options{
				BaseURL:       ex.BaseURL,
				Timeout:       ex.Timeout,
				RatePerSecond: ex.RatePerSecond,
			}),
			symbols: ex.Symbols,
		})
	}
	if ex := cfg.Exchanges.Probit; ex.Enabled {
		sessions = append(sessions, venueSession{
			name: "probit",
			adapter: probit.New(credsFor(ex), probit.Options{
				BaseURL:       ex.BaseURL,
				Timeout:       ex.Timeout,
				RatePerSecond: ex.RatePerSecond,
			}),
			symbols: ex.Symbols,
		})
	}
	if ex := cfg.Exchanges.Lbank; ex.Enabled {
		sessions = append(sessions, venueSession{
			name: "lbank",
			adapter: lbank.New(credsFor(ex), lbank.Options{
				BaseURL:       ex.BaseURL,
				Timeout:       ex.Timeout,
				RatePerSecond: ex.RatePerSecond,
			}),
			symbols: ex.Symbols,
		})
	}

	return sessions
}

func credsFor(ex config.ExchangeConfig) exchange.Credentials {
	return exchange.Credentials{
		APIKey:        ex.APIKey,
		Secret:        ex.Secret,
		Password:      ex.Password,
		WalletAddress: ex.WalletAddress,
		PrivateKey:    ex.PrivateKey,
	}
}

// monitorVenue polls tickers on the configured interval and the order book
// every Nth poll. All failures are logged and retried on the next tick.
func monitorVenue(ctx context.Context, cfg *config.Config, s venueSession, archiver *capture.Archiver, log *logger.Log) {
	clog := log.WithComponent("monitor").WithFields(logger.Fields{"exchange": s.name})

	if err := s.adapter.LoadMarkets(ctx); err != nil {
		clog.WithError(err).Error("failed to load markets")
		return
	}
	clog.WithFields(logger.Fields{"symbols": s.symbols}).Info("markets loaded")

	ticker := time.NewTicker(cfg.Monitor.Interval)
	defer ticker.Stop()

	poll := 0
	for {
		pollVenue(ctx, cfg, s, archiver, clog, poll)
		poll++
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func pollVenue(ctx context.Context, cfg *config.Config, s venueSession, archiver *capture.Archiver, clog *logger.Entry, poll int) {
	for _, symbol := range s.symbols {
		t, err := s.adapter.FetchTicker(ctx, symbol)
		if err != nil {
			clog.WithError(err).WithFields(logger.Fields{"symbol": symbol}).Warn("fetch ticker failed")
			continue
		}
		clog.WithFields(logger.Fields{
			"symbol": symbol,
			"bid":    decStr(t.Bid),
			"ask":    decStr(t.Ask),
			"last":   decStr(t.Last),
		}).Info("ticker")
		if archiver != nil {
			archiver.Add(capture.Record{
				Exchange:     s.name,
				Endpoint:     "ticker",
				Symbol:       symbol,
				Status:       200,
				Payload:      t.Info.Raw,
				ReceivedTime: time.Now().UnixMilli(),
			})
		}

		if cfg.Monitor.OrderBookEvery > 0 && poll%cfg.Monitor.OrderBookEvery == 0 {
			book, err := s.adapter.FetchOrderBook(ctx, symbol, cfg.Monitor.OrderBookDepth)
			if err != nil {
				clog.WithError(err).WithFields(logger.Fields{"symbol": symbol}).Warn("fetch order book failed")
				continue
			}
			clog.WithFields(logger.Fields{
				"symbol": symbol,
				"bids":   len(book.Bids),
				"asks":   len(book.Asks),
			}).Info("order book")
			if archiver != nil {
				archiver.Add(capture.Record{
					Exchange:     s.name,
					Endpoint:     "order_book",
					Symbol:       symbol,
					Status:       200,
					Payload:      book.Info.Raw,
					ReceivedTime: time.Now().UnixMilli(),
				})
			}
		}
	}
}

func decStr(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
