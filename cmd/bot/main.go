package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zono819/ratio-arb/internal/domain/entity"
	"github.com/zono819/ratio-arb/internal/infrastructure/config"
	"github.com/zono819/ratio-arb/internal/infrastructure/logger"
	"github.com/zono819/ratio-arb/internal/infrastructure/marketdata"
	"github.com/zono819/ratio-arb/internal/infrastructure/metrics"
	"github.com/zono819/ratio-arb/internal/infrastructure/primary"
	"github.com/zono819/ratio-arb/internal/infrastructure/redisfeed"
	"github.com/zono819/ratio-arb/internal/usecase/monitor"
	"github.com/zono819/ratio-arb/internal/usecase/pairing"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ratio-arb %s (built: %s)\n", version, buildTime)
		os.Exit(0)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Default().Error("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Initialize logger
	level := logger.ParseLevel(cfg.Log.Level)
	var log *logger.Logger
	if cfg.Log.Format == "console" {
		log = logger.NewConsole(level, os.Stdout)
	} else {
		log = logger.New(level, os.Stdout)
	}
	logger.SetDefault(log)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("Received signal: %v, initiating graceful shutdown...", sig)
		cancel()
	}()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Monitor error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.Info("Starting %s in %s mode", cfg.App.Name, cfg.App.Environment)

	client := primary.NewClient(primary.ClientConfig{
		BaseURL:  cfg.Primary.RestURL,
		User:     cfg.Primary.User,
		Password: cfg.Primary.Password,
	})

	legCfgs := cfg.Legs
	if pairing.NeedsConversionFactors(legCfgs) {
		done := log.TrackTime("instrument details")
		listed, err := client.InstrumentDetails(ctx)
		done()
		if err != nil {
			return fmt.Errorf("failed to fetch instrument details: %w", err)
		}
		if legCfgs, err = pairing.ResolveConversionFactors(legCfgs, listed); err != nil {
			return err
		}
	}

	store := marketdata.NewStore()
	legs, err := pairing.Build(legCfgs, cfg.Primary.MarketID, store)
	if err != nil {
		return fmt.Errorf("failed to build legs: %w", err)
	}
	trades := pairing.Pairs(legs)
	instruments := pairing.Instruments(legs)
	log.Info("Monitoring %d ratio trades over %d legs", len(trades), len(legs))

	recorder := metrics.NewRecorder()
	sinks := []monitor.Sink{recorder}
	if cfg.Redis.Enabled {
		pub := redisfeed.NewPublisher(cfg.Redis)
		defer pub.Close()
		if err := pub.Ping(ctx); err != nil {
			log.Warn("Redis unreachable at %s: %v", cfg.Redis.Addr, err)
		}
		sinks = append(sinks, pub)
	}

	mon := monitor.NewMonitor(trades, monitor.Config{
		Interval:  cfg.Monitor.Interval,
		MinProfit: cfg.Monitor.MinProfit,
		TopN:      cfg.Monitor.TopN,
		History:   cfg.Monitor.History,
	}, log, sinks...)
	mon.OnCycle(recorder.ObserveCycle)

	feed := primary.NewMarketData(primary.MarketDataConfig{WSURL: cfg.Primary.WSURL}, client, log)
	feed.OnMarketData(func(md *entity.MarketData) {
		store.Update(md)
		recorder.MDMessages.Inc()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return recorder.Serve(gctx, cfg.Metrics.Addr, log)
	})
	g.Go(func() error {
		return mon.Run(gctx)
	})
	g.Go(func() error {
		return streamMarketData(gctx, feed, instruments, log)
	})

	err = g.Wait()
	log.Info("Monitor stopped")
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// streamMarketData keeps the feed subscribed, reconnecting with backoff
func streamMarketData(ctx context.Context, feed *primary.MarketData, instruments []*entity.Instrument, log *logger.Logger) error {
	defer feed.Disconnect(context.Background())

	backoff := reconnectMin
	for {
		err := feed.Connect(ctx)
		if err == nil {
			err = feed.Subscribe(ctx, instruments)
		}
		if err == nil {
			backoff = reconnectMin
			select {
			case <-ctx.Done():
				return nil
			case <-feed.Done():
				log.Warn("Market data connection lost, reconnecting")
			}
		} else {
			log.Error("Market data connect failed: %v (retry in %s)", err, backoff)
			_ = feed.Disconnect(ctx)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > reconnectMax {
				backoff = reconnectMax
			}
		}
	}
}
