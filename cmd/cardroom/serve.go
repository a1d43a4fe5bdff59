package main

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/cardroomhq/cardroom/internal/randutil"
	"github.com/cardroomhq/cardroom/internal/server"
	"github.com/cardroomhq/cardroom/internal/table"
)

// ServeCmd runs the websocket server with tables from config
type ServeCmd struct {
	Config   string `short:"c" default:"cardroom.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Listen address (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	Debug    bool   `help:"Enable debug logging"`
	Seed     *int64 `help:"Deterministic RNG seed (optional)"`

	SmallBlind  int `help:"Small blind for every table (overrides config)"`
	BigBlind    int `help:"Big blind for every table (overrides config)"`
	BuyInMin    int `help:"Minimum buy-in for every table (overrides config)"`
	BuyInMax    int `help:"Maximum buy-in for every table (overrides config)"`
	TurnTimeout int `help:"Turn timeout in seconds for every table (overrides config)"`
}

func (c *ServeCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.Debug {
		cfg.Server.LogLevel = "debug"
	}
	for i := range cfg.Tables {
		tc := &cfg.Tables[i]
		if c.SmallBlind > 0 {
			tc.SmallBlind = c.SmallBlind
		}
		if c.BigBlind > 0 {
			tc.BigBlind = c.BigBlind
		}
		if c.BuyInMin > 0 {
			tc.BuyInMin = c.BuyInMin
		}
		if c.BuyInMax > 0 {
			tc.BuyInMax = c.BuyInMax
		}
		if c.TurnTimeout > 0 {
			tc.TurnTimeoutSecs = c.TurnTimeout
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	svc := server.NewService(logger)
	for _, tc := range cfg.Tables {
		opts := []table.Option{
			table.WithID(tc.Name),
			table.WithListener(svc),
		}
		if c.Seed != nil {
			opts = append(opts, table.WithRNG(seededShuffles(*c.Seed)))
			logger.Info("using deterministic seed", "seed", *c.Seed, "table", tc.Name)
		}

		tbl := table.New(tc.TableSettings(), logger, opts...)
		svc.AddTable(tbl, tc.Name)
		logger.Info("created table",
			"name", tc.Name,
			"stakes", fmt.Sprintf("%d/%d", tc.SmallBlind, tc.BigBlind),
			"maxSeats", tc.MaxSeats)
	}

	srv := server.NewServer(addr, logger, svc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		svc.Close()
		return srv.Stop()
	})
	return g.Wait()
}

// seededShuffles derives a distinct deterministic stream per shuffle from
// one base seed.
func seededShuffles(base int64) func() *rand.Rand {
	var n atomic.Int64
	return func() *rand.Rand {
		return randutil.New(base + n.Add(1))
	}
}
