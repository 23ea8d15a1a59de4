package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Devanshi310/devanshi-binance-bot/internal/config"
	"github.com/Devanshi310/devanshi-binance-bot/pkg/binance"
	"github.com/Devanshi310/devanshi-binance-bot/pkg/trader"
)

var (
	cfgFile     string
	dryRun      bool
	skipConfirm bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "binance-bot",
		Short: "Binance USDT-M futures order bot",
		Long:  `Places and supervises futures orders: market, limit, stop-limit, OCO exits, TWAP slicing and grid trading`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "simulate all orders without touching the venue")
	rootCmd.PersistentFlags().BoolVarP(&skipConfirm, "yes", "y", false, "skip confirmation prompts")

	rootCmd.AddCommand(
		newMarketCmd(),
		newLimitCmd(),
		newStopLimitCmd(),
		newOCOCmd(),
		newTWAPCmd(),
		newGridCmd(),
		newWatchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the collaborators every strategy command needs.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	client binance.Client
	audit  *trader.LogSink
}

func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logrus.New()
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.WithError(err).Error("Invalid log level, using INFO")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.WithError(err).Error("Could not open log file, logging to stderr")
		} else {
			logger.SetOutput(f)
		}
	}

	var client binance.Client
	if dryRun {
		// Reference prices come from the public ticker endpoint, which
		// needs no credentials; everything else stays in memory.
		prices := binance.NewFuturesClient("", "", cfg.Binance.Testnet)
		client = binance.NewDryRunClient(prices, 1_000_000)
		logger.Info("Dry run: no orders will reach the venue")
	} else {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		client = binance.NewFuturesClient(cfg.Binance.APIKey, cfg.Binance.APISecret, cfg.Binance.Testnet)
		if cfg.Binance.Testnet {
			logger.Info("Using Binance futures testnet")
		}
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		client: client,
		audit:  trader.NewLogSink(logger, 256),
	}, nil
}

func (a *app) Close() {
	a.audit.Close()
}

func (a *app) placer() *trader.Placer {
	return trader.NewPlacer(a.client, a.audit, a.logger, trader.PlacerConfig{
		DeviationWarnPct: a.cfg.Trading.PriceDeviationWarnPct,
		CheckBalance:     a.cfg.Trading.CheckBalance,
	})
}

// signalContext is canceled on SIGINT/SIGTERM so long-running loops exit
// promptly and run their teardown.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func confirm(message string) bool {
	if skipConfirm || dryRun {
		return true
	}
	fmt.Printf("%s (y/N): ", message)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

func parseFloatArg(name, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a number", name, value)
	}
	return v, nil
}

func parseIntArg(name, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", name, value)
	}
	return v, nil
}
