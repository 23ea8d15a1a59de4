package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Devanshi310/devanshi-binance-bot/api"
	"github.com/Devanshi310/devanshi-binance-bot/pkg/trader"
)

func newOCOCmd() *cobra.Command {
	var monitorSeconds int

	cmd := &cobra.Command{
		Use:   "oco SYMBOL SIDE QUANTITY TAKE_PROFIT STOP_LOSS",
		Short: "Place a take-profit/stop-loss pair where one cancels the other",
		Example: `  # Close a long: take profit above, stop loss below
  binance-bot oco BTCUSDT SELL 0.01 46000 44000

  # Close a short: take profit below, stop loss above
  binance-bot oco BTCUSDT BUY 0.01 44000 46000`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := trader.ValidateSide(args[1])
			if err != nil {
				return err
			}
			quantity, err := parseFloatArg("quantity", args[2])
			if err != nil {
				return err
			}
			takeProfit, err := parseFloatArg("take profit", args[3])
			if err != nil {
				return err
			}
			stopLoss, err := parseFloatArg("stop loss", args[4])
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			opts := trader.DefaultOCOOptions()
			opts.PollInterval = time.Duration(a.cfg.Trading.OCOPollSeconds) * time.Second
			if monitorSeconds > 0 {
				opts.MaxDuration = time.Duration(monitorSeconds) * time.Second
			} else {
				opts.MaxDuration = time.Duration(a.cfg.Trading.OCOMonitorSeconds) * time.Second
			}

			monitor := trader.NewOCOMonitor(a.client, a.audit, a.logger, opts)
			pair, err := monitor.Place(ctx, trader.OCOParams{
				Symbol:     args[0],
				Side:       side,
				Quantity:   quantity,
				TakeProfit: takeProfit,
				StopLoss:   stopLoss,
			})
			if err != nil {
				return err
			}

			fmt.Printf("OCO orders placed: take_profit=%s stop_loss=%s\n",
				pair.TakeProfit.OrderID, pair.StopLoss.OrderID)

			if pair.Outcome() == trader.OCOOutcomeDryRun {
				fmt.Println("Dry run: nothing to supervise")
				return nil
			}

			fmt.Println("Supervising orders, press Ctrl+C to stop...")
			outcome := pair.Wait(opts.MaxDuration + opts.PollInterval)
			fmt.Printf("OCO supervision finished: %s\n", outcome)
			return nil
		},
	}

	cmd.Flags().IntVar(&monitorSeconds, "monitor-time", 0, "how long to supervise in seconds (default from config)")
	return cmd
}

func newTWAPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "twap SYMBOL SIDE TOTAL_QUANTITY DURATION_MINUTES SLICES",
		Short: "Execute a large order as evenly spaced market-order slices",
		Example: `  # 1 BTC buy over 60 minutes in 5 slices
  binance-bot twap BTCUSDT BUY 1.0 60 5
  binance-bot twap ETHUSDT SELL 10.0 30 10 --dry-run`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := trader.ValidateSide(args[1])
			if err != nil {
				return err
			}
			quantity, err := parseFloatArg("quantity", args[2])
			if err != nil {
				return err
			}
			minutes, err := parseIntArg("duration", args[3])
			if err != nil {
				return err
			}
			slices, err := parseIntArg("slices", args[4])
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if !confirm(fmt.Sprintf("This will execute %d orders over %d minutes. Continue?", slices, minutes)) {
				fmt.Println("Strategy cancelled by user")
				return nil
			}

			ctx, cancel := signalContext()
			defer cancel()

			scheduler := trader.NewTWAPScheduler(a.client, a.audit, a.logger)
			result, err := scheduler.Execute(ctx, trader.TWAPParams{
				Symbol:        args[0],
				Side:          side,
				TotalQuantity: quantity,
				Duration:      time.Duration(minutes) * time.Minute,
				SliceCount:    slices,
			})
			if result != nil {
				printResult(result)
			}
			if _, partial := err.(*trader.PartialExecutionError); partial {
				// Partial success already shows in the summary.
				return nil
			}
			return err
		},
	}
}

func newGridCmd() *cobra.Command {
	var durationMinutes int
	var apiPort int

	cmd := &cobra.Command{
		Use:   "grid SYMBOL LOWER_PRICE UPPER_PRICE LEVELS QUANTITY_PER_LEVEL",
		Short: "Run a range-bound grid of BUY/SELL limit orders",
		Example: `  # BTC grid between 44000-46000 with 10 levels, 0.01 BTC per level
  binance-bot grid BTCUSDT 44000 46000 10 0.01
  binance-bot grid ETHUSDT 3000 3200 20 0.1 --duration 120 --api-port 8080`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			lower, err := parseFloatArg("lower price", args[1])
			if err != nil {
				return err
			}
			upper, err := parseFloatArg("upper price", args[2])
			if err != nil {
				return err
			}
			levels, err := parseIntArg("levels", args[3])
			if err != nil {
				return err
			}
			quantity, err := parseFloatArg("quantity", args[4])
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			bot, err := trader.NewGridBot(a.client, a.audit, a.logger, trader.GridParams{
				Symbol:           args[0],
				LowerPrice:       lower,
				UpperPrice:       upper,
				Levels:           levels,
				QuantityPerLevel: quantity,
				Duration:         time.Duration(durationMinutes) * time.Minute,
			}, trader.GridOptions{
				PollInterval:     time.Duration(a.cfg.Trading.GridPollSeconds) * time.Second,
				ReplaceOffsetPct: a.cfg.Trading.GridReplaceOffsetPct,
			})
			if err != nil {
				return err
			}

			total := float64(levels) * quantity
			if !confirm(fmt.Sprintf("This will commit up to %v %s across %d levels. Continue?", total, args[0], levels)) {
				fmt.Println("Grid strategy cancelled by user")
				return nil
			}

			if apiPort > 0 {
				server := api.NewServer(bot, a.logger, fmt.Sprintf("%d", apiPort))
				go func() {
					if err := server.Start(); err != nil {
						a.logger.WithError(err).Error("API server stopped")
					}
				}()
			}

			ctx, cancel := signalContext()
			defer cancel()

			fmt.Println("Grid trading running, press Ctrl+C to stop...")
			return bot.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&durationMinutes, "duration", 60, "how long to run the grid in minutes")
	cmd.Flags().IntVar(&apiPort, "api-port", 0, "serve live grid status on this port (0 disables)")
	return cmd
}

func printResult(r *trader.StrategyResult) {
	fmt.Printf("\nExecution summary\n")
	fmt.Printf("  Orders:            %d/%d succeeded\n", r.Succeeded, r.Attempted)
	fmt.Printf("  Executed quantity: %v\n", r.ExecutedQuantity)
	if r.NoFills {
		fmt.Printf("  Average price:     n/a (no fills)\n")
	} else {
		fmt.Printf("  Average price:     %.4f\n", r.VolumeWeightedAvg)
	}
	fmt.Printf("  Reference price:   %.4f -> %.4f (%+.3f%%)\n",
		r.ReferencePriceStart, r.ReferencePriceEnd, r.PriceImpactPct())
	if !r.NoFills {
		fmt.Printf("  Execution vs start: %+.3f%%\n", r.SlippagePct())
	}
}
