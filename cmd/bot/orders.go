package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Devanshi310/devanshi-binance-bot/pkg/trader"
)

func newMarketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "market SYMBOL SIDE QUANTITY",
		Short: "Place a market order",
		Example: `  binance-bot market BTCUSDT BUY 0.01
  binance-bot market ETHUSDT SELL 0.1
  binance-bot market ADAUSDT BUY 100 --dry-run`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := trader.ValidateSide(args[1])
			if err != nil {
				return err
			}
			quantity, err := parseFloatArg("quantity", args[2])
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

			order, err := a.placer().PlaceMarket(ctx, args[0], side, quantity)
			if err != nil {
				return err
			}

			fmt.Printf("Market order placed: id=%s status=%s executed=%v avg=%v\n",
				order.OrderID, order.Status, order.ExecutedQty, order.AvgPrice)
			return nil
		},
	}
}

func newLimitCmd() *cobra.Command {
	var checkStatus bool

	cmd := &cobra.Command{
		Use:   "limit SYMBOL SIDE QUANTITY PRICE",
		Short: "Place a limit order",
		Example: `  binance-bot limit BTCUSDT BUY 0.01 45000
  binance-bot limit ETHUSDT SELL 0.1 3200 --check-status`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := trader.ValidateSide(args[1])
			if err != nil {
				return err
			}
			quantity, err := parseFloatArg("quantity", args[2])
			if err != nil {
				return err
			}
			price, err := parseFloatArg("price", args[3])
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

			placer := a.placer()
			order, err := placer.PlaceLimit(ctx, args[0], side, quantity, price)
			if err != nil {
				return err
			}

			fmt.Printf("Limit order placed: id=%s status=%s price=%v\n", order.OrderID, order.Status, order.Price)

			if checkStatus && !dryRun {
				fmt.Println("Monitoring order status...")
				interval := time.Duration(a.cfg.Trading.StatusPollSeconds) * time.Second
				final, err := placer.WatchOrder(ctx, order.Symbol, order.OrderID, interval, a.cfg.Trading.StatusPollMaxChecks)
				if err != nil {
					return err
				}
				fmt.Printf("Final order status: %s\n", final.Status)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkStatus, "check-status", false, "poll order status after placement")
	return cmd
}

func newStopLimitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop-limit SYMBOL SIDE QUANTITY STOP_PRICE LIMIT_PRICE",
		Short: "Place a stop-limit order",
		Example: `  binance-bot stop-limit BTCUSDT BUY 0.01 46000 46100
  binance-bot stop-limit BTCUSDT SELL 0.01 44000 43900`,
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
			stopPrice, err := parseFloatArg("stop price", args[3])
			if err != nil {
				return err
			}
			limitPrice, err := parseFloatArg("limit price", args[4])
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

			order, err := a.placer().PlaceStopLimit(ctx, args[0], side, quantity, stopPrice, limitPrice)
			if err != nil {
				return err
			}

			fmt.Printf("Stop-limit order placed: id=%s status=%s stop=%v limit=%v\n",
				order.OrderID, order.Status, order.StopPrice, order.Price)
			return nil
		},
	}
}
