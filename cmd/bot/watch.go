package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Devanshi310/devanshi-binance-bot/pkg/binance"
	"github.com/Devanshi310/devanshi-binance-bot/pkg/trader"
)

// newWatchCmd streams live prices for a symbol over the venue websocket.
// Useful for sizing grid ranges and OCO exits before committing orders.
func newWatchCmd() *cobra.Command {
	var interval int

	cmd := &cobra.Command{
		Use:   "watch SYMBOL",
		Short: "Stream live prices for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := trader.ValidateSymbol(args[0])
			if err != nil {
				return err
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := signalContext()
			defer cancel()

			stream := binance.NewPriceStream(symbol, app.logger)
			if err := stream.Connect(ctx); err != nil {
				return err
			}
			defer stream.Close()

			fmt.Printf("Watching %s (Ctrl-C to stop)\n", symbol)

			ticker := time.NewTicker(time.Duration(interval) * time.Second)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					price, err := stream.GetLastPrice(ctx, symbol)
					if err != nil {
						// The stream may still be warming up or have gone
						// stale; the REST ticker covers the gap.
						price, err = app.client.GetLastPrice(ctx, symbol)
						if err != nil {
							app.logger.WithError(err).Warn("No price available")
							continue
						}
					}
					fmt.Printf("%s  %s  %v\n", time.Now().Format("15:04:05"), symbol, price)
				}
			}
		},
	}

	cmd.Flags().IntVar(&interval, "interval", 2, "seconds between price prints")
	return cmd
}
