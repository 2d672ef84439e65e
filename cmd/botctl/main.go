// Command botctl is a small operator CLI over the botboard server API:
// inspect stats, positions, orders and performance, check prices, and
// submit manual fills.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"botboard/internal/httpapi"
	"botboard/pkg/botboard"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var serverURL string

	root := &cobra.Command{
		Use:           "botctl",
		Short:         "Operator CLI for the botboard server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "botboard server base URL")

	client := func() *botboard.Client { return botboard.NewClient(serverURL) }

	root.AddCommand(
		newStatsCmd(client),
		newPositionsCmd(client),
		newOrdersCmd(client),
		newPerformanceCmd(client),
		newPriceCmd(client),
		newOrderCmd(client),
	)
	return root
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newStatsCmd(client func() *botboard.Client) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "stats <bot>",
		Short: "Show a bot's statistics snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := client().GetStats(cmd.Context(), args[0], refresh)
			if err != nil {
				return err
			}
			return printJSON(cmd, snap)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute before returning")
	return cmd
}

func newPositionsCmd(client func() *botboard.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "positions <bot>",
		Short: "List a bot's open positions with lot books",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			positions, err := client().GetPositions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, positions)
		},
	}
}

func newOrdersCmd(client func() *botboard.Client) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "orders <bot>",
		Short: "List a bot's order log, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := client().GetOrders(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, orders)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "only the newest N orders (0 for all)")
	return cmd
}

func newPerformanceCmd(client func() *botboard.Client) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "performance <bot>",
		Short: "Show a bot's equity history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().GetPerformance(cmd.Context(), args[0], days)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "number of days (0 for server default)")
	return cmd
}

func newPriceCmd(client func() *botboard.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "price <symbol>",
		Short: "Show the latest known close for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().GetPrice(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func newOrderCmd(client func() *botboard.Client) *cobra.Command {
	var (
		side  string
		qty   float64
		price float64
	)
	cmd := &cobra.Command{
		Use:   "order <bot> <symbol>",
		Short: "Submit a manual fill for a bot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := client().SubmitOrder(cmd.Context(), args[0], httpapi.SubmitOrderRequest{
				Symbol:    args[1],
				Side:      side,
				Qty:       qty,
				FillPrice: price,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, order)
		},
	}
	cmd.Flags().StringVar(&side, "side", "buy", "buy or sell")
	cmd.Flags().Float64Var(&qty, "qty", 0, "quantity (required)")
	cmd.Flags().Float64Var(&price, "price", 0, "fill price (required)")
	cmd.MarkFlagRequired("qty")
	cmd.MarkFlagRequired("price")
	return cmd
}
