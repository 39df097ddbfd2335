package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/newthinker/cryptodash/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	catalogQuery   string
	catalogRefresh bool
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the coin market",
	Long:  `Prints the cached coin list, fetching it on first use. Selected coins are marked.`,
	RunE:  runCatalog,
}

var catalogInfoCmd = &cobra.Command{
	Use:   "info <coin-id>",
	Short: "Show USD, EUR and ILS prices of a coin",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogInfo,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogInfoCmd)

	catalogCmd.Flags().StringVarP(&catalogQuery, "query", "q", "", "filter by name or symbol")
	catalogCmd.Flags().BoolVar(&catalogRefresh, "refresh", false, "refetch the list instead of using the cache")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), nil, func(a *app.App, log *zap.Logger) error {
		ctx := cmd.Context()
		if catalogRefresh {
			coins, err := a.RefreshCatalog(ctx)
			if err != nil {
				return fmt.Errorf("refreshing catalog: %w", err)
			}
			log.Info("catalog refreshed", zap.Int("coins", len(coins)))
		}

		coins, err := a.Coins(ctx, catalogQuery)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		if len(coins) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No coins found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tID\tSYMBOL\tNAME\tPRICE\tSELECTED")
		for _, c := range coins {
			mark := ""
			if c.Selected {
				mark = "*"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t$%.2f\t%s\n",
				c.MarketCapRank, c.ID, c.Ticker(), c.Name, c.CurrentPrice, mark)
		}
		return w.Flush()
	})
}

func runCatalogInfo(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), nil, func(a *app.App, log *zap.Logger) error {
		return printInfo(cmd.Context(), cmd, a, args[0])
	})
}

func printInfo(ctx context.Context, cmd *cobra.Command, a *app.App, id string) error {
	c, err := a.Coin(ctx, id)
	if err != nil {
		return err
	}
	v, err := a.MoreInfo(ctx, id)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), v.Error)
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, c.Label())
	for _, row := range v.Rows {
		fmt.Fprintf(out, "  %s\n", row)
	}
	return nil
}
