package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/newthinker/cryptodash/internal/app"
	"github.com/newthinker/cryptodash/internal/core"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Manage the coins tracked by the live report",
	Long:  `Up to five coins can be selected. When the selection is full, replace one coin with another.`,
}

var selectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List selected coins",
	Args:  cobra.NoArgs,
	RunE:  runSelectList,
}

var selectAddCmd = &cobra.Command{
	Use:   "add <coin-id>",
	Short: "Select a coin",
	Args:  cobra.ExactArgs(1),
	RunE:  runSelectAdd,
}

var selectRemoveCmd = &cobra.Command{
	Use:   "remove <coin-id>",
	Short: "Deselect a coin",
	Args:  cobra.ExactArgs(1),
	RunE:  runSelectRemove,
}

var selectReplaceCmd = &cobra.Command{
	Use:   "replace <remove-id> <add-id>",
	Short: "Swap a selected coin for another",
	Args:  cobra.ExactArgs(2),
	RunE:  runSelectReplace,
}

func init() {
	rootCmd.AddCommand(selectCmd)
	selectCmd.AddCommand(selectListCmd)
	selectCmd.AddCommand(selectAddCmd)
	selectCmd.AddCommand(selectRemoveCmd)
	selectCmd.AddCommand(selectReplaceCmd)
}

func runSelectList(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), nil, func(a *app.App, log *zap.Logger) error {
		coins, err := a.SelectedCoins(cmd.Context())
		if err != nil {
			return err
		}
		if len(coins) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No coins selected.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tSYMBOL\tNAME\t(%d/%d)\n", len(coins), core.MaxSelection)
		for _, c := range coins {
			fmt.Fprintf(w, "%s\t%s\t%s\t\n", c.ID, c.Ticker(), c.Name)
		}
		return w.Flush()
	})
}

func runSelectAdd(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), nil, func(a *app.App, log *zap.Logger) error {
		dialog, err := a.Select(cmd.Context(), args[0])
		if errors.Is(err, core.ErrSelectionLimitExceeded) && dialog != nil {
			out := cmd.ErrOrStderr()
			fmt.Fprintln(out, dialog.Message)
			for _, opt := range dialog.Options {
				fmt.Fprintf(out, "  cryptodash select replace %s %s    # %s\n", opt.ID, dialog.PendingID, opt.Label)
			}
			return err
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Selected %s.\n", args[0])
		return nil
	})
}

func runSelectRemove(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), nil, func(a *app.App, log *zap.Logger) error {
		if err := a.Deselect(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deselected %s.\n", args[0])
		return nil
	})
}

func runSelectReplace(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), nil, func(a *app.App, log *zap.Logger) error {
		if err := a.Replace(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Replaced %s with %s.\n", args[0], args[1])
		return nil
	})
}
