package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/newthinker/cryptodash/internal/app"
	"github.com/newthinker/cryptodash/internal/chart"
	"github.com/newthinker/cryptodash/internal/config"
	"github.com/newthinker/cryptodash/internal/core"
	"github.com/newthinker/cryptodash/internal/live"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	liveTicks     int
	liveSnapshots bool
	livePolicy    string
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Stream live prices of the selected coins",
	Long: `Polls the prices of the selected coins every interval and prints the
percent change since the first tick and the USD price. Runs until interrupted
or, with --ticks, for that many accepted ticks.`,
	Args: cobra.NoArgs,
	RunE: runLive,
}

func init() {
	rootCmd.AddCommand(liveCmd)

	liveCmd.Flags().IntVarP(&liveTicks, "ticks", "n", 0, "stop after this many ticks (0 runs until interrupted)")
	liveCmd.Flags().BoolVar(&liveSnapshots, "snapshots", false, "archive chart PNGs of the session")
	liveCmd.Flags().StringVar(&livePolicy, "skip-policy", "", "override live.skip_policy (halt or drop)")
}

// tickCounter signals once the wrapped surface has seen n updates.
type tickCounter struct {
	live.Surface
	n    int
	seen int
	done chan struct{}
}

func (t *tickCounter) Update(series []live.Series) error {
	err := t.Surface.Update(series)
	t.seen++
	if t.n > 0 && t.seen == t.n {
		close(t.done)
	}
	return err
}

func runLive(cmd *cobra.Command, args []string) error {
	tweak := func(cfg *config.Config) {
		if liveSnapshots {
			cfg.Live.Snapshots = true
		}
		if livePolicy != "" {
			cfg.Live.SkipPolicy = livePolicy
		}
	}

	return withApp(cmd.Context(), tweak, func(a *app.App, log *zap.Logger) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		percent := &tickCounter{
			Surface: chart.NewTextSurface(live.KindPercent, out),
			n:       liveTicks,
			done:    make(chan struct{}),
		}
		price := chart.NewTextSurface(live.KindPrice, out)

		id := uuid.New().String()
		sess, err := a.NewLiveSession(ctx, id, percent, price, nil)
		if errors.Is(err, core.ErrNoSelection) {
			fmt.Fprintln(cmd.ErrOrStderr(), app.NoSelectionMessage)
			return err
		}
		if err != nil {
			return err
		}
		if err := sess.Start(ctx); err != nil {
			return err
		}

		select {
		case <-percent.done:
			sess.Stop()
		case <-sess.Done():
		case <-ctx.Done():
			sess.Stop()
		}
		<-sess.Done()

		if a.Archive() != nil {
			log.Info("chart snapshots archived", zap.String("session", id))
		}
		if err := sess.Err(); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), live.Message(err))
			return err
		}
		return nil
	})
}

