package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func (a *App) daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run schedules until interrupted",
		Long: `Signs in, keeps the session fresh, rebuilds every trigger from the
schedule store and then blocks. Each schedule fires on its cadence;
a failing run is logged and recorded without disturbing the others.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.Refresher.Start()
			defer a.Refresher.Stop()

			if err := a.Schedules.Replay(cmd.Context()); err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintln(cmd.OutOrStdout(), "schedules armed; waiting (Ctrl-C to exit)")
			<-sigCtx.Done()

			a.Logger.Info("shutting down")
			return nil
		},
	}
}
