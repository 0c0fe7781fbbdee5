package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/slatedata/querykit/pkg/history"
	"github.com/slatedata/querykit/pkg/services"
)

func (a *App) runCmd() *cobra.Command {
	var (
		outDir  string
		pattern string
	)

	cmd := &cobra.Command{
		Use:   "run <saved-query>",
		Short: "Run a saved query in the foreground and export the result",
		Long: `Runs the named saved query and exports the rows. Ctrl-C cancels:
once cancelled, a response that arrives late is discarded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := a.Queries.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			type outcome struct {
				run history.Run
				err error
			}
			done := make(chan outcome, 1)

			ex := services.NewExecution(
				func(run history.Run) { done <- outcome{run: run} },
				func(err error) { done <- outcome{err: err} },
			)
			ex.Start(sigCtx, func(ctx context.Context) (history.Run, error) {
				return a.Runs.Run(ctx, *def, outDir, pattern)
			})

			select {
			case <-sigCtx.Done():
				ex.Cancel()
				fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
				return nil
			case out := <-done:
				if errors.Is(out.err, context.Canceled) {
					fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
					return nil
				}
				if out.err != nil {
					return out.err
				}
				switch out.run.Status {
				case history.StatusNoResults:
					fmt.Fprintln(cmd.OutOrStdout(), "query returned no rows; nothing exported")
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n",
						out.run.RowsExported, out.run.OutputPath)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&outDir, "out", ".", "Output directory")
	cmd.Flags().StringVar(&pattern, "pattern", "{name}_{date}.csv", "Output filename pattern ({name}, {date}, {time})")
	return cmd
}
