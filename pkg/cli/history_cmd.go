package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := a.History.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "STARTED\tSCHEDULE\tSTATUS\tROWS\tOUTPUT")
			for _, r := range runs {
				detail := r.OutputPath
				if r.Error != "" {
					detail = r.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					r.StartedAt.Format("2006-01-02 15:04:05"),
					r.ScheduleName, r.Status, r.RowsExported, detail)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to show (0 for all)")
	return cmd
}
