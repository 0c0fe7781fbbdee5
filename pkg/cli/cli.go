package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/slatedata/querykit/pkg/history"
	"github.com/slatedata/querykit/pkg/services"
)

// Refresher keeps session credentials fresh in the background while the
// daemon runs.
type Refresher interface {
	Start()
	Stop()
}

// App carries the wired services the commands run against.
type App struct {
	Metadata  services.MetadataService
	Queries   services.QueryService
	Schedules services.ScheduleService
	Runs      services.RunService
	Refresher Refresher
	History   *history.Store
	Logger    *zap.Logger
}

// New builds the root command tree.
func New(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "querykit",
		Short: "Build, save, schedule and export ad-hoc datasource queries",
		Long: `querykit talks to a Tableau server with a personal access token,
lets you save named query definitions, run them on demand or on a
schedule, and exports the results to CSV or XLSX.

Connection settings come from config.yaml or environment variables
(TABLEAU_SERVER_URL, TABLEAU_PAT_NAME, TABLEAU_PAT_SECRET).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		app.datasourcesCmd(),
		app.fieldsCmd(),
		app.runCmd(),
		app.queryCmd(),
		app.scheduleCmd(),
		app.historyCmd(),
		app.daemonCmd(),
	)
	return root
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	var answer string
	fmt.Fscanln(cmd.InOrStdin(), &answer)
	return answer == "y" || answer == "Y" || answer == "yes"
}
