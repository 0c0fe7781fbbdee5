package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slatedata/querykit/pkg/models"
)

func (a *App) scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage scheduled runs of saved queries",
	}
	cmd.AddCommand(a.scheduleAddCmd(), a.scheduleListCmd(), a.scheduleRemoveCmd())
	return cmd
}

func (a *App) scheduleAddCmd() *cobra.Command {
	var (
		queryName  string
		freq       string
		dayOfWeek  int
		dayOfMonth int
		hour       int
		minute     int
		outDir     string
		pattern    string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create or update a schedule for a saved query",
		Long: `Snapshots the saved query into a schedule. Later edits to the
saved query do not affect the schedule; re-add it to pick them up.
Adding a schedule whose name already exists replaces it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := a.Queries.Get(cmd.Context(), queryName)
			if err != nil {
				return err
			}

			cadence := models.Cadence{Hour: hour, Minute: minute}
			switch strings.ToLower(freq) {
			case "daily":
				cadence.Frequency = models.FreqDaily
			case "weekly":
				cadence.Frequency = models.FreqWeekly
				cadence.DayOfWeek = &dayOfWeek
			case "monthly":
				cadence.Frequency = models.FreqMonthly
				cadence.DayOfMonth = &dayOfMonth
			default:
				return fmt.Errorf("unknown frequency %q (want daily, weekly or monthly)", freq)
			}

			sched := models.Schedule{
				Name:          args[0],
				Query:         *def,
				Cadence:       cadence,
				OutputDir:     outDir,
				OutputPattern: pattern,
			}
			if err := a.Schedules.Save(cmd.Context(), sched); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schedule %q armed: %s\n",
				sched.Name, sched.Cadence.Describe())
			return nil
		},
	}

	cmd.Flags().StringVar(&queryName, "query", "", "Saved query to run (required)")
	cmd.Flags().StringVar(&freq, "freq", "daily", "Frequency: daily, weekly or monthly")
	cmd.Flags().IntVar(&dayOfWeek, "day-of-week", 0, "Weekday for weekly schedules (0=Sunday)")
	cmd.Flags().IntVar(&dayOfMonth, "day-of-month", 1, "Day for monthly schedules (short months clamp)")
	cmd.Flags().IntVar(&hour, "hour", 6, "Hour of day (0-23)")
	cmd.Flags().IntVar(&minute, "minute", 0, "Minute (0-59)")
	cmd.Flags().StringVar(&outDir, "out", ".", "Output directory (must exist)")
	cmd.Flags().StringVar(&pattern, "pattern", "{name}_{date}.csv", "Output filename pattern")
	cmd.MarkFlagRequired("query")
	return cmd
}

func (a *App) scheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schedules, err := a.Schedules.List(cmd.Context())
			if err != nil {
				return err
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "NAME\tQUERY\tCADENCE\tOUTPUT")
			for _, s := range schedules {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					s.Name, s.Query.Name, s.Cadence.Describe(), s.OutputPattern)
			}
			return w.Flush()
		},
	}
}

func (a *App) scheduleRemoveCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd, fmt.Sprintf("remove schedule %q?", args[0])) {
				fmt.Fprintln(cmd.OutOrStdout(), "aborted")
				return nil
			}
			if err := a.Schedules.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %q\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	return cmd
}
