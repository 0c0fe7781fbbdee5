package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/slatedata/querykit/pkg/models"
)

func (a *App) queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Manage saved query definitions",
	}
	cmd.AddCommand(a.querySaveCmd(), a.queryListCmd(), a.queryDeleteCmd())
	return cmd
}

func (a *App) querySaveCmd() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "save <file.json>",
		Short: "Save a query definition from a JSON file",
		Long: `Reads a query definition from the given JSON file and saves it
under its name. Filters the file declares with an unsupported
filterType are dropped with a warning; the rest survive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var def models.QueryDefinition
			if err := json.Unmarshal(raw, &def); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}

			if err := a.Queries.Save(cmd.Context(), def, overwrite); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %q\n", def.Name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing query with the same name")
	return cmd
}

func (a *App) queryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := a.Queries.List(cmd.Context())
			if err != nil {
				return err
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "NAME\tDATASOURCE\tDIMS\tMEASURES\tFILTERS\tSAVED")
			for _, d := range defs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
					d.Name, d.DatasourceName,
					len(d.Dimensions), len(d.Measures), len(d.Filters),
					d.SavedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func (a *App) queryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Queries.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %q\n", args[0])
			return nil
		},
	}
}
