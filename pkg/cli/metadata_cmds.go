package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slatedata/querykit/pkg/models"
)

func (a *App) datasourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasources",
		Short: "List the datasources visible to this account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.Metadata.Datasources(cmd.Context())
			if err != nil {
				return err
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "NAME\tLUID")
			for _, ds := range list {
				fmt.Fprintf(w, "%s\t%s\n", ds.Name, ds.LUID)
			}
			return w.Flush()
		},
	}
}

func (a *App) fieldsCmd() *cobra.Command {
	var values string

	cmd := &cobra.Command{
		Use:   "fields <datasource-luid>",
		Short: "Show a datasource's dimensions and measures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if values != "" {
				return a.printFieldValues(cmd, args[0], values)
			}

			catalog, err := a.Metadata.Fields(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "FIELD\tKIND\tDATA TYPE")
			printRefs := func(refs []models.FieldRef) {
				for _, f := range refs {
					fmt.Fprintf(w, "%s\t%s\t%s\n", f.Name, f.Kind, f.DataType)
				}
			}
			printRefs(catalog.Dimensions)
			printRefs(catalog.Measures)
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&values, "values", "", "Probe the distinct values of the named dimension")
	return cmd
}

func (a *App) printFieldValues(cmd *cobra.Command, datasourceID, field string) error {
	vals, err := a.Metadata.FieldValues(cmd.Context(), datasourceID, field)
	if err != nil {
		return err
	}
	for _, v := range vals {
		fmt.Fprintln(cmd.OutOrStdout(), v)
	}
	return nil
}
