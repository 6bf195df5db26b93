package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vitalvas/yoke/mux"
)

func routesCmd() *cobra.Command {
	var ext string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the routes served by serve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tPATTERN\tNAME\tPARAMS")

			err := demoRouter(ext).Walk(func(route *mux.Route) error {
				name := route.GetName()
				if name == "" {
					name = "-"
				}
				params := strings.Join(route.ParamNames(), ",")
				if params == "" {
					params = "-"
				}
				_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", route.Method(), route.Pattern(), name, params)
				return err
			})
			if err != nil {
				return err
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&ext, "ext", "html", "View extension used by the index route")

	return cmd
}
