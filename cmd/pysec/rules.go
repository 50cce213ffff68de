package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/FanZDStar/oss-2025/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the built-in security rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := rules.DefaultRegistry()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSEVERITY\tNAME\tDESCRIPTION")
		for _, d := range registry.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				d.ID, d.DefaultSeverity, d.Name, d.Description)
		}
		return w.Flush()
	},
}
