package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/aretw0/tendril/pkg/tools"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tool catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tAPPROVAL\tDESCRIPTION")
		for _, spec := range tools.Default().Specs() {
			approval := "-"
			if spec.RequiresApproval {
				approval = "required"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", spec.Name, approval, spec.Description)
			if !verbose {
				continue
			}
			names := make([]string, 0, len(spec.Parameters))
			for name := range spec.Parameters {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				p := spec.Parameters[name]
				req := ""
				if p.Required {
					req = " (required)"
				}
				fmt.Fprintf(w, "\t\t  %s %s%s: %s\n", name, p.Type, req, p.Description)
			}
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().BoolP("verbose", "v", false, "Show parameters")
}
