package main

import (
	"fmt"
	"os"

	"github.com/aretw0/tendril/pkg/diff"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Print a unified diff of two files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, _ := cmd.Flags().GetInt("context")
		oldText, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		newText, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		a, b := diff.Split(string(oldText)), diff.Split(string(newText))
		hunks := diff.BuildHunks(a, b, diff.Compute(a, b), lines)
		if len(hunks) == 0 {
			return nil
		}
		added, removed := diff.Stats(hunks)
		fmt.Fprintf(out, "--- %s\n+++ %s\n", args[0], args[1])
		fmt.Fprint(out, diff.Format(hunks))
		if stat, _ := cmd.Flags().GetBool("stat"); stat {
			fmt.Fprintf(out, "%d insertions(+), %d deletions(-)\n", added, removed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().IntP("context", "U", 3, "Lines of context around each change")
	diffCmd.Flags().Bool("stat", false, "Print insertion and deletion counts")
}
