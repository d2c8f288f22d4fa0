package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/pkg/fileops"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply <response-file>",
	Short: "Apply the file actions of a saved model response",
	Long: `Parses a model response saved to a file, either the answer text or a raw
SSE capture, and applies its file actions to the project root. Failed
actions are reported without undoing the ones before them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := cli.NewLogger(cfg.LogLevel, false)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		ws, err := fileops.New(cfg.Root, fileops.WithLogger(logger))
		if err != nil {
			return err
		}

		parsed, report, err := cli.ApplyResponse(ws, data)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		if parsed.Explanation != "" {
			fmt.Fprintln(out, parsed.Explanation)
		}
		for _, o := range report.Outcomes {
			mark := "✓"
			msg := o.Message
			if !o.OK {
				mark, msg = "✗", o.Error
			}
			fmt.Fprintf(out, "  %s %s %s: %s\n", mark, o.Action.Type, o.Action.Target(), msg)
		}
		fmt.Fprintln(out, report.Summary())
		if report.Failed > 0 {
			return fmt.Errorf("%d of %d actions failed", report.Failed, report.Failed+report.Succeeded)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().Bool("json", false, "Print the report as JSON")
}
