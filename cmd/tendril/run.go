package main

import (
	"os"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Start an interactive session",
	Long: `Opens a chat with the model on the project root. In approval mode every
mutating tool shows a diff preview and waits for y/N. Ctrl-C cancels the
current run; Ctrl-C at the prompt exits.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := cli.NewLogger(cfg.LogLevel, false)
		if err != nil {
			return err
		}
		rt, err := cli.NewRuntime(cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		sessionID, _ := cmd.Flags().GetString("session")
		jsonMode, _ := cmd.Flags().GetBool("json")
		thinking, _ := cmd.Flags().GetBool("thinking")
		once, _ := cmd.Flags().GetBool("once")
		noBanner, _ := cmd.Flags().GetBool("no-banner")

		opts := cli.ChatOptions{
			SessionID:    sessionID,
			JSON:         jsonMode,
			ShowThinking: thinking,
			Once:         once,
		}
		if len(args) > 0 {
			opts.Prompt = args[0]
		}
		if !jsonMode && tui.IsTerminal(os.Stdout) {
			opts.Renderer = tui.NewRenderer(tui.Width(os.Stdout))
			if !noBanner {
				tui.PrintBanner(os.Stdout, tendril.Version, string(rt.Mode()))
			}
		}
		return cli.Chat(cmd.Context(), rt, opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("session", "s", "", "Persist and resume the conversation under this id")
	runCmd.Flags().Bool("json", false, "Speak JSON lines on stdin/stdout")
	runCmd.Flags().Bool("thinking", false, "Print reasoning as it streams")
	runCmd.Flags().Bool("once", false, "Exit after the first run settles")
	runCmd.Flags().Bool("no-banner", false, "Do not print the banner")

	rootCmd.RunE = runCmd.RunE
	rootCmd.Args = runCmd.Args
}
