package main

import (
	"fmt"
	"os"

	"github.com/aretw0/tendril/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tendril",
	Short: "tendril is an agentic coding loop for your project directory",
	Long: `tendril sends your requests to a language model and runs the file tools it
asks for inside the project root, in agent mode or with your approval.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringP("config", "c", "", "Config file (default: tendril.yaml, tendril.yml or tendril.toml in the working directory)")
	f.String("root", "", "Project root the tools operate on")
	f.String("mode", "", "Execution mode: agent or approval")
	f.String("model", "", "Model name sent to the provider")
	f.String("transport", "", "Transport: sse, openai or anthropic")
	f.String("base-url", "", "Provider or SSE endpoint URL")
	f.String("store", "", "Session store: memory, file, redis or sqlite")
	f.Int("max-iterations", 0, "Iteration ceiling per run")
	f.String("log-level", "", "Log level: debug, info, warn or error")
}

// loadConfig layers defaults, the config file, TENDRIL_* variables and the
// flags that were set explicitly, then validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("root", &cfg.Root)
	str("mode", &cfg.Mode)
	str("model", &cfg.Model)
	str("transport", &cfg.Transport.Type)
	str("base-url", &cfg.Transport.BaseURL)
	str("store", &cfg.Store.Type)
	str("log-level", &cfg.LogLevel)
	if flags.Changed("max-iterations") {
		cfg.MaxIterations, _ = flags.GetInt("max-iterations")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
