package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/local/assistcore/internal/config"
	"github.com/local/assistcore/internal/logger"
)

var (
	cfg config.Config

	rootCmd = &cobra.Command{
		Use:           "app",
		Short:         "Chat assistant core: provider routing with a local fallback",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real environment variables win
			_ = godotenv.Load()
			cfg = config.FromEnv()
			return logger.Init(cfg.Logging, cfg.Axiom, logOutput(cmd))
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}
)

// logOutput keeps one-shot commands' stdout clean for their own output.
func logOutput(cmd *cobra.Command) *os.File {
	if cmd.Name() == serveCmd.Name() {
		return os.Stdout
	}
	return os.Stderr
}

func init() {
	rootCmd.AddCommand(serveCmd, askCmd, providersCmd, knowledgeCmd, userCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
