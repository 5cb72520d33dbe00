package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sendertally",
	Short: "sendertally ranks who sends you the most mail",
	Long: "sendertally lists the Gmail inbox messages in a date range, resolves each\n" +
		"message's sender and ranks the senders by message count.",
	SilenceUsage: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the active run,
// which then reports whatever it had resolved.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to YAML config file (or set "+configEnvVar+")")
	pf.String("env-file", defaultEnvFile, "Path to a .env file with SENDERTALLY_* overrides")
	pf.Bool("verbose", false, "Enable verbose logging")
	pf.String("log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(trashCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}
