package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ai-godfather/rec-conv-transcriptor/pkg/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "transcriptor",
	Short: "Call recording transcription service",
	Long: `Call recording transcription service.

Watches a folder for finished call recordings, routes each file through
transcription and speaker attribution, classifies which speaker is the
agent and which is the customer, and stores a searchable transcript.

Stereo recordings are processed per channel; mono recordings go through
speaker diarization. Progress is streamed to clients over WebSocket.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd returns the root command (exported for testing).
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(loadConfig)
}

// loadConfig initializes configuration lazily; commands that need no config
// skip it.
func loadConfig() {
	cmd, _, _ := rootCmd.Find(os.Args[1:])
	if cmd != nil && (cmd.Name() == "version" || cmd.Name() == "help") {
		return
	}

	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}
