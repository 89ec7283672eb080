package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/typhfeng/pulse/internal/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start the interactive search console",
	Long: `Start an interactive console over the scan cache.

Type a query to search the mined TODO/FIXME pool, 'repos' to list
repositories by score, or 'help' for all commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		r, err := repl.New(&repl.Config{Cache: scanCache})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create console: %v\n", err)
			os.Exit(1)
		}
		if err := r.Run(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
