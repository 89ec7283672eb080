package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/typhfeng/pulse/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web dashboard and JSON API",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(cfg, configPath, scanCache, inspector, discoverer, todoStore, ghClient)

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("pulse dashboard on %s\n", cyan("http://"+serveAddr))

		if err := srv.ListenAndServe(ctx, serveAddr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:5055", "listen address")
	rootCmd.AddCommand(serveCmd)
}
