package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/typhfeng/pulse/internal/report"
)

var (
	reportDir      string
	reportBaseline int
	reportStdout   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a dated markdown baseline report",
	Long: `Run a fresh scan and render it as a markdown baseline. When scan
history is enabled the report is annotated with movement since the
newest scan older than the baseline window.`,
	Run: func(cmd *cobra.Command, args []string) {
		snap, err := scanCache.GetOrCompute(cmd.Context(), true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: scan failed: %v\n", err)
			os.Exit(1)
		}

		var opts report.Options
		if history != nil {
			cutoff := snap.GeneratedAt.AddDate(0, 0, -reportBaseline)
			baseline, err := history.Before(cmd.Context(), cutoff)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: reading history baseline: %v\n", err)
			} else if baseline != nil {
				scores, err := history.RepoScores(cmd.Context(), baseline.ID)
				if err != nil {
					fmt.Fprintf(os.Stderr, "warning: reading baseline scores: %v\n", err)
				}
				opts = report.Options{Baseline: baseline, BaselineScores: scores}
			}
		}

		if reportStdout {
			fmt.Print(report.Build(snap, opts))
			return
		}

		path, err := report.Write(reportDir, snap, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s %s\n", green("Wrote"), path)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportDir, "dir", "reports", "directory for report files")
	reportCmd.Flags().IntVar(&reportBaseline, "baseline-days", 7, "compare against the newest scan older than this many days")
	reportCmd.Flags().BoolVar(&reportStdout, "stdout", false, "print the report instead of writing a file")
	rootCmd.AddCommand(reportCmd)
}
