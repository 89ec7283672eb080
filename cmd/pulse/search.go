package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/typhfeng/pulse/internal/cache"
	"github.com/typhfeng/pulse/internal/types"
)

var searchMax int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search mined TODO/FIXME hits and commit alerts",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		snap, err := scanCache.GetOrCompute(cmd.Context(), false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: scan failed: %v\n", err)
			os.Exit(1)
		}

		query := strings.Join(args, " ")
		hits := cache.Search(snap, query, searchMax)
		printHits(hits, query)
	},
}

func printHits(hits []types.IssueHit, query string) {
	if len(hits) == 0 {
		fmt.Printf("No hits for %q\n", query)
		return
	}
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	for _, h := range hits {
		fmt.Printf("  %s %s %s\n    %s\n",
			cyan(h.Repo), h.Title, gray("("+h.Type+")"), h.Content)
	}
	fmt.Printf("\n%d hits\n", len(hits))
}

func init() {
	searchCmd.Flags().IntVar(&searchMax, "limit", 100, "maximum hits to print")
	rootCmd.AddCommand(searchCmd)
}
