package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/typhfeng/pulse/internal/types"
)

var syncTrack string

var syncCmd = &cobra.Command{
	Use:   "sync [path]",
	Short: "Fast-forward pull tracked repositories",
	Long: `Run 'git pull --ff-only' across tracked repositories. With a path
argument only that repository is synced; --track limits the sweep to
one track. Repositories that cannot fast-forward are reported and
skipped, never merged.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		if len(args) == 1 {
			res, err := inspector.Sync(cmd.Context(), args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
				os.Exit(1)
			}
			fmt.Printf("%s %s (%.1fs)\n", green("Synced"), args[0], res.Duration.Seconds())
			return
		}

		track := types.Track(syncTrack)
		if syncTrack != "" && !track.IsValid() {
			fmt.Fprintf(os.Stderr, "Error: invalid track %q\n", syncTrack)
			os.Exit(1)
		}

		repos, err := discoverer.Discover(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		failures := 0
		for _, r := range repos {
			if syncTrack != "" && r.Track != track {
				continue
			}
			if _, err := inspector.Sync(cmd.Context(), r.Path); err != nil {
				failures++
				fmt.Printf("  %s %-28s %v\n", red("✗"), r.Name, err)
				continue
			}
			fmt.Printf("  %s %s\n", green("✓"), r.Name)
		}
		if failures > 0 {
			fmt.Printf("\n%d repositories could not fast-forward\n", failures)
			os.Exit(1)
		}
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncTrack, "track", "", "limit the sweep to one track")
	rootCmd.AddCommand(syncCmd)
}
