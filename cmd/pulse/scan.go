package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/typhfeng/pulse/internal/types"
)

var (
	scanJSON  bool
	scanTrack string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan all tracked repositories and print the rollup",
	Run: func(cmd *cobra.Command, args []string) {
		snap, err := scanCache.GetOrCompute(cmd.Context(), true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: scan failed: %v\n", err)
			os.Exit(1)
		}

		if scanJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(snap); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		printSnapshot(snap, types.Track(scanTrack))
	},
}

func printSnapshot(snap *types.DashboardSnapshot, only types.Track) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== Project Pulse ==="))
	fmt.Printf("  %d repos, %d active (30d), %d commits (30d), %d dirty, %d issue hits\n\n",
		snap.Summary.TotalRepos, snap.Summary.ActiveRepos30d,
		snap.Summary.TotalCommits30d, snap.Summary.DirtyRepos,
		snap.Summary.TotalIssueHits)

	for _, track := range types.AllTracks() {
		if only != "" && track != only {
			continue
		}
		ts := snap.Tracks[track]
		if ts == nil || ts.Repos == 0 {
			continue
		}
		fmt.Printf("%s  %s\n", cyan(track.Label()),
			gray(fmt.Sprintf("(%d repos, avg %.1f)", ts.Repos, ts.AvgProgress)))
		for _, r := range snap.Repos {
			if r.Track != track {
				continue
			}
			printRepoLine(r)
		}
		fmt.Println()
	}
}

func printRepoLine(r *types.RepoRecord) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	stageColor := gray
	switch r.Progress.Stage {
	case types.StageAccelerating:
		stageColor = green
	case types.StageInProgress, types.StageMaintaining:
		stageColor = yellow
	case types.StageAtRisk, types.StageStalled:
		stageColor = red
	}

	dirty := ""
	if n := r.Git.Dirty.Total(); n > 0 {
		dirty = yellow(fmt.Sprintf(" ~%d dirty", n))
	}
	issues := ""
	if r.Issues.Total > 0 {
		issues = gray(fmt.Sprintf(" %d hits", r.Issues.Total))
	}

	fmt.Printf("  %-28s %3d  %-13s %3d commits/30d%s%s\n",
		r.Name, r.Progress.Score, stageColor(string(r.Progress.Stage)),
		r.Git.Commits.Last30d, dirty, issues)
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "emit the full snapshot as JSON")
	scanCmd.Flags().StringVar(&scanTrack, "track", "", "limit output to one track")
	rootCmd.AddCommand(scanCmd)
}
