package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/typhfeng/pulse/internal/types"
)

var addRepoTrack string

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Manage the tracked repository manifest",
}

var reposListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tracked repository",
	Run: func(cmd *cobra.Command, args []string) {
		repos, err := discoverer.Discover(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, r := range repos {
			remote := r.Remote
			if remote == "" {
				remote = "(no remote)"
			}
			fmt.Printf("  %-28s %-15s %s\n", r.Name, r.Track, gray(remote))
		}
		fmt.Printf("\n%d repositories\n", len(repos))
	},
}

var reposAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Pin a repository into the manifest",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		track := types.Track(addRepoTrack)
		if addRepoTrack != "" && !track.IsValid() {
			fmt.Fprintf(os.Stderr, "Error: invalid track %q\n", addRepoTrack)
			os.Exit(1)
		}
		if err := discoverer.AddRepo(args[0], track); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s %s\n", green("Added"), args[0])
	},
}

var reposRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Drop a repository from the manifest",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		removed, err := discoverer.RemoveRepo(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !removed {
			fmt.Printf("%s was not in the manifest\n", args[0])
			return
		}
		fmt.Printf("Removed %s\n", args[0])
	},
}

func init() {
	reposAddCmd.Flags().StringVar(&addRepoTrack, "track", "", "track to pin (finance, engineering, soc_auto_design, family)")
	reposCmd.AddCommand(reposListCmd)
	reposCmd.AddCommand(reposAddCmd)
	reposCmd.AddCommand(reposRemoveCmd)
	rootCmd.AddCommand(reposCmd)
}
