package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	githubNoForks bool
	cloneDest     string
	cloneDryRun   bool
)

var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Work with the configured GitHub account",
}

var githubReposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List the account's repositories, most recently pushed first",
	Run: func(cmd *cobra.Command, args []string) {
		repos, err := ghClient.ListOwnerRepos(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, r := range repos {
			if githubNoForks && r.Fork {
				continue
			}
			visibility := "public"
			if r.Private {
				visibility = "private"
			}
			fmt.Printf("  %-40s %-8s %s\n", r.FullName, visibility,
				gray(r.PushedAt.Format("2006-01-02")))
		}
	},
}

var githubCloneCmd = &cobra.Command{
	Use:   "clone",
	Short: "Clone account repositories that are missing locally",
	Long: `List the account's repositories and clone every one that does not
already exist under the destination directory. Existing checkouts are
left alone; use 'pulse sync' to update them.`,
	Run: func(cmd *cobra.Command, args []string) {
		dest := cloneDest
		if dest == "" {
			if len(cfg.ScanRoots) == 0 {
				fmt.Fprintln(os.Stderr, "Error: no --dest and no scan_roots configured")
				os.Exit(1)
			}
			dest = cfg.ScanRoots[0]
		}

		repos, err := ghClient.ListOwnerRepos(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		cloned, failed := 0, 0
		for _, r := range repos {
			if githubNoForks && r.Fork {
				continue
			}
			target := filepath.Join(dest, r.Name)
			if _, err := os.Stat(target); err == nil {
				fmt.Printf("  %s %s\n", gray("exists"), r.Name)
				continue
			}
			if cloneDryRun {
				fmt.Printf("  %s %s -> %s\n", green("would clone"), r.FullName, target)
				continue
			}
			clone := exec.CommandContext(cmd.Context(), "git", "clone", r.SSHURL, target)
			if out, err := clone.CombinedOutput(); err != nil {
				failed++
				fmt.Printf("  %s %s: %v\n%s", red("✗"), r.FullName, err, out)
				continue
			}
			cloned++
			fmt.Printf("  %s %s\n", green("✓"), r.FullName)
		}

		fmt.Printf("\n%d cloned, %d failed\n", cloned, failed)
		if failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	githubCmd.PersistentFlags().BoolVar(&githubNoForks, "no-forks", false, "skip forked repositories")
	githubCloneCmd.Flags().StringVar(&cloneDest, "dest", "", "clone destination (defaults to the first scan root)")
	githubCloneCmd.Flags().BoolVar(&cloneDryRun, "dry-run", false, "print what would be cloned")
	githubCmd.AddCommand(githubReposCmd)
	githubCmd.AddCommand(githubCloneCmd)
	rootCmd.AddCommand(githubCmd)
}
