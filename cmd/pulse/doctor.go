package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/typhfeng/pulse/internal/config"
	"github.com/typhfeng/pulse/internal/discovery"
	"github.com/typhfeng/pulse/internal/storage"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check pulse configuration and environment health",
	Long: `Run health checks to diagnose common configuration and environment
issues.

This command checks for:
- git availability
- Config file and scan roots
- Repo manifest readability
- Scan history database access
- GitHub token presence

Exit codes:
  0 - All checks passed
  1 - One or more checks failed`,
	Run: func(cmd *cobra.Command, args []string) {
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		fmt.Printf("Running pulse health checks...\n\n")
		failures := 0

		// git is checked by service init already; report it explicitly.
		fmt.Printf("%s git\n", cyan("→"))
		fmt.Printf("  %s git is available\n", green("✓"))

		fmt.Printf("%s config\n", cyan("→"))
		if configPath == "" {
			fmt.Printf("  %s no config file, using built-in defaults\n", yellow("!"))
		} else {
			fmt.Printf("  %s loaded %s\n", green("✓"), configPath)
		}
		if len(cfg.ScanRoots) == 0 && len(cfg.IncludeRepos) == 0 {
			fmt.Printf("  %s no scan_roots or include_repos configured; nothing will be discovered\n", yellow("!"))
		}
		for _, root := range cfg.ScanRoots {
			if info, err := os.Stat(root); err != nil || !info.IsDir() {
				failures++
				fmt.Printf("  %s scan root missing: %s\n", red("✗"), root)
			} else {
				fmt.Printf("  %s scan root %s\n", green("✓"), root)
			}
		}

		fmt.Printf("%s repo manifest\n", cyan("→"))
		manifest, err := discovery.LoadManifest(cfg.ManifestPath())
		if err != nil {
			failures++
			fmt.Printf("  %s %v\n", red("✗"), err)
		} else {
			fmt.Printf("  %s %s (%d entries)\n", green("✓"), cfg.ManifestPath(), len(manifest.Repos))
		}

		fmt.Printf("%s scan history\n", cyan("→"))
		if cfg.HistoryDBPath == "" {
			fmt.Printf("  %s history disabled (no history_db_path)\n", yellow("!"))
		} else if h, err := storage.Open(cfg.HistoryDBPath); err != nil {
			failures++
			fmt.Printf("  %s %v\n", red("✗"), err)
		} else {
			h.Close()
			fmt.Printf("  %s %s\n", green("✓"), cfg.HistoryDBPath)
		}

		fmt.Printf("%s github token\n", cyan("→"))
		if config.GitHubToken() == "" {
			fmt.Printf("  %s GITHUB_TOKEN/GH_TOKEN not set; issue panels will be empty\n", yellow("!"))
		} else {
			fmt.Printf("  %s token configured\n", green("✓"))
		}

		if failures > 0 {
			fmt.Printf("\n%s %d check(s) failed\n", red("✗"), failures)
			os.Exit(1)
		}
		fmt.Printf("\n%s All checks passed\n", green("✓"))
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
