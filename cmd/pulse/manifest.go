package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/typhfeng/pulse/internal/discovery"
)

var (
	manifestRoots    []string
	manifestDepth    int
	manifestExcludes []string
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Rebuild the repo manifest from repositories found on disk",
	Long: `manifest walks the scan roots, finds every git repository and rewrites
the repo manifest from what is actually on disk. Track assignments
already pinned in the manifest are preserved; new repositories are
classified by their path and name. Entries whose repository no longer
exists are dropped.`,
	Run: func(cmd *cobra.Command, args []string) {
		roots := manifestRoots
		if len(roots) == 0 {
			roots = cfg.ScanRoots
		}
		if len(roots) == 0 {
			fmt.Fprintln(os.Stderr, "Error: no scan roots configured and no --root given")
			os.Exit(1)
		}
		depth := manifestDepth
		if depth <= 0 {
			depth = cfg.MaxRepoDepth
		}

		manifestPath := cfg.ManifestPath()
		old, err := discovery.LoadManifest(manifestPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		var candidates []string
		for _, root := range roots {
			candidates = append(candidates, discovery.FindGitDirs(root, depth)...)
		}
		candidates = discovery.FilterCandidates(candidates, cfg.ExcludePaths)

		skip := make(map[string]bool, len(manifestExcludes))
		for _, name := range manifestExcludes {
			skip[name] = true
		}

		rebuilt := &discovery.Manifest{}
		if len(roots) == 1 {
			rebuilt.SearchRoot = roots[0]
		}
		for _, path := range candidates {
			name := filepath.Base(path)
			if skip[name] {
				continue
			}
			track := classifier.Classify(path, name, "")
			if entry := old.Entry(path); entry != nil && entry.Track.IsValid() {
				track = entry.Track
			}
			rebuilt.Upsert(path, track)
		}

		if err := rebuilt.Save(manifestPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("manifest: %s\n", manifestPath)
		fmt.Printf("repos: %d\n", len(rebuilt.Repos))
	},
}

func init() {
	manifestCmd.Flags().StringSliceVar(&manifestRoots, "root", nil, "search roots (defaults to configured scan roots)")
	manifestCmd.Flags().IntVar(&manifestDepth, "max-depth", 0, "walk depth below each root (defaults to max_repo_depth)")
	manifestCmd.Flags().StringSliceVar(&manifestExcludes, "exclude", nil, "repository names to leave out")
	rootCmd.AddCommand(manifestCmd)
}
