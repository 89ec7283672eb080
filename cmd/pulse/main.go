// Command pulse is a personal project-track dashboard: it discovers
// git repositories, scores their momentum, mines TODO/FIXME debt and
// serves the rollup as a CLI, an HTTP API, or a markdown report.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/typhfeng/pulse/internal/cache"
	"github.com/typhfeng/pulse/internal/config"
	"github.com/typhfeng/pulse/internal/discovery"
	"github.com/typhfeng/pulse/internal/git"
	"github.com/typhfeng/pulse/internal/github"
	"github.com/typhfeng/pulse/internal/mining"
	"github.com/typhfeng/pulse/internal/progress"
	"github.com/typhfeng/pulse/internal/scan"
	"github.com/typhfeng/pulse/internal/storage"
	"github.com/typhfeng/pulse/internal/todo"
	"github.com/typhfeng/pulse/internal/types"
)

var (
	configPath string

	// Shared services, initialized once before any subcommand runs.
	cfg        *config.Config
	inspector  *git.Inspector
	classifier *discovery.Classifier
	discoverer *discovery.Discoverer
	scanner    *scan.Scanner
	scanCache  *cache.Cache
	todoStore  *todo.Store
	ghClient   *github.Client
	history    *storage.History
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Project track dashboard for your git repositories",
	Long: `pulse scans your git repositories, groups them into life tracks,
scores each one's momentum and surfaces the TODO/FIXME debt hiding in
the trees. Run 'pulse scan' for a one-shot view or 'pulse serve' for
the web dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initServices(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if history != nil {
			history.Close()
		}
	},
}

func initServices(ctx context.Context) error {
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}

	inspector, err = git.NewInspector(ctx)
	if err != nil {
		return err
	}

	cc, err := cfg.Classifier()
	if err != nil {
		return err
	}
	classifier = discovery.NewClassifier(cc, cfg.TrackOverrides)
	discoverer = discovery.New(cfg, classifier, inspector)

	miner := mining.NewMiner(mining.Limits{
		MaxFiles:    cfg.MaxFilesPerRepo,
		MaxFileSize: cfg.MaxFileSizeBytes,
		MaxHits:     cfg.MaxHitsPerRepo,
	})
	scorer := progress.NewScorer(progress.DefaultWeights())
	scanner = scan.New(cfg, discoverer, inspector, miner, scorer)

	if cfg.HistoryDBPath != "" {
		history, err = storage.Open(cfg.HistoryDBPath)
		if err != nil {
			return err
		}
	}

	scanCache = cache.New(computeSnapshot, cfg.CacheTTL())
	todoStore = todo.NewStore(inspector)
	ghClient = github.New(config.GitHubToken())
	return nil
}

// computeSnapshot runs a scan and, when history is enabled, records its
// rollups. Recording failures are reported but never fail the scan.
func computeSnapshot(ctx context.Context) (*types.DashboardSnapshot, error) {
	snap, err := scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	if history != nil {
		recordCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := history.RecordSnapshot(recordCtx, snap); err != nil {
			fmt.Fprintf(os.Stderr, "warning: recording scan history: %v\n", err)
		}
	}
	return snap, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to track_config.json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
