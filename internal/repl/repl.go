// Package repl is the interactive search console. It keeps one warm
// snapshot behind the scan cache and lets you query the mined issue
// pool without round-tripping through the web dashboard.
package repl

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/typhfeng/pulse/internal/cache"
	"github.com/typhfeng/pulse/internal/types"
)

const searchLimit = 50

// CommandHandler handles a specific console command.
type CommandHandler func(args []string) error

// Config holds the console's collaborators.
type Config struct {
	Cache *cache.Cache
}

// REPL is the interactive console.
type REPL struct {
	cache    *cache.Cache
	rl       *readline.Instance
	ctx      context.Context
	commands map[string]CommandHandler
}

// New creates a REPL.
func New(cfg *Config) (*REPL, error) {
	if cfg == nil || cfg.Cache == nil {
		return nil, fmt.Errorf("repl: cache is required")
	}
	r := &REPL{
		cache:    cfg.Cache,
		commands: make(map[string]CommandHandler),
	}
	r.registerCommands()
	return r, nil
}

// Run starts the console loop and blocks until exit.
func (r *REPL) Run(ctx context.Context) error {
	r.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("pulse> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	r.rl = rl

	r.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			} else if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.processInput(line); err != nil {
			if err == io.EOF {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error:"), err)
		}
	}
}

func (r *REPL) processInput(line string) error {
	parts := strings.Fields(line)
	command := parts[0]
	args := parts[1:]

	if handler, ok := r.commands[command]; ok {
		return handler(args)
	}
	// Anything that is not a command is a search query.
	return r.cmdSearch(parts)
}

func (r *REPL) registerCommands() {
	r.commands["help"] = r.cmdHelp
	r.commands["?"] = r.cmdHelp
	r.commands["search"] = r.cmdSearch
	r.commands["s"] = r.cmdSearch
	r.commands["repos"] = r.cmdRepos
	r.commands["track"] = r.cmdTrack
	r.commands["refresh"] = r.cmdRefresh
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit
	r.commands["q"] = r.cmdExit
}

func (r *REPL) printWelcome() {
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Println("pulse interactive console")
	fmt.Printf("%s\n\n", gray("type a query to search issue hits, 'help' for commands"))
}

func (r *REPL) snapshot(force bool) (*types.DashboardSnapshot, error) {
	return r.cache.GetOrCompute(r.ctx, force)
}

func (r *REPL) cmdHelp(args []string) error {
	fmt.Println(`Commands:
  <query>          search the mined issue pool
  search <query>   same, explicitly
  repos            list repositories by score
  track <name>     list one track (finance, engineering, soc_auto_design, family)
  refresh          force a rescan
  exit             leave the console`)
	return nil
}

func (r *REPL) cmdSearch(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: search <query>")
	}
	snap, err := r.snapshot(false)
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")
	hits := cache.Search(snap, query, searchLimit)
	if len(hits) == 0 {
		fmt.Printf("no hits for %q\n", query)
		return nil
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	for _, h := range hits {
		fmt.Printf("  %s %s %s\n    %s\n", cyan(h.Repo), h.Title, gray(h.Type), h.Content)
	}
	fmt.Printf("%d hits\n", len(hits))
	return nil
}

func (r *REPL) cmdRepos(args []string) error {
	snap, err := r.snapshot(false)
	if err != nil {
		return err
	}
	for _, repo := range snap.Repos {
		r.printRepo(repo)
	}
	return nil
}

func (r *REPL) cmdTrack(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: track <name>")
	}
	track := types.Track(args[0])
	if !track.IsValid() {
		return fmt.Errorf("invalid track %q", args[0])
	}
	snap, err := r.snapshot(false)
	if err != nil {
		return err
	}
	ts := snap.Tracks[track]
	if ts == nil || ts.Repos == 0 {
		fmt.Println("no repositories in this track")
		return nil
	}
	fmt.Printf("%s: %d repos, avg progress %.1f\n", track.Label(), ts.Repos, ts.AvgProgress)
	for _, repo := range snap.Repos {
		if repo.Track == track {
			r.printRepo(repo)
		}
	}
	return nil
}

func (r *REPL) printRepo(repo *types.RepoRecord) {
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Printf("  %-28s %3d %-13s %s\n", repo.Name, repo.Progress.Score,
		repo.Progress.Stage, gray(fmt.Sprintf("%d commits/30d", repo.Git.Commits.Last30d)))
}

func (r *REPL) cmdRefresh(args []string) error {
	snap, err := r.snapshot(true)
	if err != nil {
		return err
	}
	fmt.Printf("rescanned %d repositories\n", snap.Summary.TotalRepos)
	return nil
}

func (r *REPL) cmdExit(args []string) error {
	fmt.Println("Goodbye!")
	return io.EOF
}
