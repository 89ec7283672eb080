package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/typhfeng/pulse/internal/git"
)

var (
	commitMessage string
	commitNoPush  bool
)

var commitCmd = &cobra.Command{
	Use:   "commit <path>",
	Short: "Stage everything in a repository and commit it",
	Long: `Stage all changes in the repository at <path>, commit them with the
given message and push to origin. A failed push leaves the commit in
place and is reported as a warning; use --no-push to skip it entirely.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if commitMessage == "" {
			fmt.Fprintln(os.Stderr, "Error: --message is required")
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		result, err := inspector.Commit(cmd.Context(), args[0], commitMessage, !commitNoPush)
		if errors.Is(err, git.ErrNothingToCommit) {
			fmt.Println("Nothing to commit, working tree clean")
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s %s\n", green("Committed"), result.ShortHash())
		if result.Pushed {
			fmt.Printf("%s origin\n", green("Pushed"))
		} else if result.PushError != "" {
			fmt.Printf("%s push failed: %s\n", yellow("Warning:"), result.PushError)
		}
	},
}

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "commit message")
	commitCmd.Flags().BoolVar(&commitNoPush, "no-push", false, "commit without pushing")
	rootCmd.AddCommand(commitCmd)
}
