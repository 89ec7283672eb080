package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/typhfeng/pulse/internal/todo"
)

var (
	todoCommit bool
	todoPush   bool
)

var todoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Manage a repository's TODO.md task list",
}

var todoListCmd = &cobra.Command{
	Use:   "list <path>",
	Short: "List the repository's tasks",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		entries, err := todoStore.List(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(entries) == 0 {
			fmt.Println("No tasks")
			return
		}
		green := color.New(color.FgGreen).SprintFunc()
		for _, e := range entries {
			box := "[ ]"
			if e.Done {
				box = green("[x]")
			}
			fmt.Printf("  %2d %s %s\n", e.Index, box, e.Text)
		}
	},
}

var todoAddCmd = &cobra.Command{
	Use:   "add <path> <text>",
	Short: "Append a task",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := todoStore.Append(cmd.Context(), args[0], args[1], commitOpts())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added task %d\n", result.Entry.Index)
		reportCommitOutcome(result)
	},
}

var todoDoneCmd = &cobra.Command{
	Use:   "done <path> <index>",
	Short: "Mark a task done",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		toggleTodo(cmd, args, true)
	},
}

var todoUndoneCmd = &cobra.Command{
	Use:   "undone <path> <index>",
	Short: "Reopen a task",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		toggleTodo(cmd, args, false)
	},
}

func toggleTodo(cmd *cobra.Command, args []string, done bool) {
	index, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: index must be an integer\n")
		os.Exit(1)
	}
	result, err := todoStore.Toggle(cmd.Context(), args[0], index, done, commitOpts())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	state := "reopened"
	if done {
		state = "done"
	}
	fmt.Printf("Task %d %s: %s\n", result.Entry.Index, state, result.Entry.Text)
	reportCommitOutcome(result)
}

func commitOpts() todo.CommitOptions {
	return todo.CommitOptions{Commit: todoCommit || todoPush, Push: todoPush}
}

func reportCommitOutcome(result *todo.MutationResult) {
	yellow := color.New(color.FgYellow).SprintFunc()
	if result.CommitError != "" {
		fmt.Printf("%s commit failed: %s\n", yellow("Warning:"), result.CommitError)
		return
	}
	if result.Commit != nil && result.Commit.PushError != "" {
		fmt.Printf("%s push failed: %s\n", yellow("Warning:"), result.Commit.PushError)
	}
}

func init() {
	todoCmd.PersistentFlags().BoolVar(&todoCommit, "commit", false, "commit the change")
	todoCmd.PersistentFlags().BoolVar(&todoPush, "push", false, "push after committing (implies --commit)")
	todoCmd.AddCommand(todoListCmd)
	todoCmd.AddCommand(todoAddCmd)
	todoCmd.AddCommand(todoDoneCmd)
	todoCmd.AddCommand(todoUndoneCmd)
	rootCmd.AddCommand(todoCmd)
}
