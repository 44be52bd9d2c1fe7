package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/warren-dev/warren/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Work with task notes and the dependency graph",
}

var taskConvertCmd = &cobra.Command{
	Use:   "convert <workspace-id> <note-id>",
	Short: "Convert inline task declarations into linked task notes",
	Long: `Scan a note for fenced task declarations. Each declaration becomes its
own task note; the original block is replaced with a checkbox line linking
to the new note.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		result, err := TaskGraph.ConvertInlineTasks(ws.Path, args[1])
		if err != nil {
			return fmt.Errorf("converting inline tasks: %w", err)
		}
		fmt.Printf("Converted %d task(s)\n", result.ConvertedCount)
		for _, id := range result.NewNoteIDs {
			fmt.Printf("  - %s\n", id)
		}
		return nil
	},
}

var (
	prereqContent string
	prereqStatus  string
)

var taskPrereqCmd = &cobra.Command{
	Use:   "prereq <workspace-id> <dependent-note-id> <title>",
	Short: "Create a prerequisite task note for a dependent note",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		prereq, err := TaskGraph.CreatePrerequisite(ws.Path, args[1], args[2],
			prereqContent, models.TaskStatus(prereqStatus))
		if err != nil {
			return fmt.Errorf("creating prerequisite: %w", err)
		}
		fmt.Printf("Created prerequisite %s (%s)\n", prereq.ID, prereq.Title)
		return nil
	},
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign <workspace-id> <note-id> <agent-id>",
	Short: "Assign an agent to a task note",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		if err := TaskGraph.AssignAgent(ws.Path, args[1], args[2]); err != nil {
			return fmt.Errorf("assigning agent: %w", err)
		}
		fmt.Printf("Assigned %s to note %s\n", args[2], args[1])
		return nil
	},
}

var delegateSpecialist string

var taskDelegateCmd = &cobra.Command{
	Use:   "delegate <workspace-id> <task-note-id>",
	Short: "Delegate a task note to a fresh agent",
	Long: `Spin up a new agent on the workspace's backend, send it the task note's
content as its first message, and record the agent on the note. The task is
promoted to in_progress on first delegation.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		agentID, err := TaskGraph.Delegate(ws, args[1], delegateSpecialist)
		if err != nil {
			return fmt.Errorf("delegating task: %w", err)
		}
		fmt.Printf("Delegated note %s to agent %s\n", args[1], agentID)
		return nil
	},
}

var (
	checkLine int
	checkText string
)

var taskCheckCmd = &cobra.Command{
	Use:   "check <workspace-id> <note-id> <status>",
	Short: "Flip a checkbox task line (todo, in_progress, done)",
	Long: `Update a checkbox-style task line embedded in note prose. Address the
line either by number (--line) or by a unique text match (--text). An
ambiguous text match is an error; the engine never guesses.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		status, err := parseTaskStatus(args[2])
		if err != nil {
			return err
		}
		switch {
		case checkLine > 0:
			err = TaskGraph.UpdateTask(ws.Path, args[1], checkLine, status, "")
		case checkText != "":
			err = TaskGraph.UpdateTaskStatus(ws.Path, args[1], checkText, status)
		default:
			return fmt.Errorf("one of --line or --text is required")
		}
		if err != nil {
			return fmt.Errorf("updating task line: %w", err)
		}
		fmt.Println("Updated.")
		return nil
	},
}

func parseTaskStatus(s string) (models.TaskStatus, error) {
	switch s {
	case "todo", string(models.TaskNotStarted):
		return models.TaskNotStarted, nil
	case string(models.TaskInProgress):
		return models.TaskInProgress, nil
	case string(models.TaskDone):
		return models.TaskDone, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return "", fmt.Errorf("status must be a name, got number %d", n)
	}
	return "", fmt.Errorf("unknown task status %q (want todo, in_progress, or done)", s)
}

func init() {
	taskPrereqCmd.Flags().StringVar(&prereqContent, "content", "", "Prerequisite note content")
	taskPrereqCmd.Flags().StringVar(&prereqStatus, "status", "", "Initial prerequisite status")
	taskDelegateCmd.Flags().StringVar(&delegateSpecialist, "specialist", "", "Specialist profile id")
	taskCheckCmd.Flags().IntVar(&checkLine, "line", 0, "1-based line number of the task line")
	taskCheckCmd.Flags().StringVar(&checkText, "text", "", "Unique text identifying the task line")

	taskCmd.AddCommand(taskConvertCmd)
	taskCmd.AddCommand(taskPrereqCmd)
	taskCmd.AddCommand(taskAssignCmd)
	taskCmd.AddCommand(taskDelegateCmd)
	taskCmd.AddCommand(taskCheckCmd)
	rootCmd.AddCommand(taskCmd)
}
