package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warren-dev/warren/internal/core"
	"github.com/warren-dev/warren/pkg/models"
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Comment on workspace notes",
}

var (
	commentAuthor     string
	commentAuthorType string
	commentType       string
	commentParent     string
	commentAnchor     string
)

var commentCreateCmd = &cobra.Command{
	Use:   "create <workspace-id> <note-id> <text>",
	Short: "Add a comment to a note",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		comment, err := CommentMgr.Create(ws.Path, core.CreateCommentOptions{
			NoteID:     args[1],
			Text:       args[2],
			AuthorName: commentAuthor,
			AuthorType: models.AuthorType(commentAuthorType),
			Type:       models.CommentType(commentType),
			ParentID:   commentParent,
			Anchor:     commentAnchor,
		})
		if err != nil {
			return fmt.Errorf("creating comment: %w", err)
		}
		fmt.Printf("Created comment %s (thread %s)\n", comment.ID, comment.ThreadID)
		return nil
	},
}

var commentListCmd = &cobra.Command{
	Use:   "list <workspace-id> <note-id>",
	Short: "List comments on a note",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		comments, err := CommentMgr.ListForNote(ws.Path, args[1])
		if err != nil {
			return fmt.Errorf("listing comments: %w", err)
		}
		if len(comments) == 0 {
			fmt.Println("No comments.")
			return nil
		}
		for _, c := range comments {
			anchor := ""
			if c.Anchor != "" {
				res, err := CommentMgr.ResolveAnchor(ws.Path, args[1], c.ID)
				if err == nil && res.Found {
					anchor = fmt.Sprintf(" @%d-%d", res.Start, res.End)
				} else {
					anchor = " @stale"
				}
			}
			fmt.Printf("%s [%s/%s]%s %s: %s\n",
				c.ID, c.Type, c.Status, anchor, c.AuthorName, c.Text)
		}
		return nil
	},
}

var commentThreadCmd = &cobra.Command{
	Use:   "thread <workspace-id> <note-id> <thread-id>",
	Short: "Print a comment thread oldest first",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		comments, err := CommentMgr.Thread(ws.Path, args[1], args[2])
		if err != nil {
			return fmt.Errorf("reading thread: %w", err)
		}
		for _, c := range comments {
			fmt.Printf("%s %s: %s\n", c.CreatedAt.Format("15:04:05"), c.AuthorName, c.Text)
		}
		return nil
	},
}

var commentResolveCmd = &cobra.Command{
	Use:   "resolve <workspace-id> <note-id> <comment-id>",
	Short: "Mark a comment resolved",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		if _, err := CommentMgr.SetStatus(ws.Path, args[1], args[2], models.CommentResolved); err != nil {
			return fmt.Errorf("resolving comment: %w", err)
		}
		fmt.Println("Resolved.")
		return nil
	},
}

func init() {
	commentCreateCmd.Flags().StringVar(&commentAuthor, "author", "user", "Author name")
	commentCreateCmd.Flags().StringVar(&commentAuthorType, "author-type", "user", "Author type (user, agent)")
	commentCreateCmd.Flags().StringVar(&commentType, "type", "comment", "Comment type")
	commentCreateCmd.Flags().StringVar(&commentParent, "parent", "", "Parent comment id for threading")
	commentCreateCmd.Flags().StringVar(&commentAnchor, "anchor", "", "Exact substring of the note to anchor to")

	commentCmd.AddCommand(commentCreateCmd)
	commentCmd.AddCommand(commentListCmd)
	commentCmd.AddCommand(commentThreadCmd)
	commentCmd.AddCommand(commentResolveCmd)
	rootCmd.AddCommand(commentCmd)
}
