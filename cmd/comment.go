package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/bugboard/internal/models"
	"github.com/joescharf/bugboard/internal/output"
	"github.com/joescharf/bugboard/internal/store"
)

var commentUser int

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Manage issue comments",
}

var commentAddCmd = &cobra.Command{
	Use:   "add <issue-id> <text>...",
	Short: "Add a comment to an issue",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commentAddRun(args[0], strings.Join(args[1:], " "))
	},
}

var commentListCmd = &cobra.Command{
	Use:     "list <issue-id>",
	Aliases: []string{"ls"},
	Short:   "List comments on an issue, oldest first",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commentListRun(args[0])
	},
}

var commentEditCmd = &cobra.Command{
	Use:   "edit <comment-id> <text>...",
	Short: "Replace a comment's text",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commentEditRun(args[0], strings.Join(args[1:], " "))
	},
}

var commentDeleteCmd = &cobra.Command{
	Use:     "delete <comment-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a comment",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commentDeleteRun(args[0])
	},
}

func init() {
	commentAddCmd.Flags().IntVar(&commentUser, "user", 0, "ID of the commenting user")

	commentCmd.AddCommand(commentAddCmd)
	commentCmd.AddCommand(commentListCmd)
	commentCmd.AddCommand(commentEditCmd)
	commentCmd.AddCommand(commentDeleteCmd)
	rootCmd.AddCommand(commentCmd)
}

func commentAddRun(issueRefArg, text string) error {
	issueID, err := parseID(issueRefArg)
	if err != nil {
		return err
	}
	c := &models.Comment{IssueID: issueID, Content: strings.TrimSpace(text)}
	if commentUser > 0 {
		c.CreatedBy = &commentUser
	}
	if err := models.ValidateComment(c); err != nil {
		return reportInvalid(err)
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if _, err := s.GetIssue(ctx, issueID); err != nil {
		return fmt.Errorf("get issue: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would comment on issue #%d", issueID)
		return nil
	}

	created, err := s.CreateComment(ctx, c)
	if err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	ui.Success("Added comment %d to issue %s", created.ID, issueRef(issueID))
	return nil
}

func commentListRun(issueRefArg string) error {
	issueID, err := parseID(issueRefArg)
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	comments, err := s.ListComments(context.Background(), issueID)
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	if len(comments) == 0 {
		ui.Info("No comments on issue %s.", issueRef(issueID))
		return nil
	}

	table := ui.Table([]string{"ID", "By", "When", "Comment"})
	for _, c := range comments {
		by := "-"
		if c.CreatedBy != nil {
			by = fmt.Sprintf("user %d", *c.CreatedBy)
		}
		_ = table.Append([]string{fmt.Sprintf("%d", c.ID), by, output.Ago(c.CreatedOn), c.Content})
	}
	_ = table.Render()
	return nil
}

func commentEditRun(ref, text string) error {
	id, err := parseID(ref)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if err := models.ValidateCommentContent(text); err != nil {
		return reportInvalid(err)
	}
	if dryRun {
		ui.DryRunMsg("Would edit comment %d", id)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	if _, err := s.UpdateComment(context.Background(), id, text); err != nil {
		return fmt.Errorf("edit comment: %w", err)
	}
	ui.Success("Updated comment %d", id)
	return nil
}

func commentDeleteRun(ref string) error {
	id, err := parseID(ref)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete comment %d", id)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ok, err := s.DeleteComment(context.Background(), id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if !ok {
		return fmt.Errorf("comment %d: %w", id, store.ErrNotFound)
	}
	ui.Success("Deleted comment %d", id)
	return nil
}
