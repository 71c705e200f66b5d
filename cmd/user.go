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

var (
	userName  string
	userFirst string
	userLast  string
	userEmail string
	userTags  string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return userAddRun()
	},
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return userListRun()
	},
}

var userUpdateCmd = &cobra.Command{
	Use:   "update <user-id>",
	Short: "Update a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userUpdateRun(cmd, args[0])
	},
}

var userDeleteCmd = &cobra.Command{
	Use:     "delete <user-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a user",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userDeleteRun(args[0])
	},
}

func init() {
	for _, c := range []*cobra.Command{userAddCmd, userUpdateCmd} {
		c.Flags().StringVar(&userName, "name", "", "Display name")
		c.Flags().StringVar(&userFirst, "first", "", "First name")
		c.Flags().StringVar(&userLast, "last", "", "Last name")
		c.Flags().StringVar(&userEmail, "email", "", "Email address")
		c.Flags().StringVar(&userTags, "tags", "", "Comma-separated tags")
	}

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userUpdateCmd)
	userCmd.AddCommand(userDeleteCmd)
	rootCmd.AddCommand(userCmd)
}

func userAddRun() error {
	u := &models.User{Name: userName, FirstName: userFirst, LastName: userLast, Email: userEmail, Tags: userTags}
	u.Normalize()
	if err := models.ValidateUser(u); err != nil {
		return reportInvalid(err)
	}
	if dryRun {
		ui.DryRunMsg("Would add user %s <%s>", u.Name, u.Email)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	created, err := s.CreateUser(context.Background(), u)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	ui.Success("Created user %d: %s", created.ID, created.Name)
	return nil
}

func userListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	users, err := s.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		ui.Info("No users yet. Add one with 'bugboard user add'.")
		return nil
	}

	table := ui.Table([]string{"ID", "Name", "Full Name", "Email", "Tags", "Created"})
	for _, u := range users {
		_ = table.Append([]string{
			fmt.Sprintf("%d", u.ID),
			u.Name,
			strings.TrimSpace(u.FirstName + " " + u.LastName),
			u.Email,
			output.Faint(strings.Join(u.TagList(), ", ")),
			output.Ago(u.CreatedOn),
		})
	}
	_ = table.Render()
	return nil
}

func userUpdateRun(cmd *cobra.Command, ref string) error {
	id, err := parseID(ref)
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	u, err := s.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	changed := false
	set := func(flag string, dst *string, v string) {
		if cmd.Flags().Changed(flag) {
			*dst = v
			changed = true
		}
	}
	set("name", &u.Name, userName)
	set("first", &u.FirstName, userFirst)
	set("last", &u.LastName, userLast)
	set("email", &u.Email, userEmail)
	set("tags", &u.Tags, userTags)
	if !changed {
		return fmt.Errorf("nothing to update: pass at least one of --name, --first, --last, --email, --tags")
	}

	u.Normalize()
	if err := models.ValidateUser(u); err != nil {
		return reportInvalid(err)
	}
	if dryRun {
		ui.DryRunMsg("Would update user %d", id)
		return nil
	}
	if _, err := s.UpdateUser(ctx, id, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	ui.Success("Updated user %d", id)
	return nil
}

func userDeleteRun(ref string) error {
	id, err := parseID(ref)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete user %d", id)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ok, err := s.DeleteUser(context.Background(), id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !ok {
		return fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	ui.Success("Deleted user %d", id)
	return nil
}
