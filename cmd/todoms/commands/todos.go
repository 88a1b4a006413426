package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/benvon/todoms/internal/models"
	"github.com/benvon/todoms/internal/validation"
	"github.com/benvon/todoms/internal/view"
)

// NewListCmd creates the list command
func NewListCmd(opts *rootOptions) *cobra.Command {
	var search, sortKey string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List todos",
		Long:    "List todos, optionally filtered by a search term and ordered by a sort key such as dueDate_asc.\nThe default order comes from the default_sort setting.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if sortKey != "" {
				key, err := view.ParseSortKey(sortKey)
				if err != nil {
					return err
				}
				a.todos.SetSort(key)
			}
			a.todos.SetSearch(search)

			if err := a.loadTodos(cmd); err != nil {
				return err
			}

			snap := a.todos.Snapshot()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, view.IncompleteText(snap.Items))
			if len(snap.Visible) == 0 {
				fmt.Fprintln(out, snap.EmptyText())
				return nil
			}
			renderTodos(out, snap.Visible, time.Now())
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Only show todos whose title or description contains this text")
	cmd.Flags().StringVar(&sortKey, "sort", "", "Sort key, one of: "+sortKeyList())
	return cmd
}

// NewShowCmd creates the show command
func NewShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.loadTodos(cmd); err != nil {
				return err
			}
			id, err := a.resolveID(args[0])
			if err != nil {
				return err
			}

			resp := a.client.GetTodo(cmd.Context(), a.session.AccessToken(), id)
			if resp.Data == nil {
				return fmt.Errorf("failed to fetch todo: %s", resp.ErrorMessage())
			}
			renderTodo(cmd.OutOrStdout(), *resp.Data, time.Now())
			return nil
		},
	}
}

// NewAddCmd creates the add command
func NewAddCmd(opts *rootOptions) *cobra.Command {
	var description, due string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := validation.SanitizeText(args[0])
			if err := validation.ValidateTodoForm(title); err != nil {
				return err
			}
			var dueDate *time.Time
			if due != "" {
				var err error
				if dueDate, err = parseDue(due); err != nil {
					return err
				}
			}

			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireSession(); err != nil {
				return err
			}

			a.todos.Create(cmd.Context(), title, optionalText(description), dueDate)
			return a.report(cmd)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Longer description")
	cmd.Flags().StringVar(&due, "due", "", "Due date as YYYY-MM-DD or RFC 3339")
	return cmd
}

// NewEditCmd creates the edit command
func NewEditCmd(opts *rootOptions) *cobra.Command {
	var title, description, due string
	var clearDue bool

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title, description or due date of a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if clearDue && flags.Changed("due") {
				return errors.New("--due and --clear-due are mutually exclusive")
			}

			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.loadTodos(cmd); err != nil {
				return err
			}
			id, err := a.resolveID(args[0])
			if err != nil {
				return err
			}
			current, _ := a.todos.Find(id)

			req := models.UpdateRequestFrom(current)
			if flags.Changed("title") {
				req.Title = validation.SanitizeText(title)
				if err := validation.ValidateTodoForm(req.Title); err != nil {
					return err
				}
			}
			if flags.Changed("description") {
				req.Description = optionalText(description)
			}
			switch {
			case clearDue:
				req.DueDate = nil
			case flags.Changed("due"):
				if req.DueDate, err = parseDue(due); err != nil {
					return err
				}
			}

			a.todos.Update(cmd.Context(), id, req)
			return a.report(cmd)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description; empty clears it")
	cmd.Flags().StringVar(&due, "due", "", "New due date as YYYY-MM-DD or RFC 3339")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	return cmd
}

// NewDoneCmd creates the done command
func NewDoneCmd(opts *rootOptions) *cobra.Command {
	return newToggleCmd(opts, "done <id>", "Mark a todo as completed", true)
}

// NewReopenCmd creates the reopen command
func NewReopenCmd(opts *rootOptions) *cobra.Command {
	return newToggleCmd(opts, "reopen <id>", "Mark a todo as incomplete", false)
}

func newToggleCmd(opts *rootOptions, use, short string, completed bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.loadTodos(cmd); err != nil {
				return err
			}
			id, err := a.resolveID(args[0])
			if err != nil {
				return err
			}

			a.todos.ToggleComplete(cmd.Context(), id, completed)
			return a.report(cmd)
		},
	}
}

// NewRmCmd creates the rm command
func NewRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.loadTodos(cmd); err != nil {
				return err
			}
			id, err := a.resolveID(args[0])
			if err != nil {
				return err
			}

			a.todos.Delete(cmd.Context(), id)
			return a.report(cmd)
		},
	}
}

// optionalText maps an empty string to an absent field
func optionalText(s string) *string {
	s = validation.SanitizeText(s)
	if s == "" {
		return nil
	}
	return &s
}
