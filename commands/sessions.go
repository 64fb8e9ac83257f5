package commands

import (
	"clementus360/agent-client/sessions"
	"clementus360/agent-client/types"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// RegisterSessionCommands registers all session-related commands
func RegisterSessionCommands(root *cobra.Command, rt *Runtime) {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Session management commands",
	}

	cmd.AddCommand(newSessionListCmd(rt))
	cmd.AddCommand(newSessionCreateCmd(rt))
	cmd.AddCommand(newSessionRenameCmd(rt))
	cmd.AddCommand(newSessionDeleteCmd(rt))
	cmd.AddCommand(newSessionSelectCmd(rt))

	root.AddCommand(cmd)
}

// loadSessions fetches the list and restores the current session: the id given on
// the command line, else the one remembered from the last run.
func (rt *Runtime) loadSessions(ctx context.Context, sessionID string) error {
	a := rt.App()
	if err := a.Sessions.Load(ctx); err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	if sessionID != "" {
		if err := a.Sessions.SelectID(sessionID); err != nil {
			return fmt.Errorf("session %s: %w", sessionID, err)
		}
		return nil
	}

	if remembered := loadActiveSession(a.Config); remembered != "" {
		if err := a.Sessions.SelectID(remembered); errors.Is(err, sessions.ErrSessionNotFound) {
			a.Notifier.Error("The last used session no longer exists", nil)
		}
	}
	return nil
}

func (rt *Runtime) rememberCurrent() {
	a := rt.App()
	var id string
	if current := a.Sessions.Current(); current != nil {
		id = current.ID
	}
	if err := saveActiveSession(a.Config, id); err != nil {
		a.Notifier.Error("Failed to remember the current session", err)
	}
}

func newSessionListCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.loadSessions(cmd.Context(), ""); err != nil {
				return err
			}

			a := rt.App()
			list := a.Sessions.Sessions()
			if list == nil {
				list = []types.Session{}
			}
			var activeID string
			if current := a.Sessions.Current(); current != nil {
				activeID = current.ID
			}

			out := cmd.OutOrStdout()
			return rt.render(out, list, func() {
				if len(list) == 0 {
					fmt.Fprintln(out, styleDim.Render("No sessions yet. Send a message to start one."))
					return
				}
				fmt.Fprintln(out, sessionsTable(list, activeID))
			})
		},
	}
}

func sessionsTable(list []types.Session, activeID string) string {
	t := table.New().
		Headers("", "SESSION ID", "TITLE", "MESSAGES", "LAST MESSAGE").
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(true).
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleTableHeader
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})

	for _, s := range list {
		marker := " "
		id := s.ID
		if s.ID == activeID {
			marker = styleActive.Render("*")
			id = styleActive.Render(id)
		}
		t.Row(marker, id, s.Title, strconv.Itoa(s.MessageCount), formatTime(s.LastMessageAt))
	}
	return t.Render()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func newSessionCreateCmd(rt *Runtime) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create [title]",
		Short: "Create a session and make it current",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var title string
			if len(args) == 1 {
				title = args[0]
			}

			a := rt.App()
			created := a.Sessions.Create(cmd.Context(), title, description)
			if created == nil {
				a.Notifier.Error("Failed to create session", nil)
				return errors.New("session was not created")
			}
			rt.rememberCurrent()

			out := cmd.OutOrStdout()
			return rt.render(out, created, func() {
				fmt.Fprintf(out, "Created %s %s\n", styleActive.Render(created.ID), created.Title)
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "session description")
	return cmd
}

func newSessionRenameCmd(rt *Runtime) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "rename <session-id> <title>",
		Short: "Change a session's title or description",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch types.SessionPatch
			if len(args) == 2 {
				patch.Title = types.StringPtr(args[1])
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if patch.Empty() {
				return errors.New("nothing to update: give a title or --description")
			}

			if err := rt.loadSessions(cmd.Context(), ""); err != nil {
				return err
			}

			a := rt.App()
			updated, err := a.Sessions.Update(cmd.Context(), args[0], patch)
			if err != nil {
				a.Notifier.Error("Failed to update session", err)
				return err
			}

			out := cmd.OutOrStdout()
			return rt.render(out, updated, func() {
				fmt.Fprintf(out, "Updated %s %s\n", styleActive.Render(updated.ID), updated.Title)
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	return cmd
}

func newSessionDeleteCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.loadSessions(cmd.Context(), ""); err != nil {
				return err
			}

			a := rt.App()
			if err := a.Sessions.Delete(cmd.Context(), args[0]); err != nil {
				a.Notifier.Error("Failed to delete session", err)
				return err
			}
			rt.rememberCurrent()
			a.Notifier.Success("Session deleted")
			return nil
		},
	}
}

func newSessionSelectCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "select <session-id>",
		Short: "Make a session current for chat and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.loadSessions(cmd.Context(), args[0]); err != nil {
				return err
			}
			rt.rememberCurrent()

			current := rt.App().Sessions.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "Current session: %s %s\n", styleActive.Render(current.ID), current.Title)
			return nil
		},
	}
}
