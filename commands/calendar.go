package commands

import (
	"clementus360/agent-client/calendar"
	"clementus360/agent-client/types"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// RegisterCalendarCommands registers the calendar integration and meetings commands
func RegisterCalendarCommands(root *cobra.Command, rt *Runtime) {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Google Calendar integration",
	}

	cmd.AddCommand(newCalendarStatusCmd(rt))
	cmd.AddCommand(newCalendarConnectCmd(rt))
	cmd.AddCommand(newCalendarDisconnectCmd(rt))

	root.AddCommand(cmd)
	root.AddCommand(newMeetingsCmd(rt))
}

func newCalendarStatusCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the calendar is connected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := rt.App().Calendar.CheckStatus(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			return rt.render(out, status, func() {
				printCalendarStatus(out, status)
			})
		},
	}
}

func printCalendarStatus(out io.Writer, status types.CalendarStatus) {
	if !status.Connected {
		fmt.Fprintln(out, styleDim.Render("Calendar is not connected. Run `agent-client calendar connect`."))
		return
	}

	fmt.Fprintln(out, styleActive.Render("Calendar connected"))
	if status.Provider != nil {
		fmt.Fprintln(out, styleLabel.Render("  provider:"), *status.Provider)
	}
	if status.ConnectedAt != nil {
		fmt.Fprintln(out, styleLabel.Render("  since:"), formatTime(status.ConnectedAt))
	}
	if len(status.Scopes) > 0 {
		fmt.Fprintln(out, styleLabel.Render("  scopes:"), strings.Join(status.Scopes, ", "))
	}
}

func newCalendarConnectCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Authorize calendar access and wait for it to complete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			coordinator := rt.App().Calendar
			if _, err := coordinator.CheckStatus(cmd.Context()); err != nil {
				return err
			}

			state, err := coordinator.Connect(cmd.Context())
			if errors.Is(err, calendar.ErrAlreadyConnecting) {
				return err
			}
			if err != nil {
				return fmt.Errorf("calendar connection: %w", err)
			}

			out := cmd.OutOrStdout()
			if state != types.Connected {
				fmt.Fprintln(out, styleDim.Render("Authorization was not completed in time. Run connect again to retry."))
				return nil
			}
			printCalendarStatus(out, coordinator.Status())
			return nil
		},
	}
}

func newCalendarDisconnectCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Remove the calendar integration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.App().Calendar.Disconnect(cmd.Context())
		},
	}
}

func newMeetingsCmd(rt *Runtime) *cobra.Command {
	var quick string
	var watch bool
	cmd := &cobra.Command{
		Use:   "meetings [query]",
		Short: "Show upcoming meetings for a time range such as \"next week\"",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if quick != "" {
				value, ok := quickQuery(quick)
				if !ok {
					return fmt.Errorf("unknown quick range %q", quick)
				}
				query = value
			}

			upcoming := rt.App().Upcoming
			out := cmd.OutOrStdout()

			if !watch {
				if query == "" {
					query = upcoming.LastQuery()
				}
				if _, err := upcoming.Query(cmd.Context(), query); err != nil {
					return err
				}
				fmt.Fprintln(out, upcoming.Text())
				return nil
			}

			upcoming.OnUpdate(func(string) {
				fmt.Fprintln(out, styleTableHeader.Render("Upcoming: "+upcoming.LastQuery()))
				fmt.Fprintln(out, upcoming.Text())
			})
			upcoming.Start(query, true)
			<-cmd.Context().Done()
			return nil
		},
	}

	labels := make([]string, 0, len(calendar.QuickQueries))
	for _, q := range calendar.QuickQueries {
		labels = append(labels, q.Value)
	}
	cmd.Flags().StringVarP(&quick, "quick", "q", "", "quick range: "+strings.Join(labels, ", "))
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep refreshing until interrupted")
	return cmd
}

func quickQuery(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, q := range calendar.QuickQueries {
		if name == q.Value || name == strings.ToLower(q.Label) || name == strings.ReplaceAll(q.Value, " ", "-") {
			return q.Value, true
		}
	}
	return "", false
}
