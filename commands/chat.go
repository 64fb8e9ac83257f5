package commands

import (
	"bufio"
	"clementus360/agent-client/config"
	"clementus360/agent-client/types"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// RegisterChatCommands registers the chat and history commands
func RegisterChatCommands(root *cobra.Command, rt *Runtime) {
	root.AddCommand(newChatCmd(rt))
	root.AddCommand(newHistoryCmd(rt))
}

func newChatCmd(rt *Runtime) *cobra.Command {
	var sessionID string
	var fresh bool
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a message, or start an interactive chat when none is given",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := rt.App()

			if err := a.Start(ctx); err != nil {
				return fmt.Errorf("failed to load sessions: %w", err)
			}
			if err := rt.selectSession(sessionID); err != nil {
				return err
			}
			if fresh {
				if err := a.Sessions.Select(nil); err != nil {
					return err
				}
			}
			a.Loader.Wait()
			defer rt.rememberCurrent()

			out := cmd.OutOrStdout()
			if len(args) > 0 {
				return rt.send(ctx, out, strings.Join(args, " "))
			}
			return rt.repl(ctx, cmd.InOrStdin(), out)
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id to chat in")
	cmd.Flags().BoolVarP(&fresh, "new", "n", false, "start a new session with the first message")
	return cmd
}

// selectSession applies the command line choice or the remembered session after Start.
func (rt *Runtime) selectSession(sessionID string) error {
	a := rt.App()
	if sessionID != "" {
		if err := a.Sessions.SelectID(sessionID); err != nil {
			return fmt.Errorf("session %s: %w", sessionID, err)
		}
		return nil
	}
	if remembered := loadActiveSession(a.Config); remembered != "" {
		_ = a.Sessions.SelectID(remembered)
	}
	return nil
}

func (rt *Runtime) send(ctx context.Context, out io.Writer, text string) error {
	reply, err := rt.App().Send(ctx, text)
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}
	printMessage(out, *reply)
	return nil
}

func (rt *Runtime) repl(ctx context.Context, in io.Reader, out io.Writer) error {
	a := rt.App()
	printHeader(out, rt)
	for _, m := range a.History.Messages() {
		printMessage(out, m)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, styleUser.Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			if err := a.Sessions.Select(nil); err != nil {
				return err
			}
			fmt.Fprintln(out, styleDim.Render("Your next message starts a new session."))
			continue
		case "/help":
			fmt.Fprintln(out, styleDim.Render("/new  start a new session   /quit  leave"))
			continue
		}

		// failures are already shown by the notifier; keep the conversation going
		if err := rt.send(ctx, out, line); err != nil {
			config.Logger.Debug("Chat send failed:", err)
		}
	}
}

func printHeader(out io.Writer, rt *Runtime) {
	a := rt.App()
	title := "new session"
	if current := a.Sessions.Current(); current != nil {
		title = current.Title
	}
	fmt.Fprintf(out, "%s %s\n", styleTableHeader.Render("Chat:"), title)
	fmt.Fprintf(out, "%s %s\n", styleLabel.Render("Calendar:"), a.Calendar.State())
	fmt.Fprintln(out, styleDim.Render("Type /help for commands."))
}

func printMessage(out io.Writer, m types.Message) {
	label := styleUser.Render("you")
	if m.Role == types.RoleAssistant {
		label = styleAssistant.Render("assistant")
	}
	stamp := ""
	if !m.Timestamp.IsZero() {
		stamp = styleDim.Render(m.Timestamp.Local().Format("15:04"))
	}
	fmt.Fprintf(out, "%s %s\n%s\n\n", label, stamp, m.Content)
}

func newHistoryCmd(rt *Runtime) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the messages of the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.loadSessions(cmd.Context(), sessionID); err != nil {
				return err
			}

			a := rt.App()
			out := cmd.OutOrStdout()
			current := a.Sessions.Current()
			if current == nil {
				fmt.Fprintln(out, styleDim.Render("No sessions yet."))
				return nil
			}

			a.Loader.Wait()
			if err := a.Loader.Load(cmd.Context(), current.ID); err != nil {
				return err
			}
			messages := a.History.Messages()
			if messages == nil {
				messages = []types.Message{}
			}
			return rt.render(out, messages, func() {
				for _, m := range messages {
					printMessage(out, m)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id to show")
	return cmd
}
