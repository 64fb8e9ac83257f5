// Package commands is the terminal front end: a cobra command tree over app.App.
package commands

import (
	"clementus360/agent-client/app"
	"clementus360/agent-client/config"
	"clementus360/agent-client/notify"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Runtime carries the state shared by every command of one invocation.
type Runtime struct {
	ConfigPath string
	Verbose    bool
	Output     string

	// Options is passed to app.New; empty fields get terminal defaults.
	Options app.Options

	app *app.App
}

// Execute runs the command line and tears down whatever the command started.
func Execute(ctx context.Context) error {
	rt := &Runtime{}
	defer rt.Close()
	return newRootCommand(rt).ExecuteContext(ctx)
}

func newRootCommand(rt *Runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "agent-client",
		Short:         "Chat with the assistant, manage sessions and the calendar integration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&rt.ConfigPath, "config", "c", "", "path to config file")
	root.PersistentFlags().BoolVarP(&rt.Verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVarP(&rt.Output, "output", "o", OutputTable, "output format: table, json or yaml")

	RegisterAllCommands(root, rt)
	return root
}

// RegisterAllCommands registers every command group on root
func RegisterAllCommands(root *cobra.Command, rt *Runtime) {
	root.PersistentPreRunE = rt.setup

	RegisterSessionCommands(root, rt)
	RegisterChatCommands(root, rt)
	RegisterCalendarCommands(root, rt)
	RegisterAuthCommands(root, rt)
}

func (rt *Runtime) setup(cmd *cobra.Command, _ []string) error {
	switch rt.Output {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("unknown output format %q", rt.Output)
	}

	path := rt.ConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	config.SetLogLevel(cfg.LogLevel)
	if rt.Verbose {
		config.SetLogLevel("debug")
	}

	opts := rt.Options
	if opts.Notifier == nil {
		opts.Notifier = notify.NewTerminal(cmd.ErrOrStderr())
	}
	if opts.Opener == nil {
		opts.Opener = printOpener(cmd.OutOrStdout())
	}
	if opts.OnSignedOut == nil {
		errOut := cmd.ErrOrStderr()
		opts.OnSignedOut = func() {
			fmt.Fprintln(errOut, styleDim.Render("Run `agent-client signin` to sign in again."))
		}
	}

	rt.app, err = app.New(cfg, opts)
	if err != nil {
		return err
	}
	return nil
}

func (rt *Runtime) App() *app.App {
	return rt.app
}

func (rt *Runtime) Close() {
	if rt.app != nil {
		rt.app.Close()
		rt.app = nil
	}
}

// render writes v as JSON or YAML when asked to, otherwise calls table.
func (rt *Runtime) render(w io.Writer, v any, table func()) error {
	switch rt.Output {
	case OutputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(v)
	default:
		table()
		return nil
	}
}

func printOpener(w io.Writer) func(string) error {
	return func(authURL string) error {
		fmt.Fprintln(w, styleLabel.Render("Open this page to authorize Google Calendar:"))
		fmt.Fprintln(w, styleAccent.Render(authURL))
		return nil
	}
}

func activeSessionPath(cfg config.Config) string {
	dir := config.DefaultDataDir()
	if cfg.TokenFile != "" {
		dir = filepath.Dir(cfg.TokenFile)
	}
	return filepath.Join(dir, "active_session")
}

func loadActiveSession(cfg config.Config) string {
	data, err := os.ReadFile(activeSessionPath(cfg))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// saveActiveSession records id for the next invocation; an empty id forgets it.
func saveActiveSession(cfg config.Config, id string) error {
	path := activeSessionPath(cfg)
	if id == "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(id), 0o644)
}
