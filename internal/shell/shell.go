// Package shell implements the interactive control surface: a line-oriented
// command loop built on spf13/cobra, one subcommand per verb. Each typed
// line is tokenized and dispatched through a fresh cobra.Command tree
// rather than parsed once at process startup.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deepdreamgames/pachka/internal/app"
	"github.com/deepdreamgames/pachka/internal/logging"
)

// Shell reads whitespace-separated command lines from In and dispatches
// them against App, writing output to Out.
type Shell struct {
	App *app.App
	In  io.Reader
	Out io.Writer

	quit bool
}

// Run drives the read-dispatch loop until a shutdown/quit/exit command is
// received or the input stream ends.
func (s *Shell) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.In)
	fmt.Fprintln(s.Out, "ready. type 'help' for a list of commands.")
	for !s.quit && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tokens := strings.Fields(line)
		tokens[0] = strings.ToLower(tokens[0])
		if err := s.dispatch(ctx, tokens); err != nil {
			fmt.Fprintln(s.Out, "error:", err)
		}
	}
	return scanner.Err()
}

// dispatch builds a fresh command tree bound to this line's context and
// executes it. Building the tree per line (rather than once) keeps command
// state free of leftover flag values from a previous invocation.
func (s *Shell) dispatch(ctx context.Context, tokens []string) error {
	root := s.newRootCommand(ctx)
	root.SetArgs(tokens)
	root.SetOut(s.Out)
	root.SetErr(s.Out)
	return root.Execute()
}

func (s *Shell) newRootCommand(ctx context.Context) *cobra.Command {
	root := &cobra.Command{
		Use:           "pachka",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		s.helpCommand(root),
		s.clearCommand(),
		s.startCommand(),
		s.stopCommand(),
		s.restartCommand(),
		s.listCommand(),
		s.scanCommand(ctx),
		s.verbosityCommand(),
		s.shutdownCommand("shutdown"),
		s.shutdownCommand("quit"),
		s.shutdownCommand("exit"),
	)
	return root
}

func (s *Shell) helpCommand(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "help",
		Short: "list available commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range root.Commands() {
				fmt.Fprintf(s.Out, "  %-10s %s\n", c.Name(), c.Short)
			}
			return nil
		},
	}
}

func (s *Shell) clearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "clear the screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(s.Out, "\033[H\033[2J")
			return nil
		},
	}
}

func (s *Shell) startCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "start listening on the configured endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.App.Start(); err != nil {
				return err
			}
			fmt.Fprintln(s.Out, "started")
			return nil
		},
	}
}

func (s *Shell) stopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "stop the running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.App.Stop(); err != nil {
				return err
			}
			fmt.Fprintln(s.Out, "stopped")
			return nil
		},
	}
}

func (s *Shell) restartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "restart the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.App.Restart(); err != nil {
				return err
			}
			fmt.Fprintln(s.Out, "restarted")
			return nil
		},
	}
}

func (s *Shell) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list packages in the current catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries := s.App.List()
			if len(summaries) == 0 {
				fmt.Fprintln(s.Out, "(no packages)")
				return nil
			}
			for _, p := range summaries {
				fmt.Fprintf(s.Out, "  %s@%s (%d versions)\n", p.Name, p.Latest, p.Versions)
			}
			return nil
		},
	}
}

func (s *Shell) scanCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "rescan the packages directory (server must be stopped)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := s.App.Scan(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.Out, "scanned %d candidates, ingested %d, failed %d\n",
				stats.Candidates, stats.Ingested, stats.Failed)
			return nil
		},
	}
}

func (s *Shell) verbosityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verbosity [level]",
		Short: "get or set the log verbosity level",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(s.Out, "verbosity levels: None Exception Error Warning Log Info Debug")
				return nil
			}
			level, err := logging.ParseLevel(args[0])
			if err != nil {
				return err
			}
			s.App.SetVerbosity(level)
			fmt.Fprintln(s.Out, "verbosity set to", level)
			return nil
		},
	}
}

func (s *Shell) shutdownCommand(name string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: "stop the server and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.App.Running() {
				if err := s.App.Stop(); err != nil {
					fmt.Fprintln(s.Out, "error stopping server:", err)
				}
			}
			s.quit = true
			return nil
		},
	}
}
