// Package builtins holds the commands the shell runs without spawning a
// process.
package builtins

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/josephlewis42/pipesh/core/directive"
	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/history"
)

// Registry holds the shell builtins. It implements engine.Registry.
type Registry struct {
	builtins map[string]engine.Builtin
	history  history.Store

	mu             sync.Mutex
	onHistoryClear func()
}

var _ engine.Registry = (*Registry)(nil)

// New creates the builtin registry, the history builtin reads and clears
// hist.
func New(hist history.Store) *Registry {
	r := &Registry{
		builtins: make(map[string]engine.Builtin),
		history:  hist,
	}

	r.builtins["cd"] = engine.BuiltinFunc(Cd)
	r.builtins["history"] = engine.BuiltinFunc(r.History)
	r.builtins["view"] = engine.BuiltinFunc(View)
	r.builtins["exit"] = engine.BuiltinFunc(Exit)
	r.builtins["help"] = engine.BuiltinFunc(r.Help)

	return r
}

// Lookup implements engine.Registry.
func (r *Registry) Lookup(name string) (engine.Builtin, bool) {
	b, ok := r.builtins[name]
	return b, ok
}

// OnHistoryClear sets a function called after `history -c` empties the
// store, nil removes it.
func (r *Registry) OnHistoryClear(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onHistoryClear = fn
}

// Names returns the sorted builtin names.
func (r *Registry) Names() []string {
	var names []string
	for k := range r.builtins {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Cd is the cd shell builtin, it changes the working directory of the shell
// and every command it starts afterwards.
func Cd(streams engine.Streams, p directive.Pipeline) engine.Outcome {
	cmd := &SimpleCommand{
		Use:   "cd [DIR]",
		Short: "Change the shell working directory, DIR defaults to your home directory.",
	}

	return cmd.Run(streams, p[0].Argv(), func() engine.Outcome {
		args := cmd.Flags().Args()

		var dir string
		switch len(args) {
		case 0:
			home, err := os.UserHomeDir()
			if err != nil {
				return engine.Failure(fmt.Errorf("cd: %w", err))
			}
			dir = home
		case 1:
			dir = args[0]
		default:
			return engine.Failure(errors.New("cd: too many arguments"))
		}

		if err := os.Chdir(dir); err != nil {
			return engine.Failure(fmt.Errorf("cd: %w", err))
		}

		// Keep PWD in sync for the commands that read it.
		if wd, err := os.Getwd(); err == nil {
			os.Setenv("PWD", wd)
		}
		return engine.Success()
	})
}

// History lists or clears the lines submitted to the shell.
func (r *Registry) History(streams engine.Streams, p directive.Pipeline) engine.Outcome {
	cmd := &SimpleCommand{
		Use:   "history [-c] [-n N]",
		Short: "Display or manipulate the history list.",
	}
	opts := cmd.Flags()
	clear := opts.Bool('c', "clear the history by deleting all entries")
	last := opts.Int('n', 0, "show only the last N entries", "N")

	return cmd.Run(streams, p[0].Argv(), func() engine.Outcome {
		if *clear {
			if err := r.history.Clear(); err != nil {
				return engine.Failure(fmt.Errorf("history: %w", err))
			}

			r.mu.Lock()
			hook := r.onHistoryClear
			r.mu.Unlock()
			if hook != nil {
				hook()
			}
			return engine.Success()
		}

		lines := r.history.Lines()
		first := r.history.Start()
		start := 0
		if *last > 0 && *last < len(lines) {
			start = len(lines) - *last
		}

		for i := start; i < len(lines); i++ {
			fmt.Fprintf(streams.Stdout, "% 5d  %s\n", first+i, lines[i])
		}
		return engine.Success()
	})
}

// View prints the stages that follow it, which is useful to see how a line
// is parsed.
func View(streams engine.Streams, p directive.Pipeline) engine.Outcome {
	cmd := &SimpleCommand{
		Use:   "view [ARG...] | STAGE...",
		Short: "Show how the stages after view were parsed without running them.",
	}

	return cmd.Run(streams, p[0].Argv(), func() engine.Outcome {
		w := streams.Stdout
		if len(p) < 2 {
			fmt.Fprintln(w, "no stages")
			return engine.Success()
		}

		for i, d := range p[1:] {
			fmt.Fprintf(w, "stage %d: %s\n", i+2, d)
			fmt.Fprintf(w, "  command:   %q\n", d.Command)
			fmt.Fprintf(w, "  arguments: [%s]\n", quoteAll(d.Args))
			if d.Input != "" {
				fmt.Fprintf(w, "  input:     %q\n", d.Input)
			}
			if d.Output != "" {
				fmt.Fprintf(w, "  output:    %q (%s)\n", d.Output, modeName(d.Mode))
			}
		}
		return engine.Success()
	})
}

func quoteAll(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = fmt.Sprintf("%q", arg)
	}
	return strings.Join(quoted, ", ")
}

func modeName(m directive.OutputMode) string {
	switch m {
	case directive.Append:
		return "append"
	case directive.Truncate:
		return "truncate"
	default:
		return "none"
	}
}

// Exit ends the session.
func Exit(streams engine.Streams, p directive.Pipeline) engine.Outcome {
	return engine.Terminate()
}

// Help lists the builtins.
func (r *Registry) Help(streams engine.Streams, p directive.Pipeline) engine.Outcome {
	w := streams.Stdout
	fmt.Fprintln(w, "pipesh, a pipe and redirect shell.")
	fmt.Fprintln(w, "These shell commands are defined internally.  Type `help' to see this list.")
	fmt.Fprintln(w, "Type `name --help' to find out more about the builtin `name'.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Builtins:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Join(r.Names(), "\n"))

	return engine.Success()
}
