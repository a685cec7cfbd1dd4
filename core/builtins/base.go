package builtins

import (
	"fmt"
	"io"

	"github.com/josephlewis42/pipesh/core/engine"
	getopt "github.com/pborman/getopt/v2"
)

// SimpleCommand parses a builtin's flags and prints its usage.
type SimpleCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag isn't
	// added.
	ShowHelp *bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (s *SimpleCommand) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// PrintHelp writes help for the command to the given writer.
func (s *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, s.Use)
	fmt.Fprintln(w, s.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	s.Flags().PrintOptions(w)
}

// Run parses argv, which starts with the command name, and calls the
// callback if parsing was successful and help wasn't requested.
func (s *SimpleCommand) Run(streams engine.Streams, argv []string, callback func() engine.Outcome) engine.Outcome {
	opts := s.Flags()

	// Add help flag if not overridden.
	if s.ShowHelp == nil {
		s.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	if err := opts.Getopt(argv, nil); err != nil {
		s.PrintHelp(streams.Stdout)
		return engine.Failure(fmt.Errorf("%s: %w", argv[0], err))
	}

	if *s.ShowHelp {
		s.PrintHelp(streams.Stdout)
		return engine.Success()
	}

	return callback()
}
