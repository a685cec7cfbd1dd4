// Package engine runs pipelines of directives as chains of operating system
// processes.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/josephlewis42/pipesh/core/directive"
)

var (
	ErrEmptyPipeline     = errors.New("empty pipeline")
	ErrMidPipelineOutput = errors.New("output redirection is only allowed on the last command")
	ErrMidPipelineInput  = errors.New("input redirection is only allowed on the first command")
)

// Outcome is the result of running one pipeline.
type Outcome struct {
	// Continue is false only when the session should end.
	Continue bool
	// Succeeded is true if the pipeline completed cleanly.
	Succeeded bool
	// Message holds diagnostic text for the caller to display.
	Message string
	// ExitCode is the exit status of the last stage, -1 if no process was
	// waited on.
	ExitCode int
}

// Success is the outcome of a pipeline that completed cleanly.
func Success() Outcome {
	return Outcome{Continue: true, Succeeded: true, ExitCode: -1}
}

// Failure is the outcome of a pipeline that failed with err, the session
// continues.
func Failure(err error) Outcome {
	return Outcome{Continue: true, Succeeded: false, Message: err.Error(), ExitCode: -1}
}

// Terminate is the outcome that ends the session.
func Terminate() Outcome {
	return Outcome{Continue: false, Succeeded: true, ExitCode: -1}
}

// Streams are the caller visible standard streams.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// StdStreams returns the process's standard streams.
func StdStreams() Streams {
	return Streams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Builtin is a command handled by the engine itself rather than by spawning
// a process.
type Builtin interface {
	Main(streams Streams, pipeline directive.Pipeline) Outcome
}

// BuiltinFunc adapts a function into a Builtin.
type BuiltinFunc func(streams Streams, pipeline directive.Pipeline) Outcome

func (f BuiltinFunc) Main(streams Streams, pipeline directive.Pipeline) Outcome {
	return f(streams, pipeline)
}

var _ Builtin = (BuiltinFunc)(nil)

// Registry resolves command names to builtins.
type Registry interface {
	Lookup(name string) (Builtin, bool)
}

// StderrPolicy decides what output on a stage's standard error means.
type StderrPolicy string

const (
	// StderrStrict treats any standard error output as the pipeline's failure.
	StderrStrict StderrPolicy = "strict"
	// StderrStatus passes standard error through and judges success by exit
	// status only.
	StderrStatus StderrPolicy = "status"
)

// Option configures an Engine.
type Option func(*Engine)

// WithStderrPolicy sets how standard error output is interpreted.
func WithStderrPolicy(policy StderrPolicy) Option {
	return func(e *Engine) {
		e.stderrPolicy = policy
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithDir sets the working directory of spawned processes. By default they
// inherit the engine's process working directory.
func WithDir(dir string) Option {
	return func(e *Engine) {
		e.dir = dir
	}
}

// WithEnv sets the environment of spawned processes. By default they inherit
// the engine's process environment.
func WithEnv(env []string) Option {
	return func(e *Engine) {
		e.env = env
	}
}

// Engine executes pipelines.
type Engine struct {
	builtins     Registry
	streams      Streams
	stderrPolicy StderrPolicy
	logger       *slog.Logger
	dir          string
	env          []string
}

// New creates an engine that resolves builtins with registry and presents
// results on streams.
func New(registry Registry, streams Streams, opts ...Option) *Engine {
	e := &Engine{
		builtins:     registry,
		streams:      streams,
		stderrPolicy: StderrStrict,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Validate checks that redirections only appear at the edges of the
// pipeline.
func Validate(p directive.Pipeline) error {
	if len(p) == 0 {
		return ErrEmptyPipeline
	}

	last := len(p) - 1
	for i, d := range p {
		if i < last && d.Output != "" {
			return fmt.Errorf("stage %d (%s): %w", i+1, d.Command, ErrMidPipelineOutput)
		}
		if i > 0 && d.Input != "" {
			return fmt.Errorf("stage %d (%s): %w", i+1, d.Command, ErrMidPipelineInput)
		}
	}

	return nil
}

// Execute runs the pipeline and reports a single outcome. If the first
// command is a builtin, the builtin handles the whole pipeline.
func (e *Engine) Execute(p directive.Pipeline) Outcome {
	if len(p) > 0 && e.builtins != nil {
		if builtin, ok := e.builtins.Lookup(p[0].Command); ok {
			e.logger.Debug("running builtin", "command", p[0].Command)
			return builtin.Main(e.streams, p)
		}
	}

	if err := Validate(p); err != nil {
		return Failure(err)
	}

	return e.run(p)
}

func (e *Engine) run(p directive.Pipeline) Outcome {
	chain := &chain{}

	// The read end of the pipe from the previous stage.
	var upstream *os.File
	last := len(p) - 1

	for i, d := range p {
		cmd := exec.Command(d.Command, d.Args...)
		cmd.Dir = e.dir
		cmd.Env = e.env

		st := &stage{cmd: cmd, directive: d}
		cmd.Stderr = &st.stderr

		switch {
		case d.Input != "":
			fd, err := os.Open(d.Input)
			if err != nil {
				chain.abort(upstream)
				return Failure(fmt.Errorf("unable to open input file: %w", err))
			}
			st.closeAfterStart(fd)
			cmd.Stdin = fd
		case i > 0:
			cmd.Stdin = upstream
			st.closeAfterStart(upstream)
			upstream = nil
		default:
			cmd.Stdin = e.streams.Stdin
		}

		switch {
		case d.Output != "":
			fd, err := openOutput(d)
			if err != nil {
				st.closeAll()
				chain.abort(upstream)
				return Failure(fmt.Errorf("unable to open output file: %w", err))
			}
			st.closeAfterStart(fd)
			cmd.Stdout = fd
		case i < last:
			r, w, err := os.Pipe()
			if err != nil {
				st.closeAll()
				chain.abort(upstream)
				return Failure(err)
			}
			st.closeAfterStart(w)
			cmd.Stdout = w
			upstream = r
		default:
			cmd.Stdout = &st.stdout
		}

		e.logger.Debug("starting stage", "stage", i+1, "argv", cmd.Args)
		err := cmd.Start()
		// The child holds its own copies of the descriptors now.
		st.closeAll()
		if err != nil {
			chain.abort(upstream)
			return Failure(err)
		}

		chain.stages = append(chain.stages, st)
	}

	return e.finish(chain)
}

// finish waits for the terminal stage and then reaps the stages upstream of
// it before deciding the outcome.
func (e *Engine) finish(c *chain) Outcome {
	terminal := c.stages[len(c.stages)-1]
	waitErr := terminal.wait()
	for _, st := range c.stages[:len(c.stages)-1] {
		if err := st.wait(); err != nil {
			e.logger.Debug("upstream stage failed", "command", st.directive.Command, "error", err)
		}
	}

	exitCode := terminal.cmd.ProcessState.ExitCode()
	e.logger.Debug("pipeline finished", "exit_code", exitCode, "error", waitErr)

	var stderr strings.Builder
	for _, st := range c.stages {
		stderr.Write(st.stderr.Bytes())
	}

	outcome := Outcome{
		Continue:  true,
		Succeeded: waitErr == nil,
		ExitCode:  exitCode,
	}

	if stderr.Len() > 0 {
		switch e.stderrPolicy {
		case StderrStatus:
			io.WriteString(e.streams.Stderr, stderr.String())
		default:
			outcome.Succeeded = false
			outcome.Message = strings.TrimRight(stderr.String(), "\n")
			return outcome
		}
	}

	if _, err := e.streams.Stdout.Write(terminal.stdout.Bytes()); err != nil {
		outcome.Succeeded = false
		outcome.Message = err.Error()
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && outcome.Message == "" {
		// Not an exit status, so the stage's output was lost.
		outcome.Message = waitErr.Error()
	}

	return outcome
}

func openOutput(d directive.Directive) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if d.Mode == directive.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	return os.OpenFile(d.Output, flags, 0666)
}
