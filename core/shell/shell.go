// Package shell runs the read, parse and execute loop.
package shell

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/josephlewis42/pipesh/core/builtins"
	"github.com/josephlewis42/pipesh/core/config"
	"github.com/josephlewis42/pipesh/core/directive"
	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/history"
	"github.com/josephlewis42/pipesh/core/logger"
)

// Option configures a Shell.
type Option func(*Shell)

// WithEventLog records every line the shell runs.
func WithEventLog(events *logger.SessionLogger) Option {
	return func(s *Shell) {
		s.events = events
	}
}

// WithLogger sets the application logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Shell) {
		s.logger = l
	}
}

// WithTerminal tells the shell whether it's attached to a terminal, which
// decides the "auto" color setting.
func WithTerminal(isTerminal bool) Option {
	return func(s *Shell) {
		s.isTerminal = isTerminal
	}
}

type Shell struct {
	streams    engine.Streams
	history    history.Store
	registry   *builtins.Registry
	events     *logger.SessionLogger
	logger     *slog.Logger
	isTerminal bool

	mu       sync.Mutex
	engine   *engine.Engine
	prompt   *template.Template
	colors   bool
	errColor *color.Color
	last     engine.Outcome
}

// New creates a shell that reads its settings from cfg and records submitted
// lines in hist.
func New(cfg *config.Configuration, hist history.Store, streams engine.Streams, opts ...Option) *Shell {
	s := &Shell{
		streams:  streams,
		history:  hist,
		registry: builtins.New(hist),
		events:   logger.Discard().NewSession(),
		logger:   slog.Default(),
		last:     engine.Success(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.Reconfigure(cfg)
	return s
}

// Reconfigure applies the prompt, color and stderr settings of cfg. It's safe
// to call while the shell is running.
func (s *Shell) Reconfigure(cfg *config.Configuration) {
	colors := cfg.Color == config.ColorAlways || (cfg.Color == config.ColorAuto && s.isTerminal)

	prompt, err := parsePrompt(cfg.Prompt, colors)
	if err != nil {
		s.logger.Warn("invalid prompt, using the default", "error", err)
	}

	errColor := color.New(color.FgRed)
	if colors {
		errColor.EnableColor()
	} else {
		errColor.DisableColor()
	}

	eng := engine.New(
		s.registry,
		s.streams,
		engine.WithStderrPolicy(engine.StderrPolicy(cfg.StderrPolicy)),
		engine.WithLogger(s.logger),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = eng
	s.prompt = prompt
	s.colors = colors
	s.errColor = errColor
}

// Registry returns the builtins the shell intercepts.
func (s *Shell) Registry() *builtins.Registry {
	return s.registry
}

// Last returns the outcome of the most recent pipeline.
func (s *Shell) Last() engine.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Prompt renders the configured prompt.
func (s *Shell) Prompt() string {
	s.mu.Lock()
	tmpl := s.prompt
	last := s.last
	s.mu.Unlock()

	data := currentPromptData()
	data.Failed = !last.Succeeded
	data.ExitCode = last.ExitCode

	prompt, err := renderPrompt(tmpl, data)
	if err != nil {
		s.logger.Warn("couldn't render prompt", "error", err)
	}
	return prompt
}

// RunLine parses and executes a single line.
func (s *Shell) RunLine(line string) engine.Outcome {
	if strings.TrimSpace(line) == "" {
		return engine.Success()
	}

	if err := s.history.Append(line); err != nil {
		s.logger.Warn("couldn't save history", "error", err)
	}

	s.mu.Lock()
	eng := s.engine
	errColor := s.errColor
	s.mu.Unlock()

	pipeline, err := directive.ParseLine(line)
	if err != nil {
		fmt.Fprintln(s.streams.Stderr, errColor.Sprintf("pipesh: %v", err))
		s.record(&logger.ParseFailure{Line: line, Error: err.Error()})

		outcome := engine.Failure(err)
		s.setLast(outcome)
		return outcome
	}

	_, isBuiltin := s.registry.Lookup(pipeline[0].Command)

	start := time.Now()
	outcome := eng.Execute(pipeline)
	duration := time.Since(start)

	if outcome.Message != "" {
		fmt.Fprintln(s.streams.Stderr, errColor.Sprint(outcome.Message))
	}

	s.logger.Debug("ran pipeline", "pipeline", pipeline.String(), "succeeded", outcome.Succeeded, "duration", duration)
	s.record(&logger.PipelineRun{
		Line:           line,
		Commands:       pipeline.Commands(),
		Builtin:        isBuiltin,
		Succeeded:      outcome.Succeeded,
		Message:        outcome.Message,
		ExitCode:       outcome.ExitCode,
		DurationMicros: duration.Microseconds(),
	})

	if outcome.Continue {
		s.setLast(outcome)
	}
	return outcome
}

func (s *Shell) setLast(outcome engine.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = outcome
}

func (s *Shell) record(event logger.LogType) {
	if err := s.events.Record(event); err != nil {
		s.logger.Warn("couldn't record event", "error", err)
	}
}

// ExitStatus converts the last outcome to a process exit status.
func (s *Shell) ExitStatus() int {
	if s.Last().Succeeded {
		return 0
	}
	return 1
}

// RunInteractive reads lines until the input is closed or a builtin ends the
// session. It returns the exit status of the session.
func (s *Shell) RunInteractive() int {
	s.record(&logger.SessionStart{Interactive: true, Dir: currentPromptData().Dir})

	cfg := &readline.Config{
		Stdin:  readline.NewCancelableStdin(s.streams.Stdin),
		Stdout: s.streams.Stdout,
		Stderr: s.streams.Stderr,
		FuncIsTerminal: func() bool {
			return s.isTerminal
		},
	}

	if err := cfg.Init(); err != nil {
		fmt.Fprintf(s.streams.Stderr, "pipesh: %v\n", err)
		return 1
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		fmt.Fprintf(s.streams.Stderr, "pipesh: %v\n", err)
		return 1
	}
	defer rl.Close()

	s.registry.OnHistoryClear(rl.Operation.ResetHistory)
	defer s.registry.OnHistoryClear(nil)

	for _, line := range s.history.Lines() {
		rl.SaveHistory(line)
	}

	for {
		rl.SetPrompt(s.Prompt())
		line, err := rl.Readline()

		switch {
		case errors.Is(err, io.EOF):
			// Input closed, quit.
			return s.ExitStatus()

		case errors.Is(err, readline.ErrInterrupt):
			// Interrupt clears line.
			continue

		case err != nil:
			s.logger.Error("readline failed", "error", err)
			return 1
		}

		if outcome := s.RunLine(line); !outcome.Continue {
			return s.ExitStatus()
		}
	}
}
