package directive

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	// PipeDelimiter separates the stages of a pipeline.
	PipeDelimiter = "|"

	opInput  = '<'
	opOutput = '>'
)

var (
	ErrMissingCommand = errors.New("missing command")
	ErrTooManyInputs  = errors.New("too many input files")
	ErrTooManyOutputs = errors.New("too many output files")
	ErrMissingInput   = errors.New("missing input file")
	ErrMissingOutput  = errors.New("missing output file")
)

// OutputMode controls how an output file is opened.
type OutputMode int

const (
	// NoOutput is used when the directive doesn't redirect its output.
	NoOutput OutputMode = iota
	// Truncate empties the file before writing (>).
	Truncate
	// Append extends the file (>>).
	Append
)

// String returns the operator that selects the mode.
func (m OutputMode) String() string {
	switch m {
	case Truncate:
		return ">"
	case Append:
		return ">>"
	default:
		return ""
	}
}

// Directive is one stage of a pipeline.
type Directive struct {
	// Command names the program or builtin to run, it's never empty.
	Command string
	// Args holds the arguments passed to Command in order.
	Args []string
	// Input is the file the stage reads from, empty if it reads from the
	// previous stage or the caller.
	Input string
	// Output is the file the stage writes to, empty if it writes to the next
	// stage or the caller.
	Output string
	// Mode is set if and only if Output is.
	Mode OutputMode
}

// Argv returns the command followed by its arguments.
func (d Directive) Argv() []string {
	return append([]string{d.Command}, d.Args...)
}

// String returns the canonical form of the directive, parsing it produces an
// equal directive.
func (d Directive) String() string {
	parts := d.Argv()
	if d.Input != "" {
		parts = append(parts, string(opInput), d.Input)
	}
	if d.Output != "" {
		parts = append(parts, d.Mode.String(), d.Output)
	}
	return strings.Join(parts, " ")
}

// Pipeline is an ordered sequence of directives, the output of each stage
// feeds the input of the next.
type Pipeline []Directive

func (p Pipeline) String() string {
	stages := make([]string, len(p))
	for i, d := range p {
		stages[i] = d.String()
	}
	return strings.Join(stages, " "+PipeDelimiter+" ")
}

// Commands returns the command name of every stage.
func (p Pipeline) Commands() []string {
	var out []string
	for _, d := range p {
		out = append(out, d.Command)
	}
	return out
}

// ParseLine splits a line into stages and parses each of them. A failure in
// any stage fails the whole line.
func ParseLine(line string) (Pipeline, error) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	segments := strings.Split(line, PipeDelimiter)
	out := make(Pipeline, 0, len(segments))
	for i, segment := range segments {
		d, err := Parse(segment)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i+1, err)
		}
		out = append(out, d)
	}

	return out, nil
}

// Parse converts a single pipeline segment into a Directive.
func Parse(segment string) (Directive, error) {
	p := &parser{}

	runes := []rune(strings.TrimSpace(segment))
	for i := 0; i < len(runes); i++ {
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		skip, err := p.step(runes[i], next)
		if err != nil {
			return Directive{}, err
		}
		if skip {
			i++
		}
	}

	return p.finish()
}

// mode is the part of the directive the pending token will be committed to.
type mode int

const (
	readingCommand mode = iota
	readingArgument
	readingInput
	readingOutput
)

// parser is the tokenizer state: the active mode, the token being read and
// the directive built so far.
type parser struct {
	mode       mode
	token      strings.Builder
	hasCommand bool
	outputMode OutputMode
	directive  Directive
}

// step advances the parser by one rune. next holds the rune after r (or 0 at
// the end of input) and skip reports whether step consumed it too.
func (p *parser) step(r, next rune) (skip bool, err error) {
	switch {
	case r == opInput:
		return false, p.redirect(readingInput)

	case r == opOutput:
		if err := p.redirect(readingOutput); err != nil {
			return false, err
		}
		if next == opOutput {
			p.outputMode = Append
			return true, nil
		}
		p.outputMode = Truncate
		return false, nil

	case unicode.IsSpace(r):
		return false, p.commit()

	default:
		p.token.WriteRune(r)
		return false, nil
	}
}

// redirect ends the current token and switches to a redirection mode.
func (p *parser) redirect(to mode) error {
	if err := p.commit(); err != nil {
		return err
	}
	if err := p.checkTarget(); err != nil {
		return err
	}
	p.mode = to
	return nil
}

// commit stores the pending token according to the active mode. Until a
// command exists every token becomes the command.
func (p *parser) commit() error {
	if p.token.Len() == 0 {
		return nil
	}
	tok := p.token.String()
	p.token.Reset()

	switch {
	case !p.hasCommand:
		p.directive.Command = tok
		p.hasCommand = true
		if p.mode == readingCommand {
			p.mode = readingArgument
		}

	case p.mode == readingInput:
		if p.directive.Input != "" {
			return ErrTooManyInputs
		}
		p.directive.Input = tok
		p.mode = readingArgument

	case p.mode == readingOutput:
		if p.directive.Output != "" {
			return ErrTooManyOutputs
		}
		p.directive.Output = tok
		p.directive.Mode = p.outputMode
		p.mode = readingArgument

	default:
		p.directive.Args = append(p.directive.Args, tok)
	}

	return nil
}

// checkTarget fails if a redirection operator following the command never
// received a path.
func (p *parser) checkTarget() error {
	if !p.hasCommand {
		return nil
	}

	switch p.mode {
	case readingInput:
		return ErrMissingInput
	case readingOutput:
		return ErrMissingOutput
	default:
		return nil
	}
}

func (p *parser) finish() (Directive, error) {
	if err := p.commit(); err != nil {
		return Directive{}, err
	}
	if !p.hasCommand {
		return Directive{}, ErrMissingCommand
	}
	if err := p.checkTarget(); err != nil {
		return Directive{}, err
	}

	return p.directive, nil
}
