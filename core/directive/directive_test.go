package directive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParse(t *testing.T) {
	cases := map[string]struct {
		segment  string
		expected Directive
	}{
		"command only": {
			segment:  "ls",
			expected: Directive{Command: "ls"},
		},
		"arguments": {
			segment:  "cmd a b",
			expected: Directive{Command: "cmd", Args: []string{"a", "b"}},
		},
		"surrounding whitespace": {
			segment:  " \t cmd   a  b \n",
			expected: Directive{Command: "cmd", Args: []string{"a", "b"}},
		},
		"input": {
			segment:  "sort < in.txt",
			expected: Directive{Command: "sort", Input: "in.txt"},
		},
		"truncate": {
			segment:  "cmd > f",
			expected: Directive{Command: "cmd", Output: "f", Mode: Truncate},
		},
		"append": {
			segment:  "cmd >> f",
			expected: Directive{Command: "cmd", Output: "f", Mode: Append},
		},
		"no spaces around operators": {
			segment:  "sort<in.txt>>out.txt",
			expected: Directive{Command: "sort", Input: "in.txt", Output: "out.txt", Mode: Append},
		},
		"rune after single > starts the path": {
			segment:  "cmd >f",
			expected: Directive{Command: "cmd", Output: "f", Mode: Truncate},
		},
		"arguments after redirection": {
			segment:  "grep < in.txt foo bar",
			expected: Directive{Command: "grep", Args: []string{"foo", "bar"}, Input: "in.txt"},
		},
		"arguments on both sides": {
			segment:  "tr a > out.txt b",
			expected: Directive{Command: "tr", Args: []string{"a", "b"}, Output: "out.txt", Mode: Truncate},
		},
		"unicode": {
			segment:  "echo héllo 🍯",
			expected: Directive{Command: "echo", Args: []string{"héllo", "🍯"}},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			actual, err := Parse(tc.segment)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestParse_errors(t *testing.T) {
	cases := map[string]struct {
		segment  string
		expected error
	}{
		"empty":               {"", ErrMissingCommand},
		"whitespace":          {"   \t ", ErrMissingCommand},
		"operators only":      {"< >", ErrMissingCommand},
		"append only":         {">>", ErrMissingCommand},
		"two inputs":          {"cmd < a < b", ErrTooManyInputs},
		"two outputs":         {"cmd > a > b", ErrTooManyOutputs},
		"truncate and append": {"cmd > a >> b", ErrTooManyOutputs},
		"dangling input":      {"cmd <", ErrMissingInput},
		"dangling output":     {"cmd >", ErrMissingOutput},
		"output then input":   {"cmd >< f", ErrMissingOutput},
		"triple >":            {"cmd >>> f", ErrMissingOutput},
		"redirect no command": {"> out", ErrMissingOutput},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			_, err := Parse(tc.segment)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestParse_redirectionOrder(t *testing.T) {
	first, err := Parse("sort < in.txt > out.txt")
	require.NoError(t, err)

	second, err := Parse("sort > out.txt < in.txt")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, Directive{Command: "sort", Input: "in.txt", Output: "out.txt", Mode: Truncate}, first)
}

func TestParseLine(t *testing.T) {
	t.Run("pipeline", func(t *testing.T) {
		actual, err := ParseLine("cat names.txt | sort | uniq -c > counts.txt\n")
		require.NoError(t, err)

		assert.Equal(t, Pipeline{
			{Command: "cat", Args: []string{"names.txt"}},
			{Command: "sort"},
			{Command: "uniq", Args: []string{"-c"}, Output: "counts.txt", Mode: Truncate},
		}, actual)
		assert.Equal(t, []string{"cat", "sort", "uniq"}, actual.Commands())
	})

	t.Run("crlf", func(t *testing.T) {
		actual, err := ParseLine("echo hi\r\n")
		require.NoError(t, err)
		assert.Equal(t, Pipeline{{Command: "echo", Args: []string{"hi"}}}, actual)
	})

	t.Run("empty stage", func(t *testing.T) {
		_, err := ParseLine("echo hi | | cat")
		assert.ErrorIs(t, err, ErrMissingCommand)
		assert.EqualError(t, err, "stage 2: missing command")
	})

	t.Run("trailing pipe", func(t *testing.T) {
		_, err := ParseLine("echo hi |")
		assert.ErrorIs(t, err, ErrMissingCommand)
	})

	t.Run("bad stage aborts the line", func(t *testing.T) {
		actual, err := ParseLine("cat < a < b | sort")
		assert.Nil(t, actual)
		assert.True(t, errors.Is(err, ErrTooManyInputs))
	})
}

func TestString(t *testing.T) {
	cases := map[string]struct {
		directive Directive
		expected  string
	}{
		"plain":    {Directive{Command: "ls"}, "ls"},
		"args":     {Directive{Command: "ls", Args: []string{"-l", "/"}}, "ls -l /"},
		"input":    {Directive{Command: "sort", Input: "in"}, "sort < in"},
		"truncate": {Directive{Command: "sort", Output: "out", Mode: Truncate}, "sort > out"},
		"append":   {Directive{Command: "sort", Input: "in", Output: "out", Mode: Append}, "sort < in >> out"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.directive.String())
		})
	}

	pipeline := Pipeline{{Command: "echo", Args: []string{"hi"}}, {Command: "cat"}}
	assert.Equal(t, "echo hi | cat", pipeline.String())
}

var tokenGen = rapid.StringMatching(`[a-zA-Z0-9_./\-]{1,12}`)

func directiveGen() *rapid.Generator[Directive] {
	return rapid.Custom(func(t *rapid.T) Directive {
		d := Directive{Command: tokenGen.Draw(t, "command")}

		for i, n := 0, rapid.IntRange(0, 4).Draw(t, "args"); i < n; i++ {
			d.Args = append(d.Args, tokenGen.Draw(t, "arg"))
		}
		if rapid.Bool().Draw(t, "has_input") {
			d.Input = tokenGen.Draw(t, "input")
		}
		if rapid.Bool().Draw(t, "has_output") {
			d.Output = tokenGen.Draw(t, "output")
			d.Mode = rapid.SampledFrom([]OutputMode{Truncate, Append}).Draw(t, "mode")
		}
		return d
	})
}

// Re-parsing the canonical form of a directive yields the same directive.
func TestParse_canonicalRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		expected := directiveGen().Draw(t, "directive")

		actual, err := Parse(expected.String())
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	})
}

// Where the redirections appear relative to each other and to the arguments
// doesn't change the result.
func TestParse_redirectionPlacement(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		expected := directiveGen().Draw(t, "directive")

		var redirects []string
		if expected.Input != "" {
			redirects = append(redirects, "<"+expected.Input)
		}
		if expected.Output != "" {
			redirects = append(redirects, expected.Mode.String()+" "+expected.Output)
		}
		redirects = rapid.Permutation(redirects).Draw(t, "redirects")

		// Insert all redirections at a random argument boundary.
		at := rapid.IntRange(0, len(expected.Args)).Draw(t, "at")
		parts := []string{expected.Command}
		parts = append(parts, expected.Args[:at]...)
		parts = append(parts, redirects...)
		parts = append(parts, expected.Args[at:]...)

		segment := ""
		for i, part := range parts {
			if i > 0 {
				segment += " "
			}
			segment += part
		}

		actual, err := Parse(segment)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	})
}

func TestParseLine_roundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		expected := Pipeline(rapid.SliceOfN(directiveGen(), 1, 4).Draw(t, "pipeline"))

		actual, err := ParseLine(expected.String())
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	})
}
