package shell

import (
	"testing"

	"github.com/josephlewis42/pipesh/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPrompt(t *testing.T) {
	data := PromptData{
		User:     "ada",
		Host:     "engine",
		Dir:      "~/notes",
		Failed:   true,
		ExitCode: 2,
	}

	cases := map[string]struct {
		template string
		colors   bool
		expected string
	}{
		"fields":      {"{{ .User }}@{{ .Host }}:{{ .Dir }}$ ", false, "ada@engine:~/notes$ "},
		"status":      {"{{ if .Failed }}[{{ .ExitCode }}]{{ end }}> ", false, "[2]> "},
		"sprig":       {"{{ .User | upper }} {{ .Dir | base }}> ", false, "ADA notes> "},
		"no colors":   {"{{ red .User }}", false, "ada"},
		"with colors": {"{{ green .User }}", true, "\x1b[32;1mada\x1b[0m"},
		"default": {
			config.Default().Prompt,
			false,
			"ada@engine:~/notes ✗$ ",
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			tmpl, err := parsePrompt(tc.template, tc.colors)
			require.NoError(t, err)

			actual, err := renderPrompt(tmpl, data)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestParsePrompt_invalid(t *testing.T) {
	tmpl, err := parsePrompt("{{ .User", false)
	assert.Error(t, err)
	require.NotNil(t, tmpl, "falls back to the default prompt")

	actual, err := renderPrompt(tmpl, PromptData{User: "u", Host: "h", Dir: "/"})
	require.NoError(t, err)
	assert.Equal(t, "u@h:/$ ", actual)
}

func TestRenderPrompt_executionError(t *testing.T) {
	tmpl, err := parsePrompt("{{ .Missing }}", false)
	require.NoError(t, err)

	actual, err := renderPrompt(tmpl, PromptData{})
	assert.Error(t, err)
	assert.Equal(t, FallbackPrompt, actual)
}

func TestAbbreviateHome(t *testing.T) {
	assert.Equal(t, "~", abbreviateHome("/home/ada", "/home/ada"))
	assert.Equal(t, "~/src", abbreviateHome("/home/ada/src", "/home/ada"))
	assert.Equal(t, "/home/adam", abbreviateHome("/home/adam", "/home/ada"))
	assert.Equal(t, "/tmp", abbreviateHome("/tmp", "/home/ada"))
	assert.Equal(t, "/tmp", abbreviateHome("/tmp", "/"))
}
