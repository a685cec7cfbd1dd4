package shell

import (
	"bytes"
	"os"
	"os/user"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/fatih/color"
	"github.com/josephlewis42/pipesh/core/config"
)

// FallbackPrompt is shown when the configured prompt can't be rendered.
const FallbackPrompt = "$ "

// PromptData is available to prompt templates.
type PromptData struct {
	User     string
	Host     string
	Dir      string
	Failed   bool
	ExitCode int
}

func colorFuncs(enabled bool) template.FuncMap {
	funcs := template.FuncMap{}
	for name, attrs := range map[string][]color.Attribute{
		"green": {color.FgGreen, color.Bold},
		"red":   {color.FgRed, color.Bold},
		"blue":  {color.FgBlue, color.Bold},
		"bold":  {color.Bold},
	} {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		funcs[name] = c.SprintFunc()
	}
	return funcs
}

// parsePrompt parses a prompt template, falling back to the default prompt if
// text isn't a valid template.
func parsePrompt(text string, colors bool) (*template.Template, error) {
	tmpl, err := newPromptTemplate(text, colors)
	if err == nil {
		return tmpl, nil
	}

	fallback, fallbackErr := newPromptTemplate(config.Default().Prompt, colors)
	if fallbackErr != nil {
		panic(fallbackErr)
	}
	return fallback, err
}

func newPromptTemplate(text string, colors bool) (*template.Template, error) {
	return template.New("prompt").
		Funcs(sprig.TxtFuncMap()).
		Funcs(colorFuncs(colors)).
		Parse(text)
}

func renderPrompt(tmpl *template.Template, data PromptData) (string, error) {
	buf := &bytes.Buffer{}
	if err := tmpl.Execute(buf, data); err != nil {
		return FallbackPrompt, err
	}
	return buf.String(), nil
}

// currentPromptData collects the prompt fields from the environment.
func currentPromptData() PromptData {
	var data PromptData

	if u, err := user.Current(); err == nil {
		data.User = u.Username
	} else {
		data.User = os.Getenv("USER")
	}
	data.Host, _ = os.Hostname()

	wd, _ := os.Getwd()
	home, _ := os.UserHomeDir()
	data.Dir = abbreviateHome(wd, home)

	return data
}

func abbreviateHome(dir, home string) string {
	if home == "" || home == "/" {
		return dir
	}
	if dir == home || strings.HasPrefix(dir, home+string(os.PathSeparator)) {
		return "~" + strings.TrimPrefix(dir, home)
	}
	return dir
}
