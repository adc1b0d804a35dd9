// Package hooks renders shell snippets that record directory changes.
//
// The generated hooks run freqdirs in the background on every directory
// change. Concurrent invocations are safe: the store serializes them on its
// file lock.
package hooks

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"
)

// Mode selects which store operation the hook invokes.
type Mode string

const (
	// ModeUpdate bumps only directories that were saved explicitly.
	ModeUpdate Mode = "update"
	// ModeSave records every directory visited.
	ModeSave Mode = "save"
)

// Options configures a rendered hook.
type Options struct {
	Exe  string // path to the freqdirs binary
	Mode Mode
}

var scripts = map[string]*template.Template{
	"bash": template.Must(template.New("bash").Funcs(template.FuncMap{"q": posixQuote}).Parse(`# freqdirs shell integration for bash
_freqdirs_hook() {
  if [[ "${_FREQDIRS_LAST_PWD:-}" != "$PWD" ]]; then
    _FREQDIRS_LAST_PWD="$PWD"
    ({{q .Exe}} {{.Mode}} -- "$PWD" >/dev/null 2>&1 &)
  fi
}
if [[ ";${PROMPT_COMMAND:-};" != *";_freqdirs_hook;"* ]]; then
  PROMPT_COMMAND="_freqdirs_hook${PROMPT_COMMAND:+;$PROMPT_COMMAND}"
fi
`)),
	"zsh": template.Must(template.New("zsh").Funcs(template.FuncMap{"q": posixQuote}).Parse(`# freqdirs shell integration for zsh
autoload -Uz add-zsh-hook
_freqdirs_hook() {
  ({{q .Exe}} {{.Mode}} -- "$PWD" >/dev/null 2>&1 &)
}
add-zsh-hook chpwd _freqdirs_hook
`)),
	"fish": template.Must(template.New("fish").Funcs(template.FuncMap{"q": fishQuote}).Parse(`# freqdirs shell integration for fish
function __freqdirs_hook --on-variable PWD
    command {{q .Exe}} {{.Mode}} -- "$PWD" >/dev/null 2>&1 &
end
`)),
}

// Shells lists the supported shell names.
func Shells() []string {
	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render writes the hook for shell to w.
func Render(w io.Writer, shell string, opts Options) error {
	tmpl, ok := scripts[shell]
	if !ok {
		return fmt.Errorf("unsupported shell %q (want one of %s)", shell, strings.Join(Shells(), ", "))
	}
	switch opts.Mode {
	case "":
		opts.Mode = ModeUpdate
	case ModeUpdate, ModeSave:
	default:
		return fmt.Errorf("unknown hook mode %q", opts.Mode)
	}
	if opts.Exe == "" {
		opts.Exe = "freqdirs"
	}
	return tmpl.Execute(w, opts)
}

func posixQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func fishQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
