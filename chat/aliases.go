package chat

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/kbukum/streambot/logger"
)

// Alias rewrites a command line: `!sr foo` with
// {match = "!sr", replace = "!song request {{.Rest}}"} becomes
// `!song request foo`.
type Alias struct {
	Match   string `mapstructure:"match"`
	Replace string `mapstructure:"replace"`
}

type compiledAlias struct {
	name string
	tmpl *template.Template
}

// Aliases is the compiled alias list; the first match wins.
type Aliases struct {
	aliases []compiledAlias
	log     *logger.Logger
}

// CompileAliases parses every replacement template.
func CompileAliases(list []Alias, log *logger.Logger) (*Aliases, error) {
	out := &Aliases{log: log}
	for _, a := range list {
		tmpl, err := template.New(a.Match).Option("missingkey=error").Parse(a.Replace)
		if err != nil {
			return nil, fmt.Errorf("alias %s: %w", a.Match, err)
		}
		out.aliases = append(out.aliases, compiledAlias{
			name: strings.ToLower(strings.TrimPrefix(a.Match, "!")),
			tmpl: tmpl,
		})
	}
	return out, nil
}

type aliasData struct {
	Rest string
}

// Lookup returns the rewritten line. A render failure is logged and
// reported as no match, so the original line is used.
func (a *Aliases) Lookup(line string) (string, bool) {
	if a == nil {
		return "", false
	}
	first, rest := splitFirst(line)
	if !strings.HasPrefix(first, "!") {
		return "", false
	}
	name := strings.ToLower(first[1:])
	for _, al := range a.aliases {
		if al.name != name {
			continue
		}
		var b strings.Builder
		if err := al.tmpl.Execute(&b, aliasData{Rest: rest}); err != nil {
			a.log.Error("Failed to render alias", logger.Fields("alias", "!"+al.name, logger.FieldError, err.Error()))
			return "", false
		}
		return strings.TrimSpace(b.String()), true
	}
	return "", false
}

// splitFirst splits off the first word; rest keeps its inner spacing.
func splitFirst(line string) (string, string) {
	line = strings.TrimSpace(line)
	i := strings.IndexFunc(line, func(r rune) bool { return r == ' ' || r == '\t' })
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i:])
}
