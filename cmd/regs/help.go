package main

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	helpHeaderStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	helpCmdStyle    = lipgloss.NewStyle().Foreground(colorPrimaryLight)
)

// envHelp lists the environment variables shown under the root command's help.
var envHelp = [][2]string{
	{"REGS_CONFIG", "config file (default ~/.regs/config.yaml)"},
	{"REGS_PROFILE", "profile under ~/.regs/profiles"},
	{"REGS_DB_PATH", "database path, overrides the profile"},
	{"REGS_REMOTE_URL", "remote record service"},
	{"REGS_API_KEY", "remote API key"},
	{"REGS_OWNER", "signed-in account id"},
	{"REGS_DEBUG", "debug logging"},
}

func styledFunc(style lipgloss.Style) func(string) string {
	return func(s string) string {
		if isTTY() {
			return style.Render(s)
		}
		return s
	}
}

func helpFuncs() template.FuncMap {
	cmd := styledFunc(helpCmdStyle)
	return template.FuncMap{
		"header": styledFunc(helpHeaderStyle),
		"cmd":    cmd,
		"muted":  styledFunc(mutedStyle),
		"env": func() string {
			var b strings.Builder
			for _, e := range envHelp {
				fmt.Fprintf(&b, "  %s %s\n", cmd(fmt.Sprintf("%-16s", e[0])), e[1])
			}
			return b.String()
		},
	}
}

const helpTemplate = `{{with .Long}}{{. | trimTrailingWhitespaces}}

{{end}}{{if or .Runnable .HasSubCommands}}{{header "Usage:"}}
  {{cmd .UseLine}}{{if .HasAvailableSubCommands}} {{muted "[command]"}}{{end}}

{{end}}{{if .HasExample}}{{header "Examples:"}}
{{.Example}}

{{end}}{{if .HasAvailableSubCommands}}{{header "Commands:"}}
{{range .Commands}}{{if .IsAvailableCommand}}  {{cmd (rpad .Name .NamePadding)}} {{.Short}}
{{end}}{{end}}
{{end}}{{if .HasAvailableLocalFlags}}{{header "Flags:"}}
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}{{header "Global Flags:"}}
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if not .HasParent}}{{header "Environment:"}}
{{env}}
{{end}}{{if .HasAvailableSubCommands}}{{muted "Use"}} {{cmd (printf "%s [command] --help" .CommandPath)}} {{muted "for more information."}}
{{end}}`

// initHelp installs the styled help template on cmd and every subcommand.
func initHelp(cmd *cobra.Command) {
	for name, fn := range helpFuncs() {
		cobra.AddTemplateFunc(name, fn)
	}
	applyHelpTemplate(cmd)
}

func applyHelpTemplate(cmd *cobra.Command) {
	cmd.SetHelpTemplate(helpTemplate)
	for _, sub := range cmd.Commands() {
		applyHelpTemplate(sub)
	}
}
