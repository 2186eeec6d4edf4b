package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerRuleStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	bannerTickStyle    = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	bannerTitleStyle   = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	bannerTaglineStyle = lipgloss.NewStyle().Foreground(colorPrimaryDark).Italic(true)
)

// renderBanner draws a tape measure with the product name under it.
func renderBanner() string {
	tick := bannerTickStyle.Render("|")
	dash := bannerRuleStyle.Render("''''")

	var rule strings.Builder
	for i := 0; i < 5; i++ {
		rule.WriteString(tick)
		rule.WriteString(dash)
	}
	rule.WriteString(tick)

	lines := []string{
		"  " + rule.String(),
		"  " + bannerTitleStyle.Render("R E G S"),
		"  " + bannerTaglineStyle.Render("measure once, sync everywhere"),
	}
	return strings.Join(lines, "\n")
}
