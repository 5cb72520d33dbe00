package tui

import (
	"strings"

	"sendertally/internal/tally"
)

func (m *AppModel) runningView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Analyzing"))
	b.WriteString("\n")
	p := m.progress
	if p.Indeterminate || p.State == tally.StateFetching {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
	} else {
		b.WriteString(m.bar.ViewAs(p.Fraction))
		b.WriteString("\n")
	}
	if p.Status != "" {
		b.WriteString(p.Status)
	} else {
		b.WriteString(p.State.String())
	}
	b.WriteString("\n")
	if m.cancelling {
		b.WriteString(footerStyle.Render("cancelling..."))
	} else {
		b.WriteString(footerStyle.Render("esc: cancel  ctrl+c: quit"))
	}
	return b.String()
}
