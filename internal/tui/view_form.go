package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"sendertally/internal/config"
	"sendertally/internal/tally"
)

const (
	fieldStart = iota
	fieldEnd
	fieldLimit
	fieldCount
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			PaddingBottom(1)
	labelStyle = lipgloss.NewStyle().Width(14)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// runParams is what the form produces.
type runParams struct {
	Range tally.DateRange
	Limit int
}

func newFormInputs(r tally.DateRange, limit int) []textinput.Model {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.CharLimit = 10
		ti.Width = 12
		inputs[i] = ti
	}
	inputs[fieldStart].Placeholder = "YYYY-MM-DD"
	inputs[fieldStart].SetValue(r.Start.Format(time.DateOnly))
	inputs[fieldEnd].Placeholder = "YYYY-MM-DD"
	inputs[fieldEnd].SetValue(r.End.Format(time.DateOnly))
	inputs[fieldLimit].Placeholder = strconv.Itoa(config.MinMessages)
	inputs[fieldLimit].SetValue(strconv.Itoa(limit))
	inputs[fieldStart].Focus()
	return inputs
}

// parseForm validates the raw form values.
func parseForm(start, end, limit string, loc *time.Location) (runParams, error) {
	r, err := tally.ParseRange(strings.TrimSpace(start), strings.TrimSpace(end), loc)
	if err != nil {
		return runParams{}, err
	}
	if _, _, err := r.Bounds(loc); err != nil {
		return runParams{}, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(limit))
	if err != nil {
		return runParams{}, errors.Errorf("limit must be a number, got %q", limit)
	}
	if n < config.MinMessages || n > config.MaxMessages {
		return runParams{}, errors.Errorf("limit must be between %d and %d", config.MinMessages, config.MaxMessages)
	}
	return runParams{Range: r, Limit: n}, nil
}

func (m *AppModel) formView() string {
	labels := [fieldCount]string{"Start date", "End date", "Max messages"}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Top senders in your inbox"))
	b.WriteString("\n")
	for i, in := range m.inputs {
		b.WriteString(labelStyle.Render(labels[i]))
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if m.formErr != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.formErr))
		b.WriteString("\n")
	}
	b.WriteString(formFooter())
	return b.String()
}

func formFooter() string {
	return footerStyle.Render(fmt.Sprintf("tab: next field  enter: analyze  esc: quit  (limit %d-%d)", config.MinMessages, config.MaxMessages))
}
