package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"sendertally/internal/gmail"
	"sendertally/internal/model"
	"sendertally/internal/tally"
)

type viewState int

const (
	viewForm    viewState = iota // date range and limit input
	viewRunning                  // progress of a run
	viewResults                  // ranked senders
)

// Analyzer runs one aggregation. *tally.Aggregator implements it.
type Analyzer interface {
	Run(ctx context.Context, q tally.SearchQuery, k int, tracker *tally.Tracker) (tally.Result, error)
}

// RecordIndex keeps the records of the latest run for the trash action.
// *session.Store implements it.
type RecordIndex interface {
	Replace(ctx context.Context, records []model.Record) error
	MessageIDsFrom(ctx context.Context, addresses []string) ([]model.MessageRef, error)
	Forget(ctx context.Context, ids []model.MessageRef) error
}

// Options wires the model to the rest of the program.
type Options struct {
	Analyzer Analyzer
	// Trasher and Index enable the trash action; either may be nil.
	Trasher     tally.Trasher
	Index       RecordIndex
	Location    *time.Location
	Top         int
	MaxMessages int
	Now         func() time.Time
	Logger      *slog.Logger
}

type AppModel struct {
	opts Options
	Err  error

	status string

	// View state machine
	view viewState

	// Form
	inputs  []textinput.Model
	focus   int
	formErr string

	// Run
	cancel     context.CancelFunc
	cancelling bool
	progress   tally.Progress
	bar        progress.Model
	spinner    spinner.Model
	result     tally.Result

	// Results
	sendersList  list.Model
	pendingTrash []model.MessageRef
	pendingFrom  []string
	trashing     bool

	// Layout
	width, height int

	// Program reference for sending messages from goroutines
	program *tea.Program
}

// SetProgram stores a reference to the tea.Program so the run goroutine can
// send progress messages back to the Update loop.
func (m *AppModel) SetProgram(p *tea.Program) {
	m.program = p
}

func NewAppModel(opts Options) AppModel {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Top <= 0 {
		opts.Top = 20
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = 2000
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	sl := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	// Keep esc for leaving filter mode only.
	sl.KeyMap.Quit.SetKeys("q")

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return AppModel{
		opts:        opts,
		view:        viewForm,
		inputs:      newFormInputs(tally.DefaultRange(opts.Now().In(opts.Location)), opts.MaxMessages),
		bar:         progress.New(progress.WithDefaultGradient()),
		spinner:     sp,
		sendersList: sl,
	}
}

func (m *AppModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.sendersList.SetSize(msg.Width, msg.Height-4) // room for footer
		m.bar.Width = min(msg.Width-4, 80)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case progressMsg:
		m.progress = tally.Progress(msg)
		return m, nil

	case spinner.TickMsg:
		if m.view != viewRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case runDoneMsg:
		return m.finishRun(msg)

	case trashDoneMsg:
		return m.finishTrash(msg)

	case statusMsg:
		if string(msg) == "" {
			m.status = ""
		}
		return m, nil
	}

	// Delegate to active sub-model
	var cmd tea.Cmd
	switch m.view {
	case viewForm:
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	case viewResults:
		m.sendersList, cmd = m.sendersList.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	if key == "ctrl+c" {
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}

	switch m.view {
	case viewForm:
		switch key {
		case "esc":
			return m, tea.Quit
		case "tab", "down":
			return m, m.focusField((m.focus + 1) % fieldCount)
		case "shift+tab", "up":
			return m, m.focusField((m.focus + fieldCount - 1) % fieldCount)
		case "enter":
			params, err := parseForm(m.inputs[fieldStart].Value(), m.inputs[fieldEnd].Value(), m.inputs[fieldLimit].Value(), m.opts.Location)
			if err != nil {
				m.formErr = err.Error()
				return m, nil
			}
			m.formErr = ""
			return m, m.startRun(params)
		}
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd

	case viewRunning:
		if key == "esc" && m.cancel != nil && !m.cancelling {
			m.cancelling = true
			m.cancel()
		}
		return m, nil

	case viewResults:
		if m.pendingTrash != nil {
			return m.confirmTrash(key)
		}
		// When the list is filtering, let it handle all keys except ctrl+c
		if m.sendersList.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.sendersList, cmd = m.sendersList.Update(msg)
			return m, cmd
		}
		switch key {
		case "q":
			return m, tea.Quit
		case " ":
			return m.toggleSelected()
		case "#":
			return m.askTrash()
		case "r":
			m.view = viewForm
			m.status = ""
			return m, m.focusField(m.focus)
		}
		var cmd tea.Cmd
		m.sendersList, cmd = m.sendersList.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *AppModel) focusField(i int) tea.Cmd {
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
	m.focus = i
	return m.inputs[i].Focus()
}

func (m *AppModel) startRun(params runParams) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.cancelling = false
	m.view = viewRunning
	m.progress = tally.Progress{Indeterminate: true, Status: "Starting..."}
	m.status = ""

	tracker := tally.NewTracker(tally.ObserverFunc(func(p tally.Progress) {
		if m.program != nil {
			m.program.Send(progressMsg(p))
		}
	}))
	run := func() tea.Msg {
		defer cancel()
		filter, err := tally.BuildQuery(params.Range, m.opts.Location)
		if err != nil {
			return runDoneMsg{err: err}
		}
		q, err := tally.NewSearchQuery(filter, params.Limit)
		if err != nil {
			return runDoneMsg{err: err}
		}
		res, err := m.opts.Analyzer.Run(ctx, q, m.opts.Top, tracker)
		if m.opts.Index != nil {
			if ierr := m.opts.Index.Replace(context.Background(), res.Records); ierr != nil {
				m.opts.Logger.Warn("index run records", "error", ierr)
			}
		}
		return runDoneMsg{result: res, err: err}
	}
	return tea.Batch(run, m.spinner.Tick)
}

func (m *AppModel) finishRun(msg runDoneMsg) (tea.Model, tea.Cmd) {
	m.cancel = nil
	m.cancelling = false
	m.result = msg.result

	if msg.err != nil && len(msg.result.Ranked) == 0 {
		m.view = viewForm
		m.formErr = runErrorText(msg.err)
		return m, nil
	}

	m.sendersList.SetItems(sendersToItems(msg.result.Ranked))
	m.sendersList.Title = resultsTitle(msg.result)
	m.view = viewResults
	if msg.err != nil {
		m.status = runErrorText(msg.err)
	} else if len(msg.result.Ranked) == 0 {
		m.status = "No messages in this range"
	}
	return m, nil
}

func runErrorText(err error) string {
	if tally.IsAuth(err) {
		return "Authorization expired; restart to sign in again: " + err.Error()
	}
	return "Run failed: " + err.Error()
}

func (m *AppModel) toggleSelected() (tea.Model, tea.Cmd) {
	si, ok := m.sendersList.SelectedItem().(senderItem)
	if !ok {
		return m, nil
	}
	si.selected = !si.selected
	cmd := m.sendersList.SetItem(m.sendersList.GlobalIndex(), si)
	return m, cmd
}

func (m *AppModel) askTrash() (tea.Model, tea.Cmd) {
	if m.opts.Trasher == nil || m.opts.Index == nil {
		m.status = "Trash is not available"
		return m, clearStatusAfter(2 * time.Second)
	}
	if m.trashing {
		return m, nil
	}
	if m.result.Cancelled() {
		m.status = "This run was cancelled; run it again before trashing"
		return m, clearStatusAfter(2 * time.Second)
	}
	senders := selectedSenders(m.sendersList.Items())
	if len(senders) == 0 {
		m.status = "Select senders with space first"
		return m, clearStatusAfter(2 * time.Second)
	}
	ids, err := m.opts.Index.MessageIDsFrom(context.Background(), senders)
	if err != nil {
		m.status = fmt.Sprintf("Lookup failed: %v", err)
		return m, clearStatusAfter(2 * time.Second)
	}
	if len(ids) == 0 {
		m.status = "Nothing left to trash for the selected senders"
		return m, clearStatusAfter(2 * time.Second)
	}
	m.pendingTrash = ids
	m.pendingFrom = senders
	m.status = fmt.Sprintf("Move %d messages from %d senders to trash? (y/n)", len(ids), len(senders))
	return m, nil
}

func (m *AppModel) confirmTrash(key string) (tea.Model, tea.Cmd) {
	ids, senders := m.pendingTrash, m.pendingFrom
	m.pendingTrash, m.pendingFrom = nil, nil
	if key != "y" {
		m.status = ""
		return m, nil
	}
	m.trashing = true
	m.status = "Trashing..."
	return m, m.trashCmd(senders, ids)
}

func (m *AppModel) trashCmd(senders []string, ids []model.MessageRef) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		report, err := gmail.TrashMessages(ctx, m.opts.Trasher, ids, nil)
		if len(report.Trashed) > 0 {
			if ferr := m.opts.Index.Forget(ctx, report.Trashed); ferr != nil {
				m.opts.Logger.Warn("forget trashed messages", "error", ferr)
			}
		}
		return trashDoneMsg{senders: senders, report: report, err: err}
	}
}

func (m *AppModel) finishTrash(msg trashDoneMsg) (tea.Model, tea.Cmd) {
	m.trashing = false
	if len(msg.report.Failed) == 0 && msg.err == nil {
		done := make(map[string]bool, len(msg.senders))
		for _, s := range msg.senders {
			done[s] = true
		}
		var keep []list.Item
		for _, it := range m.sendersList.Items() {
			if si, ok := it.(senderItem); !ok || !done[si.Address] {
				keep = append(keep, it)
			}
		}
		m.sendersList.SetItems(keep)
	}

	status := fmt.Sprintf("Trashed %d of %d messages", len(msg.report.Trashed), msg.report.Requested)
	if n := len(msg.report.Failed); n > 0 {
		status += fmt.Sprintf(", %d failed", n)
	}
	if msg.err != nil {
		status += ": " + msg.err.Error()
	}
	m.status = status
	return m, clearStatusAfter(4 * time.Second)
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusMsg("")
	})
}

// View renders the appropriate view based on current state.
func (m *AppModel) View() string {
	if m.Err != nil {
		return "Error: " + m.Err.Error() + "\n"
	}

	var b strings.Builder
	switch m.view {
	case viewForm:
		b.WriteString(m.formView())
	case viewRunning:
		b.WriteString(m.runningView())
	case viewResults:
		b.WriteString(m.sendersList.View())
		b.WriteString("\n")
		b.WriteString(resultsFooter())
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
	}
	return b.String()
}
