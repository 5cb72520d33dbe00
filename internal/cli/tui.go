package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"sendertally/internal/session"
	"sendertally/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive terminal front end",
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}

		// Sign in before the alt screen takes over the terminal.
		ctx := commandContext(cmd)
		mbox, err := openMailbox(ctx, e.cfg, e.logger)
		if err != nil {
			return err
		}
		store, err := session.Open()
		if err != nil {
			return err
		}
		defer store.Close()

		appModel := tui.NewAppModel(tui.Options{
			Analyzer:    newAggregator(e, mbox),
			Trasher:     mbox,
			Index:       store,
			Location:    e.loc,
			Top:         e.cfg.Top,
			MaxMessages: e.cfg.MaxMessages,
			Logger:      e.logger,
		})
		p := tea.NewProgram(&appModel, tea.WithAltScreen(), tea.WithContext(ctx))
		appModel.SetProgram(p)
		if _, err := p.Run(); err != nil {
			return err
		}
		return appModel.Err
	},
}
