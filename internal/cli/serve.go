package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sendertally/internal/session"
	"sendertally/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser front end on the loopback interface",
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}

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

		srv, err := web.New(web.Options{
			Analyzer:    newAggregator(e, mbox),
			Trasher:     mbox,
			Index:       store,
			Location:    e.loc,
			Top:         e.cfg.Top,
			MaxMessages: e.cfg.MaxMessages,
			Logger:      e.logger,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Open http://%s in your browser\n", e.cfg.Listen)
		return srv.Listen(ctx, e.cfg.Listen)
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "Address to listen on (default from config, 127.0.0.1:8080)")
}
