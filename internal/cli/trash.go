package cli

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"sendertally/internal/gmail"
	"sendertally/internal/model"
	"sendertally/internal/session"
	"sendertally/internal/tally"
	"sendertally/internal/util"
)

var trashCmd = &cobra.Command{
	Use:   "trash",
	Short: "Move every message from the given senders in a date range to trash",
	Long: "trash runs the same scan as analyze over the date range, then moves the\n" +
		"scanned messages of each --sender to the Gmail trash. Messages beyond the\n" +
		"--max cap are not touched.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		senders, err := cmd.Flags().GetStringSlice("sender")
		if err != nil {
			return err
		}
		var wanted []string
		for _, s := range senders {
			addr := util.NormalizeAddress(s)
			if addr == "" {
				return errors.Errorf("invalid sender %q", s)
			}
			wanted = append(wanted, addr)
		}
		if len(wanted) == 0 {
			return errors.New("at least one --sender is required")
		}
		dryRun, err := cmd.Flags().GetBool("dry-run")
		if err != nil {
			return err
		}
		yes, err := cmd.Flags().GetBool("yes")
		if err != nil {
			return err
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		q, err := searchQuery(cmd, e)
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		mbox, err := openMailbox(ctx, e.cfg, e.logger)
		if err != nil {
			return err
		}

		tracker := tally.NewTracker(statePrinter(cmd.ErrOrStderr()))
		res, err := newAggregator(e, mbox).Run(ctx, q, e.cfg.MaxMessages, tracker)
		if err != nil {
			return err
		}
		if res.Cancelled() {
			return errors.New("scan cancelled; nothing was trashed")
		}

		store, err := session.Open()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Replace(ctx, res.Records); err != nil {
			return err
		}
		ids, err := store.MessageIDsFrom(ctx, wanted)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No messages from the given senders in this range.")
			return nil
		}
		if dryRun {
			fmt.Fprintf(out, "Dry run: would trash %d messages from %s\n", len(ids), strings.Join(wanted, ", "))
			return nil
		}
		if !yes {
			fmt.Fprintf(out, "Move %d messages from %s to trash? [y/N] ", len(ids), strings.Join(wanted, ", "))
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}
		}

		report, err := gmail.TrashMessages(ctx, mbox, ids, nil)
		writeTrashReport(out, report)
		return err
	},
}

func init() {
	addRunFlags(trashCmd)
	trashCmd.Flags().StringSlice("sender", nil, "Sender address to trash (repeatable)")
	trashCmd.Flags().Bool("dry-run", false, "Report what would be trashed without changing anything")
	trashCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

func writeTrashReport(w io.Writer, report model.TrashReport) {
	fmt.Fprintf(w, "Trashed %d of %d messages\n", len(report.Trashed), report.Requested)
	if len(report.Failed) == 0 {
		return
	}
	refs := make([]string, 0, len(report.Failed))
	for ref := range report.Failed {
		refs = append(refs, string(ref))
	}
	sort.Strings(refs)
	fmt.Fprintf(w, "%d failed:\n", len(refs))
	for _, ref := range refs {
		fmt.Fprintf(w, "  %s: %v\n", ref, report.Failed[model.MessageRef(ref)])
	}
}
