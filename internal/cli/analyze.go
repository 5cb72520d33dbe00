package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"sendertally/internal/model"
	"sendertally/internal/tally"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Rank the senders of inbox messages in a date range",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		if format != "table" && format != "csv" {
			return errors.Errorf("unknown format %q (want table or csv)", format)
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
		res, err := newAggregator(e, mbox).Run(ctx, q, e.cfg.Top, tracker)
		if err != nil && len(res.Ranked) == 0 {
			return err
		}

		out := cmd.OutOrStdout()
		if format == "csv" {
			if werr := writeCSV(out, res.Ranked); werr != nil {
				return werr
			}
		} else {
			writeTable(out, res)
		}
		return err
	},
}

func init() {
	addRunFlags(analyzeCmd)
	analyzeCmd.Flags().Int("top", 20, "Number of senders to show")
	analyzeCmd.Flags().String("format", "table", "Output format: table or csv")
}

// addRunFlags registers the flags that select the messages of a run.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("start", "", "First day of the range, YYYY-MM-DD (default January 1 of this year)")
	cmd.Flags().String("end", "", "Last day of the range, inclusive, YYYY-MM-DD (default today)")
	cmd.Flags().Int("max", 2000, "Maximum number of messages to scan")
	cmd.Flags().Int("workers", 8, "Concurrent header fetches")
}

// searchQuery turns the range flags into the inbox query of a run.
func searchQuery(cmd *cobra.Command, e env) (tally.SearchQuery, error) {
	start, err := cmd.Flags().GetString("start")
	if err != nil {
		return tally.SearchQuery{}, err
	}
	end, err := cmd.Flags().GetString("end")
	if err != nil {
		return tally.SearchQuery{}, err
	}

	r := tally.DefaultRange(now().In(e.loc))
	if start != "" || end != "" {
		if start == "" {
			start = r.Start.Format(time.DateOnly)
		}
		if end == "" {
			end = r.End.Format(time.DateOnly)
		}
		if r, err = tally.ParseRange(start, end, e.loc); err != nil {
			return tally.SearchQuery{}, err
		}
	}
	filter, err := tally.BuildQuery(r, e.loc)
	if err != nil {
		return tally.SearchQuery{}, err
	}
	return tally.NewSearchQuery(filter, e.cfg.MaxMessages)
}

// statePrinter writes one line per state change.
func statePrinter(w io.Writer) tally.Observer {
	last := tally.StateIdle
	return tally.ObserverFunc(func(p tally.Progress) {
		if p.State == last {
			return
		}
		last = p.State
		if p.Status != "" {
			fmt.Fprintln(w, p.Status)
		}
	})
}

func writeCSV(w io.Writer, ranked []model.SenderCount) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Rank", "Sender", "Count"}); err != nil {
		return err
	}
	for i, sc := range ranked {
		if err := writer.Write([]string{strconv.Itoa(i + 1), sc.Address, strconv.Itoa(sc.Count)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeTable(w io.Writer, res tally.Result) {
	if len(res.Ranked) == 0 {
		fmt.Fprintln(w, "No messages found.")
		return
	}
	rows := make([][]string, len(res.Ranked))
	for i, sc := range res.Ranked {
		rows[i] = []string{strconv.Itoa(i + 1), sc.Address, strconv.Itoa(sc.Count)}
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Sender", "Messages").
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, summaryLine(res))
}

func summaryLine(res tally.Result) string {
	parts := []string{
		fmt.Sprintf("%d senders", res.Senders),
		fmt.Sprintf("%d messages scanned", res.Scanned),
	}
	if res.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", res.Skipped))
	}
	if res.Truncated {
		parts = append(parts, "limit reached")
	}
	if res.Cancelled() {
		parts = append(parts, "cancelled, partial result")
	}
	parts = append(parts, res.Elapsed.Round(time.Millisecond).String())
	return strings.Join(parts, ", ")
}
