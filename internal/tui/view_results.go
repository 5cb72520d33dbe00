package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"sendertally/internal/model"
	"sendertally/internal/tally"
)

// senderItem wraps SenderCount to customize list display.
type senderItem struct {
	model.SenderCount
	rank     int
	selected bool
}

func (s senderItem) FilterValue() string { return s.Address }
func (s senderItem) Title() string {
	mark := "[ ]"
	if s.selected {
		mark = "[x]"
	}
	return fmt.Sprintf("%s %2d. %s", mark, s.rank, s.Address)
}
func (s senderItem) Description() string {
	if s.Count == 1 {
		return "1 message"
	}
	return fmt.Sprintf("%d messages", s.Count)
}

var footerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("241")).
	PaddingTop(1)

func resultsFooter() string {
	return footerStyle.Render("space: select  #: trash selected  r: new run  q: quit")
}

func sendersToItems(ranked []model.SenderCount) []list.Item {
	items := make([]list.Item, len(ranked))
	for i, sc := range ranked {
		items[i] = senderItem{SenderCount: sc, rank: i + 1}
	}
	return items
}

// resultsTitle summarizes a finished run.
func resultsTitle(res tally.Result) string {
	title := fmt.Sprintf("Top %d of %d senders (%d messages scanned", len(res.Ranked), res.Senders, res.Scanned)
	if res.Skipped > 0 {
		title += fmt.Sprintf(", %d skipped", res.Skipped)
	}
	title += ")"
	if res.Truncated {
		title += " [limit reached]"
	}
	if res.Cancelled() {
		title += " [cancelled, partial]"
	}
	return title
}

// selectedSenders returns the addresses marked in the list, in rank order.
func selectedSenders(items []list.Item) []string {
	var out []string
	for _, it := range items {
		if si, ok := it.(senderItem); ok && si.selected {
			out = append(out, si.Address)
		}
	}
	return out
}
