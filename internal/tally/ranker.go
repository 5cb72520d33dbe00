package tally

import (
	"sort"

	"sendertally/internal/model"
)

// Table counts occurrences per address and remembers the order in which
// addresses were first seen.
type Table struct {
	index map[string]int
	rows  []model.SenderCount
	total int
}

func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Add counts one occurrence. Empty addresses are unresolved records and are ignored.
func (t *Table) Add(address string) {
	if address == "" {
		return
	}
	t.total++
	if i, ok := t.index[address]; ok {
		t.rows[i].Count++
		return
	}
	t.index[address] = len(t.rows)
	t.rows = append(t.rows, model.SenderCount{Address: address, Count: 1})
}

// Count returns how often address was added.
func (t *Table) Count(address string) int {
	if i, ok := t.index[address]; ok {
		return t.rows[i].Count
	}
	return 0
}

// Len is the number of distinct addresses.
func (t *Table) Len() int { return len(t.rows) }

// Total is the number of counted occurrences.
func (t *Table) Total() int { return t.total }

// Ranked returns up to k rows by descending count; equal counts keep
// first-seen order. k <= 0 returns every row.
func (t *Table) Ranked(k int) []model.SenderCount {
	out := make([]model.SenderCount, len(t.rows))
	copy(out, t.rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if k > 0 && k < len(out) {
		out = out[:k:k]
	}
	return out
}

// Rank tallies records and returns the top k.
func Rank(records []string, k int) []model.SenderCount {
	t := NewTable()
	for _, r := range records {
		t.Add(r)
	}
	return t.Ranked(k)
}
