// Package normalize turns validated raw batch records into the canonical
// per-task-type item schema. Malformed rows are dropped and counted; they
// never abort the batch.
package normalize

import (
	"fmt"
	"iter"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/example/appraise/internal/core/batch"
	"github.com/example/appraise/internal/core/tasktype"
)

// DefaultMaxSegmentLength bounds a text field, in runes.
const DefaultMaxSegmentLength = 2000

// Item types used for quality control.
const (
	ItemTarget    = "TGT"
	ItemReference = "REF"
	ItemBadRef    = "BAD"
	ItemCheck     = "CHK"
)

var itemTypes = map[string]bool{ItemTarget: true, ItemReference: true, ItemBadRef: true, ItemCheck: true}

// passthrough fields are copied without text cleanup.
var passthrough = []string{tasktype.FieldDocumentID, tasktype.FieldImageURL}

// Item is a normalized unit of work.
type Item struct {
	Key      string            `json:"item_id"`
	ItemType string            `json:"item_type"`
	Fields   map[string]string `json:"fields"`
}

// Warning records one dropped row.
type Warning struct {
	Line   int
	ItemID string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d (item %s): %s", w.Line, w.ItemID, w.Reason)
}

// Stats is the side channel of one pass over a Sequence.
type Stats struct {
	Produced int
	Dropped  int
	Warnings []Warning
}

// Reasons counts dropped rows by reason, sorted by reason.
func (s Stats) Reasons() []string {
	counts := make(map[string]int)
	for _, w := range s.Warnings {
		counts[w.Reason]++
	}
	out := make([]string, 0, len(counts))
	for reason, n := range counts {
		out = append(out, fmt.Sprintf("%s: %d", reason, n))
	}
	sort.Strings(out)
	return out
}

// Options tunes normalization.
type Options struct {
	MaxSegmentLength int
}

// Sequence is a lazy, restartable view of a batch's normalized items.
// A Sequence must not be iterated from several goroutines at once.
type Sequence struct {
	raw     batch.RawBatch
	handler tasktype.Handler
	maxLen  int
	stats   Stats
}

// New prepares a normalization pass; no work happens until All is ranged over.
func New(raw batch.RawBatch, h tasktype.Handler, opts Options) *Sequence {
	maxLen := opts.MaxSegmentLength
	if maxLen <= 0 {
		maxLen = DefaultMaxSegmentLength
	}
	return &Sequence{raw: raw, handler: h, maxLen: maxLen}
}

// All yields normalized items in batch order. Each call restarts the pass
// and resets Stats.
func (s *Sequence) All() iter.Seq[Item] {
	return func(yield func(Item) bool) {
		s.stats = Stats{}
		for _, raw := range s.raw.Items {
			item, reason := s.normalizeOne(raw)
			if reason != "" {
				s.stats.Dropped++
				s.stats.Warnings = append(s.stats.Warnings, Warning{Line: raw.Line, ItemID: raw.ID(), Reason: reason})
				continue
			}
			s.stats.Produced++
			if !yield(item) {
				return
			}
		}
	}
}

// Collect drains the sequence.
func (s *Sequence) Collect() []Item {
	var items []Item
	for item := range s.All() {
		items = append(items, item)
	}
	return items
}

// Stats reports the most recent pass.
func (s *Sequence) Stats() Stats {
	out := s.stats
	out.Warnings = append([]Warning(nil), s.stats.Warnings...)
	return out
}

func (s *Sequence) normalizeOne(raw batch.RawItem) (Item, string) {
	itemType := strings.ToUpper(raw.Get(tasktype.FieldItemType))
	if itemType == "" {
		itemType = ItemTarget
	}
	if !itemTypes[itemType] {
		return Item{}, fmt.Sprintf("unknown item type %q", itemType)
	}

	item := Item{Key: raw.ID(), ItemType: itemType, Fields: make(map[string]string)}
	for _, field := range s.handler.TextFields() {
		text := CleanText(raw.Fields[field])
		if text == "" {
			if raw.Get(field) != "" {
				return Item{}, fmt.Sprintf("%s empty after normalization", field)
			}
			continue
		}
		if utf8.RuneCountInString(text) > s.maxLen {
			return Item{}, fmt.Sprintf("%s longer than %d characters", field, s.maxLen)
		}
		item.Fields[field] = text
	}
	for _, field := range passthrough {
		if v := raw.Get(field); v != "" {
			item.Fields[field] = v
		}
	}
	return item, ""
}

// CleanText applies NFC normalization, drops control characters, and folds
// runs of whitespace into single spaces.
func CleanText(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
