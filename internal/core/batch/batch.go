// Package batch holds the raw, as-uploaded representation of a data batch.
package batch

import "strings"

// Row-level fields that bind a tabular row to its market.
const (
	FieldSourceLanguage = "source_language"
	FieldTargetLanguage = "target_language"
	FieldDomain         = "domain"
)

// RawItem is one uploaded record. Line is 1-based within the source file
// (or the item index for JSON batches).
type RawItem struct {
	Line   int
	Fields map[string]string
}

// Get returns a trimmed field value.
func (r RawItem) Get(name string) string {
	return strings.TrimSpace(r.Fields[name])
}

// ID returns the item identifier.
func (r RawItem) ID() string {
	return r.Get("item_id")
}

// RawBatch is an uploaded file of items bound to one market.
type RawBatch struct {
	FileName       string
	Checksum       string
	SourceLanguage string
	TargetLanguage string
	Domain         string
	TaskType       string
	Items          []RawItem
}

// MarketKey is the natural key of the batch's market; an empty domain
// means "most recent market for the pair".
func (b RawBatch) MarketKey() string {
	return b.SourceLanguage + ":" + b.TargetLanguage + ":" + b.Domain
}
