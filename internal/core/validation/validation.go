// Package validation checks uploaded batches before anything is built from them.
// Every violation is collected; a non-empty report blocks the batch.
package validation

import (
	"fmt"
	"strings"

	"github.com/example/appraise/internal/core/batch"
	"github.com/example/appraise/internal/core/tasktype"
	"github.com/example/appraise/internal/errs"
)

// References carries pre-fetched registry lookups for the batch.
type References struct {
	PairDeclared   bool // language pair declared in the manifest
	MarketExists   bool
	MetadataExists bool
}

// Violation is a single integrity problem.
type Violation struct {
	Line   int    // 0 for batch-level problems
	ItemID string // may be empty
	Field  string
	Reason string
}

func (v Violation) String() string {
	var b strings.Builder
	if v.Line > 0 {
		fmt.Fprintf(&b, "line %d", v.Line)
		if v.ItemID != "" {
			fmt.Fprintf(&b, " (item %s)", v.ItemID)
		}
		b.WriteString(": ")
	} else {
		b.WriteString("batch: ")
	}
	if v.Field != "" {
		b.WriteString(v.Field + " ")
	}
	b.WriteString(v.Reason)
	return b.String()
}

// Report is the result of validating one batch.
type Report struct {
	Batch      string
	Violations []Violation
}

// OK reports whether the batch may proceed.
func (r Report) OK() bool { return len(r.Violations) == 0 }

// Err returns a *ValidationError when the report is not empty.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Report: r}
}

// ValidationError blocks a batch from normalization and agenda building.
type ValidationError struct {
	Report Report
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Report.Violations))
	for _, v := range e.Report.Violations {
		lines = append(lines, v.String())
	}
	return fmt.Sprintf("batch %s has %d violation(s):\n  %s",
		e.Report.Batch, len(e.Report.Violations), strings.Join(lines, "\n  "))
}

func (e *ValidationError) Unwrap() error { return errs.ErrValidation }

// Validate checks b against the task type's required fields and the
// registry references.
func Validate(b batch.RawBatch, h tasktype.Handler, refs References) Report {
	report := Report{Batch: b.FileName}
	add := func(v Violation) { report.Violations = append(report.Violations, v) }

	if b.SourceLanguage == "" || b.TargetLanguage == "" {
		add(Violation{Field: "language pair", Reason: "is missing"})
	} else {
		if !refs.PairDeclared {
			add(Violation{Field: "language pair", Reason: fmt.Sprintf("%s-%s is not declared in the manifest", b.SourceLanguage, b.TargetLanguage)})
		}
		if !refs.MarketExists {
			add(Violation{Field: "market", Reason: fmt.Sprintf("%s does not exist", b.MarketKey())})
		} else if !refs.MetadataExists {
			add(Violation{Field: "metadata", Reason: fmt.Sprintf("no %s metadata registered for market %s", h.Type(), b.MarketKey())})
		}
	}
	if b.TaskType != "" && b.TaskType != string(h.Type()) {
		add(Violation{Field: "task_type", Reason: fmt.Sprintf("%q does not match campaign type %q", b.TaskType, h.Type())})
	}
	if len(b.Items) == 0 {
		add(Violation{Reason: "contains no items"})
	}

	seen := make(map[string]int, len(b.Items))
	for _, item := range b.Items {
		id := item.ID()
		if id == "" {
			add(Violation{Line: item.Line, Field: tasktype.FieldItemID, Reason: "is empty"})
		} else if first, dup := seen[id]; dup {
			add(Violation{Line: item.Line, ItemID: id, Field: tasktype.FieldItemID, Reason: fmt.Sprintf("duplicates line %d", first)})
		} else {
			seen[id] = item.Line
		}

		for _, field := range h.RequiredFields() {
			if item.Get(field) == "" {
				add(Violation{Line: item.Line, ItemID: id, Field: field, Reason: "is required"})
			}
		}

		if src := item.Get(batch.FieldSourceLanguage); src != "" && src != b.SourceLanguage {
			add(Violation{Line: item.Line, ItemID: id, Field: batch.FieldSourceLanguage, Reason: fmt.Sprintf("%q does not match batch source %q", src, b.SourceLanguage)})
		}
		if tgt := item.Get(batch.FieldTargetLanguage); tgt != "" && tgt != b.TargetLanguage {
			add(Violation{Line: item.Line, ItemID: id, Field: batch.FieldTargetLanguage, Reason: fmt.Sprintf("%q does not match batch target %q", tgt, b.TargetLanguage)})
		}
	}

	return report
}
