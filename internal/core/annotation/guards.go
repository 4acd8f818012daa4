// Package annotation contains the pure rules of the submission flow.
// Guards evaluate preconditions without side effects.
package annotation

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/example/appraise/internal/errs"
)

// Entry states as persisted.
const (
	EntryAssigned  = "assigned"
	EntryCompleted = "completed"
)

// State is a step of the submission flow.
type State string

const (
	StateOffered   State = "offered"
	StateSubmitted State = "submitted"
	StateRecorded  State = "recorded"
	StateNoTask    State = "no_task"
)

// Event drives the flow between states.
type Event string

const (
	EventOffer   Event = "offer"
	EventSubmit  Event = "submit"
	EventRecord  Event = "record"
	EventExhaust Event = "exhaust"
)

var transitions = map[State]map[Event]State{
	"":             {EventOffer: StateOffered, EventExhaust: StateNoTask},
	StateOffered:   {EventSubmit: StateSubmitted},
	StateSubmitted: {EventRecord: StateRecorded},
}

// Next returns the state reached from s on ev.
func Next(s State, ev Event) (State, error) {
	if next, ok := transitions[s][ev]; ok {
		return next, nil
	}
	return s, fmt.Errorf("invalid transition %q on %q", s, ev)
}

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
	Kind    error
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return errs.New(r.Kind, "submit", "%s", r.Reason)
}

// SubmitContext provides context for submission guards.
type SubmitContext struct {
	TaskID     string
	ItemID     string
	EntryFound bool   // entry exists and belongs to the submitting user
	EntryState string // assigned or completed
	EntryItem  string // item id stored on the entry
	Start      time.Time
	End        time.Time
}

// CanSubmit evaluates whether a submission may complete its entry.
// Rules:
// - The entry must exist for this user and still be assigned
// - item_id must match the entry
// - start must precede end
func CanSubmit(ctx SubmitContext) GuardResult {
	if !ctx.EntryFound || ctx.EntryState != EntryAssigned {
		return GuardResult{
			Reason: fmt.Sprintf("task %s is not open for this annotator", ctx.TaskID),
			Kind:   errs.ErrNoEligibleTask,
		}
	}
	if ctx.ItemID != "" && ctx.ItemID != ctx.EntryItem {
		return GuardResult{
			Reason: fmt.Sprintf("item %s does not belong to task %s", ctx.ItemID, ctx.TaskID),
			Kind:   errs.ErrInvalidSubmission,
		}
	}
	if ctx.Start.IsZero() || ctx.End.IsZero() {
		return GuardResult{Reason: "start and end timestamps are required", Kind: errs.ErrInvalidSubmission}
	}
	if !ctx.Start.Before(ctx.End) {
		return GuardResult{
			Reason: fmt.Sprintf("start %s is not before end %s", ctx.Start.Format(time.RFC3339), ctx.End.Format(time.RFC3339)),
			Kind:   errs.ErrInvalidSubmission,
		}
	}
	return GuardResult{Allowed: true}
}

// maxTimestamp is 9999-12-31T23:59:59Z.
const maxTimestamp = 253402300799

// ParseTimestamp reads a Unix timestamp in seconds, fractional allowed.
func ParseTimestamp(raw string) (time.Time, error) {
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs <= 0 || secs > maxTimestamp {
		return time.Time{}, errs.New(errs.ErrInvalidSubmission, "submit", "bad timestamp %q", raw)
	}
	whole := int64(secs)
	return time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC(), nil
}
