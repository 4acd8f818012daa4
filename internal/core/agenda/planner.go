// Package agenda plans task agendas: which annotator receives which item.
// Planning is a pure function of its input; persistence applies the plan
// with an atomic per-item quota check.
package agenda

import (
	"fmt"
	"sort"
)

// Annotator is a candidate member of the pool.
type Annotator struct {
	UserID             string
	Username           string
	Active             bool
	ReservedCampaignID string // empty when the annotator is not reserved
}

// ItemRef identifies a normalized item of the batch, in batch order.
type ItemRef struct {
	ItemID string
}

// ExistingEntry is an agenda entry already in the store.
type ExistingEntry struct {
	ItemID    string
	UserID    string
	Completed bool
}

// PlanInput contains pre-fetched data for one batch.
type PlanInput struct {
	CampaignID string
	Items      []ItemRef
	Pool       []Annotator
	Existing   []ExistingEntry
	// Load counts entries each user already holds in the campaign.
	Load  map[string]int
	Quota int
	// OnlyActivated limits the pool to active, unreserved annotators and
	// leaves items with completed work alone.
	OnlyActivated bool
}

// Assignment gives one item to one annotator.
type Assignment struct {
	ItemID   string
	UserID   string
	Username string
}

// ShortfallWarning reports an item left under quota.
type ShortfallWarning struct {
	ItemID string
	Have   int
	Want   int
}

func (w ShortfallWarning) String() string {
	return fmt.Sprintf("item %s staffed %d/%d", w.ItemID, w.Have, w.Want)
}

// Plan is the outcome of planning one batch.
type Plan struct {
	Assignments []Assignment
	Shortfalls  []ShortfallWarning
	// AtQuota counts items that needed nothing.
	AtQuota int
	// SkippedCompleted counts items left alone because they hold completed work.
	SkippedCompleted int
	// EligiblePool is the number of annotators considered.
	EligiblePool int
}

// MissingSlots sums the unmet quota over all shortfalls.
func (p Plan) MissingSlots() int {
	n := 0
	for _, s := range p.Shortfalls {
		n += s.Want - s.Have
	}
	return n
}

type itemState struct {
	count     int
	users     map[string]bool
	completed bool
}

// Eligible filters and orders the pool for the given options.
func Eligible(pool []Annotator, campaignID string, onlyActivated bool) []Annotator {
	out := make([]Annotator, 0, len(pool))
	for _, a := range pool {
		if onlyActivated {
			if !a.Active {
				continue
			}
			if a.ReservedCampaignID != "" && a.ReservedCampaignID != campaignID {
				continue
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// GeneratePlan assigns items to annotators. For a fixed input the output is
// identical, and applying it then planning again yields no new assignments.
func GeneratePlan(in PlanInput) Plan {
	pool := Eligible(in.Pool, in.CampaignID, in.OnlyActivated)
	plan := Plan{EligiblePool: len(pool)}

	states := make(map[string]*itemState, len(in.Items))
	stateOf := func(itemID string) *itemState {
		st, ok := states[itemID]
		if !ok {
			st = &itemState{users: make(map[string]bool)}
			states[itemID] = st
		}
		return st
	}
	for _, e := range in.Existing {
		st := stateOf(e.ItemID)
		if st.users[e.UserID] {
			continue
		}
		st.users[e.UserID] = true
		st.count++
		if e.Completed {
			st.completed = true
		}
	}

	load := make(map[string]int, len(pool))
	for _, a := range pool {
		load[a.UserID] = in.Load[a.UserID]
	}

	for _, ref := range in.Items {
		st := stateOf(ref.ItemID)
		if in.OnlyActivated && st.completed {
			plan.SkippedCompleted++
			continue
		}
		need := in.Quota - st.count
		if need <= 0 {
			plan.AtQuota++
			continue
		}

		candidates := make([]Annotator, 0, len(pool))
		for _, a := range pool {
			if !st.users[a.UserID] {
				candidates = append(candidates, a)
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return load[candidates[i].UserID] < load[candidates[j].UserID]
		})

		taken := 0
		for _, a := range candidates {
			if taken == need {
				break
			}
			plan.Assignments = append(plan.Assignments, Assignment{ItemID: ref.ItemID, UserID: a.UserID, Username: a.Username})
			st.users[a.UserID] = true
			st.count++
			load[a.UserID]++
			taken++
		}
		if taken < need {
			plan.Shortfalls = append(plan.Shortfalls, ShortfallWarning{ItemID: ref.ItemID, Have: st.count, Want: in.Quota})
		}
	}
	return plan
}
