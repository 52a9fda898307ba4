// Package entitlement resolves which features a subscription plan grants.
// Every feature gate in the system goes through IsEntitled.
package entitlement

import "sort"

// Plan is a subscription tier. Tiers are ordered; a higher tier grants
// everything a lower one does.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanBasic   Plan = "basic"
	PlanPro     Plan = "pro"
	PlanPremium Plan = "premium"
)

var planRank = map[Plan]int{
	PlanFree:    0,
	PlanBasic:   1,
	PlanPro:     2,
	PlanPremium: 3,
}

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	_, ok := planRank[p]
	return ok
}

// Feature is a gated capability and the lowest plan that unlocks it.
type Feature struct {
	ID      string `json:"id"`
	MinPlan Plan   `json:"minPlan"`
}

var catalogue = map[string]Plan{
	"habit-tracking":     PlanFree,
	"task-lists":         PlanFree,
	"daily-reminders":    PlanFree,
	"mood-tracking":      PlanBasic,
	"progress-analytics": PlanBasic,
	"offline-sync":       PlanBasic,
	"streak-protection":  PlanPro,
	"ai-coaching":        PlanPro,
	"habit-templates":    PlanPro,
	"team-challenges":    PlanPremium,
	"white-labeling":     PlanPremium,
	"priority-support":   PlanPremium,
}

// IsEntitled reports whether plan grants featureID. Unknown plans and
// unknown features are never entitled.
func IsEntitled(plan Plan, featureID string) bool {
	have, ok := planRank[plan]
	if !ok {
		return false
	}
	min, ok := catalogue[featureID]
	if !ok {
		return false
	}
	return have >= planRank[min]
}

// Features lists the features plan grants, sorted by ID.
func Features(plan Plan) []Feature {
	out := make([]Feature, 0, len(catalogue))
	for id, min := range catalogue {
		if IsEntitled(plan, id) {
			out = append(out, Feature{ID: id, MinPlan: min})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
