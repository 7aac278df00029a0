package analytics

import "sort"

// SortSummaries orders summaries by most recent check-in first. Ties keep
// their input order. The input slice is not modified.
func SortSummaries(summaries []UserSummary) []UserSummary {
	out := make([]UserSummary, len(summaries))
	copy(out, summaries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastCheckInAt.After(out[j].LastCheckInAt)
	})
	return out
}
