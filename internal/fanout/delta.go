package fanout

// MembershipDelta is the closed set of timeline changes one content
// event causes. It is computed as a plain value before anything is
// mutated, then applied in a single transaction.
type MembershipDelta struct {
	PostID int64

	// AddTimelineIDs gain membership; the entry's bump timestamp is
	// set to the event time.
	AddTimelineIDs []int64

	// BumpTimelineIDs already hold the post and only get their bump
	// timestamp refreshed.
	BumpTimelineIDs []int64

	// RemoveTimelineIDs lose membership.
	RemoveTimelineIDs []int64
}

// AffectedTimelineIDs is the union of all three sets, reported in
// change-notification events.
func (d *MembershipDelta) AffectedTimelineIDs() []int64 {
	return uniq(append(append(append([]int64{}, d.AddTimelineIDs...), d.BumpTimelineIDs...), d.RemoveTimelineIDs...))
}

func uniq(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func without(ids []int64, exclude map[int64]bool) []int64 {
	var out []int64
	for _, id := range ids {
		if !exclude[id] {
			out = append(out, id)
		}
	}
	return out
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
