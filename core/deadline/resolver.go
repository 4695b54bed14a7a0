package deadline

import "time"

// Resolve picks the batch applicable to a project approved at t.
// Among the active batches covering t, the latest AppliesFrom wins (newest CreatedAt on ties),
// so later policies supersede older overlapping ones.
// A nil result means no deadlines are configured for t.
func Resolve(batches []Batch, t time.Time) *Batch {
	var winner *Batch
	for i := range batches {
		b := &batches[i]
		if !b.Covers(t) {
			continue
		}
		if winner == nil ||
			b.AppliesFrom.After(winner.AppliesFrom) ||
			(b.AppliesFrom.Equal(winner.AppliesFrom) && b.CreatedAt.After(winner.CreatedAt)) {
			winner = b
		}
	}
	if winner == nil {
		return nil
	}

	res := *winner
	res.Deadlines = make([]Deadline, len(winner.Deadlines))
	copy(res.Deadlines, winner.Deadlines)
	res.SortDeadlines()
	return &res
}
