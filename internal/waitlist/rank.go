package waitlist

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/drop-waitlist/internal/model"
	"github.com/iliyamo/drop-waitlist/internal/store"
)

// Rank orders entries by priority score descending, then join time
// ascending, then user ID ascending, and assigns dense positions
// starting at 1.  The input slice is reordered in place and returned.
func Rank(entries []model.WaitlistEntry) []model.WaitlistEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.UserID < b.UserID
	})
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

// Recompute reloads every entry of the drop, ranks them and persists the
// positions that changed.  It must run inside the drop's transaction.
func Recompute(ctx context.Context, tx store.Tx, dropID uint64) ([]model.WaitlistEntry, error) {
	entries, err := tx.ListEntries(ctx, dropID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	before := make(map[uint64]int, len(entries))
	for _, e := range entries {
		before[e.UserID] = e.Position
	}
	ranked := Rank(entries)
	for _, e := range ranked {
		if before[e.UserID] == e.Position {
			continue
		}
		if err := tx.UpdatePosition(ctx, e.UserID, dropID, e.Position); err != nil {
			return nil, fmt.Errorf("update position: %w", err)
		}
	}
	return ranked, nil
}
