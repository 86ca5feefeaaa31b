package stock

import (
	"context"
	"sort"
)

// Sale reconciliation keeps items.quantity consistent with the lines
// attached to sales. Reconciliation is per unit: before/after line lists
// are diffed as quantity maps, so a sale moving from 1x to 2x of an item
// costs exactly one extra unit.
//
// Contract on failure: the loop stops at the first error and earlier
// adjustments stay committed. Callers surface the error as-is.

// ApplySaleCreate takes stock for every line of a new sale, in input order.
func (s *Service) ApplySaleCreate(ctx context.Context, lines []Line) error {
	for _, l := range lines {
		if err := s.decrementItem(ctx, l.ItemID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// ApplySaleUpdate reconciles an edited sale: restores first (units no
// longer sold come back to stock), then decrements for added units. The
// restore-then-decrement order lets an update shift a unit between items
// even when nothing is left on the shelf.
func (s *Service) ApplySaleUpdate(ctx context.Context, before, after []Line) error {
	prev := quantities(before)
	next := quantities(after)

	for _, id := range sortedIDs(prev) {
		if diff := prev[id] - next[id]; diff > 0 {
			if err := s.incrementItem(ctx, id, diff); err != nil {
				return err
			}
		}
	}
	for _, id := range sortedIDs(next) {
		if diff := next[id] - prev[id]; diff > 0 {
			if err := s.decrementItem(ctx, id, diff); err != nil {
				return err
			}
		}
	}
	return nil
}

// ApplySaleDelete restores every recorded line quantity. Stock may end up
// above its original level; that matches how returns are booked. Items
// deleted in the meantime are skipped.
func (s *Service) ApplySaleDelete(ctx context.Context, lines []Line) error {
	for _, l := range lines {
		if err := s.incrementItem(ctx, l.ItemID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func quantities(lines []Line) map[int64]int64 {
	m := make(map[int64]int64, len(lines))
	for _, l := range lines {
		m[l.ItemID] += l.Quantity
	}
	return m
}

func sortedIDs(m map[int64]int64) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
