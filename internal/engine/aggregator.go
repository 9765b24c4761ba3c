package engine

import (
	"sort"

	"ecomdash/internal/models"
)

// Aggregator answers the dashboard queries over one read-only view.
// Every call allocates fresh output; the view is never written.
type Aggregator struct {
	cs *ColumnStore
}

func NewAggregator(cs *ColumnStore) *Aggregator {
	return &Aggregator{cs: cs}
}

type dayBucket struct {
	orders  int
	revenue float64
}

// resampleDaily buckets dated rows by UTC day, from the first to the last day
// present. Days without orders stay zero.
func (a *Aggregator) resampleDaily() (int64, []dayBucket) {
	cs := a.cs
	if cs.dated == 0 {
		return 0, nil
	}
	first := dayOf(cs.Approved[0])
	last := dayOf(cs.Approved[cs.dated-1])
	buckets := make([]dayBucket, last-first+1)

	// distinct (day, order) pairs
	seen := make(map[uint64]struct{}, cs.dated)
	for i := 0; i < cs.dated; i++ {
		d := dayOf(cs.Approved[i]) - first
		buckets[d].revenue += cs.Payments[i]

		oid := cs.OrderIDs[i]
		if oid < 0 {
			continue
		}
		key := uint64(d)<<32 | uint64(uint32(oid))
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			buckets[d].orders++
		}
	}
	return first, buckets
}

// DailyOrders counts distinct orders and sums payments per day.
func (a *Aggregator) DailyOrders() []models.DailyOrders {
	first, buckets := a.resampleDaily()
	out := make([]models.DailyOrders, 0, len(buckets))
	for i, b := range buckets {
		out = append(out, models.DailyOrders{
			Date:       dayStart(first + int64(i)),
			OrderCount: b.orders,
			Revenue:    b.revenue,
		})
	}
	return out
}

// DailySpend sums payments per day.
func (a *Aggregator) DailySpend() []models.DailySpend {
	first, buckets := a.resampleDaily()
	out := make([]models.DailySpend, 0, len(buckets))
	for i, b := range buckets {
		out = append(out, models.DailySpend{
			Date:       dayStart(first + int64(i)),
			TotalSpend: b.revenue,
		})
	}
	return out
}

// CategoryItemCounts counts product rows per category, largest first.
// Categories with equal counts keep ascending name order.
func (a *Aggregator) CategoryItemCounts() []models.CategoryCount {
	cs := a.cs
	counts := make([]int, len(cs.CategoryDict))
	present := make([]bool, len(cs.CategoryDict))
	for i, cid := range cs.CategoryIDs {
		if cid < 0 {
			continue
		}
		present[cid] = true
		if cs.ProductIDs[i] >= 0 {
			counts[cid]++
		}
	}

	out := make([]models.CategoryCount, 0)
	for _, cid := range sortedIDs(cs.CategoryDict, present) {
		out = append(out, models.CategoryCount{Category: cs.CategoryDict[cid], ProductCount: counts[cid]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ProductCount > out[j].ProductCount })
	return out
}

// CustomersByState counts distinct customers per state, largest first, and
// returns the state with the most customers. Ties go to the state that sorts
// first by name.
func (a *Aggregator) CustomersByState() ([]models.StateCount, string) {
	cs := a.cs
	counts := make([]int, len(cs.StateDict))
	present := make([]bool, len(cs.StateDict))
	seen := make(map[uint64]struct{})
	for i, sid := range cs.StateIDs {
		if sid < 0 {
			continue
		}
		present[sid] = true
		cust := cs.CustomerIDs[i]
		if cust < 0 {
			continue
		}
		key := uint64(uint32(sid))<<32 | uint64(uint32(cust))
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			counts[sid]++
		}
	}

	out := make([]models.StateCount, 0)
	for _, sid := range sortedIDs(cs.StateDict, present) {
		out = append(out, models.StateCount{State: cs.StateDict[sid], CustomerCount: counts[sid]})
	}

	// argmax over the grouping, first seen wins
	mostCommon := ""
	best := -1
	for _, row := range out {
		if row.CustomerCount > best {
			best = row.CustomerCount
			mostCommon = row.State
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CustomerCount > out[j].CustomerCount })
	return out, mostCommon
}

// sortedIDs lists the present dictionary IDs in ascending name order.
func sortedIDs(dict []string, present []bool) []int32 {
	ids := make([]int32, 0, len(dict))
	for id, ok := range present {
		if ok {
			ids = append(ids, int32(id))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return dict[ids[i]] < dict[ids[j]] })
	return ids
}
