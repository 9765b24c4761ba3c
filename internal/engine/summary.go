package engine

import (
	"sort"

	"ecomdash/internal/models"

	"golang.org/x/exp/constraints"
)

type number interface {
	constraints.Integer | constraints.Float
}

func sum[T number](xs []T) T {
	var total T
	for _, x := range xs {
		total += x
	}
	return total
}

// mean returns nil for an empty input.
func mean[T number](xs []T) *float64 {
	if len(xs) == 0 {
		return nil
	}
	m := float64(sum(xs)) / float64(len(xs))
	return &m
}

func column[R any, T number](rows []R, get func(R) T) []T {
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = get(r)
	}
	return out
}

// Summarize derives the headline figures from the aggregated tables.
func Summarize(orders []models.DailyOrders, spend []models.DailySpend, categories []models.CategoryCount, mostCommonState string) models.Summary {
	spendCol := column(spend, func(r models.DailySpend) float64 { return r.TotalSpend })
	itemCol := column(categories, func(r models.CategoryCount) int { return r.ProductCount })
	return models.Summary{
		TotalOrders:     sum(column(orders, func(r models.DailyOrders) int { return r.OrderCount })),
		TotalRevenue:    sum(column(orders, func(r models.DailyOrders) float64 { return r.Revenue })),
		TotalSpend:      sum(spendCol),
		AverageSpend:    mean(spendCol),
		TotalItems:      sum(itemCol),
		AverageItems:    mean(itemCol),
		MostCommonState: mostCommonState,
	}
}

// BestAndWorst returns the n best selling categories from a table sorted
// largest first, and the n worst in ascending order.
func BestAndWorst(categories []models.CategoryCount, n int) (most, fewest []models.CategoryCount) {
	k := min(n, len(categories))
	most = append(make([]models.CategoryCount, 0, k), categories[:k]...)

	asc := append([]models.CategoryCount(nil), categories...)
	sort.SliceStable(asc, func(i, j int) bool { return asc[i].ProductCount < asc[j].ProductCount })
	fewest = append(make([]models.CategoryCount, 0, k), asc[:k]...)
	return most, fewest
}
