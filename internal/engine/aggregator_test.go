package engine

import (
	"reflect"
	"testing"
	"time"

	"ecomdash/internal/models"
)

func ts(s string) time.Time {
	t, err := ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return t
}

func buildStore(records ...models.OrderRecord) *ColumnStore {
	b := NewBuilder(len(records))
	for _, r := range records {
		b.Append(r)
	}
	return b.Build()
}

func sampleStore() *ColumnStore {
	// Scenario:
	// 2018-01-01: orders A, B, C paying 10, 20, 30
	// 2018-01-02: order D paying 5
	// 2018-01-04: order E paying 7 (2018-01-03 has no orders)
	return buildStore(
		models.OrderRecord{OrderID: "A", CustomerID: "c1", State: "SP", ProductID: "p1", Category: "toys", Payment: 10, ApprovedAt: ts("2018-01-01 09:00:00")},
		models.OrderRecord{OrderID: "B", CustomerID: "c2", State: "SP", ProductID: "p2", Category: "toys", Payment: 20, ApprovedAt: ts("2018-01-01 12:00:00")},
		models.OrderRecord{OrderID: "C", CustomerID: "c3", State: "MA", ProductID: "p3", Category: "books", Payment: 30, ApprovedAt: ts("2018-01-01 18:30:00")},
		models.OrderRecord{OrderID: "D", CustomerID: "c1", State: "SP", ProductID: "p1", Category: "toys", Payment: 5, ApprovedAt: ts("2018-01-02 08:00:00")},
		models.OrderRecord{OrderID: "E", CustomerID: "c4", State: "RJ", ProductID: "p4", Category: "garden", Payment: 7, ApprovedAt: ts("2018-01-04 10:00:00")},
	)
}

func TestDailyOrdersExample(t *testing.T) {
	store := buildStore(
		models.OrderRecord{OrderID: "o1", CustomerID: "c1", State: "SP", ProductID: "p1", Category: "toys", Payment: 10, ApprovedAt: ts("2018-01-01 10:00:00")},
		models.OrderRecord{OrderID: "o2", CustomerID: "c2", State: "SP", ProductID: "p1", Category: "toys", Payment: 20, ApprovedAt: ts("2018-01-01 11:00:00")},
		models.OrderRecord{OrderID: "o3", CustomerID: "c3", State: "MA", ProductID: "p2", Category: "books", Payment: 30, ApprovedAt: ts("2018-01-01 12:00:00")},
		models.OrderRecord{OrderID: "o4", CustomerID: "c4", State: "MA", ProductID: "p2", Category: "books", Payment: 5, ApprovedAt: ts("2018-01-02 09:00:00")},
	)
	agg := NewAggregator(store)

	daily := agg.DailyOrders()
	want := []models.DailyOrders{
		{Date: ts("2018-01-01"), OrderCount: 3, Revenue: 60},
		{Date: ts("2018-01-02"), OrderCount: 1, Revenue: 5},
	}
	if !reflect.DeepEqual(daily, want) {
		t.Fatalf("DailyOrders = %+v, want %+v", daily, want)
	}

	spend := agg.DailySpend()
	if len(spend) != 2 || spend[0].TotalSpend != 60 || spend[1].TotalSpend != 5 {
		t.Errorf("DailySpend = %+v, want totals [60 5]", spend)
	}
}

func TestDailyOrdersFillsGaps(t *testing.T) {
	daily := NewAggregator(sampleStore()).DailyOrders()

	if len(daily) != 4 {
		t.Fatalf("Expected 4 contiguous days, got %d", len(daily))
	}
	gap := daily[2]
	if !gap.Date.Equal(ts("2018-01-03")) {
		t.Errorf("Expected gap day 2018-01-03, got %s", gap.Date)
	}
	if gap.OrderCount != 0 || gap.Revenue != 0 {
		t.Errorf("Expected zero-filled gap, got %+v", gap)
	}
}

func TestDailyOrdersCountsDistinctOrders(t *testing.T) {
	// one order spread over two payment rows
	store := buildStore(
		models.OrderRecord{OrderID: "A", CustomerID: "c1", State: "SP", ProductID: "p1", Category: "toys", Payment: 4, ApprovedAt: ts("2018-02-01 10:00:00")},
		models.OrderRecord{OrderID: "A", CustomerID: "c1", State: "SP", ProductID: "p2", Category: "toys", Payment: 6, ApprovedAt: ts("2018-02-01 10:00:00")},
	)
	daily := NewAggregator(store).DailyOrders()
	if len(daily) != 1 || daily[0].OrderCount != 1 || daily[0].Revenue != 10 {
		t.Fatalf("unexpected daily rows: %+v", daily)
	}
}

func TestDailyTotalsMatchInput(t *testing.T) {
	store := sampleStore()
	daily := NewAggregator(store).DailyOrders()

	orders := 0
	revenue := 0.0
	for _, d := range daily {
		orders += d.OrderCount
		revenue += d.Revenue
	}

	distinct := map[string]bool{}
	payments := 0.0
	for i := 0; i < store.Len(); i++ {
		r := store.Row(i)
		distinct[r.OrderID] = true
		payments += r.Payment
	}

	if orders != len(distinct) {
		t.Errorf("sum(order_count) = %d, want %d", orders, len(distinct))
	}
	if revenue != payments {
		t.Errorf("sum(revenue) = %f, want %f", revenue, payments)
	}
}

func TestCategoryItemCounts(t *testing.T) {
	store := sampleStore()
	cats := NewAggregator(store).CategoryItemCounts()

	want := []models.CategoryCount{
		{Category: "toys", ProductCount: 3},
		{Category: "books", ProductCount: 1},
		{Category: "garden", ProductCount: 1},
	}
	if !reflect.DeepEqual(cats, want) {
		t.Fatalf("CategoryItemCounts = %+v, want %+v", cats, want)
	}

	total := 0
	for i, c := range cats {
		total += c.ProductCount
		if i > 0 && c.ProductCount > cats[i-1].ProductCount {
			t.Errorf("rows not sorted descending at %d: %+v", i, cats)
		}
	}
	if total != store.Len() {
		t.Errorf("sum(product_count) = %d, want %d", total, store.Len())
	}
}

func TestCustomersByStateExample(t *testing.T) {
	store := buildStore(
		models.OrderRecord{OrderID: "o1", CustomerID: "c1", State: "SP", ProductID: "p1", Category: "toys", Payment: 1, ApprovedAt: ts("2018-01-01 10:00:00")},
		models.OrderRecord{OrderID: "o2", CustomerID: "c2", State: "SP", ProductID: "p1", Category: "toys", Payment: 1, ApprovedAt: ts("2018-01-01 11:00:00")},
		models.OrderRecord{OrderID: "o3", CustomerID: "c3", State: "MA", ProductID: "p1", Category: "toys", Payment: 1, ApprovedAt: ts("2018-01-01 12:00:00")},
	)

	states, most := NewAggregator(store).CustomersByState()
	want := []models.StateCount{{State: "SP", CustomerCount: 2}, {State: "MA", CustomerCount: 1}}
	if !reflect.DeepEqual(states, want) {
		t.Fatalf("CustomersByState = %+v, want %+v", states, want)
	}
	if most != "SP" {
		t.Errorf("Expected most common state SP, got %s", most)
	}
}

func TestCustomersByStateDistinctAndTies(t *testing.T) {
	// c1 orders twice in SP, so all three states have one distinct customer
	store := buildStore(
		models.OrderRecord{OrderID: "o1", CustomerID: "c1", State: "SP", Payment: 1, ApprovedAt: ts("2018-01-01 10:00:00")},
		models.OrderRecord{OrderID: "o2", CustomerID: "c1", State: "SP", Payment: 1, ApprovedAt: ts("2018-01-02 10:00:00")},
		models.OrderRecord{OrderID: "o3", CustomerID: "c2", State: "RJ", Payment: 1, ApprovedAt: ts("2018-01-03 10:00:00")},
		models.OrderRecord{OrderID: "o4", CustomerID: "c3", State: "MA", Payment: 1, ApprovedAt: ts("2018-01-04 10:00:00")},
	)

	states, most := NewAggregator(store).CustomersByState()
	want := []models.StateCount{
		{State: "MA", CustomerCount: 1},
		{State: "RJ", CustomerCount: 1},
		{State: "SP", CustomerCount: 1},
	}
	if !reflect.DeepEqual(states, want) {
		t.Fatalf("CustomersByState = %+v, want %+v", states, want)
	}
	if most != states[0].State {
		t.Errorf("most common state %s disagrees with first row %s", most, states[0].State)
	}
}

func TestAggregatorIsIdempotent(t *testing.T) {
	store := sampleStore()
	before := append([]int64(nil), store.Approved...)
	agg := NewAggregator(store)

	if !reflect.DeepEqual(agg.DailyOrders(), agg.DailyOrders()) {
		t.Error("DailyOrders differs between calls")
	}
	if !reflect.DeepEqual(agg.DailySpend(), agg.DailySpend()) {
		t.Error("DailySpend differs between calls")
	}
	if !reflect.DeepEqual(agg.CategoryItemCounts(), agg.CategoryItemCounts()) {
		t.Error("CategoryItemCounts differs between calls")
	}
	s1, m1 := agg.CustomersByState()
	s2, m2 := agg.CustomersByState()
	if !reflect.DeepEqual(s1, s2) || m1 != m2 {
		t.Error("CustomersByState differs between calls")
	}
	if !reflect.DeepEqual(before, store.Approved) {
		t.Error("aggregation mutated its input")
	}
}

func TestEmptyRange(t *testing.T) {
	store := sampleStore()
	empty := store.Filter(ts("2019-01-01"), ts("2019-12-31"))
	if empty.Len() != 0 {
		t.Fatalf("Expected empty view, got %d rows", empty.Len())
	}

	agg := NewAggregator(empty)
	daily, spend, cats := agg.DailyOrders(), agg.DailySpend(), agg.CategoryItemCounts()
	states, most := agg.CustomersByState()
	if len(daily) != 0 || len(spend) != 0 || len(cats) != 0 || len(states) != 0 {
		t.Fatalf("Expected empty tables, got %d/%d/%d/%d", len(daily), len(spend), len(cats), len(states))
	}
	if most != "" {
		t.Errorf("Expected no most common state, got %q", most)
	}

	summary := Summarize(daily, spend, cats, most)
	if summary.TotalOrders != 0 || summary.TotalRevenue != 0 || summary.TotalSpend != 0 || summary.TotalItems != 0 {
		t.Errorf("Expected zero totals, got %+v", summary)
	}
	if summary.AverageSpend != nil || summary.AverageItems != nil {
		t.Errorf("Expected nil averages, got %+v", summary)
	}
}

func TestSummarize(t *testing.T) {
	agg := NewAggregator(sampleStore())
	cats := agg.CategoryItemCounts()
	_, most := agg.CustomersByState()
	summary := Summarize(agg.DailyOrders(), agg.DailySpend(), cats, most)

	if summary.TotalOrders != 5 {
		t.Errorf("TotalOrders: expected 5, got %d", summary.TotalOrders)
	}
	if summary.TotalRevenue != 72 || summary.TotalSpend != 72 {
		t.Errorf("Expected revenue/spend 72, got %f/%f", summary.TotalRevenue, summary.TotalSpend)
	}
	// four days including the empty 2018-01-03
	if summary.AverageSpend == nil || *summary.AverageSpend != 18 {
		t.Errorf("AverageSpend: expected 18, got %v", summary.AverageSpend)
	}
	if summary.TotalItems != 5 {
		t.Errorf("TotalItems: expected 5, got %d", summary.TotalItems)
	}
	if summary.AverageItems == nil || *summary.AverageItems != 5.0/3.0 {
		t.Errorf("AverageItems: expected 5/3, got %v", summary.AverageItems)
	}
	if summary.MostCommonState != "SP" {
		t.Errorf("MostCommonState: expected SP, got %s", summary.MostCommonState)
	}
}

func TestBestAndWorst(t *testing.T) {
	cats := []models.CategoryCount{
		{Category: "a", ProductCount: 9},
		{Category: "b", ProductCount: 7},
		{Category: "c", ProductCount: 3},
		{Category: "d", ProductCount: 3},
	}
	most, fewest := BestAndWorst(cats, 2)

	if len(most) != 2 || most[0].Category != "a" || most[1].Category != "b" {
		t.Errorf("unexpected most sold: %+v", most)
	}
	if len(fewest) != 2 || fewest[0].Category != "c" || fewest[1].Category != "d" {
		t.Errorf("unexpected fewest sold: %+v", fewest)
	}
	if cats[0].Category != "a" || cats[3].Category != "d" {
		t.Errorf("input reordered: %+v", cats)
	}

	most, fewest = BestAndWorst(nil, 5)
	if len(most) != 0 || len(fewest) != 0 {
		t.Errorf("expected empty lists, got %+v / %+v", most, fewest)
	}
}
