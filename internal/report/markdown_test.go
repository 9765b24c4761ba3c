package report

import (
	"strings"
	"testing"
	"time"

	"ecomdash/internal/models"
)

func TestMarkdown(t *testing.T) {
	avgSpend := 22.5
	avgItems := 1.5
	d := &models.DashboardData{
		Range: models.DateRange{
			Start: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2018, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		DailyOrders: []models.DailyOrders{{Date: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), OrderCount: 2, Revenue: 45}},
		MostSold:    []models.CategoryCount{{Category: "toys", ProductCount: 2}},
		FewestSold:  []models.CategoryCount{{Category: "books", ProductCount: 1}},
		States:      []models.StateCount{{State: "SP", CustomerCount: 2}},
		Summary: models.Summary{
			TotalOrders: 2, TotalRevenue: 45, TotalSpend: 45, AverageSpend: &avgSpend,
			TotalItems: 3, AverageItems: &avgItems, MostCommonState: "SP",
		},
	}

	out := Markdown("Olist Report", d)
	for _, want := range []string{
		"# Olist Report (2018-01-01 → 2018-01-02)",
		"- **Total Order:** 2",
		"- **Average Spend:** 22.50",
		"| 2018-01-01 | 2 | 45.00 |",
		"- toys: 2",
		"- books: 1",
		"- **Most Common State:** SP",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
}

func TestMarkdownEmpty(t *testing.T) {
	out := Markdown("Empty", &models.DashboardData{})
	if strings.Count(out, "no data") != 5 {
		t.Errorf("Expected five no data markers, got\n%s", out)
	}
	if strings.Contains(out, "| Date |") {
		t.Error("empty report should not render tables")
	}
}
