package report

import (
	"fmt"
	"io"
	"strings"

	"ecomdash/internal/models"
)

const dateLayout = "2006-01-02"

func avg(v *float64) string {
	if v == nil {
		return "no data"
	}
	return fmt.Sprintf("%.2f", *v)
}

// Markdown renders the dashboard as a standalone report.
func Markdown(title string, d *models.DashboardData) string {
	var b strings.Builder
	s := d.Summary

	fmt.Fprintf(&b, "# %s (%s → %s)\n\n", title, d.Range.Start.Format(dateLayout), d.Range.End.Format(dateLayout))

	fmt.Fprintf(&b, "## Daily Orders\n- **Total Order:** %d\n- **Total Revenue:** %.2f\n\n", s.TotalOrders, s.TotalRevenue)
	if len(d.DailyOrders) > 0 {
		b.WriteString("| Date | Orders | Revenue |\n|---|---:|---:|\n")
		for _, r := range d.DailyOrders {
			fmt.Fprintf(&b, "| %s | %d | %.2f |\n", r.Date.Format(dateLayout), r.OrderCount, r.Revenue)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Customer Spend Money\n- **Total Spend:** %.2f\n- **Average Spend:** %s\n\n", s.TotalSpend, avg(s.AverageSpend))

	fmt.Fprintf(&b, "## Order Items\n- **Total Items:** %d\n- **Average Items:** %s\n\n", s.TotalItems, avg(s.AverageItems))
	writeCategories(&b, "Most sold products", d.MostSold)
	writeCategories(&b, "Fewest products sold", d.FewestSold)

	b.WriteString("## Customer Demographic\n")
	if s.MostCommonState == "" {
		b.WriteString("- **Most Common State:** no data\n\n")
	} else {
		fmt.Fprintf(&b, "- **Most Common State:** %s\n\n", s.MostCommonState)
	}
	if len(d.States) > 0 {
		b.WriteString("| State | Customers |\n|---|---:|\n")
		for _, r := range d.States {
			fmt.Fprintf(&b, "| %s | %d |\n", r.State, r.CustomerCount)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeCategories(b *strings.Builder, heading string, rows []models.CategoryCount) {
	fmt.Fprintf(b, "### %s\n", heading)
	if len(rows) == 0 {
		b.WriteString("- no data\n\n")
		return
	}
	for _, r := range rows {
		fmt.Fprintf(b, "- %s: %d\n", r.Category, r.ProductCount)
	}
	b.WriteString("\n")
}

func Write(w io.Writer, title string, d *models.DashboardData) error {
	_, err := io.WriteString(w, Markdown(title, d))
	return err
}
