package models

import "time"

// OrderRecord is one row of the order/customer/product/payment join.
type OrderRecord struct {
	OrderID    string
	CustomerID string
	State      string
	ProductID  string
	Category   string
	Payment    float64
	ApprovedAt time.Time

	// Lifecycle timestamps, carried but not aggregated.
	PurchasedAt         time.Time
	DeliveredCarrierAt  time.Time
	DeliveredCustomerAt time.Time
	EstimatedDeliveryAt time.Time
	ShippingLimitAt     time.Time
}

// GeoPoint is a single customer location.
type GeoPoint struct {
	CustomerUniqueID string  `json:"customer_unique_id"`
	Lng              float64 `json:"lng"`
	Lat              float64 `json:"lat"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type DailyOrders struct {
	Date       time.Time `json:"date"`
	OrderCount int       `json:"order_count"`
	Revenue    float64   `json:"revenue"`
}

type DailySpend struct {
	Date       time.Time `json:"date"`
	TotalSpend float64   `json:"total_spend"`
}

type CategoryCount struct {
	Category     string `json:"product_category_name_english"`
	ProductCount int    `json:"product_count"`
}

type StateCount struct {
	State         string `json:"customer_state"`
	CustomerCount int    `json:"customer_count"`
}

// Summary holds the scalar figures shown above each chart.
// Nil averages mean there was nothing to average over.
type Summary struct {
	TotalOrders     int      `json:"total_orders"`
	TotalRevenue    float64  `json:"total_revenue"`
	TotalSpend      float64  `json:"total_spend"`
	AverageSpend    *float64 `json:"average_spend"`
	TotalItems      int      `json:"total_items"`
	AverageItems    *float64 `json:"average_items"`
	MostCommonState string   `json:"most_common_state"`
}

type DashboardData struct {
	Range       DateRange       `json:"range"`
	DailyOrders []DailyOrders   `json:"daily_orders"`
	DailySpend  []DailySpend    `json:"daily_spend"`
	Categories  []CategoryCount `json:"categories"`
	MostSold    []CategoryCount `json:"most_sold"`
	FewestSold  []CategoryCount `json:"fewest_sold"`
	States      []StateCount    `json:"states"`
	Summary     Summary         `json:"summary"`
}
