package engine

import (
	"bytes"
	stdcsv "encoding/csv"
	"fmt"
	"math"
	"strings"
	"time"

	"ecomdash/internal/models"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/csv"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// Orders CSV columns
const (
	ColOrderID           = "order_id"
	ColCustomerID        = "customer_id"
	ColCustomerState     = "customer_state"
	ColProductID         = "product_id"
	ColCategory          = "product_category_name_english"
	ColPaymentValue      = "payment_value"
	ColApprovedAt        = "order_approved_at"
	ColPurchasedAt       = "order_purchase_timestamp"
	ColDeliveredCarrier  = "order_delivered_carrier_date"
	ColDeliveredCustomer = "order_delivered_customer_date"
	ColEstimatedDelivery = "order_estimated_delivery_date"
	ColShippingLimit     = "shipping_limit_date"
)

// Geolocation CSV columns
const (
	ColCustomerUniqueID = "customer_unique_id"
	ColLng              = "geolocation_lng"
	ColLat              = "geolocation_lat"
)

// RequiredOrderColumns must be present in every orders source.
var RequiredOrderColumns = []string{
	ColOrderID, ColCustomerID, ColCustomerState, ColProductID,
	ColCategory, ColPaymentValue, ColApprovedAt,
}

// LifecycleColumns are carried when present.
var LifecycleColumns = []string{
	ColPurchasedAt, ColDeliveredCarrier, ColDeliveredCustomer,
	ColEstimatedDelivery, ColShippingLimit,
}

const chunkRows = 8192

// SchemaError reports a missing column or an unparsable value at load time.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Column == "" {
		return "schema: " + e.Reason
	}
	return fmt.Sprintf("schema: column %q: %s", e.Column, e.Reason)
}

// --- 1. TIMESTAMP PARSERS ---

func digits(b []byte) (int, bool) {
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// fastTimestamp parses "2017-10-02 11:07:15" (or a bare "2017-10-02") as UTC.
func fastTimestamp(b []byte) (time.Time, bool) {
	if len(b) != 10 && len(b) != 19 {
		return time.Time{}, false
	}
	if b[4] != '-' || b[7] != '-' {
		return time.Time{}, false
	}
	y, ok1 := digits(b[0:4])
	m, ok2 := digits(b[5:7])
	d, ok3 := digits(b[8:10])
	if !ok1 || !ok2 || !ok3 || m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	var hh, mm, ss int
	if len(b) == 19 {
		if (b[10] != ' ' && b[10] != 'T') || b[13] != ':' || b[16] != ':' {
			return time.Time{}, false
		}
		var ok4, ok5, ok6 bool
		hh, ok4 = digits(b[11:13])
		mm, ok5 = digits(b[14:16])
		ss, ok6 = digits(b[17:19])
		if !ok4 || !ok5 || !ok6 {
			return time.Time{}, false
		}
	}
	if hh > 23 || mm > 59 || ss > 59 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, hh, mm, ss, 0, time.UTC)
	// time.Date normalises 02-31 into March
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// ParseTimestamp accepts the dataset's timestamp layouts. Empty input is a
// missing value, not an error.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, ok := fastTimestamp([]byte(s)); ok {
		return t, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05.000000", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// --- 2. ORDERS LOADER ---

var utf8BOM = []byte("\xef\xbb\xbf")

// readHeader strips a leading BOM and returns the set of header names.
func readHeader(content []byte) ([]byte, map[string]bool, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	header, err := stdcsv.NewReader(bytes.NewReader(content)).Read()
	if err != nil {
		return nil, nil, &SchemaError{Reason: fmt.Sprintf("read header: %v", err)}
	}
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = true
	}
	return content, present, nil
}

// LoadOrdersCSV reads the joined orders CSV into a sorted ColumnStore.
// Columns outside the schema are ignored.
func LoadOrdersCSV(content []byte) (*ColumnStore, error) {
	// A. Header check
	content, present, err := readHeader(content)
	if err != nil {
		return nil, err
	}
	for _, col := range RequiredOrderColumns {
		if !present[col] {
			return nil, &SchemaError{Column: col, Reason: "missing"}
		}
	}

	include := append([]string(nil), RequiredOrderColumns...)
	types := make(map[string]arrow.DataType, len(RequiredOrderColumns)+len(LifecycleColumns))
	for _, col := range RequiredOrderColumns {
		types[col] = arrow.BinaryTypes.String
	}
	types[ColPaymentValue] = arrow.PrimitiveTypes.Float64
	for _, col := range LifecycleColumns {
		if present[col] {
			include = append(include, col)
			types[col] = arrow.BinaryTypes.String
		}
	}

	// B. Columnar read
	rdr := csv.NewInferringReader(bytes.NewReader(content),
		csv.WithAllocator(memory.NewGoAllocator()),
		csv.WithHeader(true),
		csv.WithChunk(chunkRows),
		csv.WithIncludeColumns(include),
		csv.WithColumnTypes(types),
		csv.WithNullReader(true, ""),
	)
	defer rdr.Release()

	b := NewBuilder(bytes.Count(content, []byte{'\n'}))
	for rdr.Next() {
		if err := appendRecord(b, rdr.Record()); err != nil {
			return nil, err
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, &SchemaError{Reason: err.Error()}
	}
	return b.Build(), nil
}

func stringColumn(rec arrow.Record, name string) *array.String {
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil
	}
	col, _ := rec.Column(idx[0]).(*array.String)
	return col
}

func stringAt(col *array.String, i int) string {
	if col == nil || col.IsNull(i) {
		return ""
	}
	return strings.TrimSpace(col.Value(i))
}

func timestampAt(col *array.String, i int, name string) (time.Time, error) {
	t, err := ParseTimestamp(stringAt(col, i))
	if err != nil {
		return time.Time{}, &SchemaError{Column: name, Reason: err.Error()}
	}
	return t, nil
}

func appendRecord(b *Builder, rec arrow.Record) error {
	orderIDs := stringColumn(rec, ColOrderID)
	customers := stringColumn(rec, ColCustomerID)
	states := stringColumn(rec, ColCustomerState)
	products := stringColumn(rec, ColProductID)
	categories := stringColumn(rec, ColCategory)
	approved := stringColumn(rec, ColApprovedAt)

	payments := floatColumn(rec, ColPaymentValue)
	if payments == nil {
		return &SchemaError{Column: ColPaymentValue, Reason: "not numeric"}
	}

	lifecycle := make(map[string]*array.String, len(LifecycleColumns))
	for _, col := range LifecycleColumns {
		lifecycle[col] = stringColumn(rec, col)
	}

	for i := 0; i < int(rec.NumRows()); i++ {
		r := models.OrderRecord{
			OrderID:    stringAt(orderIDs, i),
			CustomerID: stringAt(customers, i),
			State:      stringAt(states, i),
			ProductID:  stringAt(products, i),
			Category:   stringAt(categories, i),
		}
		if !payments.IsNull(i) && !math.IsNaN(payments.Value(i)) {
			r.Payment = payments.Value(i)
		}

		var err error
		if r.ApprovedAt, err = timestampAt(approved, i, ColApprovedAt); err != nil {
			return err
		}
		targets := []*time.Time{
			&r.PurchasedAt, &r.DeliveredCarrierAt, &r.DeliveredCustomerAt,
			&r.EstimatedDeliveryAt, &r.ShippingLimitAt,
		}
		for k, col := range LifecycleColumns {
			if *targets[k], err = timestampAt(lifecycle[col], i, col); err != nil {
				return err
			}
		}
		b.Append(r)
	}
	return nil
}


// --- 3. GEOLOCATION LOADER ---

// LoadGeoCSV parses the geolocation CSV, keeping the first row seen for each
// customer_unique_id.
func LoadGeoCSV(content []byte) ([]models.GeoPoint, error) {
	// A. Header check
	content, present, err := readHeader(content)
	if err != nil {
		return nil, err
	}
	for _, col := range []string{ColCustomerUniqueID, ColLng, ColLat} {
		if !present[col] {
			return nil, &SchemaError{Column: col, Reason: "missing"}
		}
	}

	// B. Columnar read
	rdr := csv.NewInferringReader(bytes.NewReader(content),
		csv.WithAllocator(memory.NewGoAllocator()),
		csv.WithHeader(true),
		csv.WithChunk(chunkRows),
		csv.WithIncludeColumns([]string{ColCustomerUniqueID, ColLng, ColLat}),
		csv.WithColumnTypes(map[string]arrow.DataType{
			ColCustomerUniqueID: arrow.BinaryTypes.String,
			ColLng:              arrow.PrimitiveTypes.Float64,
			ColLat:              arrow.PrimitiveTypes.Float64,
		}),
		csv.WithNullReader(true, ""),
	)
	defer rdr.Release()

	seen := make(map[string]struct{})
	var points []models.GeoPoint
	line := 1
	for rdr.Next() {
		rec := rdr.Record()
		ids := stringColumn(rec, ColCustomerUniqueID)
		lngs := floatColumn(rec, ColLng)
		lats := floatColumn(rec, ColLat)
		if lngs == nil || lats == nil {
			return nil, &SchemaError{Reason: "coordinates are not numeric"}
		}

		for i := 0; i < int(rec.NumRows()); i++ {
			line++
			id := stringAt(ids, i)
			if _, dup := seen[id]; dup {
				continue
			}
			if lngs.IsNull(i) {
				return nil, &SchemaError{Column: ColLng, Reason: fmt.Sprintf("row %d: missing value", line)}
			}
			if lats.IsNull(i) {
				return nil, &SchemaError{Column: ColLat, Reason: fmt.Sprintf("row %d: missing value", line)}
			}
			seen[id] = struct{}{}
			points = append(points, models.GeoPoint{CustomerUniqueID: id, Lng: lngs.Value(i), Lat: lats.Value(i)})
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, &SchemaError{Reason: err.Error()}
	}
	return points, nil
}

func floatColumn(rec arrow.Record, name string) *array.Float64 {
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil
	}
	col, _ := rec.Column(idx[0]).(*array.Float64)
	return col
}
