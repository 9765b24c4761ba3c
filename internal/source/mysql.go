package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"ecomdash/internal/engine"
	"ecomdash/internal/models"
)

// Open accepts mariadb:// and mysql:// URLs as well as native driver DSNs.
func Open(dsn string) (*sql.DB, error) {
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "mariadb://") && !strings.HasPrefix(dsn, "mysql://") {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	var user, pass string
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	db := strings.TrimPrefix(u.Path, "/")
	if user == "" || u.Host == "" || db == "" {
		return "", fmt.Errorf("incomplete dsn: user, host and database are required")
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
		user, pass, u.Host, db), nil
}

var tableName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ordersQuery selects the required order columns plus whichever lifecycle
// columns the table has.
func ordersQuery(table string, available []string) (string, []string, error) {
	if !tableName.MatchString(table) {
		return "", nil, fmt.Errorf("invalid table name %q", table)
	}
	have := make(map[string]bool, len(available))
	for _, c := range available {
		have[strings.ToLower(c)] = true
	}
	cols := make([]string, 0, len(engine.RequiredOrderColumns)+len(engine.LifecycleColumns))
	for _, c := range engine.RequiredOrderColumns {
		if !have[c] {
			return "", nil, &engine.SchemaError{Column: c, Reason: "missing from table " + table}
		}
		cols = append(cols, c)
	}
	for _, c := range engine.LifecycleColumns {
		if have[c] {
			cols = append(cols, c)
		}
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), table), cols, nil
}

// LoadOrders reads the whole orders table into a column store.
func LoadOrders(ctx context.Context, db *sql.DB, table string) (*engine.ColumnStore, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	head, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", table))
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	available, err := head.Columns()
	head.Close()
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}

	q, cols, err := ordersQuery(table, available)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	b := engine.NewBuilder(0)
	for rows.Next() {
		r, err := scanOrder(rows, cols)
		if err != nil {
			return nil, err
		}
		b.Append(r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return b.Build(), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner, cols []string) (models.OrderRecord, error) {
	var (
		r       models.OrderRecord
		payment sql.NullFloat64
	)
	text := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i, c := range cols {
		if c == engine.ColPaymentValue {
			dest[i] = &payment
			continue
		}
		dest[i] = &text[i]
	}
	if err := row.Scan(dest...); err != nil {
		return r, fmt.Errorf("scan order: %w", err)
	}
	r.Payment = payment.Float64

	for i, c := range cols {
		v := text[i].String
		var ts *time.Time
		switch c {
		case engine.ColOrderID:
			r.OrderID = v
		case engine.ColCustomerID:
			r.CustomerID = v
		case engine.ColCustomerState:
			r.State = v
		case engine.ColProductID:
			r.ProductID = v
		case engine.ColCategory:
			r.Category = v
		case engine.ColApprovedAt:
			ts = &r.ApprovedAt
		case engine.ColPurchasedAt:
			ts = &r.PurchasedAt
		case engine.ColDeliveredCarrier:
			ts = &r.DeliveredCarrierAt
		case engine.ColDeliveredCustomer:
			ts = &r.DeliveredCustomerAt
		case engine.ColEstimatedDelivery:
			ts = &r.EstimatedDeliveryAt
		case engine.ColShippingLimit:
			ts = &r.ShippingLimitAt
		}
		if ts == nil {
			continue
		}
		t, err := engine.ParseTimestamp(v)
		if err != nil {
			return r, &engine.SchemaError{Column: c, Reason: err.Error()}
		}
		*ts = t
	}
	return r, nil
}
