package dashboard

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"ecomdash/internal/config"
	"ecomdash/internal/logger"
	"ecomdash/internal/metrics"
	"ecomdash/internal/resource"
)

const ordersCSV = `order_id,customer_id,customer_state,product_id,product_category_name_english,payment_value,order_approved_at
o1,c1,SP,p1,toys,10,2018-01-01 10:00:00
o2,c2,MA,p2,books,20,2018-01-02 10:00:00
`

const geoCSV = `customer_unique_id,geolocation_lat,geolocation_lng
u1,-23.5,-46.6
u2,-22.9,-43.2
`

func fixtureConfig(t *testing.T, withImage bool) *config.Config {
	t.Helper()
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	cfg := config.DefaultConfig()
	cfg.Dataset.OrdersURL = write("orders.csv", []byte(ordersCSV))
	cfg.Dataset.GeolocationURL = write("geo.csv", []byte(geoCSV))
	cfg.Dataset.MapImageURL = filepath.Join(dir, "missing.png")
	cfg.Dataset.FetchTimeout = 5 * time.Second
	if withImage {
		var buf bytes.Buffer
		png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 3)))
		cfg.Dataset.MapImageURL = write("map.png", buf.Bytes())
	}
	return cfg
}

func TestLoad(t *testing.T) {
	cfg := fixtureConfig(t, true)

	var mu sync.Mutex
	var steps []string
	ds, err := LoadDataset(context.Background(), cfg, resource.NewRouter(time.Second, nil), logger.Discard(), metrics.New(), func(step string) {
		mu.Lock()
		steps = append(steps, step)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if ds.Orders.Len() != 2 || len(ds.Points) != 2 || ds.Image == nil || ds.GeoErr != nil {
		t.Fatalf("unexpected dataset %+v", ds)
	}
	sort.Strings(steps)
	if len(steps) != 3 || steps[0] != StepGeo || steps[1] != StepImage || steps[2] != StepOrders {
		t.Errorf("unexpected progress steps %v", steps)
	}
}

func TestLoadMissingImageIsNotFatal(t *testing.T) {
	cfg := fixtureConfig(t, false)

	svc, err := Load(context.Background(), cfg, resource.NewRouter(time.Second, nil), logger.Discard(), metrics.New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if svc.Rows() != 2 {
		t.Errorf("Expected 2 orders, got %d", svc.Rows())
	}
	if err := svc.Overlay(nil); err == nil {
		t.Error("Expected overlay error when the map image is missing")
	}
}

func TestLoadMissingOrdersIsFatal(t *testing.T) {
	cfg := fixtureConfig(t, true)
	cfg.Dataset.OrdersURL = filepath.Join(t.TempDir(), "nope.csv")

	if _, err := Load(context.Background(), cfg, resource.NewRouter(time.Second, nil), logger.Discard(), nil); err == nil {
		t.Fatal("Expected error for missing orders")
	}
}
