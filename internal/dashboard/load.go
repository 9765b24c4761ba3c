package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ecomdash/internal/config"
	"ecomdash/internal/engine"
	"ecomdash/internal/logger"
	"ecomdash/internal/metrics"
	"ecomdash/internal/models"
	"ecomdash/internal/resource"
	"ecomdash/internal/source"
)

// Step names reported through the progress callback.
const (
	StepOrders = "orders"
	StepGeo    = "geolocation"
	StepImage  = "map image"
)

// LoadDataset fetches orders, geolocation and the map image in parallel.
// Only an orders failure is fatal. done, if set, is called as each step finishes.
func LoadDataset(ctx context.Context, cfg *config.Config, p resource.Provider, log *logger.Log, m *metrics.Metrics, done func(step string)) (Dataset, error) {
	entry := log.WithComponent("loader")
	if done == nil {
		done = func(string) {}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Dataset.FetchTimeout)
	defer cancel()

	var (
		ds               Dataset
		geoErr, imageErr error
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		orders, err := loadOrders(gctx, cfg.Dataset, p)
		if err != nil {
			m.IncLoadError(StepOrders)
			return fmt.Errorf("load orders: %w", err)
		}
		ds.Orders = orders
		m.SetRows(StepOrders, orders.Len())
		entry.LogPerformance("load_orders", time.Since(start), logger.Fields{
			"rows":  orders.Len(),
			"dated": orders.Dated(),
		})
		done(StepOrders)
		return nil
	})

	// geo failures never cancel the group
	g.Go(func() error {
		start := time.Now()
		var points []models.GeoPoint
		data, err := p.Fetch(gctx, cfg.Dataset.GeolocationURL)
		if err == nil {
			points, err = engine.LoadGeoCSV(data)
		}
		if err != nil {
			m.IncLoadError(StepGeo)
			geoErr = fmt.Errorf("load geolocation: %w", err)
			return nil
		}
		ds.Points = points
		m.SetRows(StepGeo, len(points))
		entry.LogPerformance("load_geolocation", time.Since(start), logger.Fields{"points": len(points)})
		done(StepGeo)
		return nil
	})

	g.Go(func() error {
		img, err := resource.LoadImage(gctx, p, cfg.Dataset.MapImageURL)
		if err != nil {
			m.IncLoadError(StepImage)
			imageErr = fmt.Errorf("load map image: %w", err)
			return nil
		}
		ds.Image = img
		done(StepImage)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dataset{}, err
	}

	switch {
	case geoErr != nil:
		ds.GeoErr = geoErr
	case imageErr != nil:
		ds.GeoErr = imageErr
	}
	if ds.GeoErr != nil {
		entry.WithError(ds.GeoErr).Warn("customer map unavailable")
	}
	return ds, nil
}

func loadOrders(ctx context.Context, cfg config.DatasetConfig, p resource.Provider) (*engine.ColumnStore, error) {
	if cfg.Source == config.SourceMySQL {
		db, err := source.Open(cfg.MySQL.DSN)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return source.LoadOrders(ctx, db, cfg.MySQL.Table)
	}

	data, err := p.Fetch(ctx, cfg.OrdersURL)
	if err != nil {
		return nil, err
	}
	return engine.LoadOrdersCSV(data)
}

// Load builds a ready Service from cfg.
func Load(ctx context.Context, cfg *config.Config, p resource.Provider, log *logger.Log, m *metrics.Metrics) (*Service, error) {
	ds, err := LoadDataset(ctx, cfg, p, log, m, nil)
	if err != nil {
		return nil, err
	}
	return NewService(ds, cfg.Map.Style(), log, m), nil
}
