package dashboard

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"ecomdash/internal/engine"
	"ecomdash/internal/geo"
	"ecomdash/internal/logger"
	"ecomdash/internal/metrics"
	"ecomdash/internal/models"
)

// topCategories is how many entries the best and worst seller lists hold.
const topCategories = 5

// Dataset is everything loaded once at startup.
// GeoErr is set when the geolocation file or the map image failed to load;
// the tables still work in that case, only the overlay does not.
type Dataset struct {
	Orders *engine.ColumnStore
	Points []models.GeoPoint
	Image  geo.ImageResource
	GeoErr error
}

// Service answers dashboard queries over an immutable dataset.
// It is safe for concurrent use.
type Service struct {
	ds      Dataset
	style   geo.OverlayStyle
	log     *logger.Entry
	metrics *metrics.Metrics
}

func NewService(ds Dataset, style geo.OverlayStyle, log *logger.Log, m *metrics.Metrics) *Service {
	if ds.Orders == nil {
		ds.Orders = engine.NewBuilder(0).Build()
	}
	if ds.GeoErr == nil && ds.Image == nil {
		ds.GeoErr = fmt.Errorf("map image not loaded")
	}
	return &Service{ds: ds, style: style, log: log.WithComponent("dashboard"), metrics: m}
}

func (s *Service) Rows() int { return s.ds.Orders.Len() }

func (s *Service) Points() int { return len(s.ds.Points) }

// DefaultRange spans the first to the last approved order.
// ok is false when no order carries an approval time.
func (s *Service) DefaultRange() (models.DateRange, bool) {
	return s.ds.Orders.Span()
}

// Aggregator runs over the orders inside r.
func (s *Service) Aggregator(r models.DateRange) *engine.Aggregator {
	return engine.NewAggregator(s.ds.Orders.Filter(r.Start, r.End))
}

func (s *Service) timed(op string, fn func()) {
	start := time.Now()
	fn()
	s.metrics.ObserveAggregation(op, time.Since(start))
}

// Build computes every table and the summary for r.
func (s *Service) Build(ctx context.Context, r models.DateRange) (*models.DashboardData, error) {
	start := time.Now()
	agg := s.Aggregator(r)
	out := &models.DashboardData{Range: r}
	var mostCommon string

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.timed("daily_orders", func() { out.DailyOrders = agg.DailyOrders() })
		return ctx.Err()
	})
	g.Go(func() error {
		s.timed("daily_spend", func() { out.DailySpend = agg.DailySpend() })
		return ctx.Err()
	})
	g.Go(func() error {
		s.timed("category_item_counts", func() { out.Categories = agg.CategoryItemCounts() })
		return ctx.Err()
	})
	g.Go(func() error {
		s.timed("customers_by_state", func() { out.States, mostCommon = agg.CustomersByState() })
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.Summary = engine.Summarize(out.DailyOrders, out.DailySpend, out.Categories, mostCommon)
	out.MostSold, out.FewestSold = engine.BestAndWorst(out.Categories, topCategories)

	s.log.LogPerformance("build", time.Since(start), logger.Fields{
		"start": r.Start.Format(dateLayout),
		"end":   r.End.Format(dateLayout),
		"days":  len(out.DailyOrders),
	})
	return out, nil
}

// Overlay draws the customer map onto surface.
func (s *Service) Overlay(surface geo.PlottingSurface) error {
	if s.ds.GeoErr != nil {
		return s.ds.GeoErr
	}
	geo.NewRenderer(surface, s.style).Render(s.ds.Points, s.ds.Image)
	return nil
}

func (s *Service) Style() geo.OverlayStyle { return s.style }

// ETag identifies the response for r over this dataset.
func (s *Service) ETag(r models.DateRange) string {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], s.ds.Orders.Fingerprint())
	binary.LittleEndian.PutUint64(buf[8:], uint64(r.Start.Unix()))
	binary.LittleEndian.PutUint64(buf[16:], uint64(r.End.Unix()))
	return fmt.Sprintf(`"%016x"`, xxh3.Hash(buf[:]))
}
