// Package report runs the whole estimate: statistics, configuration, price,
// sizing and validation.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pvsizer/pvsizer/pkg/analysis"
	"github.com/pvsizer/pvsizer/pkg/log"
	"github.com/pvsizer/pvsizer/pkg/metrics"
	"github.com/pvsizer/pvsizer/pkg/preset"
	"github.com/pvsizer/pvsizer/pkg/price"
	"github.com/pvsizer/pvsizer/pkg/sizing"
	"github.com/pvsizer/pvsizer/pkg/types"
)

// ErrNoData is returned when a request has neither readings nor statistics.
var ErrNoData = errors.New("no readings or statistics")

// PriceSource returns the provider asked when no price is pinned.
type PriceSource interface {
	Default() (price.Provider, error)
}

// Builder builds reports.
type Builder struct {
	presets *preset.Registry
	prices  PriceSource
	now     func() time.Time
}

// NewBuilder returns a Builder. prices may be nil when every request pins a
// price.
func NewBuilder(presets *preset.Registry, prices PriceSource) *Builder {
	return &Builder{presets: presets, prices: prices, now: time.Now}
}

// Request is the input of a report.
type Request struct {
	UserID   string
	FileName string

	// Readings are aggregated unless Stats is set.
	Readings []types.Reading
	Stats    *types.ConsumptionStats

	Configuration types.SavedConfiguration
}

// Configuration merges the presets and overrides of cfg over the defaults.
func (b *Builder) Configuration(cfg types.SavedConfiguration) (types.Configuration, error) {
	return b.presets.Build(cfg.Presets, cfg.Overrides)
}

// Price resolves the electricity price for cfg.
func (b *Builder) Price(ctx context.Context, cfg types.SavedConfiguration) (types.Price, error) {
	pinned, err := b.presets.PinnedPrice(cfg.Presets, cfg.Overrides)
	if err != nil {
		return types.Price{}, err
	}
	var p price.Provider
	if cfg.ElectricityPricePerKWH == nil && pinned == nil {
		if b.prices == nil {
			return types.Price{}, fmt.Errorf("%w: none configured", price.ErrUnknownProvider)
		}
		if p, err = b.prices.Default(); err != nil {
			return types.Price{}, err
		}
	}
	return price.Resolve(ctx, cfg.ElectricityPricePerKWH, pinned, p)
}

// Build computes a report. The returned report has a new ID and is not
// persisted.
func (b *Builder) Build(ctx context.Context, req Request) (types.Report, error) {
	var stats types.ConsumptionStats
	switch {
	case req.Stats != nil:
		stats = *req.Stats
	case len(req.Readings) > 0:
		var err error
		if stats, err = analysis.Aggregate(req.Readings); err != nil {
			return types.Report{}, err
		}
	default:
		return types.Report{}, ErrNoData
	}

	cfg, err := b.Configuration(req.Configuration)
	if err != nil {
		metrics.SizingsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return types.Report{}, err
	}
	p, err := b.Price(ctx, req.Configuration)
	if err != nil {
		return types.Report{}, fmt.Errorf("failed to get electricity price: %w", err)
	}

	res, err := sizing.Size(stats, cfg, p.PerKWH)
	if err != nil {
		metrics.SizingsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return types.Report{}, err
	}
	if res.Payback.Unbounded {
		metrics.SizingsTotal.WithLabelValues(metrics.OutcomeUnbounded).Inc()
	} else {
		metrics.SizingsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	}
	metrics.PVArraySizeKW.Observe(res.PVArraySizeKW)

	log.Ctx(ctx).DebugContext(
		ctx,
		"sized system",
		slog.Float64("pvArraySizeKw", res.PVArraySizeKW),
		slog.Int("panels", res.NumberOfPanels),
		slog.String("payback", res.Payback.String()),
		slog.String("priceProvider", p.Provider),
	)

	return types.Report{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		Created:       b.now().UTC(),
		FileName:      req.FileName,
		Configuration: req.Configuration,
		Stats:         stats,
		Sizing:        res,
		Validation:    sizing.Validate(cfg),
	}, nil
}
