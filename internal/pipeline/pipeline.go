// Package pipeline fetches the datasets, runs the geo-classification engine,
// and optionally labels groups with place names.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sorasolar/site-api/internal/domain"
	"github.com/sorasolar/site-api/internal/observability"
)

var (
	// ErrDataUnavailable wraps a rooftop dataset fetch failure.
	ErrDataUnavailable = errors.New("rooftop data unavailable")
	// ErrPartnersUnavailable wraps a partner directory fetch failure.
	ErrPartnersUnavailable = errors.New("partner directory unavailable")
	// ErrRooftopNotFound is returned by Rooftop for unknown ids.
	ErrRooftopNotFound = errors.New("rooftop not found")
)

// RooftopSource supplies the rooftop snapshot.
type RooftopSource interface {
	Rooftops(ctx context.Context) ([]domain.Rooftop, error)
}

// PartnerSource supplies the partner directory.
type PartnerSource interface {
	Partners(ctx context.Context) ([]domain.Partner, error)
}

// RooftopDetail is one rooftop with its per-rooftop classification.
type RooftopDetail struct {
	domain.Rooftop
	Classification domain.Classification `json:"classification"`
}

// Pipeline recomputes groups from a fresh dataset read on every call.
type Pipeline struct {
	rooftops    RooftopSource
	partners    PartnerSource
	partitioner map[domain.Strategy]domain.Partitioner
	fallback    domain.Strategy
	geocoder    domain.Geocoder
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
}

// Option configures optional pipeline stages.
type Option func(*Pipeline)

// WithGeocoder enables place-name labelling of group centers.
func WithGeocoder(g domain.Geocoder) Option {
	return func(p *Pipeline) { p.geocoder = g }
}

// New creates a Pipeline. fallback is the strategy used when a caller does
// not name one and must be among partitioners.
func New(
	rooftops RooftopSource,
	partners PartnerSource,
	partitioners []domain.Partitioner,
	fallback domain.Strategy,
	logger *slog.Logger,
	metrics *observability.Metrics,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		rooftops:    rooftops,
		partners:    partners,
		partitioner: make(map[domain.Strategy]domain.Partitioner, len(partitioners)),
		fallback:    fallback,
		logger:      logger,
		metrics:     metrics,
	}
	for _, part := range partitioners {
		p.partitioner[part.Strategy()] = part
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultStrategy returns the strategy used for an empty strategy name.
func (p *Pipeline) DefaultStrategy() domain.Strategy {
	return p.fallback
}

// Groups classifies the current rooftop snapshot with the named strategy.
// An empty strategy selects the default.
func (p *Pipeline) Groups(ctx context.Context, strategy domain.Strategy) ([]domain.GeoGroup, error) {
	if strategy == "" {
		strategy = p.fallback
	}
	part, ok := p.partitioner[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, strategy)
	}

	rooftops, err := p.Rooftops(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	groups := domain.Summarize(part, rooftops)
	p.metrics.ClassificationDuration.WithLabelValues(string(strategy)).Observe(time.Since(start).Seconds())
	p.metrics.ClassificationRuns.WithLabelValues(string(strategy)).Inc()
	p.recordClasses(strategy, groups)

	p.logger.Debug("groups classified",
		"strategy", strategy,
		"rooftops", len(rooftops),
		"groups", len(groups),
	)

	return domain.LabelGroups(ctx, groups, p.geocoder, p.logger), nil
}

func (p *Pipeline) recordClasses(strategy domain.Strategy, groups []domain.GeoGroup) {
	counts := map[domain.Classification]int{
		domain.ClassificationHigh:   0,
		domain.ClassificationMedium: 0,
		domain.ClassificationLow:    0,
	}
	for _, g := range groups {
		counts[g.Classification]++
	}
	for class, n := range counts {
		p.metrics.GroupsByClass.WithLabelValues(string(strategy), string(class)).Set(float64(n))
	}
}

// Rooftops returns the raw rooftop snapshot.
func (p *Pipeline) Rooftops(ctx context.Context) ([]domain.Rooftop, error) {
	rooftops, err := p.rooftops.Rooftops(ctx)
	if err != nil {
		p.metrics.DatasetFetchErrors.WithLabelValues("rooftops").Inc()
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	return rooftops, nil
}

// Rooftop returns one rooftop with its marker classification.
func (p *Pipeline) Rooftop(ctx context.Context, id string) (RooftopDetail, error) {
	rooftops, err := p.Rooftops(ctx)
	if err != nil {
		return RooftopDetail{}, err
	}
	r, ok := domain.FindRooftop(rooftops, id)
	if !ok {
		return RooftopDetail{}, fmt.Errorf("%w: %q", ErrRooftopNotFound, id)
	}
	return RooftopDetail{Rooftop: r, Classification: domain.ClassifyRooftop(r)}, nil
}

// Partners returns the partner directory filtered by query.
func (p *Pipeline) Partners(ctx context.Context, query string) ([]domain.Partner, error) {
	partners, err := p.partners.Partners(ctx)
	if err != nil {
		p.metrics.DatasetFetchErrors.WithLabelValues("partners").Inc()
		return nil, fmt.Errorf("%w: %w", ErrPartnersUnavailable, err)
	}
	return domain.FilterPartners(partners, query), nil
}

// Warm loads both datasets concurrently and marks the pipeline ready when
// both succeed. A failure leaves it not ready; requests still retry the
// fetch on their own.
func (p *Pipeline) Warm(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	var rooftopCount, partnerCount int
	g.Go(func() error {
		rooftops, err := p.Rooftops(gctx)
		rooftopCount = len(rooftops)
		return err
	})
	g.Go(func() error {
		partners, err := p.Partners(gctx, "")
		partnerCount = len(partners)
		return err
	})

	if err := g.Wait(); err != nil {
		p.ready.Store(false)
		p.metrics.DatasetReady.Set(0)
		return fmt.Errorf("warm datasets: %w", err)
	}

	p.ready.Store(true)
	p.metrics.DatasetReady.Set(1)
	p.logger.Info("datasets loaded", "rooftops", rooftopCount, "partners", partnerCount)
	return nil
}

// CheckReadiness returns nil after a successful Warm, or an error describing
// why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("datasets have not been loaded")
	}
	return nil
}
