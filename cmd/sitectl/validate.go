package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sorasolar/site-api/internal/adapter/mapbox"
	"github.com/sorasolar/site-api/internal/domain"
	"github.com/sorasolar/site-api/internal/observability"
)

var (
	validateGeocode    bool
	validateMaxDriftKM float64
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check rooftop and partner dataset integrity",
	Long: "Runs integrity phases over the datasets: record fields, partner entries, grid partition coverage, " +
		"and cluster configuration. With --geocode, forward-geocodes every address through Mapbox and flags " +
		"rooftops whose coordinates drift from their address.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		provider := newProvider(cfg, logger)

		rooftops, err := provider.Rooftops(ctx)
		if err != nil {
			return err
		}
		partners, err := provider.Partners(ctx)
		if err != nil {
			return err
		}

		var geocoder domain.Geocoder
		if validateGeocode {
			if !cfg.MapboxEnabled {
				return errors.New("--geocode requires MAPBOX_TOKEN")
			}
			metrics := observability.NewUnregisteredMetrics()
			geocoder = mapbox.NewCachedGeocoder(
				mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger),
				cfg.MapboxCacheSize, metrics)
		}

		if code := runValidate(ctx, cmd.OutOrStdout(), rooftops, partners, geocoder); code != 0 {
			return errors.New("validation failed")
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateGeocode, "geocode", false, "cross-check addresses against coordinates via Mapbox")
	validateCmd.Flags().Float64Var(&validateMaxDriftKM, "max-drift-km", 5, "maximum distance between geocoded address and recorded coordinates")
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	mu     sync.Mutex
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func runValidate(ctx context.Context, w io.Writer, rooftops []domain.Rooftop, partners []domain.Partner, geocoder domain.Geocoder) int {
	fmt.Fprintln(w, "=== SoraSolar Dataset Validation ===")
	fmt.Fprintln(w)

	phases := []*phase{
		validateRooftopRecords(rooftops),
		validatePartners(partners),
		validateGridCoverage(domain.NewGridPartitioner(cfg.MapCellSize, cfg.GridThresholds), rooftops),
		validateClusters(cfg.Clusters, rooftops, w),
	}
	if geocoder != nil {
		phases = append(phases, validateAddresses(ctx, geocoder, rooftops, validateMaxDriftKM))
	}

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintf(w, "\nRecords: %d rooftops, %d partners\n", len(rooftops), len(partners))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: rooftop records ──

func validateRooftopRecords(rooftops []domain.Rooftop) *phase {
	p := &phase{name: "Phase 1: Rooftop records"}

	if len(rooftops) == 0 {
		p.errorf("dataset is empty")
	}
	seen := map[string]int{}
	for i, r := range rooftops {
		label := r.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			p.errorf("record %d: missing id", i)
		} else if prev, dup := seen[r.ID]; dup {
			p.errorf("%s: duplicate id (also record %d)", r.ID, prev)
		}
		seen[r.ID] = i

		if r.Latitude < -90 || r.Latitude > 90 {
			p.errorf("%s: latitude %v out of range", label, r.Latitude)
		}
		if r.Longitude < -180 || r.Longitude > 180 {
			p.errorf("%s: longitude %v out of range", label, r.Longitude)
		}
		if r.AreaM2 <= 0 {
			p.errorf("%s: area_m2 must be positive, got %v", label, r.AreaM2)
		}
		if r.EstimatedPanels < 0 {
			p.errorf("%s: estimated_panels must not be negative, got %d", label, r.EstimatedPanels)
		}
		if r.SunHoursPerDay < 0 || r.SunHoursPerDay > 24 {
			p.errorf("%s: sun_hours_per_day %v out of range", label, r.SunHoursPerDay)
		}
		if strings.TrimSpace(r.Address) == "" {
			p.errorf("%s: missing address", label)
		}
	}
	return p
}

// ── Phase 2: partner directory ──

func validatePartners(partners []domain.Partner) *phase {
	p := &phase{name: "Phase 2: Partner directory"}

	seen := map[string]bool{}
	for i, partner := range partners {
		if partner.ID == "" {
			p.errorf("partner %d: missing id", i)
		} else if seen[partner.ID] {
			p.errorf("%s: duplicate id", partner.ID)
		}
		seen[partner.ID] = true

		if strings.TrimSpace(partner.Name) == "" {
			p.errorf("%s: missing name", partner.ID)
		}
		if _, err := mail.ParseAddress(partner.Email); err != nil {
			p.errorf("%s: invalid email %q", partner.ID, partner.Email)
		}
		if len(partner.Languages) == 0 {
			p.errorf("%s: no languages listed", partner.ID)
		}
	}
	return p
}

// ── Phase 3: grid coverage ──
// Every rooftop lands in exactly one cell whose bounds contain it.

func validateGridCoverage(grid *domain.GridPartitioner, rooftops []domain.Rooftop) *phase {
	p := &phase{name: "Phase 3: Grid partition coverage"}

	members := 0
	for _, part := range grid.Partition(rooftops) {
		members += len(part.Members)
		if part.Bounds == nil {
			p.errorf("cell %s: missing bounds", part.ID)
			continue
		}
		for _, r := range part.Members {
			if !part.Bounds.Contains(r.Location()) {
				p.errorf("cell %s: rooftop %s (%v, %v) outside bounds", part.ID, r.ID, r.Latitude, r.Longitude)
			}
		}
	}
	if members != len(rooftops) {
		p.errorf("grid holds %d memberships for %d rooftops", members, len(rooftops))
	}
	return p
}

// ── Phase 4: cluster configuration ──

func validateClusters(clusters []domain.Cluster, rooftops []domain.Rooftop, w io.Writer) *phase {
	p := &phase{name: "Phase 4: Cluster configuration"}

	seen := map[string]bool{}
	for _, c := range clusters {
		if seen[c.ID] {
			p.errorf("%s: duplicate cluster id", c.ID)
		}
		seen[c.ID] = true
		if c.RadiusKM <= 0 {
			p.errorf("%s: radius_km must be positive", c.ID)
		}
	}

	var uncovered []string
	for _, r := range rooftops {
		covered := false
		for _, c := range clusters {
			if c.Contains(r.Location()) {
				covered = true
				break
			}
		}
		if !covered {
			uncovered = append(uncovered, r.ID)
		}
	}
	if len(uncovered) > 0 {
		fmt.Fprintf(w, "  Note: %d rooftop(s) outside every cluster: %s\n", len(uncovered), strings.Join(uncovered, ", "))
	}
	return p
}

// ── Phase 5: address geocoding ──

func validateAddresses(ctx context.Context, geocoder domain.Geocoder, rooftops []domain.Rooftop, maxDriftKM float64) *phase {
	p := &phase{name: "Phase 5: Address geocoding"}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, r := range rooftops {
		g.Go(func() error {
			result, err := geocoder.ForwardGeocode(gctx, r.Address, "jp")
			if err != nil {
				p.errorf("%s: geocode %q: %v", r.ID, r.Address, err)
				return nil
			}
			if result.FormattedAddress == "" {
				p.errorf("%s: no geocoding match for %q", r.ID, r.Address)
				return nil
			}
			drift := domain.HaversineKM(r.Location(), domain.Point{Lat: result.Lat, Lng: result.Lng})
			if drift > maxDriftKM {
				p.errorf("%s: address resolves %.1f km from recorded coordinates", r.ID, drift)
			}
			return nil
		})
	}
	_ = g.Wait()
	return p
}
