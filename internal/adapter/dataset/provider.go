// Package dataset loads the read-only rooftop and partner snapshots.
package dataset

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sorasolar/site-api/internal/domain"
)

const maxDatasetBytes = 16 << 20

// ErrDatasetTooLarge is returned when a file or HTTP source exceeds the size cap.
var ErrDatasetTooLarge = errors.New("dataset exceeds 16 MiB")

//go:embed data/rooftops.json data/partners.json
var embedded embed.FS

const (
	embeddedRooftops = "data/rooftops.json"
	embeddedPartners = "data/partners.json"
)

// Provider reads datasets from the embedded snapshot, a local file, or an
// HTTP(S) URL. Every call reads the source afresh.
type Provider struct {
	rooftopsSource string
	partnersSource string
	httpClient     *http.Client
	maxBytes       int64
	logger         *slog.Logger
}

// NewProvider creates a provider. An empty source selects the embedded snapshot.
func NewProvider(rooftopsSource, partnersSource string, timeout time.Duration, logger *slog.Logger) *Provider {
	return &Provider{
		rooftopsSource: rooftopsSource,
		partnersSource: partnersSource,
		httpClient:     &http.Client{Timeout: timeout},
		maxBytes:       maxDatasetBytes,
		logger:         logger,
	}
}

// Rooftops returns the current rooftop snapshot.
func (p *Provider) Rooftops(ctx context.Context) ([]domain.Rooftop, error) {
	var rooftops []domain.Rooftop
	if err := p.load(ctx, p.rooftopsSource, embeddedRooftops, &rooftops); err != nil {
		return nil, fmt.Errorf("load rooftops: %w", err)
	}
	return rooftops, nil
}

// Partners returns the current partner directory.
func (p *Provider) Partners(ctx context.Context) ([]domain.Partner, error) {
	var partners []domain.Partner
	if err := p.load(ctx, p.partnersSource, embeddedPartners, &partners); err != nil {
		return nil, fmt.Errorf("load partners: %w", err)
	}
	return partners, nil
}

func (p *Provider) load(ctx context.Context, source, embeddedName string, v any) error {
	data, err := p.read(ctx, source, embeddedName)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", describe(source), err)
	}
	p.logger.Debug("dataset read", "source", describe(source), "bytes", len(data))
	return nil
}

func (p *Provider) read(ctx context.Context, source, embeddedName string) ([]byte, error) {
	switch {
	case source == "":
		return embedded.ReadFile(embeddedName)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return p.fetch(ctx, source)
	default:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return p.readCapped(f, source)
	}
}

func (p *Provider) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("dataset source error: status %d: %s", resp.StatusCode, body)
	}
	return p.readCapped(resp.Body, url)
}

// readCapped reads one byte past the cap so an oversized source fails
// loudly instead of being truncated into invalid JSON.
func (p *Provider) readCapped(r io.Reader, source string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, fmt.Errorf("%s: %w", source, ErrDatasetTooLarge)
	}
	return data, nil
}

func describe(source string) string {
	if source == "" {
		return "embedded"
	}
	return source
}
