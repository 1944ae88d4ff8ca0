// Package intake accepts contact-form submissions and hands valid ones to a
// lead sink.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sorasolar/site-api/internal/domain"
	"github.com/sorasolar/site-api/internal/observability"
)

// LeadSink receives accepted leads.
type LeadSink interface {
	Publish(ctx context.Context, lead domain.Lead) error
}

// Service validates submissions and publishes the accepted ones.
type Service struct {
	sink    LeadSink
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService creates an intake service writing to sink.
func NewService(sink LeadSink, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{sink: sink, logger: logger, metrics: metrics}
}

// Submit validates sub and publishes it as a new lead. Invalid input returns
// a *domain.ValidationError; sink failures are wrapped and returned as is.
func (s *Service) Submit(ctx context.Context, sub domain.ContactSubmission) (domain.Lead, error) {
	sub = normalize(sub)

	if err := sub.Validate(); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			s.metrics.ContactSubmissions.WithLabelValues("invalid").Inc()
		}
		return domain.Lead{}, err
	}

	lead := domain.NewLead(sub)
	if err := s.sink.Publish(ctx, lead); err != nil {
		s.metrics.ContactSubmissions.WithLabelValues("failed").Inc()
		s.logger.Error("lead publish failed", "lead_id", lead.ID, "error", err)
		return domain.Lead{}, fmt.Errorf("submit lead: %w", err)
	}

	s.metrics.ContactSubmissions.WithLabelValues("accepted").Inc()
	s.metrics.LeadsPublished.Inc()
	s.logger.Info("lead accepted", "lead_id", lead.ID)
	return lead, nil
}

// RecordRateLimited counts a submission rejected before reaching Submit.
func (s *Service) RecordRateLimited() {
	s.metrics.ContactSubmissions.WithLabelValues("rate_limited").Inc()
}

func normalize(sub domain.ContactSubmission) domain.ContactSubmission {
	return domain.ContactSubmission{
		Name:    strings.TrimSpace(sub.Name),
		Email:   strings.TrimSpace(sub.Email),
		Company: strings.TrimSpace(sub.Company),
		Phone:   strings.TrimSpace(sub.Phone),
		Message: strings.TrimSpace(sub.Message),
	}
}

// LogSink writes leads to the logger. Used when no broker is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Publish(_ context.Context, lead domain.Lead) error {
	l.logger.Info("new contact lead",
		"lead_id", lead.ID,
		"received_at", lead.ReceivedAt,
		"name", lead.Name,
		"email", lead.Email,
		"company", lead.Company,
	)
	return nil
}
