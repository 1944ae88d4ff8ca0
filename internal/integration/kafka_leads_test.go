//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	httpadapter "github.com/sorasolar/site-api/internal/adapter/http"
	"github.com/sorasolar/site-api/internal/adapter/dataset"
	"github.com/sorasolar/site-api/internal/adapter/kafka"
	"github.com/sorasolar/site-api/internal/config"
	"github.com/sorasolar/site-api/internal/domain"
	"github.com/sorasolar/site-api/internal/intake"
	"github.com/sorasolar/site-api/internal/observability"
	"github.com/sorasolar/site-api/internal/pipeline"
)

const testLeadsTopic = "test-contact-leads"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	kc, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(kc); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := kc.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestContactLeadReachesKafka posts a contact form through the full HTTP
// stack and reads the lead back from the topic.
func TestContactLeadReachesKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testLeadsTopic)

	cfg := &config.Config{
		KafkaBrokers:    []string{broker},
		KafkaLeadsTopic: testLeadsTopic,
	}
	writer := kafka.NewLeadWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	provider := dataset.NewProvider("", "", 5*time.Second, discardLogger())
	p := pipeline.New(provider, provider, []domain.Partitioner{
		domain.NewGridPartitioner(domain.DefaultCellSize, domain.DefaultGridThresholds()),
	}, domain.StrategyGrid, discardLogger(), metrics)
	require.NoError(t, p.Warm(ctx))

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:             ":0",
		ContactRateLimit: 10,
		ContactRateBurst: 10,
	}, p, intake.NewService(writer, discardLogger(), metrics), p, metrics, discardLogger())

	body := `{"name":"Yuki Tanaka","email":"yuki@example.jp","company":"Tanaka Foods","message":"Our Chiba plant has a flat roof of about 3,000 m2."}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testLeadsTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = reader.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err, "read from leads topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}

	var lead domain.Lead
	require.NoError(t, json.Unmarshal(msg.Value, &lead))

	assert.Equal(t, resp.ID, string(msg.Key))
	assert.Equal(t, resp.ID, lead.ID)
	assert.Equal(t, resp.ID, headers["lead_id"])
	assert.NotEmpty(t, headers["received_at"])
	assert.Equal(t, "Tanaka Foods", lead.Company)
	assert.Equal(t, "yuki@example.jp", lead.Email)
}

// TestLeadWriter_UnreachableBroker checks that a sink failure surfaces as a
// 500 without a lead id.
func TestLeadWriter_UnreachableBroker(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers:    []string{"127.0.0.1:1"},
		KafkaLeadsTopic: testLeadsTopic,
	}
	writer := kafka.NewLeadWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	svc := intake.NewService(writer, discardLogger(), observability.NewMetricsForTesting())
	_, err := svc.Submit(ctx, domain.ContactSubmission{
		Name:    "Yuki Tanaka",
		Email:   "yuki@example.jp",
		Message: "Please send a quote for our roof.",
	})
	require.Error(t, err)
}
