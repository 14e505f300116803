package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"salescore/internal/core"
	"salescore/internal/events"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	require.Equal(t, log.DebugLevel, logger.GetLevel())

	logger.WithField("component", "test").Debug("hello")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello", line["msg"])
	require.Equal(t, "test", line["component"])

	logger, err = NewLogger(LogConfig{}, &buf)
	require.NoError(t, err)
	require.Equal(t, log.InfoLevel, logger.GetLevel())

	_, err = NewLogger(LogConfig{Level: "loud"}, &buf)
	require.Error(t, err)
	_, err = NewLogger(LogConfig{Format: "xml"}, &buf)
	require.Error(t, err)
}

func TestOpenRunsWorkflowAndPersistsOnClose(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "database.json")
	cfg := DefaultConfig()
	cfg.Storage.JSONPath = path

	reg := prometheus.NewRegistry()
	rec := &events.Recorder{}
	var logs bytes.Buffer
	a, err := Open(ctx, cfg, WithRegisterer(reg), WithPublisher(rec), WithLogOutput(&logs))
	require.NoError(t, err)

	svc := a.Service
	widget, err := svc.CreateProduct(ctx, core.ProductInput{Name: "Widget", Price: mustDecimal(t, "10"), Qty: 5})
	require.NoError(t, err)
	acme, err := svc.CreatePartner(ctx, core.PartnerInput{Name: "Acme", Email: "buyer@acme.test"})
	require.NoError(t, err)
	order, err := svc.CreateSaleOrder(ctx, acme.ID(), []core.LineInput{{ProductID: widget.ID(), Qty: 2}})
	require.NoError(t, err)
	_, err = svc.ConfirmSaleOrder(ctx, order.ID())
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))

	require.Equal(t, []events.Type{events.OrderConfirmed, events.InvoiceCreated}, rec.Types())
	count, err := testutil.GatherAndCount(reg, "salescore_operations_total")
	require.NoError(t, err)
	require.Equal(t, 4, count)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.EqualValues(t, 3, doc["products"]["1"]["qty"])
	require.Equal(t, "confirmed", doc["saleorders"]["1"]["state"])
	require.Equal(t, "draft", doc["invoices"]["1"]["state"])

	reopened, err := Open(ctx, cfg, WithRegisterer(prometheus.NewRegistry()), WithLogOutput(&logs))
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close(ctx) })
	p, err := reopened.Service.Product(widget.ID())
	require.NoError(t, err)
	require.Equal(t, 3, p.Qty())
}

func TestOpenFallsBackWithoutKafka(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Driver = core.StorageMemory
	cfg.Kafka.Brokers = []string{"127.0.0.1:1"}
	cfg.Metrics = MetricsNone

	var logs bytes.Buffer
	a, err := Open(context.Background(), cfg, WithLogOutput(&logs))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	require.IsType(t, events.Noop{}, a.publisher)
	require.Contains(t, logs.String(), "continuing without events")
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics = "statsd"
	_, err := Open(context.Background(), cfg)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.Storage.Driver = core.StorageBlob
	cfg.Storage.Blob.Driver = "ftp"
	_, err = Open(context.Background(), cfg, WithLogOutput(&bytes.Buffer{}))
	require.ErrorContains(t, err, "open snapshot store")
}

func TestOpenWithExpvarMetrics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Driver = core.StorageMemory
	cfg.Metrics = MetricsExpvar

	a, err := Open(context.Background(), cfg, WithLogOutput(&bytes.Buffer{}))
	require.NoError(t, err)
	_, err = a.Service.CreatePartner(context.Background(), core.PartnerInput{Name: "Acme", Email: "a@b.test"})
	require.NoError(t, err)
	require.NoError(t, a.Close(context.Background()))
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
