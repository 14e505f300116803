package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() Event {
	return Event{
		Type:        OrderConfirmed,
		Aggregate:   "sale_order",
		AggregateID: 7,
		CustomerID:  3,
		Timestamp:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Metadata:    map[string]any{"invoice_id": 4},
	}
}

func TestKafkaPublisherSendsKeyedJSON(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got Event
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.Type != OrderConfirmed || got.AggregateID != 7 {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := NewKafkaPublisherWithProducer(mockProducer, "")
	assert.Equal(t, DefaultTopic, p.Topic())
	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.NoError(t, p.Close())
}

func TestKafkaPublisherReportsSendFailure(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisherWithProducer(mockProducer, "sales")
	err := p.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "sales")
	require.Error(t, err)
}

func TestProducerConfig(t *testing.T) {
	cfg := NewProducerConfig()
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.True(t, cfg.Producer.Idempotent)
	assert.True(t, cfg.Producer.Return.Successes)
	assert.Equal(t, 1, cfg.Net.MaxOpenRequests)
	require.NoError(t, cfg.Validate())
}

func TestEventKeyAndRecorder(t *testing.T) {
	assert.Equal(t, "sale_order:7", sampleEvent().Key())

	rec := &Recorder{}
	require.NoError(t, rec.Publish(context.Background(), sampleEvent()))
	rec.Err = errors.New("down")
	require.Error(t, rec.Publish(context.Background(), Event{Type: InvoicePosted}))
	assert.Equal(t, []Type{OrderConfirmed, InvoicePosted}, rec.Types())
	assert.Len(t, rec.Events(), 2)

	require.NoError(t, Noop{}.Publish(context.Background(), sampleEvent()))
}
