package mykafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_PublishEvent(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	p := &Producer{writer: w}

	err := p.PublishEvent(context.Background(), TopicCartEvents, "7", CartEvent{Type: EventCartItemAdded, UserID: 7, ProductID: 3, Quantity: 2})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, TopicCartEvents, w.msgs[0].Topic)
	assert.Equal(t, []byte("7"), w.msgs[0].Key)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, EventCartItemAdded, got["type"])
	assert.EqualValues(t, 3, got["product_id"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishEvent_WriteError(t *testing.T) {
	t.Parallel()

	p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}}

	err := p.PublishEvent(context.Background(), TopicOrderEvents, "1", OrderEvent{Type: EventOrderCreated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order_events")
}

func TestProducer_PublishEvent_MarshalError(t *testing.T) {
	t.Parallel()

	p := &Producer{writer: &fakeWriter{}}

	err := p.PublishEvent(context.Background(), TopicCartEvents, "1", func() {})
	require.Error(t, err)
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	t.Parallel()

	_, err := NewProducer(nil)
	require.Error(t, err)
}
