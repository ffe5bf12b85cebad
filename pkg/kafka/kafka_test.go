package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
	// huge attempt counts must not overflow into negative durations
	assert.Greater(t, backoffWithJitter(min, max, 80), time.Duration(0))
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue([]byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	b, err = encodeValue(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(b))

	_, err = encodeValue(make(chan int))
	assert.Error(t, err)
}

func TestToHeadersSorted(t *testing.T) {
	assert.Nil(t, toHeaders(nil))
	h := toHeaders(map[string]string{"b": "2", TraceHeader: "t"})
	require.Len(t, h, 2)
	assert.Equal(t, "b", h[0].Key)
	assert.Equal(t, TraceHeader, h[1].Key)
	assert.Equal(t, "t", headerValue(kafka.Message{Headers: h}, TraceHeader))
}

func TestConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer(ConsumerConfig{})
	assert.ErrorContains(t, err, "brokers are required")
	_, err = NewProducer(ProducerConfig{})
	assert.ErrorContains(t, err, "brokers are required")
}

func TestConfigDefaults(t *testing.T) {
	c, err := NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9092"}, Workers: 4, Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	assert.Equal(t, 4, c.cfg.Workers)
	assert.Equal(t, "fincast", c.cfg.GroupID)
	assert.Equal(t, 3, c.cfg.RetryMax)
	assert.Equal(t, 2*time.Second, c.cfg.BackoffMax)
	assert.Nil(t, c.dlq)

	p, err := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, HashByKey: true, Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, "snappy", p.compression)
	assert.Equal(t, kafka.RequireAll, p.w.RequiredAcks)
	assert.IsType(t, &kafka.Hash{}, p.w.Balancer)

	_, err = NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, Compression: "brotli", Registerer: prometheus.NewRegistry()})
	assert.ErrorContains(t, err, "unknown compression")
}

func TestConsumerPinsPartitionToQueue(t *testing.T) {
	c, err := NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9092"}, Workers: 4, Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	require.Len(t, c.queues, 4)

	for p := 0; p < 16; p++ {
		q := c.queueFor("ledger", p)
		assert.Equal(t, q, c.queueFor("ledger", p))
		assert.GreaterOrEqual(t, q, 0)
		assert.Less(t, q, 4)
	}
}

type gatedHandler struct {
	mu      sync.Mutex
	seen    []string
	gate    chan struct{}
	blockOn string
}

func (h *gatedHandler) Topic() string { return "ledger" }

func (h *gatedHandler) Handle(_ context.Context, b []byte) error {
	if string(b) == h.blockOn {
		<-h.gate
	}
	h.mu.Lock()
	h.seen = append(h.seen, string(b))
	h.mu.Unlock()
	return nil
}

func (h *gatedHandler) handled() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.seen...)
}

func TestConsumerKeepsPartitionOrderAcrossWorkers(t *testing.T) {
	c, err := NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9092"}, Workers: 4, Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	h := &gatedHandler{gate: make(chan struct{}), blockOn: "p0-5"}
	c.RegisterHandler(h)
	c.startWorkers()

	other := 1
	for c.queueFor("ledger", other) == c.queueFor("ledger", 0) {
		other++
	}
	send := func(partition int, offset int64, value string) {
		require.True(t, c.dispatch(&message{topic: "ledger", km: kafka.Message{
			Topic: "ledger", Partition: partition, Offset: offset, Value: []byte(value),
		}}))
	}
	send(0, 5, "p0-5")
	send(0, 6, "p0-6")
	send(other, 1, "other-1")

	// another partition is not held up by the blocked one
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"other-1"}, h.handled())
	}, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, []string{"other-1"}, h.handled(), "offset 6 must wait for offset 5")

	close(h.gate)
	require.Eventually(t, func() bool { return len(h.handled()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"other-1", "p0-5", "p0-6"}, h.handled())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}

type panicHandler struct{ calls int }

func (h *panicHandler) Topic() string { return "ledger" }

func (h *panicHandler) Handle(context.Context, []byte) error {
	h.calls++
	panic("boom")
}

func TestConsumerRetriesPanickingHandler(t *testing.T) {
	c, err := NewConsumer(ConsumerConfig{
		Brokers: []string{"localhost:9092"}, RetryMax: 2,
		BackoffMin: time.Millisecond, BackoffMax: time.Millisecond,
		Registerer: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	h := &panicHandler{}
	c.handleMessage(h, &message{topic: "ledger", km: kafka.Message{Topic: "ledger"}})
	assert.Equal(t, 3, h.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.handled.WithLabelValues("ledger", "error")))
}

func TestConsumerStartWithoutHandlers(t *testing.T) {
	c, err := NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9092"}, Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	assert.Error(t, c.Start())
}

func TestTraceMiddleware(t *testing.T) {
	var seen []string
	record := func(name string) Middleware {
		return func(next HandleFunc) HandleFunc {
			return func(ctx context.Context, km kafka.Message) error {
				seen = append(seen, name)
				return next(ctx, km)
			}
		}
	}
	h := chain(func(ctx context.Context, km kafka.Message) error {
		assert.Equal(t, "abc", TraceIDFrom(ctx))
		_, ok := StartTimeFrom(ctx)
		assert.True(t, ok)
		assert.Equal(t, []byte("x"), km.Value)
		return assert.AnError
	}, []Middleware{record("outer"), Trace(), record("inner")})

	km := kafka.Message{Value: []byte("x"), Headers: []kafka.Header{{Key: TraceHeader, Value: []byte("abc")}}}
	assert.ErrorIs(t, h(context.Background(), km), assert.AnError)
	assert.Equal(t, []string{"outer", "inner"}, seen)
	assert.Empty(t, TraceIDFrom(context.Background()))
}

func TestProducerMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newProducerMetrics(reg)
	m.observe("events", "snappy", 10, 2, time.Millisecond, nil)
	m.observe("events", "snappy", 5, 1, time.Millisecond, assert.AnError)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.msgs.WithLabelValues("events", "snappy", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errs.WithLabelValues("events")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.bytes.WithLabelValues("events", "snappy")))
}
