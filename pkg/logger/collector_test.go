package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, _ string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *capturePublisher) entries() []AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []AggregatedLogEntry
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestCollectorAggregatesRepeatedErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "logs",
		Service:        "fincast",
		Publisher:      pub,
	})

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		l.Error("inference failed", String("signal", "income"), Error(boom))
	}
	l.Error("other failure")
	l.RemoveCollector()

	got := pub.entries()
	require.Len(t, got, 2)
	counts := map[string]int{}
	for _, e := range got {
		counts[e.Message] = e.Count
		assert.Equal(t, "fincast", e.Service)
		assert.Equal(t, "error", e.Level)
	}
	assert.Equal(t, 3, counts["inference failed"])
	assert.Equal(t, 1, counts["other failure"])
}

func TestTrimCaller(t *testing.T) {
	assert.Equal(t, "internal/usecase/forecast.go", trimCaller("/src/fincast/internal/usecase/forecast.go"))
	assert.Equal(t, "main.go", trimCaller("main.go"))
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	defer c.Close()

	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")

	assert.Eventually(t, func() bool { return len(pub.entries()) == 2 }, time.Second, 10*time.Millisecond)
}

func TestCollectorKeyIgnoresFieldOrder(t *testing.T) {
	a := entryKey("error", "m", map[string]interface{}{"x": 1, "y": "z"}, "c")
	b := entryKey("error", "m", map[string]interface{}{"y": "z", "x": 1}, "c")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, entryKey("error", "m", map[string]interface{}{"x": 2, "y": "z"}, "c"))
}

func TestFieldValues(t *testing.T) {
	assert.Equal(t, "v", String("k", "v").Value())
	assert.Equal(t, int64(7), Int("k", 7).Value())
	assert.Equal(t, true, Bool("k", true).Value())
	assert.Equal(t, int64(1500), Duration("k", 1500*time.Millisecond).Value())
	assert.Equal(t, "a,b", Strings("k", []string{"a", "b"}).Value())
	assert.Equal(t, "boom", Error(errors.New("boom")).Value())
	assert.Nil(t, Error(nil).Value())
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
	_, err = New(&Config{Level: "info", Format: "xml"})
	assert.Error(t, err)

	l, err := New(&Config{Level: "warn", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	l.With(String("component", "test")).Debug("dropped")
}
