package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	applogger "FinCast/pkg/logger"
)

// ProducerConfig configures a Producer. Zero fields take the defaults below;
// RequiredAcks 0 therefore means "all" (-1).
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int           `default:"-1"`
	Compression  string        `default:"snappy"` // gzip | snappy | lz4 | zstd
	MaxAttempts  int           `default:"3"`
	WriteTimeout time.Duration `default:"10s"`
	ReadTimeout  time.Duration `default:"10s"`
	BatchSize    int           `default:"100"`
	BatchBytes   int           `default:"1048576"`
	BatchTimeout time.Duration `default:"50ms"`
	// Async writes return before the broker acknowledges.
	Async bool
	// HashByKey routes equal keys to the same partition.
	HashByKey  bool
	Registerer prometheus.Registerer
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Brokers    []string
	GroupID    string        `default:"fincast"`
	// Workers handle messages in parallel; each partition stays on one worker.
	Workers    int           `default:"1"`
	BufferSize int           `default:"16"` // per worker queue
	RetryMax   int           `default:"3"`
	BackoffMin time.Duration `default:"50ms"`
	BackoffMax time.Duration `default:"2s"`
	// DLQTopic receives messages that still fail after RetryMax retries.
	// Empty disables the DLQ; failed messages are then committed and dropped.
	DLQTopic   string
	MinBytes   int `default:"1"`
	MaxBytes   int `default:"10485760"`
	Logger     *applogger.Logger
	Registerer prometheus.Registerer
}
