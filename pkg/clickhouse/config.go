package clickhouse

import "time"

// Config holds the connection settings. Zero fields take the defaults below.
type Config struct {
	Host            string
	Port            int    `default:"9000"`
	Database        string `default:"fincast"`
	User            string `default:"default"`
	Password        string
	UseHTTP         bool
	MaxOpenConns    int           `default:"10"`
	MaxIdleConns    int           `default:"5"`
	ConnMaxLifetime time.Duration `default:"5m"`
	DialTimeout     time.Duration `default:"5s"`
	ReadTimeout     time.Duration `default:"10s"`
	// AsyncInsert enables server-side insert buffering; WaitForAsync makes
	// the insert return only after the buffer is flushed.
	AsyncInsert      bool
	WaitForAsync     bool
	MaxExecutionTime time.Duration
	PingTimeout      time.Duration `default:"5s"`
}
