package dynamostore

import (
	"time"

	"go.uber.org/zap"
)

// Config holds configuration for the Store.
type Config struct {
	// TablePrefix is prepended to a domain name to form its table name.
	// Default: "" (the table is named after the domain)
	TablePrefix string

	// KeyAttribute is the table's hash key, which holds the item name.
	// Default: "item_name"
	KeyAttribute string

	// AttributePrefix is prepended to item attribute names so they cannot collide with
	// the hash key. Each item attribute is stored as a list of strings.
	// Default: "attr:"
	AttributePrefix string

	// WaitForTables makes CreateDomain block until a new table is active.
	// Default: false
	WaitForTables bool

	// WaitTimeout bounds how long CreateDomain waits for a new table.
	// Default: 2m
	WaitTimeout time.Duration

	// Concurrency is the number of UpdateItem calls issued in parallel by BatchPut.
	// Default: 8
	Concurrency int

	// MaxRetries is the number of times unprocessed deletes are resubmitted before
	// BatchDelete fails.
	// Default: 3
	MaxRetries int

	// Logger receives debug logs per request and warnings on resubmits.
	// Default: no-op
	Logger *zap.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		KeyAttribute:    "item_name",
		AttributePrefix: "attr:",
		WaitTimeout:     2 * time.Minute,
		Concurrency:     8,
		MaxRetries:      3,
		Logger:          zap.NewNop(),
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.KeyAttribute == "" {
		c.KeyAttribute = "item_name"
	}
	if c.AttributePrefix == "" {
		c.AttributePrefix = "attr:"
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 2 * time.Minute
	}
	if c.Concurrency < 1 {
		c.Concurrency = 8
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}
