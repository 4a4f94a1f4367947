// Package elastic writes merged variant documents to Elasticsearch, one
// index per chromosome. Each operation is a bulk "update" whose upsert
// document carries the canonical fields and whose script appends evidence
// that is not already present.
package elastic

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/elastic/go-elasticsearch/v7"
)

// Config holds the connection settings of a cluster.
type Config struct {
	Addresses  []string
	Username   string
	Password   string
	MaxRetries int // attempts on 429/502/503/504, 5 if zero
}

// NewClient creates a client that retries throttled and unavailable
// responses with exponential backoff.
func NewClient(cfg Config) (*elasticsearch.Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("elastic: no cluster address")
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}

	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,

		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff:  retryDelay,
		MaxRetries:    maxRetries,
	})
}

// retryDelay returns the wait before retry attempt (1-based). Bulk workers
// retry concurrently, so every call walks its own backoff.
func retryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	var d time.Duration
	for range attempt {
		d = b.NextBackOff()
	}
	return d
}
