package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not found in cache
var ErrCacheMiss = errors.New("cache miss")

// Cache defines the cache interface
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// PatientKey is the cache key of a patient read model
func PatientKey(patientID string) string {
	return "patient:" + patientID
}

// PatientVersionKey holds the token of the latest write to a patient or its
// orders. Cached read models tagged with any other token are stale.
func PatientVersionKey(patientID string) string {
	return "patient:" + patientID + ":version"
}
