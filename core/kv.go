package core

import "context"

// KVStore is a string key-value surface. Get reports found=false for absent keys.
type KVStore interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Remove(ctx context.Context, key string) error
}
