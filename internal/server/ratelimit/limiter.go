// Package ratelimit throttles callers by an explicit identity key.
package ratelimit

import (
	"context"
	"errors"
	"strconv"
)

// ErrUnavailable means the limiter's backing store could not be reached.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Limiter admits or rejects one request for key. It returns
// common.ErrRateLimited when the key is over budget.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// UserKey and AddrKey build identity keys so that user ids and remote
// addresses never share a budget.
func UserKey(id int64) string { return "user:" + strconv.FormatInt(id, 10) }
func AddrKey(addr string) string { return "ip:" + addr }
