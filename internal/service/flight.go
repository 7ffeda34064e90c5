package service

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// defaultSharedFetchTimeout bounds a fetch shared through singleflight when
// no explicit bound is configured.
const defaultSharedFetchTimeout = 10 * time.Second

// sharedContext returns the context a singleflight fetch runs under. It keeps
// the values of ctx (logger, request id) but not its deadline: the fetch
// serves every waiting caller, so no single caller's deadline may end it.
func sharedContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultSharedFetchTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// awaitShared waits for a singleflight result or for ctx to end, whichever
// comes first. A caller that gives up leaves the fetch running for the others.
func awaitShared(ctx context.Context, ch <-chan singleflight.Result) (interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}
