package utils

import "context"

// AfterFunc arranges to call f in its own goroutine after ctx is done.
func AfterFunc(ctx context.Context, f func()) (stop func() bool) {
	return context.AfterFunc(ctx, f)
}
