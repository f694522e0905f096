package repositories

import "context"

type freshReadKey struct{}

// WithFreshRead marks ctx so caching stores go to the backing store instead
// of answering from cache. Read-modify-write cycles use it for their read.
func WithFreshRead(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshReadKey{}, true)
}

// IsFreshRead reports whether ctx was marked by WithFreshRead
func IsFreshRead(ctx context.Context) bool {
	fresh, _ := ctx.Value(freshReadKey{}).(bool)
	return fresh
}
