package authcore

import "context"

type clientKeyContextKey struct{}

// WithClientKey attaches the caller's rate-limit key to ctx. Transports
// derive the key (typically network origin plus attempted identity) and the
// Gateway falls back to it when no explicit key is passed. The only
// requirement is that the same actor maps to a stable key across retries.
func WithClientKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, clientKeyContextKey{}, key)
}

// ClientKeyFromContext returns the key set by WithClientKey, or "".
func ClientKeyFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	key, _ := ctx.Value(clientKeyContextKey{}).(string)
	return key
}
