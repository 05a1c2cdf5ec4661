package httpapi

import "context"

// requestIDKey is the context key middleware stores the per-request
// correlation id under. An unexported key type paired with accessor
// functions means callers never need to know the key's underlying type.
type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// requestIDFromContext retrieves the correlation id injected by
// requestIDMiddleware. Returns "" outside of a request.
func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
