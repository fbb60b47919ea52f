package session

import "context"

type contextKey string

const visitorKey contextKey = "visitor"

// WithVisitor adds a visitor to the context.
func WithVisitor(ctx context.Context, v *Visitor) context.Context {
	return context.WithValue(ctx, visitorKey, v)
}

// FromContext retrieves the visitor from the context.
func FromContext(ctx context.Context) (*Visitor, bool) {
	v, ok := ctx.Value(visitorKey).(*Visitor)
	return v, ok
}
