package authcore

import "context"

// requestMeta describes who is calling. It is copied into audit events and is
// never used for authentication decisions.
type requestMeta struct {
	clientIP  string
	userAgent string
	requestID string
}

type requestMetaKey struct{}

func metaFrom(ctx context.Context) requestMeta {
	if ctx == nil {
		return requestMeta{}
	}
	m, _ := ctx.Value(requestMetaKey{}).(requestMeta)
	return m
}

func withMeta(ctx context.Context, update func(*requestMeta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := metaFrom(ctx)
	update(&m)
	return context.WithValue(ctx, requestMetaKey{}, m)
}

// WithClientIP records the caller's IP address on ctx for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.clientIP = ip })
}

// WithUserAgent records the HTTP User-Agent on ctx for audit events.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.userAgent = userAgent })
}

// WithRequestID records the transport's request id on ctx so audit events can be
// joined with access logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.requestID = id })
}
