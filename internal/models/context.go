package models

import "context"

type requestContextKey struct{}

// RequestContext carries per-request identifiers down to the services so
// their log lines can be correlated with the HTTP access log.
type RequestContext struct {
	RequestId string
	UserId    string
	Operation string
}

// WithRequestContext attaches request data to a context.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// GetRequestContext retrieves request data from context, or nil if absent.
func GetRequestContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc
}

// RequestIdFromContext returns the request id or an empty string.
func RequestIdFromContext(ctx context.Context) string {
	if rc := GetRequestContext(ctx); rc != nil {
		return rc.RequestId
	}
	return ""
}
