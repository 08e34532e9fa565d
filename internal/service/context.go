package service

import "context"

type remoteIPKey struct{}

// WithRemoteIP attaches the client address to ctx for audit events.
func WithRemoteIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, remoteIPKey{}, ip)
}

func remoteIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(remoteIPKey{}).(string)
	return ip
}
