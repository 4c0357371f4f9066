package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const forwardedForKey = "x-forwarded-for"

// UnaryServerInterceptor rejects calls over the limit with ResourceExhausted. When the
// counter fails the call goes through if failOpen is set and is refused with Unavailable
// otherwise.
func UnaryServerInterceptor(l *FixedWindow, log *slog.Logger, failOpen bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ok, err := l.Allow(ctx, clientKey(ctx))
		if err != nil {
			log.Warn("rate limiter error", slog.String("rpc", info.FullMethod), slog.Any("err", err))
			if failOpen {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unavailable, "rate limiter unavailable")
		}
		if !ok {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

func clientKey(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(forwardedForKey); len(v) > 0 {
			if ip := strings.TrimSpace(strings.Split(v[0], ",")[0]); ip != "" {
				return ip
			}
		}
	}
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
