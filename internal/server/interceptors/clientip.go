package interceptors

import (
	"context"
	"net"
	"net/netip"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

type clientIPKey struct{}

// ProxyTrust decides when forwarding headers may replace the peer address. The zero value
// trusts no proxy, so x-forwarded-for and x-real-ip are ignored.
type ProxyTrust struct {
	prefixes []netip.Prefix
}

// NewProxyTrust trusts forwarding headers only on connections from the given networks.
func NewProxyTrust(prefixes []netip.Prefix) ProxyTrust {
	return ProxyTrust{prefixes: prefixes}
}

func (t ProxyTrust) trusts(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range t.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Resolve returns the client IP for ctx. The peer address wins unless it is a trusted proxy;
// then the right-most x-forwarded-for hop that is not itself trusted is used, then x-real-ip.
// It returns "unknown" when there is no peer.
func (t ProxyTrust) Resolve(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host := p.Addr.String()
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || !t.trusts(addr) {
		return host
	}
	md, _ := metadata.FromIncomingContext(ctx)
	if hop, ok := t.forwardedFor(md.Get("x-forwarded-for")); ok {
		return hop
	}
	if vals := md.Get("x-real-ip"); len(vals) > 0 {
		if a, err := netip.ParseAddr(strings.TrimSpace(vals[0])); err == nil {
			return a.String()
		}
	}
	return host
}

func (t ProxyTrust) forwardedFor(vals []string) (string, bool) {
	var hops []string
	for _, v := range vals {
		hops = append(hops, strings.Split(v, ",")...)
	}
	var last string
	for i := len(hops) - 1; i >= 0; i-- {
		a, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return last, last != ""
		}
		last = a.String()
		if !t.trusts(a) {
			return last, true
		}
	}
	return last, last != ""
}

// ClientIPUnary resolves the client IP once per call and stores it for ClientIP.
func ClientIPUnary(t ProxyTrust) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		return handler(context.WithValue(ctx, clientIPKey{}, t.Resolve(ctx)), req)
	}
}

// ClientIP returns the IP stored by ClientIPUnary, or the peer address when the call did not
// pass through it.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok && ip != "" {
		return ip
	}
	return ProxyTrust{}.Resolve(ctx)
}
