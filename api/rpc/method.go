package rpc

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"google.golang.org/grpc"
)

// Unary builds a MethodDesc for a method of the server interface S taking *Req and returning *Resp.
// The handler follows the protoc-gen-go-grpc shape so interceptors see the usual UnaryServerInfo.
func Unary[S any, Req any, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod returns the "/service/method" name used in interceptors and metadata.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// Invoke calls a unary method over conn with the JSON content-subtype.
func Invoke[Resp any](ctx context.Context, conn grpc.ClientConnInterface, service, method string, req any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := conn.Invoke(ctx, FullMethod(service, method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Method is a registered unary method bound to its service implementation.
type Method struct {
	Service string
	Desc    grpc.MethodDesc
	Impl    any
}

// Registry records registered services so non-gRPC transports can dispatch into them.
// It implements grpc.ServiceRegistrar and can forward to further registrars.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]Method
	next    []grpc.ServiceRegistrar
}

// NewRegistry returns a Registry that also registers every service on next (e.g. a *grpc.Server).
func NewRegistry(next ...grpc.ServiceRegistrar) *Registry {
	return &Registry{methods: make(map[string]Method), next: next}
}

// RegisterService implements grpc.ServiceRegistrar.
func (r *Registry) RegisterService(desc *grpc.ServiceDesc, impl any) {
	r.mu.Lock()
	for _, m := range desc.Methods {
		r.methods[FullMethod(desc.ServiceName, m.MethodName)] = Method{Service: desc.ServiceName, Desc: m, Impl: impl}
	}
	r.mu.Unlock()
	for _, n := range r.next {
		n.RegisterService(desc, impl)
	}
}

// Lookup returns the method registered under service and method.
func (r *Registry) Lookup(service, method string) (Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.methods[FullMethod(service, method)]
	return m, ok
}

// Methods lists the full names of all registered methods, sorted.
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.methods))
	for k := range r.methods {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Call dispatches one request through the registered handler and interceptor.
func (m Method) Call(ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	if m.Impl == nil {
		return nil, fmt.Errorf("rpc: %s/%s has no implementation", m.Service, m.Desc.MethodName)
	}
	return m.Desc.Handler(m.Impl, ctx, dec, interceptor)
}
