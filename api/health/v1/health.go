// Package healthv1 defines HealthService.
package healthv1

import (
	"context"

	"google.golang.org/grpc"

	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.health.v1.HealthService"

type HealthCheckRequest struct{}

type ServingStatus string

const (
	StatusServing    ServingStatus = "SERVING"
	StatusNotServing ServingStatus = "NOT_SERVING"
)

type HealthCheckResponse struct {
	Status ServingStatus     `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type HealthServiceServer interface {
	HealthCheck(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error)
}

var HealthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HealthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "HealthCheck", HealthServiceServer.HealthCheck),
	},
	Metadata: "prodmatic/health/v1/health.proto",
}

func RegisterHealthServiceServer(s grpc.ServiceRegistrar, srv HealthServiceServer) {
	s.RegisterService(&HealthService_ServiceDesc, srv)
}

// HealthCheckMethod is the full method name, used to exempt it from auth and request logging.
var HealthCheckMethod = rpc.FullMethod(ServiceName, "HealthCheck")
