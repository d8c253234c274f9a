// Package auditv1 defines AuditService: read access to an organization's activity trail.
package auditv1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.audit.v1.AuditService"

type ActivityEntry struct {
	ID         string         `json:"id"`
	OrgID      string         `json:"org_id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	IP         string         `json:"ip,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

type ListActivityRequest struct {
	OrgID      string               `json:"org_id"`
	EntityType string               `json:"entity_type,omitempty"`
	EntityID   string               `json:"entity_id,omitempty"`
	ActorID    string               `json:"actor_id,omitempty"`
	Pagination *commonv1.Pagination `json:"pagination,omitempty"`
}

type ListActivityResponse struct {
	Entries    []*ActivityEntry           `json:"entries"`
	Pagination *commonv1.PaginationResult `json:"pagination"`
}

type AuditServiceServer interface {
	ListActivity(context.Context, *ListActivityRequest) (*ListActivityResponse, error)
}

var AuditService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuditServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "ListActivity", AuditServiceServer.ListActivity),
	},
	Metadata: "prodmatic/audit/v1/audit.proto",
}

func RegisterAuditServiceServer(s grpc.ServiceRegistrar, srv AuditServiceServer) {
	s.RegisterService(&AuditService_ServiceDesc, srv)
}
