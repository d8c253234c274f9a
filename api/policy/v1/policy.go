// Package policyv1 defines PolicyService: organization Rego policies that can deny mutations.
package policyv1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.policy.v1.PolicyService"

type Policy struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name"`
	Rules     string    `json:"rules"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreatePolicyRequest struct {
	OrgID   string `json:"org_id"`
	Name    string `json:"name"`
	Rules   string `json:"rules"`
	Enabled bool   `json:"enabled"`
}

type UpdatePolicyRequest struct {
	OrgID    string  `json:"org_id"`
	PolicyID string  `json:"policy_id"`
	Name     *string `json:"name,omitempty"`
	Rules    *string `json:"rules,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
}

type DeletePolicyRequest struct {
	OrgID    string `json:"org_id"`
	PolicyID string `json:"policy_id"`
}

type GetPolicyRequest struct {
	OrgID    string `json:"org_id"`
	PolicyID string `json:"policy_id"`
}

type ListPoliciesRequest struct {
	OrgID string `json:"org_id"`
}

type PolicyResponse struct {
	Policy *Policy `json:"policy"`
}

type DeletePolicyResponse struct{}

type ListPoliciesResponse struct {
	Policies []*Policy `json:"policies"`
}

type PolicyServiceServer interface {
	CreatePolicy(context.Context, *CreatePolicyRequest) (*PolicyResponse, error)
	UpdatePolicy(context.Context, *UpdatePolicyRequest) (*PolicyResponse, error)
	DeletePolicy(context.Context, *DeletePolicyRequest) (*DeletePolicyResponse, error)
	GetPolicy(context.Context, *GetPolicyRequest) (*PolicyResponse, error)
	ListPolicies(context.Context, *ListPoliciesRequest) (*ListPoliciesResponse, error)
}

var PolicyService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PolicyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "CreatePolicy", PolicyServiceServer.CreatePolicy),
		rpc.Unary(ServiceName, "UpdatePolicy", PolicyServiceServer.UpdatePolicy),
		rpc.Unary(ServiceName, "DeletePolicy", PolicyServiceServer.DeletePolicy),
		rpc.Unary(ServiceName, "GetPolicy", PolicyServiceServer.GetPolicy),
		rpc.Unary(ServiceName, "ListPolicies", PolicyServiceServer.ListPolicies),
	},
	Metadata: "prodmatic/policy/v1/policy.proto",
}

func RegisterPolicyServiceServer(s grpc.ServiceRegistrar, srv PolicyServiceServer) {
	s.RegisterService(&PolicyService_ServiceDesc, srv)
}
