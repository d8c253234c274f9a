// Package organizationv1 defines OrganizationService: tenants and their teams.
package organizationv1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.organization.v1.OrganizationService"

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Role is the caller's role in the organization.
	Role string `json:"role,omitempty"`
}

type Team struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateOrganizationRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type GetOrganizationRequest struct {
	OrgID string `json:"org_id"`
}

type ListMyOrganizationsRequest struct{}

type UpdateOrganizationRequest struct {
	OrgID string  `json:"org_id"`
	Name  *string `json:"name,omitempty"`
	Slug  *string `json:"slug,omitempty"`
}

type DeleteOrganizationRequest struct {
	OrgID string `json:"org_id"`
}

type OrganizationResponse struct {
	Organization *Organization `json:"organization"`
}

type ListMyOrganizationsResponse struct {
	Organizations []*Organization `json:"organizations"`
}

type DeleteOrganizationResponse struct{}

type CreateTeamRequest struct {
	OrgID       string `json:"org_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type UpdateTeamRequest struct {
	OrgID       string  `json:"org_id"`
	TeamID      string  `json:"team_id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type DeleteTeamRequest struct {
	OrgID  string `json:"org_id"`
	TeamID string `json:"team_id"`
}

type ListTeamsRequest struct {
	OrgID string `json:"org_id"`
}

type TeamResponse struct {
	Team *Team `json:"team"`
}

type DeleteTeamResponse struct{}

type ListTeamsResponse struct {
	Teams []*Team `json:"teams"`
}

type OrganizationServiceServer interface {
	CreateOrganization(context.Context, *CreateOrganizationRequest) (*OrganizationResponse, error)
	GetOrganization(context.Context, *GetOrganizationRequest) (*OrganizationResponse, error)
	ListMyOrganizations(context.Context, *ListMyOrganizationsRequest) (*ListMyOrganizationsResponse, error)
	UpdateOrganization(context.Context, *UpdateOrganizationRequest) (*OrganizationResponse, error)
	DeleteOrganization(context.Context, *DeleteOrganizationRequest) (*DeleteOrganizationResponse, error)
	CreateTeam(context.Context, *CreateTeamRequest) (*TeamResponse, error)
	UpdateTeam(context.Context, *UpdateTeamRequest) (*TeamResponse, error)
	DeleteTeam(context.Context, *DeleteTeamRequest) (*DeleteTeamResponse, error)
	ListTeams(context.Context, *ListTeamsRequest) (*ListTeamsResponse, error)
}

var OrganizationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrganizationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "CreateOrganization", OrganizationServiceServer.CreateOrganization),
		rpc.Unary(ServiceName, "GetOrganization", OrganizationServiceServer.GetOrganization),
		rpc.Unary(ServiceName, "ListMyOrganizations", OrganizationServiceServer.ListMyOrganizations),
		rpc.Unary(ServiceName, "UpdateOrganization", OrganizationServiceServer.UpdateOrganization),
		rpc.Unary(ServiceName, "DeleteOrganization", OrganizationServiceServer.DeleteOrganization),
		rpc.Unary(ServiceName, "CreateTeam", OrganizationServiceServer.CreateTeam),
		rpc.Unary(ServiceName, "UpdateTeam", OrganizationServiceServer.UpdateTeam),
		rpc.Unary(ServiceName, "DeleteTeam", OrganizationServiceServer.DeleteTeam),
		rpc.Unary(ServiceName, "ListTeams", OrganizationServiceServer.ListTeams),
	},
	Metadata: "prodmatic/organization/v1/organization.proto",
}

func RegisterOrganizationServiceServer(s grpc.ServiceRegistrar, srv OrganizationServiceServer) {
	s.RegisterService(&OrganizationService_ServiceDesc, srv)
}
