// Package membershipv1 defines MembershipService: invitations, roles and member removal.
package membershipv1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.membership.v1.MembershipService"

type Member struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	OrgID     string    `json:"org_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Invitation struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	InvitedBy string    `json:"invited_by"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type InviteMemberRequest struct {
	OrgID string `json:"org_id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// InviteMemberResponse carries the plaintext token once; only its hash is stored.
type InviteMemberResponse struct {
	Invitation *Invitation `json:"invitation"`
	Token      string      `json:"token"`
}

type AcceptInvitationRequest struct {
	Token string `json:"token"`
}

type MemberResponse struct {
	Member *Member `json:"member"`
}

type ListInvitationsRequest struct {
	OrgID string `json:"org_id"`
}

type ListInvitationsResponse struct {
	Invitations []*Invitation `json:"invitations"`
}

type UpdateRoleRequest struct {
	OrgID  string `json:"org_id"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type RemoveMemberRequest struct {
	OrgID  string `json:"org_id"`
	UserID string `json:"user_id"`
}

type RemoveMemberResponse struct{}

type ListMembersRequest struct {
	OrgID      string               `json:"org_id"`
	Pagination *commonv1.Pagination `json:"pagination,omitempty"`
}

type ListMembersResponse struct {
	Members    []*Member                  `json:"members"`
	Pagination *commonv1.PaginationResult `json:"pagination"`
}

type MembershipServiceServer interface {
	InviteMember(context.Context, *InviteMemberRequest) (*InviteMemberResponse, error)
	AcceptInvitation(context.Context, *AcceptInvitationRequest) (*MemberResponse, error)
	ListInvitations(context.Context, *ListInvitationsRequest) (*ListInvitationsResponse, error)
	UpdateRole(context.Context, *UpdateRoleRequest) (*MemberResponse, error)
	RemoveMember(context.Context, *RemoveMemberRequest) (*RemoveMemberResponse, error)
	ListMembers(context.Context, *ListMembersRequest) (*ListMembersResponse, error)
}

var MembershipService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MembershipServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "InviteMember", MembershipServiceServer.InviteMember),
		rpc.Unary(ServiceName, "AcceptInvitation", MembershipServiceServer.AcceptInvitation),
		rpc.Unary(ServiceName, "ListInvitations", MembershipServiceServer.ListInvitations),
		rpc.Unary(ServiceName, "UpdateRole", MembershipServiceServer.UpdateRole),
		rpc.Unary(ServiceName, "RemoveMember", MembershipServiceServer.RemoveMember),
		rpc.Unary(ServiceName, "ListMembers", MembershipServiceServer.ListMembers),
	},
	Metadata: "prodmatic/membership/v1/membership.proto",
}

func RegisterMembershipServiceServer(s grpc.ServiceRegistrar, srv MembershipServiceServer) {
	s.RegisterService(&MembershipService_ServiceDesc, srv)
}
