// Package userv1 defines UserService: the caller's own profile.
package userv1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.user.v1.UserService"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrgMembership is one of the caller's organizations with the role held there.
type OrgMembership struct {
	OrgID string `json:"org_id"`
	Role  string `json:"role"`
}

type GetMeRequest struct{}

type GetMeResponse struct {
	User        *User            `json:"user"`
	Memberships []*OrgMembership `json:"memberships"`
}

type UpdateProfileRequest struct {
	Name string `json:"name"`
}

type UpdateProfileResponse struct {
	User *User `json:"user"`
}

type UserServiceServer interface {
	GetMe(context.Context, *GetMeRequest) (*GetMeResponse, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*UpdateProfileResponse, error)
}

var UserService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "GetMe", UserServiceServer.GetMe),
		rpc.Unary(ServiceName, "UpdateProfile", UserServiceServer.UpdateProfile),
	},
	Metadata: "prodmatic/user/v1/user.proto",
}

func RegisterUserServiceServer(s grpc.ServiceRegistrar, srv UserServiceServer) {
	s.RegisterService(&UserService_ServiceDesc, srv)
}
